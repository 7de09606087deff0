// Package catalog owns the persistent JSON catalog document and the derived
// indexes the merge engine consults. The document is read once at run start,
// mutated in memory, and written back atomically: a crash mid-run leaves the
// file untouched.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
)

// Item is the persisted shape of a catalog record.
type Item struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Img   string            `json:"img"`
	Specs map[string]string `json:"specs"`
	Lore  string            `json:"lore"`
}

// ModuleGroup holds one top-level module's categories.
type ModuleGroup struct {
	Items map[string][]*Item `json:"items"`
}

// Catalog is the whole catalog document: module name → category → items.
type Catalog map[string]*ModuleGroup

// Load reads and parses the catalog file. Any parse failure is fatal to the
// run; the merge engine never operates on a partially understood catalog.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read")
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	return c, nil
}

// Save writes the catalog as an indented JSON document via a temp file and
// rename, so readers never observe a half-written catalog.
func Save(path string, c Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return eris.Wrap(err, "catalog: marshal")
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return eris.Wrap(err, "catalog: create temp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "catalog: write temp")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "catalog: close temp")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "catalog: rename")
	}
	return nil
}

// Target is a (module, category) pair.
type Target struct {
	Module   string
	Category string
}

// ValidTargets returns the set of module/category pairs present in the
// catalog's structure. The merge engine only inserts into pre-existing pairs.
func (c Catalog) ValidTargets() map[Target]bool {
	out := make(map[Target]bool)
	for module, group := range c {
		if group == nil {
			continue
		}
		for category := range group.Items {
			out[Target{Module: module, Category: category}] = true
		}
	}
	return out
}

// Location addresses one item inside the catalog.
type Location struct {
	Module   string
	Category string
	Position int
}

// IdentityIndex maps item ids to their catalog location. It is rebuilt from
// the document at run start and updated eagerly as inserts happen, so a
// record inserted mid-run is visible to later candidates in the same run.
type IdentityIndex map[string]Location

// BuildIdentityIndex scans the catalog and indexes every item id.
func BuildIdentityIndex(c Catalog) IdentityIndex {
	index := make(IdentityIndex)
	for module, group := range c {
		if group == nil {
			continue
		}
		for category, items := range group.Items {
			for i, item := range items {
				if item != nil && item.ID != "" {
					index[item.ID] = Location{Module: module, Category: category, Position: i}
				}
			}
		}
	}
	return index
}

// LoreRow is one existing record's narrative text, used for near-duplicate
// comparison within its module/category.
type LoreRow struct {
	Module   string
	Category string
	ID       string
	Lore     string
}

// BuildLoreIndex collects the lore text of every catalog item that has one.
// Rows are ordered by module, category, then item position: the scan order
// is the declared tie-break for equal-similarity matches, so it cannot be
// left to map iteration.
func BuildLoreIndex(c Catalog) []LoreRow {
	var out []LoreRow
	for _, module := range sortedKeys(c) {
		group := c[module]
		if group == nil {
			continue
		}
		for _, category := range sortedKeys(group.Items) {
			for _, item := range group.Items[category] {
				if item == nil || len(item.Lore) == 0 {
					continue
				}
				out = append(out, LoreRow{
					Module:   module,
					Category: category,
					ID:       item.ID,
					Lore:     item.Lore,
				})
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the item at a location, or nil if the location is stale.
func (c Catalog) Get(loc Location) *Item {
	group, ok := c[loc.Module]
	if !ok || group == nil {
		return nil
	}
	items := group.Items[loc.Category]
	if loc.Position < 0 || loc.Position >= len(items) {
		return nil
	}
	return items[loc.Position]
}

// Append adds an item to a module/category and returns its position.
func (c Catalog) Append(module, category string, item *Item) int {
	group := c[module]
	group.Items[category] = append(group.Items[category], item)
	return len(group.Items[category]) - 1
}
