// Package seeds builds the expanded seed catalog: curated category pages
// are resolved to their member articles and unioned with the base seed list.
package seeds

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omnidatabase/codex-cli/internal/wiki"
)

// seedFile is the on-disk seeds document. A bare JSON array of urls is also
// accepted.
type seedFile struct {
	SeedURLs     []string `json:"seed_urls"`
	CategoryURLs []string `json:"category_urls"`
}

func loadSeedDoc(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seeds: read %s", path)
	}
	var doc seedFile
	if err := json.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, eris.Wrapf(err, "seeds: parse %s", path)
	}
	return &seedFile{SeedURLs: urls, CategoryURLs: urls}, nil
}

// LoadSeedTitles reads a seeds file (object with seed_urls, or a bare url
// list) and returns the deduplicated article titles in file order.
func LoadSeedTitles(path, host string) ([]string, error) {
	doc, err := loadSeedDoc(path)
	if err != nil {
		return nil, err
	}
	var titles []string
	seen := map[string]bool{}
	for _, raw := range doc.SeedURLs {
		t := wiki.TitleFromURL(host, raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		titles = append(titles, t)
	}
	return titles, nil
}

// LoadCategoryTitles reads a category seeds file (object with category_urls,
// or a bare list) and returns normalized Category: titles in file order.
func LoadCategoryTitles(path, host string) ([]string, error) {
	doc, err := loadSeedDoc(path)
	if err != nil {
		return nil, err
	}
	var titles []string
	seen := map[string]bool{}
	for _, raw := range doc.CategoryURLs {
		t := wiki.NormalizeCategoryTitle(host, raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		titles = append(titles, t)
	}
	return titles, nil
}

// MemberLister lists the article members of a category.
type MemberLister interface {
	FetchCategoryMembers(ctx context.Context, category string, limit int) ([]string, error)
}

// Metadata summarizes a catalog build.
type Metadata struct {
	GeneratedAt       string `json:"generated_at"`
	BaseSeedCount     int    `json:"base_seed_count"`
	CategoriesCount   int    `json:"categories_count"`
	ExpandedSeedCount int    `json:"expanded_seed_count"`
	Errors            int    `json:"errors"`
}

// Catalog is the expanded seed catalog document.
type Catalog struct {
	SeedURLs       []string            `json:"seed_urls"`
	Metadata       Metadata            `json:"metadata"`
	DiscoveredFrom map[string][]string `json:"discovered_from"`
}

// Expander resolves category members and merges them with base seeds.
type Expander struct {
	client             MemberLister
	host               string
	MembersPerCategory int
	Concurrency        int
	Now                func() time.Time
}

// NewExpander creates an Expander. host is used to build article urls.
func NewExpander(client MemberLister, host string) *Expander {
	return &Expander{
		client:             client,
		host:               host,
		MembersPerCategory: 200,
		Concurrency:        4,
		Now:                time.Now,
	}
}

// Build fetches members for every category concurrently and unions them with
// the base seed titles. Per-category fetch failures are counted, not fatal.
func (e *Expander) Build(ctx context.Context, baseSeeds, categories []string) *Catalog {
	allTitles := map[string]bool{}
	for _, t := range baseSeeds {
		allTitles[t] = true
	}
	discoveredFrom := map[string]map[string]bool{}
	errCount := 0

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Concurrency)
	for _, cat := range categories {
		cat := cat
		g.Go(func() error {
			members, err := e.client.FetchCategoryMembers(gctx, cat, e.MembersPerCategory)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("category expansion failed",
					zap.String("category", cat),
					zap.Error(err),
				)
				errCount++
				return nil
			}
			for _, title := range members {
				allTitles[title] = true
				if discoveredFrom[title] == nil {
					discoveredFrom[title] = map[string]bool{}
				}
				discoveredFrom[title][cat] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	sorted := make([]string, 0, len(allTitles))
	for t := range allTitles {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)

	urls := make([]string, len(sorted))
	for i, t := range sorted {
		urls[i] = wiki.URLFromTitle(e.host, t)
	}

	from := make(map[string][]string, len(discoveredFrom))
	for title, cats := range discoveredFrom {
		list := make([]string, 0, len(cats))
		for c := range cats {
			list = append(list, c)
		}
		sort.Strings(list)
		from[title] = list
	}

	return &Catalog{
		SeedURLs: urls,
		Metadata: Metadata{
			GeneratedAt:       e.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
			BaseSeedCount:     len(baseSeeds),
			CategoriesCount:   len(categories),
			ExpandedSeedCount: len(urls),
			Errors:            errCount,
		},
		DiscoveredFrom: from,
	}
}

// WriteCatalog writes the catalog as indented JSON, creating parent dirs.
func WriteCatalog(path string, c *Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return eris.Wrap(err, "seeds: marshal catalog")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "seeds: create dir %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "seeds: write %s", path)
	}
	return nil
}
