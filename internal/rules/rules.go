// Package rules loads the mapping-rules and threshold documents that drive
// classification. Keyword groups are kept in document order: module and
// category selection breaks score ties by first appearance in the file, so
// the ordering is part of the contract, not an accident of map iteration.
package rules

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// KeywordSet is one named keyword group (a module, category or canon tag).
type KeywordSet struct {
	Name     string
	Keywords []string
}

// KeywordList is an ordered sequence of keyword groups. It decodes from a
// JSON or YAML object, preserving the order keys appear in the document.
type KeywordList []KeywordSet

// UnmarshalJSON decodes an object token-by-token so key order survives.
func (kl *KeywordList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "rules: decode keyword list")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.New("rules: keyword list must be a JSON object")
	}

	out := KeywordList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "rules: decode keyword list key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return eris.New("rules: keyword list key must be a string")
		}
		var words []string
		if err := dec.Decode(&words); err != nil {
			return eris.Wrapf(err, "rules: decode keywords for %q", key)
		}
		out = append(out, KeywordSet{Name: key, Keywords: words})
	}
	*kl = out
	return nil
}

// MarshalJSON renders the list back as an object in list order.
func (kl KeywordList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, set := range kl {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(set.Name)
		if err != nil {
			return nil, err
		}
		words, err := json.Marshal(set.Keywords)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(words)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping node, preserving key order.
func (kl *KeywordList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return eris.New("rules: keyword list must be a YAML mapping")
	}
	out := KeywordList{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		var words []string
		if err := valNode.Decode(&words); err != nil {
			return eris.Wrapf(err, "rules: decode keywords for %q", keyNode.Value)
		}
		out = append(out, KeywordSet{Name: keyNode.Value, Keywords: words})
	}
	*kl = out
	return nil
}

// Get returns the keyword group with the given name.
func (kl KeywordList) Get(name string) ([]string, bool) {
	for _, set := range kl {
		if set.Name == name {
			return set.Keywords, true
		}
	}
	return nil, false
}

// Mapping is the classification rules document.
type Mapping struct {
	ModuleKeywords          KeywordList            `json:"module_keywords" yaml:"module_keywords"`
	CategoryKeywords        map[string]KeywordList `json:"category_keywords" yaml:"category_keywords"`
	DefaultCategory         map[string]string      `json:"default_category" yaml:"default_category"`
	ExcludeURLPatterns      []string               `json:"exclude_url_patterns" yaml:"exclude_url_patterns"`
	ExcludeTitlePatterns    []string               `json:"exclude_title_patterns" yaml:"exclude_title_patterns"`
	ExcludeCategoryPatterns []string               `json:"exclude_category_patterns" yaml:"exclude_category_patterns"`
	CanonKeywords           KeywordList            `json:"canon_keywords" yaml:"canon_keywords"`
	BaselineCanon           string                 `json:"baseline_canon" yaml:"baseline_canon"`
	TimelineModule          string                 `json:"timeline_module" yaml:"timeline_module"`
	MinConfidence           float64                `json:"min_confidence" yaml:"min_confidence"`
}

// Thresholds is the optional per-module confidence override document.
type Thresholds struct {
	GlobalDefault       *float64           `json:"global_default" yaml:"global_default"`
	ModuleMinConfidence map[string]float64 `json:"module_min_confidence" yaml:"module_min_confidence"`
}

const (
	defaultBaselineCanon  = "mainline"
	defaultTimelineModule = "timeline"
	defaultMinConfidence  = 0.45
)

func (m *Mapping) applyDefaults() {
	if m.BaselineCanon == "" {
		m.BaselineCanon = defaultBaselineCanon
	}
	if m.TimelineModule == "" {
		m.TimelineModule = defaultTimelineModule
	}
	if m.MinConfidence == 0 {
		m.MinConfidence = defaultMinConfidence
	}
}

// MinConfidenceFor resolves the confidence gate for a module: the per-module
// override if present, else the thresholds document's global default, else
// the mapping's own min_confidence.
func (m *Mapping) MinConfidenceFor(module string, t *Thresholds) float64 {
	if t != nil {
		if v, ok := t.ModuleMinConfidence[module]; ok {
			return v
		}
		if t.GlobalDefault != nil {
			return *t.GlobalDefault
		}
	}
	return m.MinConfidence
}

// LoadMapping reads a mapping-rules document. Files ending in .yaml or .yml
// are parsed as YAML, anything else as JSON.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "rules: read mapping")
	}
	var m Mapping
	if isYAML(path) {
		err = yaml.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, eris.Wrap(err, "rules: parse mapping")
	}
	m.applyDefaults()
	return &m, nil
}

// LoadThresholds reads the optional per-module threshold document. A missing
// file is not an error: normalization falls back to the mapping defaults.
func LoadThresholds(path string) (*Thresholds, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "rules: read thresholds")
	}
	var t Thresholds
	if isYAML(path) {
		err = yaml.Unmarshal(data, &t)
	} else {
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, eris.Wrap(err, "rules: parse thresholds")
	}
	return &t, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
