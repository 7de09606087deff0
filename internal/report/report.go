// Package report evaluates candidate quality and coverage before merge:
// per-module coverage, confidence histogram, weak records, and duplicate
// id/url/lore detection.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/omnidatabase/codex-cli/internal/model"
)

// Coverage counts candidates per module and per module.category pair.
type Coverage struct {
	Modules          map[string]int `json:"modules"`
	ModuleCategories map[string]int `json:"module_categories"`
}

// WeakRecord identifies a low-confidence candidate.
type WeakRecord struct {
	ID         string  `json:"id"`
	Module     string  `json:"module"`
	CategoryID string  `json:"category_id"`
	Confidence float64 `json:"confidence"`
	SourceURL  string  `json:"source_url"`
}

// Quality summarizes confidence distribution and field completeness.
type Quality struct {
	ConfidenceHistogram        map[string]int `json:"confidence_histogram"`
	LowConfidenceCount         int            `json:"low_confidence_count"`
	MissingRequiredFieldsCount int            `json:"missing_required_fields_count"`
	WeakRecordSamples          []WeakRecord   `json:"weak_record_samples"`
}

// Duplicates summarizes repeated ids, source urls, and lore texts.
type Duplicates struct {
	DuplicateIDCount        int      `json:"duplicate_id_count"`
	DuplicateURLCount       int      `json:"duplicate_url_count"`
	ExactDuplicateLoreCount int      `json:"exact_duplicate_lore_count"`
	DuplicateIDSamples      []string `json:"duplicate_id_samples"`
	DuplicateURLSamples     []string `json:"duplicate_url_samples"`
}

// Report is the full candidate evaluation.
type Report struct {
	RunAt           string         `json:"run_at"`
	InputCandidates int            `json:"input_candidates"`
	Coverage        Coverage       `json:"coverage"`
	Quality         Quality        `json:"quality"`
	Duplicates      Duplicates     `json:"duplicates"`
	CanonTags       map[string]int `json:"canon_tags"`
}

const (
	lowConfidenceThreshold = 0.5
	weakSampleLimit        = 20
	duplicateSampleLimit   = 25
)

var nonWordRe = regexp.MustCompile(`[^\w\s]`)
var spaceRe = regexp.MustCompile(`\s+`)

func normText(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = spaceRe.ReplaceAllString(value, " ")
	return nonWordRe.ReplaceAllString(value, "")
}

// Evaluate builds the evaluation report for a candidate batch.
func Evaluate(candidates []model.Candidate, now time.Time) *Report {
	moduleCounts := map[string]int{}
	categoryCounts := map[string]int{}
	confidenceCounts := map[string]int{}
	canonCounts := map[string]int{}
	idCounts := map[string]int{}
	urlCounts := map[string]int{}
	loreCounts := map[string]int{}

	lowConf := 0
	missingRequired := 0
	weakRecords := []WeakRecord{}

	for _, c := range candidates {
		if c.Module == "" || c.CategoryID == "" || c.ID == "" || c.Lore == "" {
			missingRequired++
		}
		if c.Confidence < lowConfidenceThreshold {
			lowConf++
			if len(weakRecords) < weakSampleLimit {
				weakRecords = append(weakRecords, WeakRecord{
					ID:         c.ID,
					Module:     c.Module,
					CategoryID: c.CategoryID,
					Confidence: c.Confidence,
					SourceURL:  c.SourceURL,
				})
			}
		}

		moduleCounts[c.Module]++
		categoryCounts[c.Module+"."+c.CategoryID]++
		confidenceCounts[confidenceBucket(c.Confidence)]++
		idCounts[c.ID]++
		if c.SourceURL != "" {
			urlCounts[c.SourceURL]++
		}
		loreCounts[normText(c.Lore)]++

		for _, tag := range c.CanonTags {
			canonCounts[tag]++
		}
	}

	dupIDs := repeatedKeys(idCounts)
	dupURLs := repeatedKeys(urlCounts)
	dupLore := 0
	for k, v := range loreCounts {
		if k != "" && v > 1 {
			dupLore++
		}
	}

	return &Report{
		RunAt:           now.UTC().Truncate(time.Second).Format(time.RFC3339),
		InputCandidates: len(candidates),
		Coverage: Coverage{
			Modules:          moduleCounts,
			ModuleCategories: categoryCounts,
		},
		Quality: Quality{
			ConfidenceHistogram:        confidenceCounts,
			LowConfidenceCount:         lowConf,
			MissingRequiredFieldsCount: missingRequired,
			WeakRecordSamples:          weakRecords,
		},
		Duplicates: Duplicates{
			DuplicateIDCount:        len(dupIDs),
			DuplicateURLCount:       len(dupURLs),
			ExactDuplicateLoreCount: dupLore,
			DuplicateIDSamples:      capSamples(dupIDs, duplicateSampleLimit),
			DuplicateURLSamples:     capSamples(dupURLs, duplicateSampleLimit),
		},
		CanonTags: canonCounts,
	}
}

func confidenceBucket(value float64) string {
	switch {
	case value >= 0.9:
		return "0.90-1.00"
	case value >= 0.8:
		return "0.80-0.89"
	case value >= 0.7:
		return "0.70-0.79"
	case value >= 0.6:
		return "0.60-0.69"
	case value >= 0.5:
		return "0.50-0.59"
	default:
		return "<0.50"
	}
}

func repeatedKeys(counts map[string]int) []string {
	out := []string{}
	for k, v := range counts {
		if v > 1 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func capSamples(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

// Write writes the report as indented JSON, creating parent dirs.
func Write(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "report: create dir %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
