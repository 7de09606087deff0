package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnidatabase/codex-cli/internal/model"
)

var testNow = time.Date(2102, 5, 16, 12, 0, 0, 0, time.UTC)

func candidate(id, module, category, url, lore string, conf float64) model.Candidate {
	return model.Candidate{
		ID:         id,
		Module:     module,
		CategoryID: category,
		SourceURL:  url,
		Lore:       lore,
		Confidence: conf,
	}
}

func TestEvaluate_Coverage(t *testing.T) {
	r := Evaluate([]model.Candidate{
		candidate("a", "locations", "vaults", "u1", "Lore A.", 0.8),
		candidate("b", "locations", "vaults", "u2", "Lore B.", 0.7),
		candidate("c", "factions", "major", "u3", "Lore C.", 0.9),
	}, testNow)

	assert.Equal(t, 3, r.InputCandidates)
	assert.Equal(t, "2102-05-16T12:00:00Z", r.RunAt)
	assert.Equal(t, map[string]int{"locations": 2, "factions": 1}, r.Coverage.Modules)
	assert.Equal(t, map[string]int{"locations.vaults": 2, "factions.major": 1}, r.Coverage.ModuleCategories)
}

func TestEvaluate_ConfidenceHistogramAndWeakRecords(t *testing.T) {
	r := Evaluate([]model.Candidate{
		candidate("a", "locations", "vaults", "u1", "Lore.", 0.95),
		candidate("b", "locations", "vaults", "u2", "Lore.", 0.55),
		candidate("c", "locations", "vaults", "u3", "Lore.", 0.42),
	}, testNow)

	assert.Equal(t, map[string]int{
		"0.90-1.00": 1,
		"0.50-0.59": 1,
		"<0.50":     1,
	}, r.Quality.ConfidenceHistogram)

	assert.Equal(t, 1, r.Quality.LowConfidenceCount)
	require.Len(t, r.Quality.WeakRecordSamples, 1)
	weak := r.Quality.WeakRecordSamples[0]
	assert.Equal(t, "c", weak.ID)
	assert.Equal(t, 0.42, weak.Confidence)
	assert.Equal(t, "u3", weak.SourceURL)
}

func TestEvaluate_WeakSamplesCapped(t *testing.T) {
	var in []model.Candidate
	for i := 0; i < 30; i++ {
		in = append(in, candidate("id", "m", "c", "", "Lore.", 0.1))
	}

	r := Evaluate(in, testNow)

	assert.Equal(t, 30, r.Quality.LowConfidenceCount)
	assert.Len(t, r.Quality.WeakRecordSamples, 20)
}

func TestEvaluate_MissingRequiredFields(t *testing.T) {
	r := Evaluate([]model.Candidate{
		candidate("a", "locations", "vaults", "u1", "Lore.", 0.8),
		candidate("", "locations", "vaults", "u2", "Lore.", 0.8),
		candidate("c", "locations", "vaults", "u3", "", 0.8),
	}, testNow)

	assert.Equal(t, 2, r.Quality.MissingRequiredFieldsCount)
}

func TestEvaluate_Duplicates(t *testing.T) {
	r := Evaluate([]model.Candidate{
		candidate("dup", "m", "c", "same-url", "Vault 13 lore!", 0.8),
		candidate("dup", "m", "c", "same-url", "vault 13 LORE", 0.8),
		candidate("other", "m", "c", "", "Different text.", 0.8),
		candidate("other2", "m", "c", "", "Different text again.", 0.8),
	}, testNow)

	assert.Equal(t, 1, r.Duplicates.DuplicateIDCount)
	assert.Equal(t, []string{"dup"}, r.Duplicates.DuplicateIDSamples)
	assert.Equal(t, 1, r.Duplicates.DuplicateURLCount)
	assert.Equal(t, []string{"same-url"}, r.Duplicates.DuplicateURLSamples)
	// Lore matches after lowercasing and punctuation stripping.
	assert.Equal(t, 1, r.Duplicates.ExactDuplicateLoreCount)
}

func TestEvaluate_EmptyURLsAreNotDuplicates(t *testing.T) {
	r := Evaluate([]model.Candidate{
		candidate("a", "m", "c", "", "Lore A.", 0.8),
		candidate("b", "m", "c", "", "Lore B.", 0.8),
	}, testNow)

	assert.Equal(t, 0, r.Duplicates.DuplicateURLCount)
}

func TestEvaluate_CanonTags(t *testing.T) {
	a := candidate("a", "m", "c", "", "Lore.", 0.8)
	a.CanonTags = []string{"games", "tv"}
	b := candidate("b", "m", "c", "", "Lore.", 0.8)
	b.CanonTags = []string{"games"}

	r := Evaluate([]model.Candidate{a, b}, testNow)

	assert.Equal(t, map[string]int{"games": 2, "tv": 1}, r.CanonTags)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "eval.json")
	r := Evaluate(nil, testNow)
	require.NoError(t, Write(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 0, got.InputCandidates)
	assert.Equal(t, byte('\n'), data[len(data)-1])
}
