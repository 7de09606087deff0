package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnidatabase/codex-cli/internal/catalog"
	"github.com/omnidatabase/codex-cli/internal/config"
	"github.com/omnidatabase/codex-cli/internal/jsonl"
	"github.com/omnidatabase/codex-cli/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Normalize: config.NormalizeConfig{SourceAttribution: "Fallout Wiki"},
		Merge: config.MergeConfig{
			Conflict:            "prefer_newer",
			Canon:               "mainline,tv",
			SimilarityThreshold: 0.92,
		},
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const testMappingJSON = `{
	"module_keywords": {"locations": ["vault", "settlement"]},
	"category_keywords": {"locations": {"vaults": ["vault"]}},
	"default_category": {"locations": "vaults"},
	"canon_keywords": {"tv": ["television series"]}
}`

func TestNormalizeCmd_EndToEnd(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	inPath := filepath.Join(dir, "raw.jsonl")
	mappingPath := filepath.Join(dir, "mapping.json")
	outPath := filepath.Join(dir, "candidates.jsonl")

	writeTestFile(t, mappingPath, testMappingJSON)
	pages := []model.RawPage{{
		Title:       "Vault 13",
		URL:         "https://fallout.fandom.com/wiki/Vault_13",
		LeadSummary: "Vault 13 is a vault in Southern California. It sheltered the Vault Dweller before the great journey.",
		Categories:  []string{"Vaults", "Fallout locations"},
	}}
	require.NoError(t, jsonl.Write(inPath, pages))

	f := normalizeCmd.Flags()
	require.NoError(t, f.Set("in", inPath))
	require.NoError(t, f.Set("mapping", mappingPath))
	require.NoError(t, f.Set("thresholds", filepath.Join(dir, "missing_thresholds.json")))
	require.NoError(t, f.Set("out", outPath))

	require.NoError(t, normalizeCmd.RunE(normalizeCmd, nil))

	candidates, err := jsonl.Read[model.Candidate](outPath)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "vault_13", candidates[0].ID)
	assert.Equal(t, "locations", candidates[0].Module)
	assert.Equal(t, "vaults", candidates[0].CategoryID)
	assert.Equal(t, "Fallout Wiki", candidates[0].Specs["Source"])
}

func TestNormalizeCmd_BadMappingPath(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	f := normalizeCmd.Flags()
	require.NoError(t, f.Set("in", filepath.Join(dir, "raw.jsonl")))
	require.NoError(t, f.Set("mapping", filepath.Join(dir, "missing.json")))
	require.NoError(t, f.Set("out", filepath.Join(dir, "out.jsonl")))

	assert.Error(t, normalizeCmd.RunE(normalizeCmd, nil))
}

func TestEvaluateCmd_EndToEnd(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	inPath := filepath.Join(dir, "candidates.jsonl")
	outPath := filepath.Join(dir, "eval.json")
	require.NoError(t, jsonl.Write(inPath, []model.Candidate{
		{ID: "vault_13", Module: "locations", CategoryID: "vaults", Lore: "Lore.", Confidence: 0.8},
		{ID: "weak", Module: "locations", CategoryID: "vaults", Lore: "Lore.", Confidence: 0.3},
	}))

	f := evaluateCmd.Flags()
	require.NoError(t, f.Set("in", inPath))
	require.NoError(t, f.Set("out", outPath))

	require.NoError(t, evaluateCmd.RunE(evaluateCmd, nil))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.EqualValues(t, 2, rep["input_candidates"])
}

func TestMergeCmd_EndToEnd(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "database-en.json")
	inPath := filepath.Join(dir, "candidates.jsonl")
	provenancePath := filepath.Join(dir, "provenance.jsonl")
	decisionPath := filepath.Join(dir, "decisions.jsonl")
	summaryPath := filepath.Join(dir, "summary.json")
	manifestDir := filepath.Join(dir, "runs")

	writeTestFile(t, catalogPath, `{
		"locations": {"items": {"vaults": [
			{"id": "vault_13", "name": "VAULT 13", "img": "x",
			 "specs": {"Source": "Fallout Wiki"}, "lore": "Existing lore."}
		]}}
	}`)
	require.NoError(t, jsonl.Write(inPath, []model.Candidate{{
		SourceURL:  "https://fallout.fandom.com/wiki/Vault_101",
		Module:     "locations",
		CategoryID: "vaults",
		ID:         "vault_101",
		Name:       "VAULT 101",
		Lore:       "Vault 101 never opened its door after the bombs fell.",
		CanonTags:  []string{"mainline"},
		Confidence: 0.8,
	}}))

	f := mergeCmd.Flags()
	require.NoError(t, f.Set("catalog", catalogPath))
	require.NoError(t, f.Set("in", inPath))
	require.NoError(t, f.Set("provenance", provenancePath))
	require.NoError(t, f.Set("decision-log", decisionPath))
	require.NoError(t, f.Set("summary-out", summaryPath))
	require.NoError(t, f.Set("run-manifest-dir", manifestDir))

	require.NoError(t, mergeCmd.RunE(mergeCmd, nil))

	cat, err := catalog.Load(catalogPath)
	require.NoError(t, err)
	assert.Len(t, cat["locations"].Items["vaults"], 2)

	provenance, err := jsonl.Read[model.ProvenanceEntry](provenancePath)
	require.NoError(t, err)
	require.Len(t, provenance, 1)
	assert.Equal(t, "insert", provenance[0].Action)
	assert.Equal(t, "vault_101", provenance[0].ID)

	decisions, err := jsonl.Read[model.DecisionEntry](decisionPath)
	require.NoError(t, err)
	assert.Len(t, decisions, 1)

	var summary model.RunSummary
	data, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, catalogPath, summary.Catalog)

	manifest, err := os.ReadFile(filepath.Join(manifestDir, summary.RunID+".json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(manifest))
}

func TestMergeCmd_InvalidConflictPolicy(t *testing.T) {
	cfg = testConfig()
	dir := t.TempDir()

	f := mergeCmd.Flags()
	require.NoError(t, f.Set("catalog", filepath.Join(dir, "db.json")))
	require.NoError(t, f.Set("in", filepath.Join(dir, "in.jsonl")))
	require.NoError(t, f.Set("provenance", filepath.Join(dir, "prov.jsonl")))
	require.NoError(t, f.Set("conflict", "newest_wins"))
	t.Cleanup(func() { _ = f.Set("conflict", "") })

	err := mergeCmd.RunE(mergeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid conflict policy")
}
