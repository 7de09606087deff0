package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"crawl", "seeds", "normalize", "evaluate", "merge"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "codex", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCrawlCommand_Flags(t *testing.T) {
	for _, name := range []string{"seeds", "out", "max-depth", "max-pages", "sleep-ms", "cache"} {
		assert.NotNil(t, crawlCmd.Flags().Lookup(name), "crawl should have --%s flag", name)
	}
	flag := crawlCmd.Flags().Lookup("sleep-ms")
	require.NotNil(t, flag)
	assert.Equal(t, "-1", flag.DefValue)
}

func TestSeedsCommand_Flags(t *testing.T) {
	for _, name := range []string{"seeds", "categories", "out", "members-per-category", "concurrency"} {
		assert.NotNil(t, seedsCmd.Flags().Lookup(name), "seeds should have --%s flag", name)
	}
	assert.Equal(t, "tmp/expanded_seeds.json", seedsCmd.Flags().Lookup("out").DefValue)
}

func TestNormalizeCommand_Flags(t *testing.T) {
	for _, name := range []string{"in", "mapping", "thresholds", "out"} {
		assert.NotNil(t, normalizeCmd.Flags().Lookup(name), "normalize should have --%s flag", name)
	}
	assert.Equal(t, "config/module_thresholds.json", normalizeCmd.Flags().Lookup("thresholds").DefValue)
}

func TestEvaluateCommand_Flags(t *testing.T) {
	for _, name := range []string{"in", "out"} {
		assert.NotNil(t, evaluateCmd.Flags().Lookup(name), "evaluate should have --%s flag", name)
	}
}

func TestMergeCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"catalog", "in", "provenance", "decision-log", "conflict", "canon",
		"max-inserts", "max-updates", "similarity-threshold", "summary-out", "run-manifest-dir",
	} {
		assert.NotNil(t, mergeCmd.Flags().Lookup(name), "merge should have --%s flag", name)
	}
	assert.Equal(t, "reports/merge_decisions.jsonl", mergeCmd.Flags().Lookup("decision-log").DefValue)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"mainline", "tv"}, splitAndTrim("mainline, tv"))
	assert.Equal(t, []string{"games"}, splitAndTrim(" games ,"))
	assert.Nil(t, splitAndTrim(""))
}
