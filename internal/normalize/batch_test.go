package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnidatabase/codex-cli/internal/model"
)

func pageTitled(title, url string) model.RawPage {
	return model.RawPage{
		Title:      title,
		URL:        url,
		Summary:    title + " is a vault sealed deep beneath the wasteland, built before the bombs fell.",
		Categories: []string{"Vaults"},
	}
}

func TestRun_IDCollisionsGetNumericSuffixes(t *testing.T) {
	a := testAssembler(nil)
	pages := []model.RawPage{
		pageTitled("Vault 13", "https://wiki.example.com/wiki/Vault_13"),
		pageTitled("Vault 13", "https://wiki.example.com/wiki/Vault_13_(Fallout)"),
		pageTitled("Vault 13", "https://wiki.example.com/wiki/Vault_13_(mentioned)"),
	}

	cands, result := a.Run(pages)

	require.Len(t, cands, 3)
	assert.Equal(t, "vault_13", cands[0].ID)
	assert.Equal(t, "vault_13_2", cands[1].ID)
	assert.Equal(t, "vault_13_3", cands[2].ID)
	assert.Equal(t, 3, result.Candidates)
	assert.Empty(t, result.Skipped)
}

func TestRun_DuplicateURLSkippedBeforeClassification(t *testing.T) {
	a := testAssembler(nil)
	url := "https://wiki.example.com/wiki/Vault_13"
	pages := []model.RawPage{
		pageTitled("Vault 13", url),
		pageTitled("Vault 13", url),
	}

	cands, result := a.Run(pages)

	require.Len(t, cands, 1)
	assert.Equal(t, 1, result.Skipped[ReasonDuplicateURL])
}

func TestRun_RejectedPageURLDoesNotBlockRetry(t *testing.T) {
	a := testAssembler(nil)
	url := "https://wiki.example.com/wiki/Vault_13"
	rejected := pageTitled("   ", url) // missing title
	ok := pageTitled("Vault 13", url)

	cands, result := a.Run([]model.RawPage{rejected, ok})

	// The rejected page never claimed the URL, so the second page goes through.
	require.Len(t, cands, 1)
	assert.Equal(t, 1, result.Skipped[ReasonMissingTitle])
	assert.Zero(t, result.Skipped[ReasonDuplicateURL])
}

func TestRun_SkipHistogram(t *testing.T) {
	a := testAssembler(nil)
	pages := []model.RawPage{
		pageTitled("Vault 13", "https://wiki.example.com/wiki/Vault_13"),
		{Title: "Unrelated", URL: "https://wiki.example.com/wiki/Unrelated", Summary: "No keywords in sight."},
		{Title: "Unmatched too", URL: "https://wiki.example.com/wiki/Unmatched", Summary: "Still nothing relevant."},
	}

	cands, result := a.Run(pages)

	assert.Len(t, cands, 1)
	assert.Equal(t, 3, result.InputPages)
	assert.Equal(t, map[string]int{ReasonUnmapped: 2}, result.Skipped)
}

func TestRun_EmptyInput(t *testing.T) {
	a := testAssembler(nil)
	cands, result := a.Run(nil)
	assert.Empty(t, cands)
	assert.Zero(t, result.InputPages)
}
