package normalize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/model"
)

// BatchResult summarizes one normalization run.
type BatchResult struct {
	RunAt      string         `json:"run_at"`
	InputPages int            `json:"input_pages"`
	Candidates int            `json:"candidates"`
	Skipped    map[string]int `json:"skipped"`
	Out        string         `json:"out,omitempty"`
}

// Run processes pages strictly in input order and returns the candidate
// batch plus a skip-reason histogram. Within the batch candidate ids are
// unique: a collision gets an incrementing numeric suffix in first-seen
// order. Pages whose source URL repeats one already emitted this run are
// skipped before classification.
func (a *Assembler) Run(pages []model.RawPage) ([]model.Candidate, *BatchResult) {
	seenIDs := make(map[string]bool)
	seenURLs := make(map[string]bool)
	skipped := make(map[string]int)
	out := make([]model.Candidate, 0, len(pages))

	for i := range pages {
		page := &pages[i]
		if page.URL != "" && seenURLs[page.URL] {
			skipped[ReasonDuplicateURL]++
			continue
		}

		cand, status := a.MakeCandidate(page)
		if status != reasonOK || cand == nil {
			skipped[status]++
			zap.L().Debug("normalize: page rejected",
				zap.String("url", page.URL),
				zap.String("reason", status),
			)
			continue
		}

		baseID := cand.ID
		dedupeID := baseID
		for n := 2; seenIDs[dedupeID]; n++ {
			dedupeID = fmt.Sprintf("%s_%d", baseID, n)
		}
		cand.ID = dedupeID
		seenIDs[dedupeID] = true
		if page.URL != "" {
			seenURLs[page.URL] = true
		}
		out = append(out, *cand)
	}

	result := &BatchResult{
		InputPages: len(pages),
		Candidates: len(out),
		Skipped:    skipped,
	}
	zap.L().Info("normalize: batch complete",
		zap.Int("input_pages", result.InputPages),
		zap.Int("candidates", result.Candidates),
		zap.Int("skipped", len(pages)-result.Candidates),
	)
	return out, result
}
