package merge

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/omnidatabase/codex-cli/internal/catalog"
	"github.com/omnidatabase/codex-cli/internal/model"
)

// normText case-folds and whitespace-collapses narrative text before
// comparison, so formatting differences never count as dissimilarity.
func normText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// Similarity scores two lore strings in [0, 1]: 1.0 for identical normalized
// text, approaching 0 for disjoint text. The underlying metric is a
// normalized Levenshtein ratio; only its monotonicity and the threshold
// behavior matter, not exact scores.
func Similarity(a, b string) float64 {
	return levenshtein.Similarity(normText(a), normText(b), nil)
}

// Detector scans existing lore rows for near-duplicates of new candidates.
// Rows registered during a run are visible to every later candidate in the
// same run.
type Detector struct {
	rows      []catalog.LoreRow
	threshold float64
}

// NewDetector creates a Detector over the catalog's lore rows.
func NewDetector(rows []catalog.LoreRow, threshold float64) *Detector {
	return &Detector{rows: rows, threshold: threshold}
}

// Register makes a newly inserted record's lore visible to later scans.
func (d *Detector) Register(row catalog.LoreRow) {
	d.rows = append(d.rows, row)
}

// Find returns the best match at or above the threshold among rows in the
// same module/category, or nil. At equal top scores the first-scanned row
// wins. The scan is linear over the category's records, which is fine for
// batch runs over small catalogs.
func (d *Detector) Find(module, category, itemID, lore string) *model.NearDuplicate {
	if strings.TrimSpace(lore) == "" {
		return nil
	}
	var best *model.NearDuplicate
	bestScore := 0.0
	for _, row := range d.rows {
		if row.Module != module || row.Category != category {
			continue
		}
		if row.ID == itemID {
			continue
		}
		score := Similarity(lore, row.Lore)
		if score >= d.threshold && score > bestScore {
			bestScore = score
			best = &model.NearDuplicate{
				Similarity: round4(score),
				MatchedID:  row.ID,
			}
		}
	}
	return best
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
