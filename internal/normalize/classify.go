package normalize

import (
	"math"
	"strings"

	"github.com/omnidatabase/codex-cli/internal/model"
	"github.com/omnidatabase/codex-cli/internal/rules"
)

// Field weights reflect decreasing signal reliability: a keyword in the
// title is a far stronger hint than one buried in the body text.
const (
	weightTitle       = 4.0
	weightCategories  = 3.0
	weightLeadSummary = 2.0
	weightFullText    = 1.0
	weightSections    = 1.2
)

// Confidence is a deterministic blend of the module and category scores,
// not a statistical estimate. The constants are load-bearing: downstream
// threshold gates assume this exact formula.
const (
	moduleScoreSaturation    = 24.0
	categoryScoreSaturation  = 14.0
	confidenceBase           = 0.30
	confidenceModuleWeight   = 0.45
	confidenceCategoryWeight = 0.20
	confidenceYearBonus      = 0.05
	confidenceCeiling        = 0.99
)

// Category scores assigned to timeline pages, which are bucketed by year
// rather than by keyword match.
const (
	timelineScoreWithYear = 4.5
	timelineScoreNoYear   = 2.5
)

// Classifier scores module/category assignments for pages against a
// mapping-rules document.
type Classifier struct {
	rules *rules.Mapping
}

// NewClassifier creates a Classifier over the given rules.
func NewClassifier(m *rules.Mapping) *Classifier {
	return &Classifier{rules: m}
}

// keywordScore sums field weights for every keyword found in each field.
func keywordScore(fields model.Fields, keywords []string) float64 {
	score := 0.0
	for _, kw := range keywords {
		token := strings.ToLower(kw)
		if token == "" {
			continue
		}
		if strings.Contains(fields.Title, token) {
			score += weightTitle
		}
		if strings.Contains(fields.Categories, token) {
			score += weightCategories
		}
		if strings.Contains(fields.LeadSummary, token) {
			score += weightLeadSummary
		}
		if strings.Contains(fields.FullText, token) {
			score += weightFullText
		}
		if strings.Contains(fields.Sections, token) {
			score += weightSections
		}
	}
	return score
}

// bestSet returns the highest-scoring keyword set. Ties are broken by
// document order: the first set to reach the top score wins. Reproducing
// this exactly keeps output stable across runs.
func bestSet(fields model.Fields, sets rules.KeywordList) (string, float64) {
	bestName := ""
	bestScore := 0.0
	for i, set := range sets {
		score := keywordScore(fields, set.Keywords)
		if i == 0 || score > bestScore {
			bestName = set.Name
			bestScore = score
		}
	}
	return bestName, bestScore
}

// Classify infers the module, category and confidence for one page. A page
// whose best module score is zero is unresolved (empty module and category).
func (c *Classifier) Classify(page *model.RawPage) model.Classification {
	fields := ExtractFields(page)

	module, moduleScore := bestSet(fields, c.rules.ModuleKeywords)
	if module == "" || moduleScore <= 0 {
		return model.Classification{}
	}

	context := pageContext(page)
	year := findYear(context)

	var category string
	var categoryScore float64
	if module == c.rules.TimelineModule {
		category = timelineCategory(year, context)
		if year != 0 {
			categoryScore = timelineScoreWithYear
		} else {
			categoryScore = timelineScoreNoYear
		}
	} else if catSets := c.rules.CategoryKeywords[module]; len(catSets) > 0 {
		category, categoryScore = bestSet(fields, catSets)
		if categoryScore <= 0 {
			category = c.rules.DefaultCategory[module]
		}
	} else {
		category = c.rules.DefaultCategory[module]
		categoryScore = 1.0
	}

	return model.Classification{
		Module:        module,
		Category:      category,
		Confidence:    confidence(moduleScore, categoryScore, year),
		ModuleScore:   moduleScore,
		CategoryScore: categoryScore,
		Year:          year,
	}
}

func confidence(moduleScore, categoryScore float64, year int) float64 {
	moduleNorm := math.Min(moduleScore/moduleScoreSaturation, 1.0)
	categoryNorm := math.Min(categoryScore/categoryScoreSaturation, 1.0)
	conf := confidenceBase + confidenceModuleWeight*moduleNorm + confidenceCategoryWeight*categoryNorm
	if year != 0 {
		conf += confidenceYearBonus
	}
	return math.Max(0, math.Min(conf, confidenceCeiling))
}

// Timeline era cutoffs. 2077 is the Great War itself when the page also
// carries war markers; otherwise it falls through to the dark ages.
const (
	prewarCutoff   = 2076
	greatWarYear   = 2077
	darkAgesCutoff = 2159
	heroicCutoff   = 2241
)

func timelineCategory(year int, context string) string {
	t := strings.ToLower(context)
	hasWarMarker := strings.Contains(t, "great war") ||
		strings.Contains(t, "bomb") ||
		strings.Contains(t, "nuclear")
	if year == 0 {
		if strings.Contains(t, "great war") || strings.Contains(t, "nuclear exchange") {
			return "greatwar"
		}
		return "modern"
	}
	switch {
	case year <= prewarCutoff:
		return "prewar"
	case year == greatWarYear && hasWarMarker:
		return "greatwar"
	case year <= darkAgesCutoff:
		return "darkages"
	case year <= heroicCutoff:
		return "heroic"
	default:
		return "modern"
	}
}

// CanonTags returns the canon continuity tags for a page: the baseline tag
// plus every configured secondary tag whose keywords appear anywhere in the
// page's normalized text.
func (c *Classifier) CanonTags(page *model.RawPage) []string {
	fields := ExtractFields(page)
	text := strings.Join([]string{
		fields.Title,
		fields.Categories,
		fields.LeadSummary,
		fields.FullText,
		fields.Sections,
	}, " ")

	tags := []string{c.rules.BaselineCanon}
	seen := map[string]bool{c.rules.BaselineCanon: true}
	for _, set := range c.rules.CanonKeywords {
		if seen[set.Name] {
			continue
		}
		for _, kw := range set.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				tags = append(tags, set.Name)
				seen[set.Name] = true
				break
			}
		}
	}
	return tags
}
