package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/omnidatabase/codex-cli/internal/model"
	"github.com/omnidatabase/codex-cli/internal/rules"
)

// Lore extraction bounds: the lead summary is tried first with a two-sentence
// budget; if the result is under loreMinPrimary runes the full body gets a
// three-sentence retry; under loreMinFinal the page is rejected.
const (
	leadSentenceBudget = 2
	bodySentenceBudget = 3
	loreMinPrimary     = 45
	loreMinFinal       = 25
)

// Rejection reasons emitted by the assembler. These are expected per-page
// outcomes, recorded in the skip histogram, never errors.
const (
	ReasonURLBlocked      = "url_blocked"
	ReasonTitleBlocked    = "title_blocked"
	ReasonCategoryBlocked = "category_blocked"
	ReasonUnmapped        = "unmapped"
	ReasonLoreTooShort    = "lore_too_short"
	ReasonMissingTitle    = "missing_title"
	ReasonLowConfidence   = "low_confidence"
	ReasonDuplicateURL    = "duplicate_url"
	reasonOK              = "ok"
)

// Assembler validates pages and emits candidate records.
type Assembler struct {
	rules      *rules.Mapping
	thresholds *rules.Thresholds
	classifier *Classifier

	// SourceAttribution is the value of the mandatory "Source" spec.
	SourceAttribution string
	// Now is the clock used for extraction timestamps; overridable in tests.
	Now func() time.Time
}

// NewAssembler creates an Assembler over a mapping-rules document and an
// optional thresholds document (nil means mapping defaults).
func NewAssembler(m *rules.Mapping, t *rules.Thresholds) *Assembler {
	return &Assembler{
		rules:             m,
		thresholds:        t,
		classifier:        NewClassifier(m),
		SourceAttribution: "Fallout Wiki",
		Now:               time.Now,
	}
}

// excluded checks the page against the blocklist patterns and returns the
// matching rejection reason, or "".
func (a *Assembler) excluded(page *model.RawPage) string {
	url := strings.ToLower(page.URL)
	title := strings.ToLower(page.Title)
	cats := strings.ToLower(strings.Join(page.Categories, " "))
	for _, pat := range a.rules.ExcludeURLPatterns {
		if strings.Contains(url, strings.ToLower(pat)) {
			return ReasonURLBlocked
		}
	}
	for _, pat := range a.rules.ExcludeTitlePatterns {
		if strings.Contains(title, strings.ToLower(pat)) {
			return ReasonTitleBlocked
		}
	}
	for _, pat := range a.rules.ExcludeCategoryPatterns {
		if strings.Contains(cats, strings.ToLower(pat)) {
			return ReasonCategoryBlocked
		}
	}
	return ""
}

// MakeCandidate validates one page and builds its candidate record. It is a
// pure function of the page and the rule configuration; on rejection it
// returns (nil, reason). Checks short-circuit in a fixed order so each page
// gets exactly one reason.
func (a *Assembler) MakeCandidate(page *model.RawPage) (*model.Candidate, string) {
	if reason := a.excluded(page); reason != "" {
		return nil, reason
	}

	cls := a.classifier.Classify(page)
	if !cls.Resolved() {
		return nil, ReasonUnmapped
	}

	lead := page.Lead()
	lore := firstSentences(lead, leadSentenceBudget)
	if utf8.RuneCountInString(lore) < loreMinPrimary {
		lore = firstSentences(page.FullText, bodySentenceBudget)
	}
	if utf8.RuneCountInString(lore) < loreMinFinal {
		return nil, ReasonLoreTooShort
	}

	title := strings.TrimSpace(page.Title)
	if title == "" {
		return nil, ReasonMissingTitle
	}

	specs := map[string]string{"Source": a.SourceAttribution}
	if cls.Year != 0 {
		specs["Year"] = strconv.Itoa(cls.Year)
	}
	if page.RevisionID != 0 {
		specs["Revision"] = strconv.FormatInt(page.RevisionID, 10)
	}

	minConf := a.rules.MinConfidenceFor(cls.Module, a.thresholds)
	if cls.Confidence < minConf {
		return nil, ReasonLowConfidence
	}

	return &model.Candidate{
		SourceURL:        page.URL,
		SourceTitle:      title,
		SourceRevisionID: page.RevisionID,
		Module:           cls.Module,
		CategoryID:       cls.Category,
		ID:               Slugify(title),
		Name:             strings.ToUpper(title),
		Img:              page.Image,
		Specs:            specs,
		Lore:             lore,
		CanonTags:        a.classifier.CanonTags(page),
		Confidence:       round3(cls.Confidence),
		Signals: model.Signals{
			ModuleScore:           round3(cls.ModuleScore),
			CategoryScore:         round3(cls.CategoryScore),
			MinConfidenceRequired: round3(minConf),
		},
		ExtractedAt: a.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
	}, reasonOK
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
