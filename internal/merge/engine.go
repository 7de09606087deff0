package merge

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/catalog"
	"github.com/omnidatabase/codex-cli/internal/model"
)

// Policy selects how a candidate whose id already exists is reconciled.
type Policy string

const (
	// PolicyPreferNewer overwrites existing values with non-empty candidate
	// values and lets candidate spec keys win.
	PolicyPreferNewer Policy = "prefer_newer"
	// PolicyConservative keeps existing non-empty values; specs only gain
	// keys the existing item lacks or has empty.
	PolicyConservative Policy = "conservative"
	// PolicySkipExisting never merges into an existing id.
	PolicySkipExisting Policy = "skip_existing"
)

// ValidPolicy reports whether s names a known conflict policy.
func ValidPolicy(s string) bool {
	switch Policy(s) {
	case PolicyPreferNewer, PolicyConservative, PolicySkipExisting:
		return true
	}
	return false
}

// Skip reasons recorded in decision rows and the run summary histogram.
const (
	ReasonCanonFiltered      = "canon_filtered"
	ReasonInvalidTarget      = "invalid_target"
	ReasonExistingIDSkipped  = "existing_id_skipped"
	ReasonUpdateLimitReached = "update_limit_reached"
	ReasonInsertLimitReached = "insert_limit_reached"
	ReasonNearDuplicateLore  = "near_duplicate_lore"
	reasonExistingIDMerge    = "existing_id_merge"
	reasonNewID              = "new_id"
)

// DefaultSimilarityThreshold is the lore similarity at or above which a new
// candidate is treated as a near-duplicate of an existing record.
const DefaultSimilarityThreshold = 0.92

// Options configures one merge run.
type Options struct {
	Conflict            Policy
	AllowedCanon        []string
	MaxInserts          int // 0 = unlimited
	MaxUpdates          int // 0 = unlimited
	SimilarityThreshold float64
	SourceAttribution   string
	// Now is the clock for run ids and audit timestamps; overridable in tests.
	Now func() time.Time
}

// Result holds everything a merge run produced. The caller persists the
// catalog and the audit rows; the engine only mutates memory.
type Result struct {
	Summary    model.RunSummary
	Provenance []model.ProvenanceEntry
	Decisions  []model.DecisionEntry
}

// Engine reconciles a candidate batch against a catalog. It owns the catalog
// exclusively for the duration of one run (single writer) and keeps its
// derived indexes updated eagerly, so each insert is immediately visible to
// identity and near-duplicate checks for later candidates.
type Engine struct {
	cat          catalog.Catalog
	idIndex      catalog.IdentityIndex
	detector     *Detector
	validTargets map[catalog.Target]bool
	allowedCanon map[string]bool
	opts         Options
}

// NewEngine builds an Engine with fresh indexes derived from the catalog.
func NewEngine(cat catalog.Catalog, opts Options) *Engine {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.SourceAttribution == "" {
		opts.SourceAttribution = "Fallout Wiki"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	allowed := make(map[string]bool, len(opts.AllowedCanon))
	for _, tag := range opts.AllowedCanon {
		if tag = strings.TrimSpace(tag); tag != "" {
			allowed[tag] = true
		}
	}
	return &Engine{
		cat:          cat,
		idIndex:      catalog.BuildIdentityIndex(cat),
		detector:     NewDetector(catalog.BuildLoreIndex(cat), opts.SimilarityThreshold),
		validTargets: cat.ValidTargets(),
		allowedCanon: allowed,
		opts:         opts,
	}
}

// Run processes the candidates strictly in input order and returns the run's
// audit rows and summary. Every candidate terminates in exactly one decision;
// per-candidate rejections never abort the run.
func (e *Engine) Run(candidates []model.Candidate) *Result {
	runID := e.opts.Now().UTC().Format("20060102T150405Z")
	log := zap.L().With(zap.String("run_id", runID))

	inserted, updated := 0, 0
	skippedReasons := make(map[string]int)
	var provenance []model.ProvenanceEntry
	var decisions []model.DecisionEntry

	skip := func(cand *model.Candidate, reason string, nearDup *model.NearDuplicate) {
		skippedReasons[reason]++
		decisions = append(decisions, model.DecisionEntry{
			Timestamp:     e.timestamp(),
			RunID:         runID,
			ID:            cand.ID,
			Module:        cand.Module,
			CategoryID:    cand.CategoryID,
			SourceURL:     cand.SourceURL,
			Decision:      "skip",
			Reason:        reason,
			NearDuplicate: nearDup,
		})
	}

	for i := range candidates {
		cand := &candidates[i]

		if !e.canonAllowed(cand) {
			skip(cand, ReasonCanonFiltered, nil)
			continue
		}

		target := catalog.Target{Module: cand.Module, Category: cand.CategoryID}
		if !e.validTargets[target] {
			skip(cand, ReasonInvalidTarget, nil)
			continue
		}

		item := e.normalizeItem(cand)

		if loc, exists := e.idIndex[item.ID]; exists {
			if e.opts.Conflict == PolicySkipExisting {
				skip(cand, ReasonExistingIDSkipped, nil)
				continue
			}
			if e.opts.MaxUpdates > 0 && updated >= e.opts.MaxUpdates {
				skip(cand, ReasonUpdateLimitReached, nil)
				continue
			}

			e.mergeInto(e.cat.Get(loc), item)
			updated++
			provenance = append(provenance, e.provenanceEntry(runID, "update", cand, item.ID))
			decisions = append(decisions, e.decisionEntry(runID, cand, "update", reasonExistingIDMerge))
			continue
		}

		if e.opts.MaxInserts > 0 && inserted >= e.opts.MaxInserts {
			skip(cand, ReasonInsertLimitReached, nil)
			continue
		}

		if nearDup := e.detector.Find(cand.Module, cand.CategoryID, item.ID, item.Lore); nearDup != nil {
			skip(cand, ReasonNearDuplicateLore, nearDup)
			continue
		}

		pos := e.cat.Append(cand.Module, cand.CategoryID, item)
		e.idIndex[item.ID] = catalog.Location{Module: cand.Module, Category: cand.CategoryID, Position: pos}
		e.detector.Register(catalog.LoreRow{
			Module:   cand.Module,
			Category: cand.CategoryID,
			ID:       item.ID,
			Lore:     item.Lore,
		})
		inserted++
		provenance = append(provenance, e.provenanceEntry(runID, "insert", cand, item.ID))
		decisions = append(decisions, e.decisionEntry(runID, cand, "insert", reasonNewID))
	}

	skipped := 0
	for _, n := range skippedReasons {
		skipped += n
	}

	log.Info("merge: run complete",
		zap.Int("candidates_in", len(candidates)),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("skipped", skipped),
	)

	return &Result{
		Summary: model.RunSummary{
			RunID:          runID,
			RunAt:          e.timestamp(),
			CandidatesIn:   len(candidates),
			Inserted:       inserted,
			Updated:        updated,
			Skipped:        skipped,
			SkippedReasons: skippedReasons,
			ConflictMode:   string(e.opts.Conflict),
			CanonAllowed:   sortedSet(e.allowedCanon),
		},
		Provenance: provenance,
		Decisions:  decisions,
	}
}

func (e *Engine) canonAllowed(cand *model.Candidate) bool {
	for _, tag := range cand.CanonTags {
		if e.allowedCanon[tag] {
			return true
		}
	}
	return false
}

// maxPlaceholderText caps how much of the name ends up in the generated
// placeholder image URL.
const maxPlaceholderText = 26

// PlaceholderImage generates a stand-in image URL for items without one.
func PlaceholderImage(name string) string {
	runes := []rune(name)
	if len(runes) > maxPlaceholderText {
		runes = runes[:maxPlaceholderText]
	}
	return "https://placehold.co/300x200/111100/33ff33?text=" + url.QueryEscape(string(runes))
}

// normalizeItem shapes a candidate into its persisted form. The display name
// falls back through an explicit priority order: candidate name, then source
// title, then a fixed default.
func (e *Engine) normalizeItem(cand *model.Candidate) *catalog.Item {
	name := cand.Name
	if name == "" {
		name = cand.SourceTitle
	}
	if name == "" {
		name = "UNKNOWN"
	}
	name = strings.ToUpper(name)

	img := cand.Img
	if img == "" {
		img = PlaceholderImage(name)
	}

	specs := cand.Specs
	if len(specs) == 0 {
		specs = map[string]string{"Source": e.opts.SourceAttribution}
	}

	return &catalog.Item{
		ID:    cand.ID,
		Name:  name,
		Img:   img,
		Specs: specs,
		Lore:  cand.Lore,
	}
}

// mergeInto applies the conflict policy's field-merge rule to the existing
// catalog item in place.
func (e *Engine) mergeInto(current *catalog.Item, incoming *catalog.Item) {
	if current == nil {
		return
	}
	switch e.opts.Conflict {
	case PolicyPreferNewer:
		current.Name = preferred(current.Name, incoming.Name)
		current.Img = preferred(current.Img, incoming.Img)
		current.Lore = preferred(current.Lore, incoming.Lore)
		current.Specs = mergeSpecs(current.Specs, incoming.Specs, PolicyPreferNewer)
	case PolicyConservative:
		current.Name = preferred(incoming.Name, current.Name)
		current.Img = preferred(incoming.Img, current.Img)
		current.Lore = preferred(incoming.Lore, current.Lore)
		current.Specs = mergeSpecs(current.Specs, incoming.Specs, PolicyConservative)
	}
}

// preferred returns next unless it is empty, in which case prev wins.
func preferred(prev, next string) string {
	if next == "" {
		return prev
	}
	return next
}

func mergeSpecs(existing, incoming map[string]string, policy Policy) map[string]string {
	merged := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	switch policy {
	case PolicyPreferNewer:
		for k, v := range incoming {
			if v != "" {
				merged[k] = v
			}
		}
	case PolicyConservative:
		for k, v := range incoming {
			if merged[k] == "" {
				merged[k] = v
			}
		}
	}
	return merged
}

func (e *Engine) provenanceEntry(runID, action string, cand *model.Candidate, itemID string) model.ProvenanceEntry {
	return model.ProvenanceEntry{
		Timestamp:        e.timestamp(),
		RunID:            runID,
		Action:           action,
		ID:               itemID,
		Module:           cand.Module,
		CategoryID:       cand.CategoryID,
		SourceURL:        cand.SourceURL,
		SourceTitle:      cand.SourceTitle,
		SourceRevisionID: cand.SourceRevisionID,
		Confidence:       cand.Confidence,
	}
}

func (e *Engine) decisionEntry(runID string, cand *model.Candidate, decision, reason string) model.DecisionEntry {
	return model.DecisionEntry{
		Timestamp:  e.timestamp(),
		RunID:      runID,
		ID:         cand.ID,
		Module:     cand.Module,
		CategoryID: cand.CategoryID,
		SourceURL:  cand.SourceURL,
		Decision:   decision,
		Reason:     reason,
	}
}

func (e *Engine) timestamp() string {
	return e.opts.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
