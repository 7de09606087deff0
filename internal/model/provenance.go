package model

// ProvenanceEntry is one append-only audit row per successful merge action.
type ProvenanceEntry struct {
	Timestamp        string  `json:"timestamp"`
	RunID            string  `json:"run_id"`
	Action           string  `json:"action"` // "insert" or "update"
	ID               string  `json:"id"`
	Module           string  `json:"module"`
	CategoryID       string  `json:"category_id"`
	SourceURL        string  `json:"source_url,omitempty"`
	SourceTitle      string  `json:"source_title,omitempty"`
	SourceRevisionID int64   `json:"source_revision_id,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// NearDuplicate identifies the existing record a candidate collided with.
type NearDuplicate struct {
	Similarity float64 `json:"similarity"`
	MatchedID  string  `json:"matched_id"`
}

// DecisionEntry is one append-only audit row per candidate considered during
// a merge run, including skips.
type DecisionEntry struct {
	Timestamp     string         `json:"timestamp"`
	RunID         string         `json:"run_id"`
	ID            string         `json:"id"`
	Module        string         `json:"module"`
	CategoryID    string         `json:"category_id"`
	SourceURL     string         `json:"source_url,omitempty"`
	Decision      string         `json:"decision"` // "insert", "update" or "skip"
	Reason        string         `json:"reason"`
	NearDuplicate *NearDuplicate `json:"near_duplicate,omitempty"`
}

// RunSummary is the per-run result object written as the run manifest and
// printed to stdout by the merge stage.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	RunAt          string         `json:"run_at"`
	Catalog        string         `json:"catalog"`
	CandidatesIn   int            `json:"candidates_in"`
	Inserted       int            `json:"inserted"`
	Updated        int            `json:"updated"`
	Skipped        int            `json:"skipped"`
	SkippedReasons map[string]int `json:"skipped_reasons"`
	ConflictMode   string         `json:"conflict_mode"`
	CanonAllowed   []string       `json:"canon_allowed"`
	DecisionLog    string         `json:"decision_log,omitempty"`
	Provenance     string         `json:"provenance"`
}
