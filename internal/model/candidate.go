package model

// Classification holds the module/category assignment inferred for a page.
// Module and Category are empty when no keyword matched (unresolved).
type Classification struct {
	Module        string
	Category      string
	Confidence    float64
	ModuleScore   float64
	CategoryScore float64
	Year          int // 0 when no four-digit year was found
}

// Resolved reports whether both a module and a category were assigned.
func (c Classification) Resolved() bool {
	return c.Module != "" && c.Category != ""
}

// Signals carries the raw scores behind a candidate's confidence value.
type Signals struct {
	ModuleScore           float64 `json:"module_score"`
	CategoryScore         float64 `json:"category_score"`
	MinConfidenceRequired float64 `json:"min_confidence_required"`
}

// Candidate is a normalized record awaiting merge into the catalog.
type Candidate struct {
	SourceURL        string            `json:"source_url"`
	SourceTitle      string            `json:"source_title"`
	SourceRevisionID int64             `json:"source_revision_id,omitempty"`
	Module           string            `json:"module"`
	CategoryID       string            `json:"category_id"`
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Img              string            `json:"img"`
	Specs            map[string]string `json:"specs"`
	Lore             string            `json:"lore"`
	CanonTags        []string          `json:"canon_tags"`
	Confidence       float64           `json:"confidence"`
	Signals          Signals           `json:"signals"`
	ExtractedAt      string            `json:"extracted_at"`
}
