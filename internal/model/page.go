package model

// Section is a single section heading of a wiki page.
type Section struct {
	Line string `json:"line"`
}

// RawPage represents a crawled encyclopedia page as emitted by the crawl
// stage. It is the immutable input to normalization.
type RawPage struct {
	PageID            int64     `json:"page_id,omitempty"`
	Title             string    `json:"title"`
	URL               string    `json:"url"`
	Summary           string    `json:"summary,omitempty"`
	LeadSummary       string    `json:"lead_summary,omitempty"`
	FullText          string    `json:"full_text,omitempty"`
	Sections          []Section `json:"sections,omitempty"`
	Categories        []string  `json:"categories,omitempty"`
	Image             string    `json:"image,omitempty"`
	RevisionID        int64     `json:"revision_id,omitempty"`
	RevisionTimestamp string    `json:"revision_timestamp,omitempty"`
	Depth             int       `json:"depth"`
	SeedTitle         string    `json:"seed_title,omitempty"`
	FetchedAt         string    `json:"fetched_at,omitempty"`
}

// Lead returns the page's lead text. Newer crawl outputs carry an explicit
// lead_summary; older ones only have summary. First non-empty wins.
func (p *RawPage) Lead() string {
	if p.LeadSummary != "" {
		return p.LeadSummary
	}
	return p.Summary
}

// Fields is the normalized (lower-cased, whitespace-collapsed) projection of
// a RawPage into the named text buckets used for keyword scoring.
type Fields struct {
	Title       string
	Categories  string
	LeadSummary string
	FullText    string
	Sections    string
}
