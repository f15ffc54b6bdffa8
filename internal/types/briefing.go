package types

// TopItem is one headline reference inside a briefing.
type TopItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Briefing is the structured summary produced once per summarization request.
type Briefing struct {
	Summary    string    `json:"summary"`
	Highlights []string  `json:"highlights"`
	Top        []TopItem `json:"top"`
}

// NoContentSummary is the summary text of the briefing returned when retrieval finds nothing.
const NoContentSummary = "No relevant content found."

// EmptyBriefing returns the canonical briefing for a request with no retrievable content.
func EmptyBriefing() Briefing {
	return Briefing{
		Summary:    NoContentSummary,
		Highlights: []string{},
		Top:        []TopItem{},
	}
}

// Normalize replaces nil slices with empty ones so the briefing always encodes arrays.
func (b *Briefing) Normalize() {
	if b.Highlights == nil {
		b.Highlights = []string{}
	}
	if b.Top == nil {
		b.Top = []TopItem{}
	}
}
