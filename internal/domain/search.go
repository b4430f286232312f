package domain

// SearchHit is one retrieved content chunk with a relevance score.
// Hits are immutable after creation and ordered score-descending by the
// search engine; the pipeline does not re-rank.
type SearchHit struct {
	ID               string
	DocumentID       string
	UserID           string
	GroupID          string
	ChunkID          *int
	Title            string
	Content          string
	SourcePath       string
	OriginalFileName string
	Score            float64
}

// Label returns the display name used in the grounding prompt header:
// title, falling back to the original file name, falling back to the hit id.
func (h *SearchHit) Label() string {
	if h.Title != "" {
		return h.Title
	}
	if h.OriginalFileName != "" {
		return h.OriginalFileName
	}
	return h.ID
}
