package archive

// SearchQuery carries full-text query parameters and filters. A QueryText of
// "*" matches everything, enabling filter-only searches.
type SearchQuery struct {
	QueryText  string
	Community  string // optional, case-insensitive
	Author     string // optional, exact
	ResultType string // "post", "comment", or "" for both
	MinScore   int64
	StartDate  int64  // Unix seconds, 0 = unbounded
	EndDate    int64  // Unix seconds, 0 = unbounded
	OrderBy    string // "rank", "score", or "date"; defaults to rank
	Limit      int
	Offset     int
}

// SearchResult is one hit from posts or comments.
type SearchResult struct {
	ResultType string // "post" or "comment"
	ID         string
	Community  string
	Platform   string
	Author     string
	CreatedUTC int64
	Score      int64

	// Post fields
	Title       string
	Body        string
	NumComments int64
	URL         string

	// Comment fields
	PostID      string
	ParentTitle string

	// Relevance
	Rank     float32
	Headline string // highlighted excerpt
}
