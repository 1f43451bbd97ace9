package sdk

import "time"

// Game is the API view of a catalog entry.
type Game struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Genres       []string   `json:"genres,omitempty"`
	PriceCents   int64      `json:"price_cents"`
	Platforms    []string   `json:"platforms,omitempty"`
	Coop         string     `json:"coop,omitempty"`
	Type         string     `json:"type,omitempty"`
	ReleaseDate  *time.Time `json:"release_date,omitempty"`
	TotalReviews int        `json:"total_reviews"`
	ReviewStatus string     `json:"review_status,omitempty"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Game          Game     `json:"game"`
	Score         float64  `json:"score"`
	Provenance    string   `json:"provenance"`
	MatchedFields []string `json:"matched_fields,omitempty"`
}

// SearchResponse is a page of ranked results.
type SearchResponse struct {
	Items    []SearchResult `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
	Degraded bool           `json:"degraded"`
}

// SearchParams are the query and optional filters of a search call.
// Zero-valued fields are omitted from the request.
type SearchParams struct {
	Query  string
	Limit  int
	Offset int

	PriceMaxCents  *int64
	PriceMinCents  *int64
	Platforms      []string
	Coop           string
	Type           string
	Genres         []string
	ReleasedAfter  *time.Time
	ReleasedBefore *time.Time
	MinReviews     *int
}

// SuggestResponse holds title completions.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ReloadStats summarizes a corpus rebuild.
type ReloadStats struct {
	Games    int   `json:"games"`
	Embedded int   `json:"embedded"`
	TookMs   int64 `json:"took_ms"`
}

// Health is the engine health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Games  int               `json:"games"`
}
