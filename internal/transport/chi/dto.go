package chi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/filter"
	"github.com/kailas-cloud/gamedex/internal/domain/search/result"
)

// ErrorCode identifies an API error category.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeQueryRejected          ErrorCode = "query_rejected"
	CodeGameNotFound           ErrorCode = "game_not_found"
	CodeNotLoaded              ErrorCode = "corpus_not_loaded"
	CodeUnavailable            ErrorCode = "search_unavailable"
	CodeLoadFailed             ErrorCode = "load_failed"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RiskScore float64   `json:"risk_score,omitempty"`
}

// GameSummary is the API view of a game.
type GameSummary struct {
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

// SearchResultItem is one fused hit.
type SearchResultItem struct {
	Game          GameSummary `json:"game"`
	Score         float64     `json:"score"`
	Provenance    string      `json:"provenance"`
	MatchedFields []string    `json:"matched_fields,omitempty"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Items    []SearchResultItem `json:"items"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
	Degraded bool               `json:"degraded"`
}

// SuggestResponse is the body of GET /api/v1/suggest.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// ReloadResponse is the body of POST /api/v1/reload.
type ReloadResponse struct {
	Games    int   `json:"games"`
	Embedded int   `json:"embedded"`
	TookMs   int64 `json:"took_ms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Games  int               `json:"games"`
}

var platformFlags = map[string]domain.Platform{
	"windows":   domain.PlatformWindows,
	"mac":       domain.PlatformMac,
	"linux":     domain.PlatformLinux,
	"steamdeck": domain.PlatformSteamDeck,
}

func platformNames(p domain.Platform) []string {
	var names []string
	for _, n := range []string{"windows", "mac", "linux", "steamdeck"} {
		if p.Has(platformFlags[n]) {
			names = append(names, n)
		}
	}
	return names
}

var coopModes = map[string]domain.CoopMode{
	string(domain.CoopSinglePlayer): domain.CoopSinglePlayer,
	string(domain.CoopLocal):        domain.CoopLocal,
	string(domain.CoopOnline):       domain.CoopOnline,
	string(domain.CoopLocalMulti):   domain.CoopLocalMulti,
	string(domain.CoopOnlineMulti):  domain.CoopOnlineMulti,
	string(domain.CoopMMO):          domain.CoopMMO,
}

var contentTypes = map[string]domain.ContentType{
	string(domain.ContentGame): domain.ContentGame,
	string(domain.ContentDLC):  domain.ContentDLC,
	string(domain.ContentDemo): domain.ContentDemo,
}

func gameToSummary(g *domain.Game) GameSummary {
	s := GameSummary{
		ID:           g.ID,
		Title:        g.Title,
		Description:  g.Description,
		Genres:       g.Genres,
		PriceCents:   g.PriceCents,
		Platforms:    platformNames(g.Platforms),
		Coop:         string(g.Coop),
		Type:         string(g.Type),
		TotalReviews: g.TotalReviews,
		ReviewStatus: g.ReviewStatus,
	}
	if !g.ReleaseDate.IsZero() {
		d := g.ReleaseDate.UTC()
		s.ReleaseDate = &d
	}
	return s
}

func resultToItem(r result.Ranked, g *domain.Game) SearchResultItem {
	return SearchResultItem{
		Game:          gameToSummary(g),
		Score:         r.Score(),
		Provenance:    string(r.Provenance()),
		MatchedFields: r.Fields().Names(),
	}
}

// filtersFromQuery parses the structured filter parameters of a search URL.
func filtersFromQuery(values url.Values) (filter.Set, error) {
	var f filter.Set

	if v := values.Get("price_max"); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter.Set{}, fmt.Errorf("price_max must be an integer (cents)")
		}
		f.PriceMaxCents = &cents
	}
	if v := values.Get("price_min"); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter.Set{}, fmt.Errorf("price_min must be an integer (cents)")
		}
		f.PriceMinCents = &cents
	}
	if v := values.Get("platforms"); v != "" {
		for _, name := range strings.Split(v, ",") {
			flag, ok := platformFlags[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return filter.Set{}, fmt.Errorf("unknown platform %q", name)
			}
			f.Platform |= flag
		}
	}
	if v := values.Get("coop"); v != "" {
		mode, ok := coopModes[strings.ToLower(v)]
		if !ok {
			return filter.Set{}, fmt.Errorf("unknown coop mode %q", v)
		}
		f.Coop = &mode
	}
	if v := values.Get("type"); v != "" {
		ct, ok := contentTypes[strings.ToLower(v)]
		if !ok {
			return filter.Set{}, fmt.Errorf("unknown content type %q", v)
		}
		f.Type = &ct
	}
	if v := values.Get("genres"); v != "" {
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				f.Genres = append(f.Genres, g)
			}
		}
	}
	if v := values.Get("released_after"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter.Set{}, fmt.Errorf("released_after: %v", err)
		}
		f.ReleasedAfter = &t
	}
	if v := values.Get("released_before"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter.Set{}, fmt.Errorf("released_before: %v", err)
		}
		f.ReleasedBefore = &t
	}
	if v := values.Get("min_reviews"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter.Set{}, fmt.Errorf("min_reviews must be an integer")
		}
		f.MinReviews = &n
	}

	return f, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", v)
	}
	return t, nil
}
