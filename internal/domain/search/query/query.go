package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/gamedex/internal/domain/search/filter"
)

// Query parameter limits.
const (
	// MaxRawLength is the maximum accepted raw query length.
	MaxRawLength = 500
	DefaultLimit = 20
	MaxLimit     = 100
)

// Threat is the classifier verdict attached to a query that passed below the
// rejection threshold, kept for audit logging.
type Threat struct {
	Category  string
	RiskScore float64
}

// Query is a validated, sanitized search request. Constructed once by the
// query processor and never mutated afterwards.
type Query struct {
	raw        string
	normalized string
	tokens     []string
	filters    filter.Set
	limit      int
	offset     int
	threat     *Threat
}

// New validates and normalizes query parameters.
// Defaults: limit=20. Limit is clamped to MaxLimit; offset must be non-negative.
// An empty token list is valid: lexical retrieval yields nothing but semantic
// retrieval may still run against the normalized text.
func New(
	raw, normalized string,
	tokens []string,
	filters filter.Set,
	limit, offset int,
	threat *Threat,
) (Query, error) {
	if len(raw) > MaxRawLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxRawLength)
	}
	if err := filters.Validate(); err != nil {
		return Query{}, fmt.Errorf("invalid filters: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		return Query{}, fmt.Errorf("offset must be non-negative")
	}

	return Query{
		raw:        raw,
		normalized: normalized,
		tokens:     tokens,
		filters:    filters,
		limit:      limit,
		offset:     offset,
		threat:     threat,
	}, nil
}

// Raw returns the original query text as received.
func (q *Query) Raw() string { return q.raw }

// Normalized returns the sanitized, lower-cased query text.
func (q *Query) Normalized() string { return q.normalized }

// Tokens returns the stop-word-filtered query tokens.
func (q *Query) Tokens() []string { return q.tokens }

// Filters returns the structured filter set.
func (q *Query) Filters() filter.Set { return q.filters }

// Limit returns the page size.
func (q *Query) Limit() int { return q.limit }

// Offset returns the page offset.
func (q *Query) Offset() int { return q.offset }

// Threat returns the below-threshold classifier verdict, or nil.
func (q *Query) Threat() *Threat { return q.threat }

// CacheKey returns a stable key for best-effort result caching. It covers
// everything that determines the response: normalized text, filters, paging.
func (q *Query) CacheKey() string {
	var b strings.Builder
	b.WriteString(q.normalized)
	b.WriteByte('|')
	b.WriteString(q.filters.Fingerprint())
	fmt.Fprintf(&b, "|%d|%d", q.limit, q.offset)
	return b.String()
}
