package search

import (
	"context"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/result"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Response is one search outcome: a page of fused hits, the filtered match
// count, and whether the semantic signal was lost along the way.
type Response struct {
	Results  []result.Ranked
	Total    int
	Degraded bool
}

// ResultCache stores whole responses by query cache key. Get returns
// (nil, nil) on a miss. Degraded responses are never stored.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp *Response) error
}
