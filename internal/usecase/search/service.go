package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/candidate"
	domquery "github.com/kailas-cloud/gamedex/internal/domain/search/query"
	"github.com/kailas-cloud/gamedex/internal/logger"
	"github.com/kailas-cloud/gamedex/internal/metrics"
)

// Retrieval defaults.
const (
	// DefaultTopK is how deep each signal retrieves before fusion.
	DefaultTopK = 200
	// DefaultVectorTimeout bounds the semantic stage; a slow embedder
	// degrades the response instead of stalling it.
	DefaultVectorTimeout = 2 * time.Second
	// MaxSuggestions caps title autocompletion.
	MaxSuggestions = 20
)

// Options tunes the search pipeline.
type Options struct {
	Weights       FusionWeights
	TopK          int
	VectorTimeout time.Duration
}

// Service runs the hybrid pipeline: parallel lexical and semantic retrieval
// over the active snapshot, fusion, filtering, pagination.
type Service struct {
	store *corpus.Store
	embed Embedder
	cache ResultCache
	opts  Options
}

// New creates a search service. embed and cache may be nil: without an
// embedder the engine is lexical-only, without a cache every query recomputes.
func New(store *corpus.Store, embed Embedder, cache ResultCache, opts Options) *Service {
	if opts.Weights == (FusionWeights{}) {
		opts.Weights = DefaultFusionWeights()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.VectorTimeout <= 0 {
		opts.VectorTimeout = DefaultVectorTimeout
	}
	return &Service{store: store, embed: embed, cache: cache, opts: opts}
}

// Search executes one query against the active snapshot. A semantic-stage
// failure degrades the response to lexical-only; when no signal can run at
// all the search is unavailable.
func (s *Service) Search(ctx context.Context, q domquery.Query) (*Response, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, q.CacheKey())
		if err != nil {
			logger.FromContext(ctx).Debug("result cache read failed", zap.Error(err))
		} else if cached != nil {
			metrics.SearchRequestsTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	var (
		lex, sem []candidate.Candidate
		semErr   error
	)
	semWanted := snap.Vector() != nil && s.embed != nil && q.Normalized() != ""

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStage("lexical", time.Now())
		lex = snap.Lexical().Search(q.Tokens(), s.opts.TopK)
		return nil
	})
	if semWanted {
		g.Go(func() error {
			defer observeStage("vector", time.Now())
			vctx, cancel := context.WithTimeout(gctx, s.opts.VectorTimeout)
			defer cancel()

			emb, err := s.embed.Embed(vctx, q.Normalized())
			if err != nil {
				semErr = fmt.Errorf("embed query: %w", err)
				return nil
			}
			sem, semErr = snap.Vector().Search(emb.Embedding, s.opts.TopK)
			return nil
		})
	}
	_ = g.Wait()

	// An embedder with no vector index to search means the semantic signal
	// is configured but unavailable: the response is lexical-only, degraded.
	degraded := s.embed != nil && snap.Vector() == nil && q.Normalized() != ""
	if semWanted && semErr != nil {
		if len(q.Tokens()) == 0 {
			// No lexical signal either: nothing left to rank with.
			metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %s", domain.ErrUnavailable, semErr)
		}
		degraded = true
		logger.FromContext(ctx).Warn("semantic retrieval degraded", zap.Error(semErr))
	}

	fuseStart := time.Now()
	ranked := fuse(lex, sem, s.opts.Weights)
	page, total := paginate(ranked, snap, q.Filters(), q.Limit(), q.Offset())
	observeStage("fusion", fuseStart)
	resp := &Response{Results: page, Total: total, Degraded: degraded}

	if degraded {
		metrics.SearchRequestsTotal.WithLabelValues("degraded").Inc()
	} else {
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	}

	if s.cache != nil && !degraded {
		if err := s.cache.Set(ctx, q.CacheKey(), resp); err != nil {
			logger.FromContext(ctx).Debug("result cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

func observeStage(stage string, start time.Time) {
	metrics.SearchStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Game returns one game from the active snapshot.
func (s *Service) Game(ctx context.Context, id int) (*domain.Game, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	g, ok := snap.Game(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrGameNotFound, id)
	}
	return g, nil
}

// Suggest returns game titles starting with the given prefix, most reviewed
// first. Matching is case-insensitive.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}

	matched := make([]*domain.Game, 0, limit)
	for _, g := range snap.Games() {
		if strings.HasPrefix(strings.ToLower(g.Title), prefix) {
			matched = append(matched, g)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TotalReviews != matched[j].TotalReviews {
			return matched[i].TotalReviews > matched[j].TotalReviews
		}
		return matched[i].Title < matched[j].Title
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	titles := make([]string, len(matched))
	for i, g := range matched {
		titles[i] = g.Title
	}
	return titles, nil
}
