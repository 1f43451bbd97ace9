package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/filter"
	domquery "github.com/kailas-cloud/gamedex/internal/domain/search/query"
	"github.com/kailas-cloud/gamedex/internal/index/lexical"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	delay time.Duration
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockCache struct {
	entries map[string]*Response
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*Response)}
}

func (m *mockCache) Get(_ context.Context, key string) (*Response, error) {
	return m.entries[key], nil
}

func (m *mockCache) Set(_ context.Context, key string, resp *Response) error {
	m.entries[key] = resp
	m.sets++
	return nil
}

// --- Fixtures ---

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	snap, err := corpus.BuildSnapshot([]corpus.Record{
		{
			Game: &domain.Game{
				ID: 1, Title: "Dark Roguelike Dungeon",
				Genres: []string{"Roguelike"}, PriceCents: 1999, TotalReviews: 500,
			},
			Embedding: []float32{1, 0},
		},
		{
			Game: &domain.Game{
				ID: 2, Title: "Roguelike Adventure",
				Genres: []string{"Roguelike"}, PriceCents: 2999, TotalReviews: 300,
			},
			Embedding: []float32{0.9, 0.1},
		},
		{
			Game: &domain.Game{
				ID: 3, Title: "Casual Puzzle",
				Genres: []string{"Puzzle"}, PriceCents: 499, TotalReviews: 50,
			},
			Embedding: []float32{0, 1},
		},
	}, corpus.BuildParams{Lexical: lexical.DefaultParams()})
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	st := corpus.NewStore()
	st.Swap(snap)
	return st
}

func mustQuery(t *testing.T, tokens []string, f filter.Set, limit, offset int) domquery.Query {
	t.Helper()
	q, err := domquery.New("roguelike dungeon", "roguelike dungeon", tokens, f, limit, offset, nil)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

// --- Tests ---

func TestSearch_NotLoaded(t *testing.T) {
	svc := New(corpus.NewStore(), &mockEmbedder{vec: []float32{1, 0}}, nil, Options{})

	q := mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0)
	if _, err := svc.Search(context.Background(), q); !errors.Is(err, domain.ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestSearch_Hybrid(t *testing.T) {
	svc := New(testStore(t), &mockEmbedder{vec: []float32{1, 0}}, nil, Options{})

	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Degraded {
		t.Error("healthy pipeline should not be degraded")
	}
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3 (games 1 and 2 lexically, 1-3 semantically)", resp.Total)
	}
	// Game 2 tops the lexical list (same term weight, shorter document)
	// and stays near the query vector, so it wins the fused ranking.
	if resp.Results[0].ID() != 2 {
		t.Errorf("expected id 2 first, got %d", resp.Results[0].ID())
	}
	// The puzzle game only matches semantically and points away from the
	// query vector; it must rank last.
	last := resp.Results[len(resp.Results)-1]
	if last.ID() != 3 {
		t.Errorf("game 3 should rank last, got id %d", last.ID())
	}
}

func TestSearch_DegradedOnEmbedderFailure(t *testing.T) {
	svc := New(testStore(t), &mockEmbedder{err: errors.New("provider down")}, nil, Options{})

	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Degraded {
		t.Error("embedder failure should degrade the response")
	}
	if resp.Total != 2 {
		t.Errorf("lexical-only total = %d, want 2", resp.Total)
	}
}

func TestSearch_DegradedWithoutVectorIndex(t *testing.T) {
	// An embedder is configured but the corpus carries no embeddings, so no
	// vector index exists: lexical-only responses must report degradation.
	snap, err := corpus.BuildSnapshot([]corpus.Record{
		{Game: &domain.Game{ID: 1, Title: "Dark Roguelike Dungeon"}},
		{Game: &domain.Game{ID: 2, Title: "Roguelike Adventure"}},
	}, corpus.BuildParams{Lexical: lexical.DefaultParams()})
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	st := corpus.NewStore()
	st.Swap(snap)

	svc := New(st, &mockEmbedder{vec: []float32{1, 0}}, nil, Options{})
	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Degraded {
		t.Error("missing vector index with a configured embedder should degrade the response")
	}
	if resp.Total != 2 {
		t.Errorf("lexical-only total = %d, want 2", resp.Total)
	}

	// Without an embedder the same corpus is simply lexical-only, not degraded.
	svc = New(st, nil, nil, Options{})
	resp, err = svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Degraded {
		t.Error("lexical-only engine without an embedder is not degraded")
	}
}

func TestSearch_UnavailableWhenAllSignalsFail(t *testing.T) {
	svc := New(testStore(t), &mockEmbedder{err: errors.New("provider down")}, nil, Options{})

	// No lexical tokens survive and the embedder is down.
	q, err := domquery.New("xy", "xy", nil, filter.Set{}, 10, 0, nil)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	if _, err := svc.Search(context.Background(), q); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSearch_VectorStageTimeout(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0}, delay: 100 * time.Millisecond}
	svc := New(testStore(t), embed, nil, Options{VectorTimeout: time.Millisecond})

	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Degraded {
		t.Error("vector stage timeout should degrade the response")
	}
}

func TestSearch_FiltersApplyBeforeTotal(t *testing.T) {
	svc := New(testStore(t), &mockEmbedder{vec: []float32{1, 0}}, nil, Options{})

	maxPrice := int64(2000)
	f := filter.Set{PriceMaxCents: &maxPrice}
	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, f, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Games 2 (2999 cents) is filtered out; games 1 and 3 remain.
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	for _, r := range resp.Results {
		if r.ID() == 2 {
			t.Error("game 2 exceeds the price filter and must not appear")
		}
	}
}

func TestSearch_Pagination(t *testing.T) {
	svc := New(testStore(t), &mockEmbedder{vec: []float32{1, 0}}, nil, Options{})

	page1, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 2, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page1.Results) != 2 || page1.Total != 3 {
		t.Errorf("page 1: len = %d, total = %d; want 2, 3", len(page1.Results), page1.Total)
	}

	page2, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 2, 2))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page2.Results) != 1 || page2.Total != 3 {
		t.Errorf("page 2: len = %d, total = %d; want 1, 3", len(page2.Results), page2.Total)
	}

	beyond, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 2, 50))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(beyond.Results) != 0 || beyond.Total != 3 {
		t.Errorf("offset beyond total: len = %d, total = %d; want 0, 3", len(beyond.Results), beyond.Total)
	}
}

func TestSearch_CacheRoundTrip(t *testing.T) {
	cache := newMockCache()
	svc := New(testStore(t), &mockEmbedder{vec: []float32{1, 0}}, cache, Options{})

	q := mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0)
	first, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected 1 cache write, got %d", cache.sets)
	}

	second, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if second != first {
		t.Error("second search should return the cached response")
	}
	if cache.sets != 1 {
		t.Errorf("cache hit should not rewrite, got %d writes", cache.sets)
	}
}

func TestSearch_DegradedResponseNotCached(t *testing.T) {
	cache := newMockCache()
	svc := New(testStore(t), &mockEmbedder{err: errors.New("provider down")}, cache, Options{})

	resp, err := svc.Search(context.Background(), mustQuery(t, []string{"roguelike"}, filter.Set{}, 10, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Degraded {
		t.Fatal("expected degraded response")
	}
	if cache.sets != 0 {
		t.Errorf("degraded responses must not be cached, got %d writes", cache.sets)
	}
}

func TestGame(t *testing.T) {
	svc := New(testStore(t), nil, nil, Options{})

	g, err := svc.Game(context.Background(), 2)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if g.Title != "Roguelike Adventure" {
		t.Errorf("title = %q", g.Title)
	}

	if _, err := svc.Game(context.Background(), 99); !errors.Is(err, domain.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	svc := New(testStore(t), nil, nil, Options{})

	titles, err := svc.Suggest(context.Background(), "rogue", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Roguelike Adventure" {
		t.Errorf("titles = %v", titles)
	}

	titles, err = svc.Suggest(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if titles != nil {
		t.Errorf("empty prefix should suggest nothing, got %v", titles)
	}
}
