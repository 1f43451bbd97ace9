package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/index/lexical"
	healthuc "github.com/kailas-cloud/gamedex/internal/usecase/health"
	loaderuc "github.com/kailas-cloud/gamedex/internal/usecase/loader"
	queryuc "github.com/kailas-cloud/gamedex/internal/usecase/query"
	searchuc "github.com/kailas-cloud/gamedex/internal/usecase/search"
)

func testRecords() []corpus.Record {
	return []corpus.Record{
		{
			Game: &domain.Game{
				ID: 1, Title: "Dark Roguelike Dungeon",
				Genres: []string{"Roguelike"}, PriceCents: 1999,
				Platforms: domain.PlatformWindows | domain.PlatformLinux,
				Coop:      domain.CoopSinglePlayer, Type: domain.ContentGame,
				TotalReviews: 500,
			},
		},
		{
			Game: &domain.Game{
				ID: 2, Title: "Roguelike Adventure",
				Genres: []string{"Roguelike"}, PriceCents: 2999,
				Platforms: domain.PlatformWindows,
				Coop:      domain.CoopOnline, Type: domain.ContentGame,
				TotalReviews: 300,
			},
		},
		{
			Game: &domain.Game{
				ID: 3, Title: "Casual Puzzle",
				Genres: []string{"Puzzle"}, PriceCents: 499,
				Platforms: domain.PlatformMac,
				Coop:      domain.CoopSinglePlayer, Type: domain.ContentDemo,
				TotalReviews: 50,
			},
		},
	}
}

// testServer wires a full lexical-only pipeline over an in-memory corpus.
func testServer(t *testing.T, loaded bool) http.Handler {
	t.Helper()

	store := corpus.NewStore()
	params := corpus.BuildParams{Lexical: lexical.DefaultParams()}
	if loaded {
		snap, err := corpus.BuildSnapshot(testRecords(), params)
		if err != nil {
			t.Fatalf("BuildSnapshot: %v", err)
		}
		store.Swap(snap)
	}

	queries := queryuc.New(lexical.NewTokenizer(nil), queryuc.NewClassifier(0))
	search := searchuc.New(store, nil, nil, searchuc.Options{})
	loader := loaderuc.New(corpus.NewStaticSource(testRecords()), store, params)
	health := healthuc.New(store, nil, nil)

	srv := NewServer(queries, search, loader, health, zap.NewNop())
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearchGames_OK(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search?q=roguelike")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	resp := decode[SearchResponse](t, rr)
	if resp.Total != 2 {
		t.Errorf("total: got %d, want 2", resp.Total)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(resp.Items))
	}
	if resp.Degraded {
		t.Error("lexical-only pipeline must not report degraded")
	}
	if resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("paging echo: got limit=%d offset=%d", resp.Limit, resp.Offset)
	}
	for _, item := range resp.Items {
		if item.Provenance != "lexical" {
			t.Errorf("provenance: got %s, want lexical", item.Provenance)
		}
		if item.Game.Title == "" {
			t.Error("expected game summary to be populated")
		}
	}
}

func TestSearchGames_MaliciousQuery_400(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search?q="+"%3B%20DROP%20TABLE%20games")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}

	errResp := decode[ErrorResponse](t, rr)
	if errResp.Code != CodeQueryRejected {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeQueryRejected)
	}
	if errResp.RiskScore <= 0 {
		t.Errorf("risk score: got %v, want > 0", errResp.RiskScore)
	}
}

func TestSearchGames_EmptyQuery_400(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if errResp := decode[ErrorResponse](t, rr); errResp.Code != CodeValidationFailed {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeValidationFailed)
	}
}

func TestSearchGames_BadLimit_400(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search?q=roguelike&limit=abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if errResp := decode[ErrorResponse](t, rr); errResp.Code != CodeBadRequest {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeBadRequest)
	}
}

func TestSearchGames_UnknownPlatform_400(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search?q=roguelike&platforms=dreamcast")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if errResp := decode[ErrorResponse](t, rr); errResp.Code != CodeValidationFailed {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeValidationFailed)
	}
}

func TestSearchGames_PriceFilter(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/search?q=roguelike&price_max=2000")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	resp := decode[SearchResponse](t, rr)
	if resp.Total != 1 {
		t.Fatalf("total: got %d, want 1", resp.Total)
	}
	if resp.Items[0].Game.ID != 1 {
		t.Errorf("id: got %d, want 1", resp.Items[0].Game.ID)
	}
}

func TestSearchGames_NotLoaded_503(t *testing.T) {
	h := testServer(t, false)

	rr := doRequest(t, h, "GET", "/api/v1/search?q=roguelike")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}
	if errResp := decode[ErrorResponse](t, rr); errResp.Code != CodeNotLoaded {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeNotLoaded)
	}
}

func TestGetGame_OK(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/games/1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	g := decode[GameSummary](t, rr)
	if g.ID != 1 || g.Title != "Dark Roguelike Dungeon" {
		t.Errorf("unexpected game: %+v", g)
	}
	if len(g.Platforms) != 2 {
		t.Errorf("platforms: got %v, want windows+linux", g.Platforms)
	}
}

func TestGetGame_NotFound_404(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/games/999")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	if errResp := decode[ErrorResponse](t, rr); errResp.Code != CodeGameNotFound {
		t.Errorf("code: got %s, want %s", errResp.Code, CodeGameNotFound)
	}
}

func TestGetGame_BadID_400(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/games/abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
}

func TestSuggest_OK(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/suggest?q=rogue")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	resp := decode[SuggestResponse](t, rr)
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "Roguelike Adventure" {
		t.Errorf("suggestions: got %v", resp.Suggestions)
	}
}

func TestSuggest_NoMatch_EmptyList(t *testing.T) {
	h := testServer(t, true)

	rr := doRequest(t, h, "GET", "/api/v1/suggest?q=zzz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}

	resp := decode[SuggestResponse](t, rr)
	if resp.Suggestions == nil || len(resp.Suggestions) != 0 {
		t.Errorf("suggestions: got %v, want empty list", resp.Suggestions)
	}
}

func TestReloadCorpus_OK(t *testing.T) {
	h := testServer(t, false)

	rr := doRequest(t, h, "POST", "/api/v1/reload")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}

	resp := decode[ReloadResponse](t, rr)
	if resp.Games != 3 {
		t.Errorf("games: got %d, want 3", resp.Games)
	}

	// The engine serves searches right after the reload.
	rr = doRequest(t, h, "GET", "/api/v1/search?q=roguelike")
	if rr.Code != http.StatusOK {
		t.Errorf("post-reload search: got %d, want 200", rr.Code)
	}
}

func TestHealthCheck_DegradedWithoutVectors(t *testing.T) {
	h := testServer(t, true)

	// The fixture corpus has no embeddings, so the semantic check fails.
	rr := doRequest(t, h, "GET", "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}

	resp := decode[HealthResponse](t, rr)
	if resp.Status != "degraded" {
		t.Errorf("status: got %s, want degraded", resp.Status)
	}
	if resp.Checks["corpus"] != "ok" {
		t.Errorf("corpus check: got %s, want ok", resp.Checks["corpus"])
	}
	if resp.Games != 3 {
		t.Errorf("games: got %d, want 3", resp.Games)
	}
}

func TestHealthCheck_NotLoaded_503(t *testing.T) {
	h := testServer(t, false)

	rr := doRequest(t, h, "GET", "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}

	resp := decode[HealthResponse](t, rr)
	if resp.Status != "error" {
		t.Errorf("status: got %s, want error", resp.Status)
	}
}
