package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Search(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Items: []SearchResult{{
				Game:       Game{ID: 7, Title: "Dark Roguelike Dungeon"},
				Score:      0.91,
				Provenance: "both",
			}},
			Total: 1,
			Limit: 10,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, WithAPIKey("secret"))
	price := int64(2000)
	after := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	resp, err := client.Search(context.Background(), SearchParams{
		Query:         "roguelike",
		Limit:         10,
		PriceMaxCents: &price,
		Platforms:     []string{"windows", "linux"},
		ReleasedAfter: &after,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/api/v1/search" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if got := gotQuery["q"]; len(got) != 1 || got[0] != "roguelike" {
		t.Errorf("q param: got %v", got)
	}
	if got := gotQuery["price_max"]; len(got) != 1 || got[0] != "2000" {
		t.Errorf("price_max param: got %v", got)
	}
	if got := gotQuery["platforms"]; len(got) != 1 || got[0] != "windows,linux" {
		t.Errorf("platforms param: got %v", got)
	}
	if got := gotQuery["released_after"]; len(got) != 1 || got[0] != "2020-01-01" {
		t.Errorf("released_after param: got %v", got)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("response: got total=%d items=%d", resp.Total, len(resp.Items))
	}
	if resp.Items[0].Game.Title != "Dark Roguelike Dungeon" {
		t.Errorf("title: got %q", resp.Items[0].Game.Title)
	}
}

func TestClient_Search_QueryRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":       "query_rejected",
			"message":    "query flagged as potentially malicious",
			"risk_score": 8.0,
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Search(context.Background(), SearchParams{Query: "; DROP TABLE games"})
	if !errors.Is(err, ErrQueryRejected) {
		t.Fatalf("want ErrQueryRejected, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.RiskScore != 8.0 {
		t.Errorf("got status=%d risk=%v", apiErr.StatusCode, apiErr.RiskScore)
	}
}

func TestClient_Game_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "game_not_found",
			"message": "game not found",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Game(context.Background(), 99)
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("want ErrGameNotFound, got %v", err)
	}
}

func TestClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "bad_request",
			"message": "invalid or missing API key",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Game(context.Background(), 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, ErrInvalidQuery) {
		t.Error("401 must not map to ErrInvalidQuery")
	}
}

func TestClient_Suggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "rogue" {
			t.Errorf("q param: got %q", r.URL.Query().Get("q"))
		}
		_ = json.NewEncoder(w).Encode(SuggestResponse{Suggestions: []string{"Roguelike Adventure"}})
	}))
	defer srv.Close()

	got, err := New(srv.URL).Suggest(context.Background(), "rogue", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0] != "Roguelike Adventure" {
		t.Errorf("suggestions: got %v", got)
	}
}

func TestClient_Reload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(ReloadStats{Games: 42, TookMs: 17})
	}))
	defer srv.Close()

	stats, err := New(srv.URL).Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if stats.Games != 42 {
		t.Errorf("games: got %d", stats.Games)
	}
}

func TestClient_Health_Degraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(Health{
			Status: "degraded",
			Checks: map[string]string{"corpus": "ok", "vector_index": "empty"},
			Games:  3,
		})
	}))
	defer srv.Close()

	h, err := New(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "degraded" || h.Games != 3 {
		t.Errorf("got status=%q games=%d", h.Status, h.Games)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Game(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %T", err)
	}
	if apiErr.Code != "unknown" || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("got code=%q status=%d", apiErr.Code, apiErr.StatusCode)
	}
}
