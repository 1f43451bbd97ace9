package corpus

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/kailas-cloud/gamedex/internal/domain"
)

type mockHashStore struct {
	keys   []string
	hashes map[string]map[string]string
}

func (m *mockHashStore) Scan(_ context.Context, _ string) ([]string, error) {
	return m.keys, nil
}

func (m *mockHashStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func packEmbedding(vals ...float32) string {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return string(b)
}

func TestRedisSource_Load(t *testing.T) {
	store := &mockHashStore{
		keys: []string{"game:2", "game:1"},
		hashes: map[string]map[string]string{
			"game:1": {
				"id":            "1",
				"title":         "Dark Roguelike Dungeon",
				"genres":        `["Roguelike","Indie"]`,
				"price_cents":   "1999",
				"platforms":     "3",
				"coop":          "single-player",
				"content_type":  "game",
				"release_unix":  "1700000000",
				"total_reviews": "120",
				"review_status": "mostly_positive",
				"embedding":     packEmbedding(1, 0),
			},
			"game:2": {
				"id":    "2",
				"title": "Casual Puzzle",
			},
		},
	}

	records, err := NewRedisSource(store, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Sorted by id regardless of scan order.
	if records[0].Game.ID != 1 || records[1].Game.ID != 2 {
		t.Errorf("records not sorted by id: %d, %d", records[0].Game.ID, records[1].Game.ID)
	}

	g := records[0].Game
	if g.Title != "Dark Roguelike Dungeon" || g.PriceCents != 1999 || g.TotalReviews != 120 {
		t.Errorf("unexpected game: %+v", g)
	}
	if !g.Platforms.Has(domain.PlatformWindows) || !g.Platforms.Has(domain.PlatformMac) {
		t.Errorf("platforms = %d, want windows|mac", g.Platforms)
	}
	if len(records[0].Embedding) != 2 || records[0].Embedding[0] != 1 {
		t.Errorf("embedding = %v", records[0].Embedding)
	}
	if records[1].Embedding != nil {
		t.Errorf("game 2 has no embedding field, got %v", records[1].Embedding)
	}
}

func TestEncodeGameHash_RoundTrip(t *testing.T) {
	rec := Record{
		Game: &domain.Game{
			ID: 7, Title: "Star Freight", Description: "Trade in space",
			Genres: []string{"Simulation"}, PriceCents: 2999,
			Platforms: domain.PlatformWindows | domain.PlatformLinux,
			Coop:      domain.CoopOnline, Type: domain.ContentGame,
			TotalReviews: 42, ReviewStatus: "positive",
		},
		Embedding: []float32{0.5, -0.5, 1},
	}

	decoded, err := decodeGameHash(EncodeGameHash(rec))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Game.ID != 7 || decoded.Game.Title != "Star Freight" {
		t.Errorf("unexpected game: %+v", decoded.Game)
	}
	if decoded.Game.Platforms != rec.Game.Platforms || decoded.Game.Coop != rec.Game.Coop {
		t.Errorf("attributes lost: %+v", decoded.Game)
	}
	if len(decoded.Embedding) != 3 || decoded.Embedding[1] != -0.5 {
		t.Errorf("embedding = %v", decoded.Embedding)
	}
}

func TestDecodeEmbedding_BadLength(t *testing.T) {
	if _, err := decodeEmbedding("abc"); err == nil {
		t.Error("expected error for non-multiple-of-4 payload")
	}
}

func TestDecodeGameHash_BadID(t *testing.T) {
	if _, err := decodeGameHash(map[string]string{"id": "x"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
