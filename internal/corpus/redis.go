package corpus

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/gamedex/internal/domain"
)

// DefaultKeyPrefix namespaces game hashes in the key-value store.
const DefaultKeyPrefix = "game:"

// HashReader is the narrow view of the key-value store this source needs.
type HashReader interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// RedisSource loads the corpus from hash keys under a common prefix. Each
// game is one hash; the embedding field holds raw little-endian float32s.
type RedisSource struct {
	store  HashReader
	prefix string
}

// NewRedisSource creates a source over the given hash store. An empty prefix
// means DefaultKeyPrefix.
func NewRedisSource(store HashReader, prefix string) *RedisSource {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSource{store: store, prefix: prefix}
}

// Load scans all game keys and decodes their hashes. Key order is not stable
// across scans, so records are sorted by id to keep rebuilds deterministic.
func (s *RedisSource) Load(ctx context.Context) ([]Record, error) {
	keys, err := s.store.Scan(ctx, s.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan corpus keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := s.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read corpus hashes: %w", err)
	}

	records := make([]Record, 0, len(hashes))
	for i, fields := range hashes {
		rec, err := decodeGameHash(fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Game.ID < records[j].Game.ID
	})
	return records, nil
}

func decodeGameHash(fields map[string]string) (Record, error) {
	id, err := strconv.Atoi(fields["id"])
	if err != nil {
		return Record{}, fmt.Errorf("bad id %q: %w", fields["id"], err)
	}

	g := &domain.Game{
		ID:           id,
		Title:        fields["title"],
		Description:  fields["description"],
		Coop:         domain.CoopMode(fields["coop"]),
		Type:         domain.ContentType(fields["content_type"]),
		ReviewStatus: fields["review_status"],
	}
	if v := fields["genres"]; v != "" {
		if err := json.Unmarshal([]byte(v), &g.Genres); err != nil {
			return Record{}, fmt.Errorf("bad genres: %w", err)
		}
	}
	if v := fields["price_cents"]; v != "" {
		if g.PriceCents, err = strconv.ParseInt(v, 10, 64); err != nil {
			return Record{}, fmt.Errorf("bad price_cents: %w", err)
		}
	}
	if v := fields["platforms"]; v != "" {
		p, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Record{}, fmt.Errorf("bad platforms: %w", err)
		}
		g.Platforms = domain.Platform(p)
	}
	if v := fields["release_unix"]; v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad release_unix: %w", err)
		}
		if sec > 0 {
			g.ReleaseDate = time.Unix(sec, 0).UTC()
		}
	}
	if v := fields["total_reviews"]; v != "" {
		if g.TotalReviews, err = strconv.Atoi(v); err != nil {
			return Record{}, fmt.Errorf("bad total_reviews: %w", err)
		}
	}

	emb, err := decodeEmbedding(fields["embedding"])
	if err != nil {
		return Record{}, err
	}
	return Record{Game: g, Embedding: emb}, nil
}

// EncodeGameHash renders a record as the hash fields Load reads back. Used by
// the corpus seeder. Zero-valued attributes are omitted.
func EncodeGameHash(rec Record) map[string]string {
	g := rec.Game
	fields := map[string]string{
		"id":    strconv.Itoa(g.ID),
		"title": g.Title,
	}
	if g.Description != "" {
		fields["description"] = g.Description
	}
	if len(g.Genres) > 0 {
		b, _ := json.Marshal(g.Genres)
		fields["genres"] = string(b)
	}
	if g.PriceCents != 0 {
		fields["price_cents"] = strconv.FormatInt(g.PriceCents, 10)
	}
	if g.Platforms != 0 {
		fields["platforms"] = strconv.FormatUint(uint64(g.Platforms), 10)
	}
	if g.Coop != "" {
		fields["coop"] = string(g.Coop)
	}
	if g.Type != "" {
		fields["content_type"] = string(g.Type)
	}
	if !g.ReleaseDate.IsZero() {
		fields["release_unix"] = strconv.FormatInt(g.ReleaseDate.Unix(), 10)
	}
	if g.TotalReviews != 0 {
		fields["total_reviews"] = strconv.Itoa(g.TotalReviews)
	}
	if g.ReviewStatus != "" {
		fields["review_status"] = g.ReviewStatus
	}
	if len(rec.Embedding) > 0 {
		fields["embedding"] = string(encodeEmbedding(rec.Embedding))
	}
	return fields
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeEmbedding unpacks raw little-endian float32 bytes, the same layout
// vector fields use in redis hashes.
func decodeEmbedding(raw string) ([]float32, error) {
	if raw == "" {
		return nil, nil
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("bad embedding: %d bytes is not a float32 array", len(raw))
	}
	b := []byte(raw)
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
