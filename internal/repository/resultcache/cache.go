package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/db"
	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/candidate"
	"github.com/kailas-cloud/gamedex/internal/domain/search/result"
	"github.com/kailas-cloud/gamedex/internal/usecase/search"
)

var cacheKeyPrefix = domain.KeyPrefix + "result_cache:"

// DefaultTTL bounds result staleness between corpus reloads.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores whole search responses in the key-value store with a TTL.
// Entries expire on their own; a corpus reload simply lets them age out.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache. Zero ttl means DefaultTTL.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

type cachedHit struct {
	ID         int     `json:"id"`
	Score      float64 `json:"score"`
	Provenance string  `json:"provenance"`
	Fields     uint8   `json:"fields"`
}

type cachedResponse struct {
	Hits  []cachedHit `json:"hits"`
	Total int         `json:"total"`
}

// Get returns a cached response, or (nil, nil) on a miss. Corrupt entries
// count as misses.
func (c *Cache) Get(ctx context.Context, key string) (*search.Response, error) {
	data, err := c.store.Get(ctx, c.storageKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			c.incCache("miss")
			return nil, nil
		}
		return nil, fmt.Errorf("get cached result: %w", err)
	}

	var cr cachedResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.Error(err))
		c.incCache("miss")
		return nil, nil
	}

	resp := &search.Response{Total: cr.Total}
	for _, h := range cr.Hits {
		resp.Results = append(resp.Results, result.New(
			h.ID, h.Score, candidate.Provenance(h.Provenance), candidate.FieldSet(h.Fields),
		))
	}
	c.incCache("hit")
	return resp, nil
}

// Set stores a response under the query key.
func (c *Cache) Set(ctx context.Context, key string, resp *search.Response) error {
	cr := cachedResponse{Total: resp.Total, Hits: make([]cachedHit, 0, len(resp.Results))}
	for _, r := range resp.Results {
		cr.Hits = append(cr.Hits, cachedHit{
			ID:         r.ID(),
			Score:      r.Score(),
			Provenance: string(r.Provenance()),
			Fields:     uint8(r.Fields()),
		})
	}

	data, err := json.Marshal(cr)
	if err != nil {
		return fmt.Errorf("marshal cached result: %w", err)
	}
	if err := c.store.SetWithTTL(ctx, c.storageKey(key), data, c.ttl); err != nil {
		return fmt.Errorf("set cached result: %w", err)
	}
	return nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) storageKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
