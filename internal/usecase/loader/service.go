package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/logger"
)

// Stats summarizes one completed reload.
type Stats struct {
	Games    int
	Embedded int
	Took     time.Duration
}

// Service rebuilds the corpus snapshot from its source. Searches keep
// reading the previous snapshot until the new one is fully built; a failed
// rebuild changes nothing.
type Service struct {
	source corpus.Source
	store  *corpus.Store
	params corpus.BuildParams

	mu sync.Mutex // one rebuild at a time
}

// New creates a loader.
func New(source corpus.Source, store *corpus.Store, params corpus.BuildParams) *Service {
	return &Service{source: source, store: store, params: params}
}

// Reload re-reads the whole source, builds both indexes, and swaps the new
// snapshot in.
func (s *Service) Reload(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records, err := s.source.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load corpus: %w", err)
	}

	snap, err := corpus.BuildSnapshot(records, s.params)
	if err != nil {
		return Stats{}, fmt.Errorf("build snapshot: %w", err)
	}
	s.store.Swap(snap)

	stats := Stats{Games: snap.Size(), Took: time.Since(start)}
	if v := snap.Vector(); v != nil {
		stats.Embedded = v.Size()
	}
	logger.FromContext(ctx).Info("corpus reloaded",
		zap.Int("games", stats.Games),
		zap.Int("embedded", stats.Embedded),
		zap.Duration("took", stats.Took),
	)
	return stats, nil
}
