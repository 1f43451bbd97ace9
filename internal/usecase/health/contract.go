package health

import (
	"context"

	"github.com/kailas-cloud/gamedex/internal/corpus"
)

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SnapshotReader exposes the active corpus snapshot.
type SnapshotReader interface {
	Current() (*corpus.Snapshot, error)
}
