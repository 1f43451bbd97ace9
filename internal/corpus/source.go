package corpus

import (
	"context"

	"github.com/kailas-cloud/gamedex/internal/domain"
)

// Record pairs a game with its precomputed embedding. Embedding may be nil;
// such games are indexed lexically but never surface in semantic retrieval.
type Record struct {
	Game      *domain.Game
	Embedding []float32
}

// Source loads the complete corpus. A snapshot rebuild always re-reads the
// whole source; there is no incremental path.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}
