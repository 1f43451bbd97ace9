package corpus

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/logger"
)

// gameRow is the snapshot file schema. All columns are required; embeddings
// are written as float32 lists, release dates as unix seconds.
type gameRow struct {
	ID           int64     `parquet:"id"`
	Title        string    `parquet:"title"`
	Description  string    `parquet:"description"`
	Genres       []string  `parquet:"genres,list"`
	PriceCents   int64     `parquet:"price_cents"`
	Platforms    int32     `parquet:"platforms"`
	Coop         string    `parquet:"coop"`
	ContentType  string    `parquet:"content_type"`
	ReleaseUnix  int64     `parquet:"release_unix"`
	TotalReviews int64     `parquet:"total_reviews"`
	ReviewStatus string    `parquet:"review_status"`
	Embedding    []float32 `parquet:"embedding,list"`
}

// ParquetSource reads a corpus snapshot file. The whole file is read into
// memory so the checksum covers exactly the bytes that were parsed.
type ParquetSource struct {
	path string
}

// NewParquetSource creates a source for the given snapshot file.
func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{path: filepath.Clean(path)}
}

// Load reads and decodes every row of the snapshot file.
func (s *ParquetSource) Load(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	sum := sha256.Sum256(data)

	rows, err := parquet.Read[gameRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(s.path), err)
	}

	records := make([]Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}

	logger.FromContext(ctx).Info("corpus snapshot loaded",
		zap.String("file", filepath.Base(s.path)),
		zap.String("sha256", hex.EncodeToString(sum[:])),
		zap.Int("games", len(records)),
	)
	return records, nil
}

func (r *gameRow) toRecord() Record {
	g := &domain.Game{
		ID:           int(r.ID),
		Title:        r.Title,
		Description:  r.Description,
		Genres:       r.Genres,
		PriceCents:   r.PriceCents,
		Platforms:    domain.Platform(r.Platforms),
		Coop:         domain.CoopMode(r.Coop),
		Type:         domain.ContentType(r.ContentType),
		TotalReviews: int(r.TotalReviews),
		ReviewStatus: r.ReviewStatus,
	}
	if r.ReleaseUnix > 0 {
		g.ReleaseDate = time.Unix(r.ReleaseUnix, 0).UTC()
	}

	var emb []float32
	if len(r.Embedding) > 0 {
		emb = r.Embedding
	}
	return Record{Game: g, Embedding: emb}
}
