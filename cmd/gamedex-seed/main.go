package main

import (
	"context"
	"flag"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/config"
	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/db"
	dbRedis "github.com/kailas-cloud/gamedex/internal/db/redis"
	"github.com/kailas-cloud/gamedex/internal/domain"
	logpkg "github.com/kailas-cloud/gamedex/internal/logger"
	"github.com/kailas-cloud/gamedex/internal/metrics"
	openaiEmb "github.com/kailas-cloud/gamedex/internal/transport/openai"
)

// gamedex-seed loads a parquet catalog into the key-value store in the hash
// layout the redis corpus source reads. With an embedding provider configured
// it also vectorizes games that arrive without embeddings.
func main() {
	var (
		parquetPath = flag.String("parquet", "", "catalog parquet file (default: corpus.parquet_path from config)")
		batchSize   = flag.Int("batch", 64, "embedding batch size")
		skipEmbed   = flag.Bool("skip-embed", false, "do not compute missing embeddings")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	path := *parquetPath
	if path == "" {
		path = cfg.Corpus.ParquetPath
	}
	if path == "" {
		logger.Fatal("No parquet path: pass -parquet or set corpus.parquet_path")
	}
	if len(cfg.Database.Addrs) == 0 {
		logger.Fatal("database.addrs is required for seeding")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterEmbeddingMetrics()

	records, err := corpus.NewParquetSource(path).Load(ctx)
	if err != nil {
		logger.Fatal("Failed to read catalog", zap.Error(err))
	}
	if len(records) == 0 {
		logger.Fatal("Catalog is empty", zap.String("path", path))
	}

	embedded := 0
	if !*skipEmbed && cfg.Embedding.APIKey != "" {
		embedded, err = embedMissing(ctx, records, cfg.Embedding, *batchSize, logger)
		if err != nil {
			logger.Fatal("Embedding failed", zap.Error(err))
		}
	}

	if err := writeHashes(ctx, store, records, cfg.Corpus.RedisKeyPrefix); err != nil {
		logger.Fatal("Failed to write catalog", zap.Error(err))
	}

	logger.Info("Catalog seeded",
		zap.String("path", path),
		zap.Int("games", len(records)),
		zap.Int("embedded", embedded),
		zap.String("key_prefix", cfg.Corpus.RedisKeyPrefix),
	)
}

// embedMissing vectorizes records without an embedding, in batches. Returns
// how many embeddings were computed.
func embedMissing(
	ctx context.Context, records []corpus.Record, cfg config.EmbeddingConfig, batchSize int, logger *zap.Logger,
) (int, error) {
	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var missing []int
	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			missing = append(missing, i)
		}
	}

	done := 0
	for start := 0; start < len(missing); start += batchSize {
		end := start + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]

		texts := make([]string, len(chunk))
		for j, idx := range chunk {
			texts[j] = embeddingText(records[idx].Game)
		}

		res, err := embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return done, err
		}
		for j, idx := range chunk {
			records[idx].Embedding = res.Embeddings[j]
		}
		done += len(chunk)
	}
	return done, nil
}

// embeddingText is the canonical text a game is embedded from.
func embeddingText(g *domain.Game) string {
	text := g.Title
	if g.Description != "" {
		text += ". " + g.Description
	}
	return text
}

// writeHashes stores records as redis hashes in HSetMulti chunks.
func writeHashes(ctx context.Context, store db.Store, records []corpus.Record, prefix string) error {
	const chunkSize = 100

	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		items := make([]db.HashSetItem, 0, end-start)
		for _, rec := range records[start:end] {
			items = append(items, db.HashSetItem{
				Key:    prefix + strconv.Itoa(rec.Game.ID),
				Fields: corpus.EncodeGameHash(rec),
			})
		}
		if err := store.HSetMulti(ctx, items); err != nil {
			return err
		}
	}
	return nil
}
