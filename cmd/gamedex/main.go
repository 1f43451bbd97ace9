package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/config"
	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/db"
	dbRedis "github.com/kailas-cloud/gamedex/internal/db/redis"
	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/index/lexical"
	"github.com/kailas-cloud/gamedex/internal/index/vector"
	logpkg "github.com/kailas-cloud/gamedex/internal/logger"
	"github.com/kailas-cloud/gamedex/internal/metrics"
	"github.com/kailas-cloud/gamedex/internal/repository/embcache"
	"github.com/kailas-cloud/gamedex/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/gamedex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/gamedex/internal/transport/openai"
	healthuc "github.com/kailas-cloud/gamedex/internal/usecase/health"
	loaderuc "github.com/kailas-cloud/gamedex/internal/usecase/loader"
	queryuc "github.com/kailas-cloud/gamedex/internal/usecase/query"
	searchuc "github.com/kailas-cloud/gamedex/internal/usecase/search"
	"github.com/kailas-cloud/gamedex/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting gamedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus_source", cfg.Corpus.Source),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// The key-value store is optional: it backs the caches and the redis
	// corpus source. Without it the engine runs fully in-process.
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer redisStore.Close()

		ctx := context.Background()
		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		store = redisStore
		logger.Info("Connected to database")
	}

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Build the query embedder chain. No API key means lexical-only search.
	var queryEmbedder searchuc.Embedder
	var embChecker healthuc.EmbeddingChecker
	if cfg.Embedding.APIKey != "" {
		emb := buildEmbedder(cfg.Embedding, store, logger)
		queryEmbedder = emb
		embChecker = newEmbeddingHealthChecker(emb)
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding API key configured, semantic retrieval disabled")
	}

	source, err := buildCorpusSource(cfg, store)
	if err != nil {
		logger.Fatal("Failed to create corpus source", zap.Error(err))
	}

	tokenizer := lexical.NewTokenizer(cfg.Search.ExtraStopWords)
	params := buildIndexParams(cfg, tokenizer)

	corpusStore := corpus.NewStore()
	loaderSvc := loaderuc.New(source, corpusStore, params)

	// Initial load. A failure is not fatal: the API answers 503 until a
	// successful POST /api/v1/reload.
	loadCtx := logpkg.ContextWithLogger(context.Background(), logger)
	if _, err := loaderSvc.Reload(loadCtx); err != nil {
		logger.Error("Initial corpus load failed", zap.Error(err))
	}

	var rcache searchuc.ResultCache
	if store != nil {
		ttl := time.Duration(cfg.Search.ResultCacheTTLSec) * time.Second
		rcache = resultcache.New(store, ttl, metrics.ResultCacheTotal, logger)
	}

	querySvc := queryuc.New(tokenizer, queryuc.NewClassifier(cfg.Search.RiskThreshold))
	searchSvc := searchuc.New(corpusStore, queryEmbedder, rcache, searchuc.Options{
		Weights: searchuc.FusionWeights{
			Lexical:  cfg.Search.LexicalWeight,
			Semantic: cfg.Search.SemanticWeight,
		},
		TopK:          cfg.Search.TopK,
		VectorTimeout: time.Duration(cfg.Search.VectorTimeoutMs) * time.Millisecond,
	})

	var dbPinger healthuc.DBPinger
	if store != nil {
		dbPinger = store
	}
	healthSvc := healthuc.New(corpusStore, dbPinger, embChecker)

	// Create chi server
	server := chiTransport.NewServer(querySvc, searchSvc, loaderSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildIndexParams maps the search config onto the snapshot build parameters.
func buildIndexParams(cfg config.Config, tokenizer *lexical.Tokenizer) corpus.BuildParams {
	return corpus.BuildParams{
		Lexical: lexical.Params{
			K1:                cfg.Search.K1,
			B:                 cfg.Search.B,
			TitleWeight:       cfg.Search.TitleWeight,
			GenreWeight:       cfg.Search.GenreWeight,
			DescriptionWeight: cfg.Search.DescriptionWeight,
		},
		Tokenizer: tokenizer,
		Dimension: cfg.Embedding.Dimensions,
		Vector:    vector.Options{ExactThreshold: cfg.Search.ExactThreshold},
	}
}

// buildCorpusSource selects the catalog source from config.
func buildCorpusSource(cfg config.Config, store db.Store) (corpus.Source, error) {
	switch cfg.Corpus.Source {
	case "static":
		return corpus.NewStaticSource(seedCatalog()), nil
	case "parquet":
		return corpus.NewParquetSource(cfg.Corpus.ParquetPath), nil
	case "redis":
		if store == nil {
			return nil, fmt.Errorf("redis corpus source requires database.addrs")
		}
		return corpus.NewRedisSource(store, cfg.Corpus.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if cfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// seedCatalog is the built-in demo corpus for the static source. It has no
// embeddings, so a static run is lexical-only.
func seedCatalog() []corpus.Record {
	games := []*domain.Game{
		{
			ID: 1, Title: "Hollow Depths",
			Description: "A punishing roguelike dungeon crawler with permadeath and procedural caves.",
			Genres:      []string{"Roguelike", "Action"},
			PriceCents:  1999, Platforms: domain.PlatformWindows | domain.PlatformLinux | domain.PlatformSteamDeck,
			Coop: domain.CoopSinglePlayer, Type: domain.ContentGame,
			ReleaseDate: time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC), TotalReviews: 48210,
		},
		{
			ID: 2, Title: "Star Freight",
			Description: "Build interstellar trade routes and automate your cargo empire.",
			Genres:      []string{"Simulation", "Strategy"},
			PriceCents:  2999, Platforms: domain.PlatformWindows | domain.PlatformMac,
			Coop: domain.CoopOnline, Type: domain.ContentGame,
			ReleaseDate: time.Date(2022, 11, 3, 0, 0, 0, 0, time.UTC), TotalReviews: 15934,
		},
		{
			ID: 3, Title: "Garden of Clockwork",
			Description: "A cozy puzzle adventure about repairing a mechanical garden.",
			Genres:      []string{"Puzzle", "Casual"},
			PriceCents:  1499, Platforms: domain.PlatformWindows | domain.PlatformMac | domain.PlatformLinux,
			Coop: domain.CoopSinglePlayer, Type: domain.ContentGame,
			ReleaseDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), TotalReviews: 7312,
		},
		{
			ID: 4, Title: "Hollow Depths: Forgotten Halls",
			Description: "Expansion adding two biomes and a boss rush mode.",
			Genres:      []string{"Roguelike", "Action"},
			PriceCents:  999, Platforms: domain.PlatformWindows | domain.PlatformLinux,
			Coop: domain.CoopSinglePlayer, Type: domain.ContentDLC,
			ReleaseDate: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), TotalReviews: 3020,
		},
		{
			ID: 5, Title: "Couch Kingdoms",
			Description: "Chaotic local multiplayer castle sieges for up to four players.",
			Genres:      []string{"Party", "Strategy"},
			PriceCents:  2499, Platforms: domain.PlatformWindows,
			Coop: domain.CoopLocalMulti, Type: domain.ContentGame,
			ReleaseDate: time.Date(2021, 8, 17, 0, 0, 0, 0, time.UTC), TotalReviews: 22871,
		},
	}

	records := make([]corpus.Record, len(games))
	for i, g := range games {
		records[i] = corpus.Record{Game: g}
	}
	return records
}
