package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/api"
	"github.com/Abhi260105/ai-agent-sub001/internal/config"
	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/export"
	"github.com/Abhi260105/ai-agent-sub001/internal/graph"
	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/query"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// SQLite
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Stores
	memoryStore := store.NewMemoryStore(db)
	knowledgeStore := store.NewKnowledgeStore(db)
	refStore := store.NewRefStore(db)
	edgeStore := store.NewEdgeStore(db)
	embCacheStore := store.NewEmbeddingCacheStore(db)

	// Embedding with cache
	ollamaClient := embedding.NewOllamaClient(cfg.OllamaBaseURL, cfg.EmbeddingModel)
	embedder := embedding.NewCachedEmbedder(ollamaClient, embCacheStore, cfg.EmbeddingModel, cfg.EmbeddingDim)

	// Similarity index
	idx, err := pickIndex(cfg, refStore, logger)
	if err != nil {
		logger.Error("failed to create vector index", "error", err)
		os.Exit(1)
	}

	// Graph, query engine, service
	g := graph.New(edgeStore, knowledgeStore)
	engine := query.NewEngine(
		memoryStore, knowledgeStore, idx, embedder, g,
		time.Duration(cfg.EmbedTimeoutS)*time.Second,
	)
	svc := memory.NewService(
		db, memoryStore, knowledgeStore, refStore, idx, embedder, g, engine,
		cfg.EmbeddingModel, cfg.EmbeddingDim, logger,
	)

	// Rebuild the in-process index from stored embeddings
	loaded, err := svc.RebuildIndex()
	if err != nil {
		logger.Error("index rebuild failed", "error", err)
		os.Exit(1)
	}
	logger.Info("index rebuilt", "vectors", loaded)

	// Export history
	history := export.NewHistory(cfg.ExportHistoryCap)

	// Router
	router := api.NewRouter(db, svc, ollamaClient, history, cfg.APIKey, cfg.DefaultThreshold, cfg.DefaultLimit, logger)

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("knowledge store starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Periodic retry for records whose embedding failed at write time
	retryCtx, retryCancel := context.WithCancel(context.Background())
	defer retryCancel()
	go retryPendingLoop(retryCtx, svc, time.Duration(cfg.PendingRetryMins)*time.Minute, logger)

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// pickIndex selects the similarity backend. "auto" uses the exact scanner
// until the stored vector count outgrows it.
func pickIndex(cfg *config.Config, refs *store.RefStore, logger *slog.Logger) (index.VectorIndex, error) {
	backend := cfg.IndexBackend
	if backend == "auto" {
		count, err := refs.Count()
		if err != nil {
			return nil, err
		}
		if count > index.ExactScanMax {
			backend = "chromem"
		} else {
			backend = "exact"
		}
		logger.Info("selected index backend", "backend", backend, "vectors", count)
	}

	switch backend {
	case "chromem":
		return index.NewChromemIndex(cfg.EmbeddingDim)
	default:
		return index.NewExactIndex(cfg.EmbeddingDim), nil
	}
}

func retryPendingLoop(ctx context.Context, svc *memory.Service, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := svc.RetryPendingEmbeddings(ctx)
			if err != nil {
				logger.Warn("pending embedding retry failed", "error", err)
				continue
			}
			if repaired > 0 {
				logger.Info("repaired pending embeddings", "count", repaired)
			}
		}
	}
}
