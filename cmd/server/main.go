// Command server runs the dual-provider RAG demo API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/configstore"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/embedding"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/filewatcher"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/llm"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/processor"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/storage"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/vectorindex"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/config"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/usecases"
	httpserver "github.com/nasirwasim8/infinia-rag-demo-v2/internal/infrastructure/http"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/monitor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger := newLogger(*debug)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", zap.Error(err))
	}

	configs, err := configstore.NewSQLiteStore(filepath.Join(cfg.DataDir, "config.db"))
	if err != nil {
		logger.Fatal("failed to open config store", zap.Error(err))
	}
	defer configs.Close()

	factory := storage.NewFactory(configs)
	index := vectorindex.NewFlatIndex()
	mon := metrics.NewMonitor()

	embedder := embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model, logger)
	chat := llm.NewOpenAIAdapter(cfg.LLM.BaseURL, cfg.LLMAPIKey(), cfg.LLM.Model, cfg.LLM.Models, logger)

	var pdf processor.PDFParser
	if cfg.Ingest.PDFServiceURL != "" {
		pdf = processor.NewPDFSidecar(cfg.Ingest.PDFServiceURL)
	}
	proc := processor.NewProcessor(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, pdf, logger)

	store := usecases.NewStoreUseCase(index, embedder, factory, configs, mon,
		cfg.Ingest.MaxChunksPerUpload, cfg.Ingest.ComparisonSampleCount, logger)
	ingest := usecases.NewIngestUseCase(proc, store, mon, logger)
	query := usecases.NewQueryUseCase(store, chat, logger)

	bucket := monitor.NewBucketMonitor(ingest, store, factory, configs, mon,
		time.Duration(cfg.Ingest.PollIntervalSecs)*time.Second,
		cfg.Ingest.EventQueueSize, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Ingest.WatchDir != "" {
		watcher, err := filewatcher.NewDropFolder(factory, cfg.Ingest.WatchExtensions, logger)
		if err != nil {
			logger.Fatal("failed to create drop folder watcher", zap.Error(err))
		}
		defer watcher.Stop()
		if err := watcher.Watch(ctx, cfg.Ingest.WatchDir); err != nil {
			logger.Fatal("failed to watch drop folder", zap.Error(err))
		}
	}

	server := httpserver.NewServer(store, ingest, query, configs, factory, mon, bucket, cfg.Addr, logger)
	if err := server.Start(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}

	bucket.Stop()
	logger.Info("shutdown complete")
}

func newLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
