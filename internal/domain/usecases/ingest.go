package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
)

// IngestUseCase turns raw file bytes into indexed, stored chunks. Used by
// the upload endpoint, the bucket poller, and the drop-folder watcher.
type IngestUseCase struct {
	processor ports.DocumentProcessor
	store     *StoreUseCase
	monitor   *metrics.Monitor
	log       *zap.Logger
}

// NewIngestUseCase creates a new ingestion usecase.
func NewIngestUseCase(processor ports.DocumentProcessor, store *StoreUseCase, monitor *metrics.Monitor, log *zap.Logger) *IngestUseCase {
	return &IngestUseCase{
		processor: processor,
		store:     store,
		monitor:   monitor,
		log:       log,
	}
}

// Supported reports whether the filename can be ingested.
func (uc *IngestUseCase) Supported(filename string) bool {
	return uc.processor.Supported(filename)
}

// IngestFile processes, embeds, and stores one file. The progress callback
// fires once per chunk with the filename filled in; it may be nil.
func (uc *IngestUseCase) IngestFile(ctx context.Context, data []byte, filename string, progress ProgressFunc) (*entities.AddResult, error) {
	total := time.Now()

	parseStart := time.Now()
	chunks, err := uc.processor.Process(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", filename, err)
	}
	parsingMs := msSince(parseStart)

	if len(chunks) == 0 {
		uc.log.Info("file produced no chunks", zap.String("filename", filename))
		return &entities.AddResult{Performance: map[string]*entities.ProviderResult{}}, nil
	}

	var wrapped ProgressFunc
	if progress != nil {
		wrapped = func(ev entities.ProgressEvent) {
			ev.File = filename
			progress(ev)
		}
	}

	result, err := uc.store.AddChunks(ctx, chunks, wrapped)
	if err != nil {
		return nil, err
	}

	uc.monitor.AddFileOperation(metrics.FileStat{
		Filename:      filename,
		FileSizeBytes: int64(len(data)),
		ChunksCreated: result.StoredChunks,
		ParsingMs:     parsingMs,
		EmbeddingMs:   result.EmbeddingTimeMs,
		TotalMs:       msSince(total),
	})

	uc.log.Info("file ingested",
		zap.String("filename", filename),
		zap.Int("chunks", result.StoredChunks),
		zap.Bool("truncated", result.Truncated))
	return result, nil
}
