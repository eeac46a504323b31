// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and ports.
// They know nothing about HTTP, SQLite, or S3 wire details.
package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
)

// ProgressFunc receives one event per chunk during an AddChunks batch.
// May be nil. Called synchronously; implementations must not block.
type ProgressFunc func(ev entities.ProgressEvent)

// StoreUseCase orchestrates dual-provider writes and reads around the
// vector index. A chunk counts as stored once its index insert succeeds;
// storage uploads are measured best-effort and never fail the batch.
type StoreUseCase struct {
	index    ports.VectorIndex
	embedder ports.EmbeddingService
	factory  ports.ClientFactory
	configs  ports.ConfigStore
	monitor  *metrics.Monitor
	log      *zap.Logger

	maxChunks   int
	sampleCount int
}

// NewStoreUseCase creates the orchestrator. maxChunks caps one batch;
// sampleCount is how many hits the comparison provider downloads during
// a search before the rest is extrapolated.
func NewStoreUseCase(
	index ports.VectorIndex,
	embedder ports.EmbeddingService,
	factory ports.ClientFactory,
	configs ports.ConfigStore,
	monitor *metrics.Monitor,
	maxChunks, sampleCount int,
	log *zap.Logger,
) *StoreUseCase {
	if maxChunks <= 0 {
		maxChunks = 500
	}
	if sampleCount <= 0 {
		sampleCount = 1
	}
	return &StoreUseCase{
		index:       index,
		embedder:    embedder,
		factory:     factory,
		configs:     configs,
		monitor:     monitor,
		log:         log,
		maxChunks:   maxChunks,
		sampleCount: sampleCount,
	}
}

// clients builds one ObjectStore per configured role. The primary provider
// is mandatory; a broken comparison provider only degrades the comparison.
func (uc *StoreUseCase) clients() (map[string]ports.ObjectStore, error) {
	out := make(map[string]ports.ObjectStore)
	for _, role := range entities.Roles() {
		if !uc.configs.IsConfigured(role) {
			if role == entities.RolePrimary {
				return nil, fmt.Errorf("%s: %w", role, entities.ErrNotConfigured)
			}
			continue
		}
		client, err := uc.factory.Client(role)
		if err != nil {
			if role == entities.RolePrimary {
				return nil, err
			}
			uc.log.Warn("comparison provider unavailable, continuing without it",
				zap.Error(err))
			continue
		}
		out[role] = client
	}
	return out, nil
}

// AddChunks embeds the batch once, inserts every chunk into the vector
// index, and uploads each chunk's envelope to every configured provider.
func (uc *StoreUseCase) AddChunks(ctx context.Context, chunks []entities.Chunk, progress ProgressFunc) (*entities.AddResult, error) {
	result := &entities.AddResult{
		Performance: make(map[string]*entities.ProviderResult),
	}
	if len(chunks) == 0 {
		return result, nil
	}

	if len(chunks) > uc.maxChunks {
		uc.log.Warn("truncating oversized batch",
			zap.Int("requested", len(chunks)),
			zap.Int("max", uc.maxChunks))
		chunks = chunks[:uc.maxChunks]
		result.Truncated = true
	}
	result.TotalChunks = len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embedStart := time.Now()
	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch: %w", err)
	}
	result.EmbeddingTimeMs = msSince(embedStart)

	clients, err := uc.clients()
	if err != nil {
		return nil, err
	}
	for role := range clients {
		result.Performance[role] = &entities.ProviderResult{}
	}

	for i, chunk := range chunks {
		chunkStart := time.Now()

		if chunk.ID == "" {
			chunk.ID = entities.ChunkID(chunk.Content)
		}

		_, err := uc.index.Add(embeddings[i], entities.ChunkRecord{
			ChunkID:  chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		})
		if err != nil {
			uc.log.Error("index insert failed, skipping chunk",
				zap.String("chunk_id", chunk.ID),
				zap.Error(err))
			continue
		}
		result.StoredChunks++

		envelope, err := json.Marshal(entities.ChunkEnvelope{
			Content:   chunk.Content,
			Embedding: embeddings[i],
			ChunkID:   chunk.ID,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			uc.log.Error("envelope marshal failed", zap.Error(err))
			continue
		}

		key := entities.ObjectKey(chunk.ID)
		for _, role := range entities.Roles() {
			client, ok := clients[role]
			if !ok {
				continue
			}
			uc.uploadChunk(ctx, client, role, key, envelope, result.Performance[role])
		}

		if progress != nil {
			progress(entities.ProgressEvent{
				ChunkIndex:  i,
				TotalChunks: result.TotalChunks,
				Progress:    float64(i+1) / float64(result.TotalChunks) * 100,
				ChunkTimeMs: msSince(chunkStart),
				Performance: result.Performance,
				Timestamp:   time.Now().UTC(),
			})
		}
	}

	uc.finalizePerformance(result)
	uc.recordStorageComparison(result, "chunk_upload")
	return result, nil
}

func (uc *StoreUseCase) uploadChunk(ctx context.Context, client ports.ObjectStore, role, key string, data []byte, perf *entities.ProviderResult) {
	start := time.Now()
	err := client.Put(ctx, key, data)
	elapsed := msSince(start)

	uc.monitor.RecordOperation("put", role, len(data), elapsed, err == nil)
	if err != nil {
		perf.FailedCount++
		uc.log.Warn("chunk upload failed",
			zap.String("provider", role),
			zap.String("key", key),
			zap.Error(err))
		return
	}
	perf.SuccessCount++
	perf.TimesMs = append(perf.TimesMs, elapsed)
	perf.TotalTimeMs += elapsed
}

func (uc *StoreUseCase) finalizePerformance(result *entities.AddResult) {
	for _, perf := range result.Performance {
		if len(perf.TimesMs) == 0 {
			continue
		}
		perf.AvgTimeMs = perf.TotalTimeMs / float64(len(perf.TimesMs))
	}
}

func (uc *StoreUseCase) recordStorageComparison(result *entities.AddResult, operation string) {
	perf := make(map[string]*metrics.ProviderPerf, len(result.Performance))
	for role, p := range result.Performance {
		perf[role] = &metrics.ProviderPerf{
			AvgTimeMs:   p.AvgTimeMs,
			TotalTimeMs: p.TotalTimeMs,
			Success:     p.SuccessCount,
			Failed:      p.FailedCount,
		}
	}
	uc.monitor.AddStorageComparison(perf, operation)
}

// SearchWithComparison embeds the query, searches the index, then times a
// retrieval of the hits from every configured provider. The primary
// provider downloads every hit; the comparison provider downloads a sample
// and extrapolates. The winner is the strictly smallest download-only time.
func (uc *StoreUseCase) SearchWithComparison(ctx context.Context, query string, topK int) (*entities.SearchComparison, error) {
	out := &entities.SearchComparison{
		Results:       []entities.RetrievedChunk{},
		StorageTTFB:   make(map[string]float64),
		ProviderTimes: make(map[string]entities.ProviderTiming),
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 vector, got %d", len(embeddings))
	}

	hits := uc.index.Search(embeddings[0], topK)
	if len(hits) == 0 {
		return out, nil
	}

	chunkIDs := make([]string, 0, len(hits))
	for _, hit := range hits {
		rec, ok := uc.index.Record(hit.Ordinal)
		if !ok {
			continue
		}
		chunkIDs = append(chunkIDs, rec.ChunkID)
		out.Results = append(out.Results, entities.RetrievedChunk{
			Content:  rec.Content,
			Distance: hit.Distance,
			Metadata: rec.Metadata,
			ChunkID:  rec.ChunkID,
		})
	}

	clients, err := uc.clients()
	if err != nil {
		return nil, err
	}

	for _, role := range entities.Roles() {
		client, ok := clients[role]
		if !ok {
			continue
		}
		timing, err := uc.timeRetrieval(ctx, client, role, chunkIDs, out)
		if err != nil {
			if role == entities.RolePrimary {
				return nil, err
			}
			uc.log.Warn("comparison retrieval failed, dropping provider from comparison",
				zap.Error(err))
			continue
		}
		out.ProviderTimes[role] = timing
		out.StorageTTFB[role] = timing.TotalMs
	}

	uc.decideWinner(out, query, topK)
	return out, nil
}

// timeRetrieval measures connection setup plus object downloads for one
// provider. Primary downloads replace the result content so the answer is
// served from what actually came back over the wire; hits whose primary
// download failed are dropped, shortening the result list.
func (uc *StoreUseCase) timeRetrieval(ctx context.Context, client ports.ObjectStore, role string, chunkIDs []string, out *entities.SearchComparison) (entities.ProviderTiming, error) {
	var timing entities.ProviderTiming

	connStart := time.Now()
	if err := client.HeadCheck(ctx); err != nil {
		return timing, err
	}
	timing.ConnectionMs = msSince(connStart)

	toFetch := chunkIDs
	if role == entities.RoleComparison && len(chunkIDs) > uc.sampleCount {
		toFetch = chunkIDs[:uc.sampleCount]
		timing.Sampled = true
	}

	var kept []entities.RetrievedChunk
	if role == entities.RolePrimary {
		kept = make([]entities.RetrievedChunk, 0, len(toFetch))
	}

	var downloadMs float64
	fetched := 0
	for i, id := range toFetch {
		key := entities.ObjectKey(id)
		start := time.Now()
		data, err := client.Get(ctx, key)
		elapsed := msSince(start)

		uc.monitor.RecordOperation("get", role, len(data), elapsed, err == nil)
		if err != nil {
			uc.log.Warn("chunk download failed",
				zap.String("provider", role),
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		downloadMs += elapsed
		fetched++

		if role == entities.RolePrimary {
			res := out.Results[i]
			var env entities.ChunkEnvelope
			if jsonErr := json.Unmarshal(data, &env); jsonErr == nil && env.Content != "" {
				res.Content = env.Content
			}
			kept = append(kept, res)
		}
	}
	if role == entities.RolePrimary {
		out.Results = kept
	}

	if timing.Sampled && fetched > 0 {
		downloadMs = downloadMs / float64(fetched) * float64(len(chunkIDs))
	}
	timing.DownloadMs = downloadMs
	timing.TotalMs = timing.ConnectionMs + downloadMs
	return timing, nil
}

// decideWinner picks the provider with the strictly smallest download time,
// iterating roles in sorted order so ties resolve deterministically.
func (uc *StoreUseCase) decideWinner(out *entities.SearchComparison, query string, topK int) {
	if len(out.ProviderTimes) == 0 {
		return
	}

	downloadTimes := make(map[string]float64, len(out.ProviderTimes))
	fastest, slowest := "", ""
	for _, role := range entities.Roles() {
		timing, ok := out.ProviderTimes[role]
		if !ok {
			continue
		}
		downloadTimes[role] = timing.DownloadMs
		if fastest == "" || timing.DownloadMs < out.ProviderTimes[fastest].DownloadMs {
			fastest = role
		}
		if slowest == "" || timing.DownloadMs > out.ProviderTimes[slowest].DownloadMs {
			slowest = role
		}
	}
	out.FastestProvider = fastest

	if fastest != slowest {
		fast := out.ProviderTimes[fastest].DownloadMs
		slow := out.ProviderTimes[slowest].DownloadMs
		if fast > 0 && slow > 0 {
			out.Improvement = &entities.Improvement{
				FasterProvider:     fastest,
				Speedup:            slow / fast,
				ImprovementPercent: (slow - fast) / slow * 100,
			}
		}
	}

	uc.monitor.AddRetrievalComparison(downloadTimes, query, topK)
}

// Size returns the number of indexed chunks.
func (uc *StoreUseCase) Size() int {
	return uc.index.Size()
}

// Clear drops all indexed chunks. Storage objects are left in place.
func (uc *StoreUseCase) Clear() {
	uc.index.Clear()
	uc.log.Info("vector index cleared")
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
