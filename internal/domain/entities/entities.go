// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Provider roles. The primary provider's retrieved content is what the RAG
// pipeline actually serves; the comparison provider is queried only to
// measure relative performance and may be unconfigured at any time.
const (
	RolePrimary    = "primary"
	RoleComparison = "comparison"
)

// Roles returns the provider roles in deterministic (sorted) order.
func Roles() []string {
	return []string{RoleComparison, RolePrimary}
}

// Chunk is the atomic unit of ingestion: a piece of document text plus
// metadata and, once computed, its embedding. Chunks are immutable after
// creation; the only way to remove them is a full index clear.
type Chunk struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// ChunkRecord is the metadata kept per index ordinal.
type ChunkRecord struct {
	ChunkID  string
	Content  string
	Metadata map[string]any
}

// Hit is a single nearest-neighbor search result.
type Hit struct {
	Ordinal  int
	Distance float32
}

// ChunkEnvelope is the serialized form stored in object storage at
// chunks/{chunk_id}.json. The field set is fixed for interop with objects
// written by earlier deployments.
type ChunkEnvelope struct {
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	ChunkID   string    `json:"chunk_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ObjectKey returns the storage key for a chunk payload.
func ObjectKey(chunkID string) string {
	return "chunks/" + chunkID + ".json"
}

// ChunkID derives a chunk's identifier from its content alone, so
// re-adding identical content always yields the same id.
func ChunkID(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Storage key prefixes used by the continuous ingestion pipeline.
const (
	InboxPrefix     = "auto_ingest/"
	ProcessedPrefix = "processed/"
)

// ObjectInfo describes a listed storage object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ProviderConfig holds the credentials and location of one storage provider.
type ProviderConfig struct {
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	BucketName  string `json:"bucket_name"`
	Region      string `json:"region"`
	EndpointURL string `json:"endpoint_url"`
}

// Configured reports whether the config carries credentials. Matching the
// original deployment's behavior, presence of an access key is the test.
func (c ProviderConfig) Configured() bool {
	return c.AccessKey != ""
}

// ProviderResult accumulates per-provider outcomes of a dual-write batch.
type ProviderResult struct {
	SuccessCount int       `json:"success"`
	FailedCount  int       `json:"failed"`
	TimesMs      []float64 `json:"times_ms"`
	AvgTimeMs    float64   `json:"avg_time_ms"`
	TotalTimeMs  float64   `json:"total_time_ms"`
}

// AddResult reports the outcome of an AddChunks call. StoredChunks counts
// successful vector-index inserts, not storage puts: a chunk counts as
// stored as soon as it is searchable.
type AddResult struct {
	TotalChunks     int                        `json:"total_chunks"`
	StoredChunks    int                        `json:"stored_chunks"`
	Truncated       bool                       `json:"truncated,omitempty"`
	EmbeddingTimeMs float64                    `json:"embedding_time_ms"`
	Performance     map[string]*ProviderResult `json:"provider_performance"`
}

// ProviderTiming splits a retrieval into connection setup and data transfer.
// DownloadMs is the TTFB figure used for the fastest-provider decision.
type ProviderTiming struct {
	ConnectionMs float64 `json:"connection_ms"`
	DownloadMs   float64 `json:"download_ms"`
	TotalMs      float64 `json:"total_ms"`
	Sampled      bool    `json:"sampled,omitempty"`
}

// RetrievedChunk is one result of a comparison search, with content taken
// from the primary provider's actual download.
type RetrievedChunk struct {
	Content  string         `json:"content"`
	Distance float32        `json:"distance"`
	Metadata map[string]any `json:"metadata"`
	ChunkID  string         `json:"chunk_id"`
}

// Improvement quantifies how much faster the fastest provider was.
type Improvement struct {
	FasterProvider     string  `json:"faster_provider"`
	Speedup            float64 `json:"speedup"`
	ImprovementPercent float64 `json:"improvement_percent"`
}

// SearchComparison is the result of a dual-read query.
type SearchComparison struct {
	Results         []RetrievedChunk          `json:"results"`
	StorageTTFB     map[string]float64        `json:"storage_ttfb"`
	ProviderTimes   map[string]ProviderTiming `json:"provider_times"`
	FastestProvider string                    `json:"fastest_provider,omitempty"`
	Improvement     *Improvement              `json:"ttfb_improvement,omitempty"`
}

// ProgressEvent is pushed over the ingestion event stream after every
// individual chunk addition. Delivery is best-effort; consumers must
// tolerate gaps.
type ProgressEvent struct {
	File        string                     `json:"file"`
	S3Key       string                     `json:"s3_key"`
	ChunkIndex  int                        `json:"chunk_index"`
	TotalChunks int                        `json:"total_chunks"`
	Progress    float64                    `json:"progress"`
	ChunkTimeMs float64                    `json:"chunk_time_ms"`
	Performance map[string]*ProviderResult `json:"performance"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// MonitorStatus is a snapshot of the ingestion poller.
type MonitorStatus struct {
	Monitoring     bool     `json:"monitoring"`
	BucketName     string   `json:"bucket_name,omitempty"`
	ProcessedCount int      `json:"processed_files_count"`
	ProcessedFiles []string `json:"processed_files"`
	LastCheck      string   `json:"last_check,omitempty"`
}
