// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// EmbeddingService maps text to fixed-dimension dense vectors.
type EmbeddingService interface {
	// EmbedBatch generates embeddings for multiple texts in one call.
	// Returns exactly one vector per input text, all the same length.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is an in-memory exact nearest-neighbor index with an
// auxiliary ordinal-to-record mapping. Add keeps the vector append and the
// record append atomic so Size() always equals the record count.
type VectorIndex interface {
	// Add inserts an embedding with its record and returns the assigned
	// ordinal. Ordinals are monotonically increasing and never reused.
	Add(embedding []float32, rec entities.ChunkRecord) (int, error)

	// Search returns up to min(k, Size()) hits ordered by ascending
	// squared L2 distance. An empty index yields an empty slice.
	Search(embedding []float32, k int) []entities.Hit

	// Record returns the metadata stored at the given ordinal.
	Record(ordinal int) (entities.ChunkRecord, bool)

	// Size returns the number of stored vectors.
	Size() int

	// Clear drops all vectors and records.
	Clear()
}

// ObjectStore is one provider's view of S3-compatible object storage.
// Operations do not retry; callers may safely retry them.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]entities.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	HeadCheck(ctx context.Context) error

	// Provider returns the role this client was built for.
	Provider() string
}

// ClientFactory builds ObjectStore clients from the current provider
// configuration. Construction validates required fields before any network
// call and fails fast with a field-enumerating error.
type ClientFactory interface {
	Client(role string) (ObjectStore, error)
}

// ConfigStore persists per-provider storage credentials.
type ConfigStore interface {
	Get(role string) (entities.ProviderConfig, error)
	Set(role string, cfg entities.ProviderConfig) error
	Reset(role string) error

	// IsConfigured reports whether the role has an access key stored.
	IsConfigured(role string) bool
}

// DocumentProcessor extracts text from file bytes and splits it into chunks
// carrying content and metadata. Embeddings are not its responsibility.
type DocumentProcessor interface {
	Process(ctx context.Context, data []byte, filename string) ([]entities.Chunk, error)

	// Supported reports whether the filename's extension can be processed.
	Supported(filename string) bool
}

// LLMService generates answers from retrieved context. It is the one
// collaborator allowed to retry internally.
type LLMService interface {
	ChatCompletion(ctx context.Context, query string, contextDocs []string, model string) (string, error)
	IsConfigured() bool
	Models() []string
}
