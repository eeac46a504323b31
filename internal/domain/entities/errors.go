package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies storage-layer failures so callers can apply the right
// degradation policy without string matching.
type ErrorKind int

const (
	// KindConfiguration - missing or invalid credentials. Detected before
	// any network call is attempted.
	KindConfiguration ErrorKind = iota
	// KindConnectivity - client creation or head-check failure.
	KindConnectivity
	// KindTransfer - put/get failure for a specific object.
	KindTransfer
	// KindProcessing - extraction or chunking failure for a specific file.
	KindProcessing
	// KindCapacity - a bound was exceeded: batch caps, queue limits.
	KindCapacity
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnectivity:
		return "connectivity"
	case KindTransfer:
		return "transfer"
	case KindProcessing:
		return "processing"
	case KindCapacity:
		return "capacity"
	}
	return "unknown"
}

// StorageError carries enough structure (provider, operation, kind) for
// upstream retry logic, plus a human-readable message.
type StorageError struct {
	Provider string
	Op       string
	Kind     ErrorKind
	Err      error
}

func (e *StorageError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s error on %s during %s: %v", e.Kind, e.Provider, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to transfer for plain errors.
func KindOf(err error) ErrorKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransfer
}

// Domain errors represent business logic failures, distinct from
// infrastructure errors.
var (
	// ErrNotConfigured indicates a provider has no stored credentials.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrUnsupportedType indicates a file extension no extractor handles.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the index dimension fixed by the first insert.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service failed;
	// nothing can be indexed or searched without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Queries degrade to retrieval-only responses.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
