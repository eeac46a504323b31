// Package metrics records per-operation timing samples and rolling
// comparison aggregates for the storage providers.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// OperationSample is one recorded storage operation (PUT or GET).
type OperationSample struct {
	OpType           string    `json:"op_type"`
	Provider         string    `json:"provider"`
	BytesTransferred int       `json:"bytes_transferred"`
	LatencyMs        float64   `json:"latency_ms"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
}

// StorageComparison is one dual-write comparison event. The winner is the
// provider with the strictly smallest average time; ties resolve to the
// first provider in sorted name order.
type StorageComparison struct {
	Timestamp       time.Time                  `json:"timestamp"`
	Operation       string                     `json:"operation_type"`
	Performance     map[string]*ProviderPerf   `json:"provider_performance"`
	FastestProvider string                     `json:"fastest_provider"`
	SlowestProvider string                     `json:"slowest_provider"`
}

// ProviderPerf is the per-provider slice of a storage comparison.
type ProviderPerf struct {
	AvgTimeMs   float64 `json:"avg_time_ms"`
	TotalTimeMs float64 `json:"total_time_ms"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
}

// RetrievalComparison is one dual-read comparison event. The winner is the
// provider with the strictly smallest raw download latency.
type RetrievalComparison struct {
	Timestamp       time.Time          `json:"timestamp"`
	Query           string             `json:"query"`
	TopK            int                `json:"top_k"`
	ProviderTimesMs map[string]float64 `json:"provider_times_ms"`
	FastestProvider string             `json:"fastest_provider"`
}

// FileStat tracks one processed file's timing breakdown.
type FileStat struct {
	Timestamp     time.Time `json:"timestamp"`
	Filename      string    `json:"filename"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	ChunksCreated int       `json:"chunks_created"`
	DownloadMs    float64   `json:"download_time_ms"`
	ParsingMs     float64   `json:"parsing_time_ms"`
	EmbeddingMs   float64   `json:"embedding_time_ms"`
	TotalMs       float64   `json:"total_time_ms"`
}

// Monitor aggregates operation samples and comparison events. All methods
// are safe for concurrent use; the poller and the request handlers share
// one instance.
type Monitor struct {
	mu                   sync.Mutex
	operations           []OperationSample
	storageComparisons   []StorageComparison
	retrievalComparisons []RetrievalComparison
	fileStats            []FileStat
}

// NewMonitor creates an empty metrics monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// RecordOperation records one storage operation sample.
func (m *Monitor) RecordOperation(opType, provider string, bytesTransferred int, latencyMs float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations = append(m.operations, OperationSample{
		OpType:           opType,
		Provider:         provider,
		BytesTransferred: bytesTransferred,
		LatencyMs:        latencyMs,
		Success:          success,
		Timestamp:        time.Now(),
	})
}

// AddStorageComparison records one dual-write comparison. Only providers
// with at least one successful sample compete for the win.
func (m *Monitor) AddStorageComparison(perf map[string]*ProviderPerf, operation string) {
	if len(perf) == 0 {
		return
	}

	fastest, slowest := "", ""
	fastestAvg, slowestAvg := math.Inf(1), math.Inf(-1)
	for _, provider := range sortedKeys(perf) {
		p := perf[provider]
		if p.Success == 0 {
			continue
		}
		if p.AvgTimeMs < fastestAvg {
			fastestAvg = p.AvgTimeMs
			fastest = provider
		}
		if p.AvgTimeMs > slowestAvg {
			slowestAvg = p.AvgTimeMs
			slowest = provider
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.storageComparisons = append(m.storageComparisons, StorageComparison{
		Timestamp:       time.Now(),
		Operation:       operation,
		Performance:     perf,
		FastestProvider: fastest,
		SlowestProvider: slowest,
	})
}

// AddRetrievalComparison records one dual-read comparison keyed by raw
// download-only latency per provider.
func (m *Monitor) AddRetrievalComparison(providerTimesMs map[string]float64, query string, topK int) {
	if len(providerTimesMs) == 0 {
		return
	}

	fastest := ""
	fastestMs := math.Inf(1)
	for _, provider := range sortedFloatKeys(providerTimesMs) {
		if providerTimesMs[provider] < fastestMs {
			fastestMs = providerTimesMs[provider]
			fastest = provider
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.retrievalComparisons = append(m.retrievalComparisons, RetrievalComparison{
		Timestamp:       time.Now(),
		Query:           query,
		TopK:            topK,
		ProviderTimesMs: providerTimesMs,
		FastestProvider: fastest,
	})
}

// AddFileOperation records one processed file's timing breakdown.
func (m *Monitor) AddFileOperation(stat FileStat) {
	stat.Timestamp = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileStats = append(m.fileStats, stat)
}

// Clear drops all recorded metrics.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operations = nil
	m.storageComparisons = nil
	m.retrievalComparisons = nil
	m.fileStats = nil
}

func sortedKeys(in map[string]*ProviderPerf) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFloatKeys(in map[string]float64) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
