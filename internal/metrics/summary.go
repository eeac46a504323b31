package metrics

// ProviderStorageStats is the per-provider slice of the storage summary.
type ProviderStorageStats struct {
	TotalOperations int     `json:"total_operations"`
	TotalTimeMs     float64 `json:"total_time_ms"`
	AvgTimeMs       float64 `json:"avg_time_ms"`
	Wins            int     `json:"wins"`
	WinRate         float64 `json:"win_rate"`
}

// StorageSummary aggregates all storage comparison events.
type StorageSummary struct {
	ProviderStats    map[string]*ProviderStorageStats `json:"provider_stats"`
	TotalComparisons int                              `json:"total_comparisons"`
}

// RetrievalSummary aggregates all retrieval comparison events.
type RetrievalSummary struct {
	TotalRetrievals int                `json:"total_retrievals"`
	Wins            map[string]int     `json:"wins"`
	WinRates        map[string]float64 `json:"win_rates"`
	AvgTimesMs      map[string]float64 `json:"avg_retrieval_times_ms"`
	// ImprovementPercent maps each non-fastest provider to the percentage
	// by which the fastest provider beat it, on average.
	FastestProvider    string             `json:"fastest_provider,omitempty"`
	ImprovementPercent map[string]float64 `json:"ttfb_improvement"`
}

// OperationStats aggregates raw PUT/GET samples per provider and op type.
type OperationStats struct {
	Count              int     `json:"count"`
	Succeeded          int     `json:"succeeded"`
	Failed             int     `json:"failed"`
	AvgLatencyMs       float64 `json:"avg_latency_ms"`
	TotalBytes         int64   `json:"total_bytes"`
	ThroughputMBPerSec float64 `json:"throughput_mb_per_sec"`
}

// FileSummary aggregates per-file ingest statistics.
type FileSummary struct {
	TotalProcessed  int     `json:"total_processed"`
	TotalSizeMB     float64 `json:"total_size_mb"`
	AverageSizeMB   float64 `json:"average_size_mb"`
	TotalChunks     int     `json:"total_chunks"`
	AvgChunksPer    float64 `json:"average_chunks_per_file"`
	AvgDownloadMs   float64 `json:"avg_download_ms"`
	AvgParsingMs    float64 `json:"avg_parsing_ms"`
	AvgEmbeddingMs  float64 `json:"avg_embedding_ms"`
	AvgTotalMs      float64 `json:"avg_total_ms"`
	FilesPerMinute  float64 `json:"files_per_minute"`
	ChunksPerSecond float64 `json:"chunks_per_second"`
	MBPerSecond     float64 `json:"mb_per_second"`
}

// GetStorageSummary computes per-provider win counts and rates across all
// recorded storage comparisons.
func (m *Monitor) GetStorageSummary() StorageSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]*ProviderStorageStats)
	for _, comp := range m.storageComparisons {
		for _, provider := range sortedKeys(comp.Performance) {
			perf := comp.Performance[provider]
			s, ok := stats[provider]
			if !ok {
				s = &ProviderStorageStats{}
				stats[provider] = s
			}
			s.TotalOperations++
			s.TotalTimeMs += perf.AvgTimeMs
			if comp.FastestProvider == provider {
				s.Wins++
			}
		}
	}

	total := len(m.storageComparisons)
	for _, s := range stats {
		if s.TotalOperations > 0 {
			s.AvgTimeMs = s.TotalTimeMs / float64(s.TotalOperations)
		}
		if total > 0 {
			s.WinRate = float64(s.Wins) / float64(total) * 100
		}
	}

	return StorageSummary{ProviderStats: stats, TotalComparisons: total}
}

// GetRetrievalSummary computes per-provider win rates, mean download times,
// and the fastest provider's percentage improvement over every other
// provider that has samples.
func (m *Monitor) GetRetrievalSummary() RetrievalSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := RetrievalSummary{
		TotalRetrievals:    len(m.retrievalComparisons),
		Wins:               make(map[string]int),
		WinRates:           make(map[string]float64),
		AvgTimesMs:         make(map[string]float64),
		ImprovementPercent: make(map[string]float64),
	}
	if len(m.retrievalComparisons) == 0 {
		return summary
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, comp := range m.retrievalComparisons {
		summary.Wins[comp.FastestProvider]++
		for provider, t := range comp.ProviderTimesMs {
			sums[provider] += t
			counts[provider]++
		}
	}

	fastest := ""
	for _, provider := range sortedFloatKeys(sums) {
		summary.AvgTimesMs[provider] = sums[provider] / float64(counts[provider])
		summary.WinRates[provider] = float64(summary.Wins[provider]) / float64(summary.TotalRetrievals) * 100
		if fastest == "" || summary.AvgTimesMs[provider] < summary.AvgTimesMs[fastest] {
			fastest = provider
		}
	}
	summary.FastestProvider = fastest

	for provider, avg := range summary.AvgTimesMs {
		if provider == fastest || avg <= 0 {
			continue
		}
		summary.ImprovementPercent[provider] = (avg - summary.AvgTimesMs[fastest]) / avg * 100
	}

	return summary
}

// GetOperationsSummary aggregates raw samples keyed by "provider/op".
func (m *Monitor) GetOperationsSummary() map[string]*OperationStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*OperationStats)
	totalLatency := make(map[string]float64)
	for _, op := range m.operations {
		key := op.Provider + "/" + op.OpType
		s, ok := out[key]
		if !ok {
			s = &OperationStats{}
			out[key] = s
		}
		s.Count++
		if op.Success {
			s.Succeeded++
			s.TotalBytes += int64(op.BytesTransferred)
		} else {
			s.Failed++
		}
		totalLatency[key] += op.LatencyMs
	}

	for key, s := range out {
		if s.Count > 0 {
			s.AvgLatencyMs = totalLatency[key] / float64(s.Count)
		}
		if totalLatency[key] > 0 {
			s.ThroughputMBPerSec = float64(s.TotalBytes) / (1024 * 1024) / (totalLatency[key] / 1000)
		}
	}
	return out
}

// GetFileSummary aggregates per-file ingest statistics.
func (m *Monitor) GetFileSummary() FileSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s FileSummary
	if len(m.fileStats) == 0 {
		return s
	}

	var totalBytes int64
	var totalMs, downloadMs, parsingMs, embeddingMs float64
	for _, f := range m.fileStats {
		totalBytes += f.FileSizeBytes
		s.TotalChunks += f.ChunksCreated
		totalMs += f.TotalMs
		downloadMs += f.DownloadMs
		parsingMs += f.ParsingMs
		embeddingMs += f.EmbeddingMs
	}

	n := float64(len(m.fileStats))
	s.TotalProcessed = len(m.fileStats)
	s.TotalSizeMB = float64(totalBytes) / (1024 * 1024)
	s.AverageSizeMB = s.TotalSizeMB / n
	s.AvgChunksPer = float64(s.TotalChunks) / n
	s.AvgDownloadMs = downloadMs / n
	s.AvgParsingMs = parsingMs / n
	s.AvgEmbeddingMs = embeddingMs / n
	s.AvgTotalMs = totalMs / n

	if totalMs > 0 {
		totalSec := totalMs / 1000
		s.FilesPerMinute = n / totalSec * 60
		s.ChunksPerSecond = float64(s.TotalChunks) / totalSec
		s.MBPerSecond = s.TotalSizeMB / totalSec
	}
	return s
}

// GetAllMetrics bundles every summary for the dashboard endpoint.
func (m *Monitor) GetAllMetrics() map[string]any {
	return map[string]any{
		"storage_summary":   m.GetStorageSummary(),
		"retrieval_summary": m.GetRetrievalSummary(),
		"operations":        m.GetOperationsSummary(),
		"file_summary":      m.GetFileSummary(),
	}
}
