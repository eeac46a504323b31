// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/usecases"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/monitor"
)

// Server exposes the RAG demo API.
type Server struct {
	store   *usecases.StoreUseCase
	ingest  *usecases.IngestUseCase
	query   *usecases.QueryUseCase
	configs ports.ConfigStore
	factory ports.ClientFactory
	metrics *metrics.Monitor
	bucket  *monitor.BucketMonitor
	log     *zap.Logger
	addr    string
}

// NewServer creates a new HTTP server.
func NewServer(
	store *usecases.StoreUseCase,
	ingest *usecases.IngestUseCase,
	query *usecases.QueryUseCase,
	configs ports.ConfigStore,
	factory ports.ClientFactory,
	m *metrics.Monitor,
	bucket *monitor.BucketMonitor,
	addr string,
	log *zap.Logger,
) *Server {
	return &Server{
		store:   store,
		ingest:  ingest,
		query:   query,
		configs: configs,
		factory: factory,
		metrics: m,
		bucket:  bucket,
		log:     log,
		addr:    addr,
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
	}

	s.log.Info("server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler builds the route table. Exposed separately so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)

	mux.HandleFunc("/api/config/", s.handleConfig)

	mux.HandleFunc("/api/documents/upload", s.handleUpload)
	mux.HandleFunc("/api/documents/count", s.handleDocumentCount)
	mux.HandleFunc("/api/documents", s.handleDocuments)

	mux.HandleFunc("/api/rag/query", s.handleRAGQuery)
	mux.HandleFunc("/api/rag/models", s.handleModels)
	mux.HandleFunc("/api/search", s.handleSearch)

	mux.HandleFunc("/api/metrics", s.handleMetrics)

	mux.HandleFunc("/api/ingestion/start", s.handleIngestionStart)
	mux.HandleFunc("/api/ingestion/stop", s.handleIngestionStop)
	mux.HandleFunc("/api/ingestion/status", s.handleIngestionStatus)
	mux.HandleFunc("/api/ingestion/summary", s.handleIngestionSummary)
	mux.HandleFunc("/api/ingestion/events", s.handleIngestionEvents)

	return corsMiddleware(s.loggingMiddleware(mux))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
