package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// handleHealth reports server liveness and configuration state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := make(map[string]bool)
	for _, role := range entities.Roles() {
		providers[role] = s.configs.IsConfigured(role)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"indexed_chunks": s.store.Size(),
		"providers":      providers,
	})
}

// handleConfig routes /api/config/{role} and /api/config/{role}/test.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/config/"), "/")
	role := parts[0]
	if role != entities.RolePrimary && role != entities.RoleComparison {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown provider role %q", role))
		return
	}

	if len(parts) == 2 && parts[1] == "test" {
		s.handleConfigTest(w, r, role)
		return
	}
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleConfigGet(w, role)
	case http.MethodPost:
		s.handleConfigSet(w, r, role)
	case http.MethodDelete:
		s.handleConfigReset(w, role)
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleConfigGet(w http.ResponseWriter, role string) {
	cfg, err := s.configs.Get(role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// The secret never leaves the server.
	masked := cfg
	if masked.SecretKey != "" {
		masked.SecretKey = "********"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":       role,
		"config":     masked,
		"configured": cfg.Configured(),
	})
}

func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request, role string) {
	var cfg entities.ProviderConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid config body: %w", err))
		return
	}
	if err := s.configs.Set(role, cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("provider config updated", zap.String("role", role))
	writeJSON(w, http.StatusOK, map[string]any{
		"role":       role,
		"configured": cfg.Configured(),
	})
}

func (s *Server) handleConfigReset(w http.ResponseWriter, role string) {
	if err := s.configs.Reset(role); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("provider config reset", zap.String("role", role))
	writeJSON(w, http.StatusOK, map[string]any{"role": role, "configured": false})
}

// handleConfigTest builds a client from the stored config and head-checks
// the bucket. Validation failures come back as 400, connectivity as 502.
func (s *Server) handleConfigTest(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	client, err := s.factory.Client(role)
	if err != nil {
		status := http.StatusBadGateway
		if entities.KindOf(err) == entities.KindConfiguration {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := client.HeadCheck(ctx); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": role, "status": "connected"})
}

// handleUpload ingests one or more multipart files from the "file" field.
// A single unsupported file fails the request up front; ingestion errors on
// individual files are reported per file without failing the rest.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field"))
		return
	}

	for _, header := range headers {
		if !s.ingest.Supported(header.Filename) {
			writeError(w, http.StatusBadRequest,
				fmt.Errorf("%w: %s", entities.ErrUnsupportedType, header.Filename))
			return
		}
	}

	type uploadOutcome struct {
		Filename string              `json:"filename"`
		Result   *entities.AddResult `json:"result,omitempty"`
		Error    string              `json:"error,omitempty"`
	}
	outcomes := make([]uploadOutcome, 0, len(headers))
	for _, header := range headers {
		outcome := uploadOutcome{Filename: header.Filename}

		file, err := header.Open()
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		result, err := s.ingest.IngestFile(r.Context(), data, header.Filename, nil)
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Result = result
		}
		outcomes = append(outcomes, outcome)
	}

	if len(outcomes) == 1 {
		if outcomes[0].Error != "" {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("%s", outcomes[0].Error))
			return
		}
		writeJSON(w, http.StatusOK, outcomes[0])
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": outcomes})
}

func (s *Server) handleDocumentCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.store.Size()})
}

// handleDocuments supports DELETE to drop the in-memory index.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	s.store.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Model string `json:"model"`
}

func decodeQuery(r *http.Request) (queryRequest, error) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid query body: %w", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, fmt.Errorf("query is required")
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}
	return req, nil
}

// handleRAGQuery retrieves with the provider comparison and generates an
// answer.
func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	answer, err := s.query.Query(r.Context(), req.Query, req.TopK, req.Model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.query.Models()})
}

// handleSearch runs retrieval only, without LLM generation.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.store.SearchWithComparison(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMetrics serves the aggregated dashboard payload; DELETE clears it.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.metrics.GetAllMetrics())
	case http.MethodDelete:
		s.metrics.Clear()
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleIngestionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	// The monitor outlives the request; its lifetime is bounded by Stop and
	// by server shutdown.
	if err := s.bucket.Start(context.Background()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.bucket.Status())
}

func (s *Server) handleIngestionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	s.bucket.Stop()
	writeJSON(w, http.StatusOK, s.bucket.Status())
}

func (s *Server) handleIngestionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bucket.Status())
}

// handleIngestionSummary serves the per-file throughput aggregates.
func (s *Server) handleIngestionSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetFileSummary())
}

// handleIngestionEvents streams per-chunk progress events over SSE. A
// keepalive comment goes out every 30 seconds so proxies keep the
// connection open.
func (s *Server) handleIngestionEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-s.bucket.Events():
			sendSSE(w, flusher, ev)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data any) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
