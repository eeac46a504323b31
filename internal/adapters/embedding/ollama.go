// Package embedding provides the Ollama embedding adapter.
// Clean Architecture: Adapter implementing ports.EmbeddingService.
// It knows about Ollama specifics but the domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// OllamaAdapter implements ports.EmbeddingService using the Ollama batch
// embed API. One request covers a whole document's chunks.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

// NewOllamaAdapter creates a new Ollama embedding adapter.
func NewOllamaAdapter(baseURL, model string, log *zap.Logger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log,
	}
}

// ollamaEmbedRequest is the Ollama batch embed API request format.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the Ollama batch embed API response format.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedBatch generates embeddings for multiple texts in one call. The
// response must carry exactly one vector per input; anything else fails the
// whole batch.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	a.log.Debug("embedding batch",
		zap.Int("texts", len(texts)),
		zap.String("model", a.model))

	reqBody := ollamaEmbedRequest{
		Model: a.model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: Ollama returned status %d", entities.ErrEmbeddingUnavailable, resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed count mismatch: sent %d texts, got %d embeddings",
			len(texts), len(embedResp.Embeddings))
	}

	a.log.Debug("embedded batch",
		zap.Int("vectors", len(embedResp.Embeddings)),
		zap.Int("dimensions", dims(embedResp.Embeddings)))
	return embedResp.Embeddings, nil
}

func dims(embeddings [][]float32) int {
	if len(embeddings) == 0 {
		return 0
	}
	return len(embeddings[0])
}
