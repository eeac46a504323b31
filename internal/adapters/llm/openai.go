// Package llm provides an OpenAI-compatible chat completion adapter.
// Clean Architecture: Adapter implementing ports.LLMService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

const systemPrompt = "You are a helpful assistant. Answer the question using only the provided context. " +
	"If the context does not contain the answer, say so."

// OpenAIAdapter implements ports.LLMService against any OpenAI-compatible
// chat completions endpoint. This is the only collaborator that retries
// internally; storage and embedding calls surface failures to the caller.
type OpenAIAdapter struct {
	baseURL    string
	apiKey     string
	model      string
	models     []string
	maxRetries int
	client     *http.Client
	log        *zap.Logger
}

// NewOpenAIAdapter creates a new chat completion adapter. An empty apiKey
// leaves the adapter unconfigured; queries then return context-only results.
func NewOpenAIAdapter(baseURL, apiKey, model string, models []string, log *zap.Logger) *OpenAIAdapter {
	if baseURL == "" {
		baseURL = "https://integrate.api.nvidia.com/v1"
	}
	if model == "" {
		model = "meta/llama-3.1-8b-instruct"
	}
	if len(models) == 0 {
		models = []string{model}
	}
	return &OpenAIAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		models:     models,
		maxRetries: 3,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// IsConfigured reports whether an API key is present.
func (a *OpenAIAdapter) IsConfigured() bool {
	return a.apiKey != ""
}

// Models returns the model identifiers this adapter accepts.
func (a *OpenAIAdapter) Models() []string {
	out := make([]string, len(a.models))
	copy(out, a.models)
	return out
}

// ChatCompletion answers the query grounded on the retrieved documents.
// Transient failures (connection errors, 429, 5xx) retry with backoff up to
// maxRetries attempts.
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, query string, contextDocs []string, model string) (string, error) {
	if !a.IsConfigured() {
		return "", entities.ErrLLMUnavailable
	}
	if model == "" {
		model = a.model
	}

	var sb strings.Builder
	for i, doc := range contextDocs {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, doc)
	}

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), query)},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			a.log.Warn("retrying chat completion",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		answer, retryable, err := a.complete(ctx, jsonData)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %v", entities.ErrLLMUnavailable, lastErr)
}

func (a *OpenAIAdapter) complete(ctx context.Context, body []byte) (answer string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("calling LLM: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("LLM returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("LLM returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", false, fmt.Errorf("decoding chat response: %w", err)
	}
	if chatResp.Error != nil {
		return "", false, fmt.Errorf("LLM error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", false, fmt.Errorf("LLM returned no choices")
	}
	return chatResp.Choices[0].Message.Content, false, nil
}
