package usecases

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
)

// QueryAnswer bundles the generated answer with its supporting retrieval.
type QueryAnswer struct {
	Answer    string                     `json:"answer"`
	Model     string                     `json:"model,omitempty"`
	Retrieval *entities.SearchComparison `json:"retrieval"`
	LLMTimeMs float64                    `json:"llm_time_ms"`
	Degraded  bool                       `json:"degraded,omitempty"`
}

// QueryUseCase answers questions over the indexed corpus: retrieve with the
// provider comparison, then generate with the LLM. A missing LLM degrades
// to retrieval-only answers instead of failing.
type QueryUseCase struct {
	store *StoreUseCase
	llm   ports.LLMService
	log   *zap.Logger
}

// NewQueryUseCase creates a new query usecase.
func NewQueryUseCase(store *StoreUseCase, llm ports.LLMService, log *zap.Logger) *QueryUseCase {
	return &QueryUseCase{store: store, llm: llm, log: log}
}

// Models returns the model identifiers available for generation.
func (uc *QueryUseCase) Models() []string {
	return uc.llm.Models()
}

// Query retrieves topK chunks and asks the LLM to answer from them.
func (uc *QueryUseCase) Query(ctx context.Context, query string, topK int, model string) (*QueryAnswer, error) {
	retrieval, err := uc.store.SearchWithComparison(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	out := &QueryAnswer{Model: model, Retrieval: retrieval}
	if len(retrieval.Results) == 0 {
		out.Answer = "No documents have been ingested yet. Upload a document and try again."
		out.Degraded = true
		return out, nil
	}

	docs := make([]string, len(retrieval.Results))
	for i, r := range retrieval.Results {
		docs[i] = r.Content
	}

	llmStart := time.Now()
	answer, err := uc.llm.ChatCompletion(ctx, query, docs, model)
	out.LLMTimeMs = msSince(llmStart)
	if err != nil {
		if errors.Is(err, entities.ErrLLMUnavailable) {
			uc.log.Warn("LLM unavailable, returning retrieval-only answer", zap.Error(err))
			out.Answer = "LLM is not configured; showing retrieved context only."
			out.Degraded = true
			return out, nil
		}
		return nil, err
	}

	out.Answer = answer
	return out, nil
}
