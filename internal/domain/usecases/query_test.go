package usecases

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

type mockLLM struct {
	answer     string
	err        error
	configured bool
	lastDocs   []string
}

func (m *mockLLM) ChatCompletion(ctx context.Context, query string, contextDocs []string, model string) (string, error) {
	m.lastDocs = contextDocs
	if !m.configured {
		return "", entities.ErrLLMUnavailable
	}
	return m.answer, m.err
}
func (m *mockLLM) IsConfigured() bool { return m.configured }
func (m *mockLLM) Models() []string   { return []string{"test-model"} }

func TestQuery_AnswersFromRetrievedContext(t *testing.T) {
	f := newFixture(t, entities.RolePrimary)
	if _, err := f.store.AddChunks(context.Background(), makeChunks(3), nil); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	llm := &mockLLM{configured: true, answer: "the answer"}
	uc := NewQueryUseCase(f.store, llm, zap.NewNop())

	out, err := uc.Query(context.Background(), "content number 0", 2, "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if out.Answer != "the answer" {
		t.Errorf("unexpected answer: %s", out.Answer)
	}
	if len(llm.lastDocs) != 2 {
		t.Errorf("LLM should see the retrieved chunks, got %d", len(llm.lastDocs))
	}
	if out.Retrieval == nil || len(out.Retrieval.Results) != 2 {
		t.Error("retrieval details should be attached to the answer")
	}
}

func TestQuery_EmptyIndexDegrades(t *testing.T) {
	f := newFixture(t, entities.RolePrimary)
	uc := NewQueryUseCase(f.store, &mockLLM{configured: true}, zap.NewNop())

	out, err := uc.Query(context.Background(), "anything", 5, "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !out.Degraded {
		t.Error("empty corpus should degrade, not fail")
	}
	if !strings.Contains(out.Answer, "Upload a document") {
		t.Errorf("unexpected degraded answer: %s", out.Answer)
	}
}

func TestQuery_MissingLLMDegrades(t *testing.T) {
	f := newFixture(t, entities.RolePrimary)
	if _, err := f.store.AddChunks(context.Background(), makeChunks(1), nil); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	uc := NewQueryUseCase(f.store, &mockLLM{configured: false}, zap.NewNop())
	out, err := uc.Query(context.Background(), "content", 1, "")
	if err != nil {
		t.Fatalf("missing LLM should degrade, not fail: %v", err)
	}
	if !out.Degraded {
		t.Error("missing LLM should set the degraded flag")
	}
	if out.Retrieval == nil || len(out.Retrieval.Results) != 1 {
		t.Error("retrieval should still be served without an LLM")
	}
}
