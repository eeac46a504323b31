package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/processor"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/vectorindex"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/ports"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/usecases"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/monitor"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), float32(i)}
	}
	return out, nil
}

type stubLLM struct{}

func (stubLLM) ChatCompletion(ctx context.Context, q string, docs []string, model string) (string, error) {
	return "stub answer", nil
}
func (stubLLM) IsConfigured() bool { return true }
func (stubLLM) Models() []string   { return []string{"model-a", "model-b"} }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}
func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return data, nil
}
func (m *memStore) List(context.Context, string) ([]entities.ObjectInfo, error) { return nil, nil }
func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
func (m *memStore) Copy(context.Context, string, string) error { return nil }
func (m *memStore) HeadCheck(context.Context) error            { return nil }
func (m *memStore) Provider() string                           { return entities.RolePrimary }

type memConfigs struct {
	mu   sync.Mutex
	cfgs map[string]entities.ProviderConfig
}

func (c *memConfigs) Get(role string) (entities.ProviderConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfgs[role], nil
}
func (c *memConfigs) Set(role string, cfg entities.ProviderConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfgs[role] = cfg
	return nil
}
func (c *memConfigs) Reset(role string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cfgs, role)
	return nil
}
func (c *memConfigs) IsConfigured(role string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfgs[role].Configured()
}

type memFactory struct {
	configs *memConfigs
	store   *memStore
}

func (f *memFactory) Client(role string) (ports.ObjectStore, error) {
	if !f.configs.IsConfigured(role) {
		return nil, &entities.StorageError{
			Provider: role, Op: "create_client", Kind: entities.KindConfiguration,
			Err: entities.ErrNotConfigured,
		}
	}
	return f.store, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := zap.NewNop()
	m := metrics.NewMonitor()
	configs := &memConfigs{cfgs: map[string]entities.ProviderConfig{
		entities.RolePrimary: {AccessKey: "ak", SecretKey: "sk", BucketName: "b", Region: "r"},
	}}
	factory := &memFactory{configs: configs, store: &memStore{objects: make(map[string][]byte)}}

	store := usecases.NewStoreUseCase(vectorindex.NewFlatIndex(), stubEmbedder{}, factory, configs, m, 500, 1, log)
	ingest := usecases.NewIngestUseCase(processor.NewProcessor(100, 10, nil, log), store, m, log)
	query := usecases.NewQueryUseCase(store, stubLLM{}, log)
	bucket := monitor.NewBucketMonitor(ingest, store, factory, configs, m, time.Second, 10, log)

	return NewServer(store, ingest, query, configs, factory, m, bucket, ":0", log)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadFile(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
	providers := body["providers"].(map[string]any)
	if providers[entities.RolePrimary] != true || providers[entities.RoleComparison] != false {
		t.Errorf("unexpected providers: %v", providers)
	}
}

func TestConfig_SetGetMasksSecret(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/config/comparison", entities.ProviderConfig{
		AccessKey: "CAK", SecretKey: "supersecret", BucketName: "cb", Region: "cr",
		EndpointURL: "https://cmp.example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/config/comparison", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get failed: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "supersecret") {
		t.Error("secret key must be masked in responses")
	}
	if !strings.Contains(rec.Body.String(), `"configured":true`) {
		t.Errorf("configured flag missing: %s", rec.Body.String())
	}
}

func TestConfig_Reset(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodDelete, "/api/config/primary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/health", nil)
	if !strings.Contains(rec.Body.String(), `"primary":false`) {
		t.Errorf("primary should be unconfigured after reset: %s", rec.Body.String())
	}
}

func TestConfig_UnknownRole(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/config/tertiary", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown role should 404, got %d", rec.Code)
	}
}

func TestConfig_TestEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/config/primary/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test should pass for configured provider: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/config/comparison/test", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unconfigured provider should 400, got %d", rec.Code)
	}
}

func TestUploadAndCount(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := uploadFile(t, h, "doc.txt", "a short document for the index")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/documents/count", nil)
	var body map[string]int
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["count"] == 0 {
		t.Error("count should grow after upload")
	}
}

func TestUpload_MultipleFiles(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"one.txt", "two.txt"} {
		fw, _ := mw.CreateFormFile("file", name)
		fw.Write([]byte("content of " + name))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("multi upload failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "one.txt") || !strings.Contains(rec.Body.String(), "two.txt") {
		t.Errorf("both files should be reported: %s", rec.Body.String())
	}
	if srv.store.Size() != 2 {
		t.Errorf("expected 2 indexed chunks, got %d", srv.store.Size())
	}
}

func TestIngestionSummary(t *testing.T) {
	h := newTestServer(t).Handler()
	uploadFile(t, h, "doc.txt", "summary producing content")

	rec := doJSON(t, h, http.MethodGet, "/api/ingestion/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total_processed":1`) {
		t.Errorf("file stats missing: %s", rec.Body.String())
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := uploadFile(t, h, "image.png", "binary")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported type should 400, got %d", rec.Code)
	}
}

func TestDocuments_Clear(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	uploadFile(t, h, "doc.txt", "some content to clear")

	rec := doJSON(t, h, http.MethodDelete, "/api/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear failed: %d", rec.Code)
	}
	if srv.store.Size() != 0 {
		t.Error("index should be empty after clear")
	}
}

func TestSearch(t *testing.T) {
	h := newTestServer(t).Handler()
	uploadFile(t, h, "doc.txt", "searchable body of text")

	rec := doJSON(t, h, http.MethodPost, "/api/search", map[string]any{"query": "searchable", "top_k": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", rec.Code, rec.Body.String())
	}
	var result entities.SearchComparison
	json.Unmarshal(rec.Body.Bytes(), &result)
	if len(result.Results) == 0 {
		t.Error("search should return results")
	}
	if result.FastestProvider != entities.RolePrimary {
		t.Errorf("unexpected winner: %s", result.FastestProvider)
	}
}

func TestRAGQuery(t *testing.T) {
	h := newTestServer(t).Handler()
	uploadFile(t, h, "doc.txt", "context for the model")

	rec := doJSON(t, h, http.MethodPost, "/api/rag/query", map[string]any{"query": "what is this"})
	if rec.Code != http.StatusOK {
		t.Fatalf("query failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "stub answer") {
		t.Errorf("answer missing: %s", rec.Body.String())
	}
}

func TestRAGQuery_RequiresQuery(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/rag/query", map[string]any{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query should 400, got %d", rec.Code)
	}
}

func TestModels(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/rag/models", nil)
	if !strings.Contains(rec.Body.String(), "model-a") {
		t.Errorf("models missing: %s", rec.Body.String())
	}
}

func TestMetricsLifecycle(t *testing.T) {
	h := newTestServer(t).Handler()
	uploadFile(t, h, "doc.txt", "metric producing content")

	rec := doJSON(t, h, http.MethodGet, "/api/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storage_summary") {
		t.Errorf("summary missing: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics clear failed: %d", rec.Code)
	}
}

func TestIngestionStatus(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/ingestion/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"monitoring":false`) {
		t.Errorf("monitor should start idle: %s", rec.Body.String())
	}
}

func TestIngestionStartStop(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/ingestion/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"monitoring":true`) {
		t.Errorf("start should report monitoring: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/ingestion/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop failed: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"monitoring":false`) {
		t.Errorf("stop should report idle: %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t).Handler()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/documents/upload"},
		{http.MethodGet, "/api/rag/query"},
		{http.MethodPost, "/api/documents"},
		{http.MethodDelete, "/api/ingestion/start"},
	} {
		rec := doJSON(t, h, tc.method, tc.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s should 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
