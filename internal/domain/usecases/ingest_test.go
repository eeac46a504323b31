package usecases

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/adapters/processor"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/metrics"
)

func newIngestFixture(t *testing.T) (*IngestUseCase, *fixture, *metrics.Monitor) {
	t.Helper()
	f := newFixture(t, entities.RolePrimary)
	m := metrics.NewMonitor()
	proc := processor.NewProcessor(50, 10, nil, zap.NewNop())
	return NewIngestUseCase(proc, f.store, m, zap.NewNop()), f, m
}

func TestIngestFile_ChunksAndStores(t *testing.T) {
	uc, f, m := newIngestFixture(t)

	data := []byte("the quick brown fox jumps over the lazy dog, repeatedly and at length, to fill several chunks")
	result, err := uc.IngestFile(context.Background(), data, "fox.txt", nil)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.StoredChunks < 2 {
		t.Errorf("expected multiple chunks, got %d", result.StoredChunks)
	}
	if f.index.Size() != result.StoredChunks {
		t.Errorf("index size %d != stored %d", f.index.Size(), result.StoredChunks)
	}

	summary := m.GetFileSummary()
	if summary.TotalProcessed != 1 {
		t.Errorf("file stats should record 1 file, got %d", summary.TotalProcessed)
	}
}

func TestIngestFile_ProgressCarriesFilename(t *testing.T) {
	uc, _, _ := newIngestFixture(t)

	var files []string
	_, err := uc.IngestFile(context.Background(),
		[]byte("short content here"), "named.txt",
		func(ev entities.ProgressEvent) { files = append(files, ev.File) })
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected progress events")
	}
	for _, f := range files {
		if f != "named.txt" {
			t.Errorf("event should carry the filename, got %q", f)
		}
	}
}

func TestIngestFile_UnsupportedType(t *testing.T) {
	uc, _, _ := newIngestFixture(t)

	_, err := uc.IngestFile(context.Background(), []byte("x"), "archive.zip", nil)
	if !errors.Is(err, entities.ErrUnsupportedType) {
		t.Errorf("expected unsupported type error, got %v", err)
	}
}

func TestIngestFile_EmptyFileIsNotAnError(t *testing.T) {
	uc, f, _ := newIngestFixture(t)

	result, err := uc.IngestFile(context.Background(), []byte("   "), "blank.txt", nil)
	if err != nil {
		t.Fatalf("empty file should not error: %v", err)
	}
	if result.StoredChunks != 0 || f.index.Size() != 0 {
		t.Error("nothing should be stored for an empty file")
	}
}
