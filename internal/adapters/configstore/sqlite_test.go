package configstore

import (
	"path/filepath"
	"testing"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)

	want := entities.ProviderConfig{
		AccessKey:   "AKIATEST",
		SecretKey:   "secret",
		BucketName:  "bucket",
		Region:      "us-east-1",
		EndpointURL: "https://storage.example.com",
	}
	if err := store.Set(entities.RolePrimary, want); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := store.Get(entities.RolePrimary)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestSQLiteStore_UnconfiguredRole(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.Get(entities.RoleComparison)
	if err != nil {
		t.Fatalf("get on empty store should not error: %v", err)
	}
	if cfg.Configured() {
		t.Error("empty store should yield unconfigured config")
	}
	if store.IsConfigured(entities.RoleComparison) {
		t.Error("IsConfigured should be false for empty role")
	}
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	store := newTestStore(t)

	store.Set(entities.RolePrimary, entities.ProviderConfig{AccessKey: "old", BucketName: "b1"})
	store.Set(entities.RolePrimary, entities.ProviderConfig{AccessKey: "new", BucketName: "b2"})

	got, _ := store.Get(entities.RolePrimary)
	if got.AccessKey != "new" || got.BucketName != "b2" {
		t.Errorf("second set should replace the first: %+v", got)
	}
}

func TestSQLiteStore_Reset(t *testing.T) {
	store := newTestStore(t)

	store.Set(entities.RolePrimary, entities.ProviderConfig{AccessKey: "ak"})
	if !store.IsConfigured(entities.RolePrimary) {
		t.Fatal("role should be configured after set")
	}

	if err := store.Reset(entities.RolePrimary); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if store.IsConfigured(entities.RolePrimary) {
		t.Error("role should be unconfigured after reset")
	}
}

func TestSQLiteStore_RolesAreIndependent(t *testing.T) {
	store := newTestStore(t)

	store.Set(entities.RolePrimary, entities.ProviderConfig{AccessKey: "pk"})
	store.Set(entities.RoleComparison, entities.ProviderConfig{AccessKey: "ck"})
	store.Reset(entities.RolePrimary)

	if store.IsConfigured(entities.RolePrimary) {
		t.Error("primary should be reset")
	}
	if !store.IsConfigured(entities.RoleComparison) {
		t.Error("comparison must survive a primary reset")
	}
}
