// Package configstore persists per-provider storage credentials in SQLite.
// Clean Architecture: Adapter implementing ports.ConfigStore.
package configstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

const schema = `
CREATE TABLE IF NOT EXISTS provider_config (
	role         TEXT PRIMARY KEY,
	access_key   TEXT NOT NULL DEFAULT '',
	secret_key   TEXT NOT NULL DEFAULT '',
	bucket_name  TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT '',
	endpoint_url TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps one row per provider role. Credentials survive restarts
// so the demo does not need reconfiguring every run.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create config schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the stored config for the role. An unconfigured role returns
// a zero config, not an error; callers check Configured().
func (s *SQLiteStore) Get(role string) (entities.ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg entities.ProviderConfig
	row := s.db.QueryRow(
		`SELECT access_key, secret_key, bucket_name, region, endpoint_url
		 FROM provider_config WHERE role = ?`, role)
	err := row.Scan(&cfg.AccessKey, &cfg.SecretKey, &cfg.BucketName, &cfg.Region, &cfg.EndpointURL)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ProviderConfig{}, nil
	}
	if err != nil {
		return entities.ProviderConfig{}, fmt.Errorf("failed to load %s config: %w", role, err)
	}
	return cfg, nil
}

// Set stores the config for the role, replacing any previous row.
func (s *SQLiteStore) Set(role string, cfg entities.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO provider_config (role, access_key, secret_key, bucket_name, region, endpoint_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(role) DO UPDATE SET
		   access_key = excluded.access_key,
		   secret_key = excluded.secret_key,
		   bucket_name = excluded.bucket_name,
		   region = excluded.region,
		   endpoint_url = excluded.endpoint_url,
		   updated_at = CURRENT_TIMESTAMP`,
		role, cfg.AccessKey, cfg.SecretKey, cfg.BucketName, cfg.Region, cfg.EndpointURL)
	if err != nil {
		return fmt.Errorf("failed to save %s config: %w", role, err)
	}
	return nil
}

// Reset removes the stored config for the role.
func (s *SQLiteStore) Reset(role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM provider_config WHERE role = ?`, role); err != nil {
		return fmt.Errorf("failed to reset %s config: %w", role, err)
	}
	return nil
}

// IsConfigured reports whether the role has an access key stored.
func (s *SQLiteStore) IsConfigured(role string) bool {
	cfg, err := s.Get(role)
	if err != nil {
		return false
	}
	return cfg.Configured()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
