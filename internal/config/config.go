// Package config loads the application settings from YAML with sensible
// defaults. Provider credentials are not here; those live in the SQLite
// config store and are managed through the API.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig configures the Ollama embedding service.
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LLMConfig configures the OpenAI-compatible chat completion service. The
// API key is read from the environment variable named by APIKeyEnv.
type LLMConfig struct {
	BaseURL   string   `yaml:"base_url"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Model     string   `yaml:"model"`
	Models    []string `yaml:"models,omitempty"`
}

// IngestConfig configures chunking and the continuous ingestion pipeline.
type IngestConfig struct {
	ChunkSize             int      `yaml:"chunk_size"`
	ChunkOverlap          int      `yaml:"chunk_overlap"`
	MaxChunksPerUpload    int      `yaml:"max_chunks_per_upload"`
	ComparisonSampleCount int      `yaml:"comparison_sample_count"`
	PollIntervalSecs      int      `yaml:"poll_interval_secs"`
	EventQueueSize        int      `yaml:"event_queue_size"`
	WatchDir              string   `yaml:"watch_dir"`
	WatchExtensions       []string `yaml:"watch_extensions,omitempty"`
	PDFServiceURL         string   `yaml:"pdf_service_url"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Addr      string          `yaml:"addr"`
	DataDir   string          `yaml:"data_dir"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// Load reads a config from the given path. A missing file returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LLMAPIKey resolves the API key from the environment.
func (c *AppConfig) LLMAPIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "LLM_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "meta/llama-3.1-8b-instruct"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 500
	}
	if cfg.Ingest.ChunkOverlap <= 0 {
		cfg.Ingest.ChunkOverlap = 50
	}
	if cfg.Ingest.MaxChunksPerUpload <= 0 {
		cfg.Ingest.MaxChunksPerUpload = 500
	}
	if cfg.Ingest.ComparisonSampleCount <= 0 {
		cfg.Ingest.ComparisonSampleCount = 1
	}
	if cfg.Ingest.PollIntervalSecs <= 0 {
		cfg.Ingest.PollIntervalSecs = 5
	}
	if cfg.Ingest.EventQueueSize <= 0 {
		cfg.Ingest.EventQueueSize = 500
	}
	if cfg.Ingest.PDFServiceURL == "" {
		cfg.Ingest.PDFServiceURL = "http://localhost:8081"
	}
}
