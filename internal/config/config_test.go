package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("Chunking = %+v, want 1000/200", cfg.Chunking)
	}
	if cfg.QA.TopK != 3 {
		t.Errorf("QA.TopK = %d, want 3", cfg.QA.TopK)
	}
	if !cfg.QA.Placeholder.Enabled || cfg.QA.Placeholder.Answer != "reponse" || cfg.QA.Placeholder.Confidence != 0.95 {
		t.Errorf("QA.Placeholder = %+v", cfg.QA.Placeholder)
	}
	if cfg.VectorStore.Provider != "chromem" {
		t.Errorf("VectorStore.Provider = %q, want chromem", cfg.VectorStore.Provider)
	}
	if cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("Embedding.Timeout = %v, want 30s", cfg.Embedding.Timeout)
	}
	if cfg.Database.DSN() != "./data/videoqa.db" {
		t.Errorf("Database.DSN() = %q", cfg.Database.DSN())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNKING_CHUNK_SIZE", "500")

	cfg, err := Load(writeConfig(t, "chunking:\n  chunk_overlap: 50\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Embedding.APIKey != "sk-test" || cfg.Completion.APIKey != "sk-test" {
		t.Errorf("API keys not bound from OPENAI_API_KEY: %q / %q", cfg.Embedding.APIKey, cfg.Completion.APIKey)
	}
	if cfg.Chunking.ChunkSize != 500 || cfg.Chunking.ChunkOverlap != 50 {
		t.Errorf("Chunking = %+v, want 500/50", cfg.Chunking)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database:    DatabaseConfig{Driver: "sqlite"},
			VectorStore: VectorStoreConfig{Provider: "chromem"},
			Embedding:   EmbeddingConfig{Provider: "openai", Dimensions: 1536},
			Completion:  CompletionConfig{Provider: "openai"},
			Chunking:    ChunkingConfig{ChunkSize: 1000, ChunkOverlap: 200},
			QA:          QAConfig{TopK: 3},
			Lock:        LockConfig{Provider: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "overlap equals size", mutate: func(c *Config) { c.Chunking.ChunkOverlap = 1000 }, wantErr: true},
		{name: "zero chunk size", mutate: func(c *Config) { c.Chunking.ChunkSize = 0 }, wantErr: true},
		{name: "zero top k", mutate: func(c *Config) { c.QA.TopK = 0 }, wantErr: true},
		{name: "unknown vector store", mutate: func(c *Config) { c.VectorStore.Provider = "pinecone" }, wantErr: true},
		{name: "unknown lock", mutate: func(c *Config) { c.Lock.Provider = "etcd" }, wantErr: true},
		{name: "postgres", mutate: func(c *Config) { c.Database.Driver = "postgres" }},
		{name: "ollama providers", mutate: func(c *Config) {
			c.Embedding.Provider = "ollama"
			c.Completion.Provider = "ollama"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
