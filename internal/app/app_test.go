package app

import (
	"context"
	"testing"

	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			Path:         "file:app_test?mode=memory&cache=shared",
			MaxOpenConns: 1,
			AutoMigrate:  true,
		},
		VectorStore: config.VectorStoreConfig{Provider: "chromem"},
		Embedding:   config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 8},
		Completion:  config.CompletionConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Chunking:    config.ChunkingConfig{ChunkSize: 1000, ChunkOverlap: 200},
		QA:          config.QAConfig{TopK: 3},
		Lock:        config.LockConfig{Provider: "memory"},
	}
}

func TestNewWiresInMemoryStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), logger.GetDefault())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Videos == nil || a.QA == nil {
		t.Fatal("services not wired")
	}
	if _, ok := a.Vectors.(*repository.ChromemRepository); !ok {
		t.Errorf("vector store = %T, want chromem", a.Vectors)
	}
	for name, check := range a.HealthChecks() {
		if err := check.Ping(ctx); err != nil {
			t.Errorf("health check %s: %v", name, err)
		}
	}
	if _, err := a.Videos.List(ctx, 0, 10); err != nil {
		t.Errorf("List() error = %v", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = "file:app_test_bad?mode=memory&cache=shared"
	cfg.Lock.Provider = "zookeeper"
	if _, err := New(context.Background(), cfg, logger.GetDefault()); err == nil {
		t.Error("New() error = nil, want unsupported lock provider")
	}
}
