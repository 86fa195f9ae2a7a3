package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/videoqa/internal/config"
)

var (
	// ErrCollectionNotFound is returned when an operation other than delete targets a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCollectionExists is returned by CreateCollection for a name already in use.
	ErrCollectionExists = errors.New("collection already exists")
)

// VectorRecord is one embedded chunk to store.
type VectorRecord struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// VectorMatch is one ranked query result.
type VectorMatch struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float32
}

// VectorStore manages per-video vector collections keyed by collection ID.
type VectorStore interface {
	// CreateCollection creates an empty collection; fails with ErrCollectionExists if present.
	CreateCollection(ctx context.Context, collectionID string) error
	// GetOrCreateCollection ensures the collection exists.
	GetOrCreateCollection(ctx context.Context, collectionID string) error
	// DeleteCollection removes the collection; a missing collection is not an error.
	DeleteCollection(ctx context.Context, collectionID string) error
	// Clear removes every record, leaving an empty collection.
	Clear(ctx context.Context, collectionID string) error
	// Add inserts records as one all-or-nothing bulk write.
	Add(ctx context.Context, collectionID string, records []VectorRecord) error
	// Query returns up to k records nearest to embedding, most similar first.
	Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]VectorMatch, error)
	// Count returns the number of records in the collection.
	Count(ctx context.Context, collectionID string) (int, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// NewVectorStore builds the vector store selected by cfg.Provider.
// Parameters:
//   - cfg: provider selection and connection settings.
//   - dimensions: embedding vector length, used when creating qdrant collections.
// Returns:
//   - VectorStore: ready-to-use store.
//   - error: non-nil for an unknown provider or a failed connection.
func NewVectorStore(cfg *config.VectorStoreConfig, dimensions int) (VectorStore, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemRepository(&cfg.Chromem)
	case "qdrant":
		return NewQdrantRepository(&QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", cfg.Provider)
	}
}
