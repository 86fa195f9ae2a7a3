package repository

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/timmy/videoqa/internal/config"
)

// errNoEmbedder is returned if chromem ever tries to embed text itself.
var errNoEmbedder = errors.New("chromem: embeddings must be supplied by the caller")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// ChromemRepository stores collections in an embedded chromem-go database.
type ChromemRepository struct {
	db *chromem.DB
	// mu serializes clear/add on the collection map; chromem guards documents itself.
	mu sync.Mutex
}

// NewChromemRepository opens a persistent database at cfg.Path, or an in-memory one when empty.
// Parameters:
//   - cfg: chromem settings.
// Returns:
//   - *ChromemRepository: repository bound to the database.
//   - error: non-nil if the persistent database cannot be opened.
func NewChromemRepository(cfg *config.ChromemConfig) (*ChromemRepository, error) {
	if cfg == nil || cfg.Path == "" {
		return &ChromemRepository{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	return &ChromemRepository{db: db}, nil
}

// Ping always succeeds; the database is in-process.
func (r *ChromemRepository) Ping(context.Context) error {
	return nil
}

// Close is a no-op; persistent chromem writes through on every change.
func (r *ChromemRepository) Close() error {
	return nil
}

func (r *ChromemRepository) collection(collectionID string) (*chromem.Collection, error) {
	c := r.db.GetCollection(collectionID, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}
	return c, nil
}

// CreateCollection creates an empty collection.
func (r *ChromemRepository) CreateCollection(_ context.Context, collectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db.GetCollection(collectionID, noEmbedding) != nil {
		return fmt.Errorf("%w: %s", ErrCollectionExists, collectionID)
	}
	if _, err := r.db.CreateCollection(collectionID, nil, noEmbedding); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// GetOrCreateCollection ensures the collection exists.
func (r *ChromemRepository) GetOrCreateCollection(_ context.Context, collectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.GetOrCreateCollection(collectionID, nil, noEmbedding); err != nil {
		return fmt.Errorf("failed to get or create collection: %w", err)
	}
	return nil
}

// DeleteCollection removes the collection if it exists.
func (r *ChromemRepository) DeleteCollection(_ context.Context, collectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db.GetCollection(collectionID, noEmbedding) == nil {
		return nil
	}
	if err := r.db.DeleteCollection(collectionID); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Clear drops and recreates the collection, which removes every record in one step.
func (r *ChromemRepository) Clear(_ context.Context, collectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db.GetCollection(collectionID, noEmbedding) != nil {
		if err := r.db.DeleteCollection(collectionID); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
	}
	if _, err := r.db.CreateCollection(collectionID, nil, noEmbedding); err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	return nil
}

// Add inserts records. On failure, any records already written by this call are removed.
// Parameters:
//   - ctx: context for cancellation.
//   - collectionID: target collection.
//   - records: records with precomputed embeddings.
// Returns:
//   - error: non-nil if the collection is missing or any record fails.
func (r *ChromemRepository) Add(ctx context.Context, collectionID string, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.collection(collectionID)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	ids := make([]string, len(records))
	for i, rec := range records {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", rec.ID)
		}
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Content:   rec.Text,
			Metadata:  rec.Metadata,
			Embedding: rec.Embedding,
		}
		ids[i] = rec.ID
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// Concurrent workers may have stored some documents before the failure.
		_ = c.Delete(context.WithoutCancel(ctx), nil, nil, ids...)
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns the k nearest records; k is capped at the collection size.
func (r *ChromemRepository) Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]VectorMatch, error) {
	c, err := r.collection(collectionID)
	if err != nil {
		return nil, err
	}

	n := min(k, c.Count())
	if n <= 0 {
		return []VectorMatch{}, nil
	}

	results, err := c.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	matches := make([]VectorMatch, len(results))
	for i, res := range results {
		matches[i] = VectorMatch{
			ID:       res.ID,
			Text:     res.Content,
			Metadata: res.Metadata,
			Score:    res.Similarity,
		}
	}
	return matches, nil
}

// ListCollections returns the names of all collections, sorted.
func (r *ChromemRepository) ListCollections() []string {
	cols := r.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of records in the collection.
func (r *ChromemRepository) Count(_ context.Context, collectionID string) (int, error) {
	c, err := r.collection(collectionID)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}
