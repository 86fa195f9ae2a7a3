// Package app builds the service graph from configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/videoqa/internal/api/handler"
	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/lock"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/repository"
	"github.com/timmy/videoqa/internal/service"
	"github.com/timmy/videoqa/internal/storage"
	"gorm.io/gorm"
)

// App holds the wired collaborators. Close releases them in reverse order.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Vectors repository.VectorStore
	Locker  lock.Locker
	Videos  *service.VideoService
	QA      *service.QAService

	closers []func() error
}

// NewLogger builds the process logger from the log section, then applies LOG_* overrides.
func NewLogger(cfg *config.LogConfig) *logger.Logger {
	opts := logger.DefaultOptions()
	if cfg.Level != "" {
		opts.Level = cfg.Level
	}
	if cfg.Format != "" {
		opts.Format = cfg.Format
	}
	if cfg.Environment != "" {
		opts.Environment = cfg.Environment
	}
	opts.File = cfg.File
	opts.FileOnly = cfg.FileOnly
	return logger.New(opts.ApplyEnv())
}

// New wires every collaborator named by cfg.
// Parameters:
//   - ctx: context for startup connections (Redis ping, S3 credentials, bucket check).
//   - cfg: validated configuration.
//   - log: process logger.
// Returns:
//   - *App: wired application; call Close when done.
//   - error: non-nil if any collaborator cannot be built. Already-opened resources are released.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	db, err := repository.InitDB(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	app.onClose(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	vectors, err := repository.NewVectorStore(&cfg.VectorStore, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	app.Vectors = vectors
	app.onClose(vectors.Close)

	locker, err := lock.New(ctx, &cfg.Lock)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lock: %w", err)
	}
	app.Locker = locker
	app.onClose(locker.Close)

	objectStore, err := storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if b, ok := objectStore.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	embedder, err := service.NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	completer, err := service.NewCompleter(&cfg.Completion)
	if err != nil {
		return nil, err
	}
	transcriber := service.NewWhisperTranscriber(nil, log, &cfg.Transcription)

	videoRepo := repository.NewVideoRepository(db)
	historyRepo := repository.NewQAHistoryRepository(db)

	app.Videos, err = service.NewVideoService(
		videoRepo,
		vectors,
		transcriber,
		embedder,
		locker,
		service.NewTranscriptArchive(objectStore, cfg.Storage.Prefix),
		log,
		&service.VideoConfig{
			ChunkSize:         cfg.Chunking.ChunkSize,
			ChunkOverlap:      cfg.Chunking.ChunkOverlap,
			TranscribeTimeout: cfg.Transcription.Timeout,
			EmbedTimeout:      cfg.Embedding.Timeout,
			IndexTimeout:      cfg.VectorStore.Timeout,
		},
	)
	if err != nil {
		return nil, err
	}

	app.QA = service.NewQAService(videoRepo, historyRepo, vectors, embedder, completer, log, &service.QAConfig{
		TopK:                  cfg.QA.TopK,
		EmbedTimeout:          cfg.Embedding.Timeout,
		RetrieveTimeout:       cfg.VectorStore.Timeout,
		CompletionTimeout:     cfg.Completion.Timeout,
		PlaceholderEnabled:    cfg.QA.Placeholder.Enabled,
		PlaceholderAnswer:     cfg.QA.Placeholder.Answer,
		PlaceholderConfidence: cfg.QA.Placeholder.Confidence,
	})

	log.WithFields(logger.Fields{
		"database":     cfg.Database.Driver,
		"vector_store": cfg.VectorStore.Provider,
		"embedding":    cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		"completion":   cfg.Completion.Provider + "/" + cfg.Completion.Model,
		"lock":         cfg.Lock.Provider,
		"archive":      cfg.Storage.Enabled,
	}).Info("Application wired")
	return app, nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// HealthChecks returns probes for the database and the vector store.
func (a *App) HealthChecks() map[string]handler.Pinger {
	return map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"vector_store": a.Vectors,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
