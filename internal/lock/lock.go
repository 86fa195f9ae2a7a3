// Package lock provides per-key mutual exclusion for video ingestion.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/videoqa/internal/config"
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive ownership of a key until the returned Unlock runs.
type Locker interface {
	// Lock blocks until key is acquired or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
	Close() error
}

// VideoKey is the lock key guarding a video's clear-then-add sequence.
func VideoKey(videoID string) string {
	return "video:" + videoID
}

// New builds the Locker selected by cfg.Provider.
// Parameters:
//   - cfg: lock provider, TTL and Redis settings.
// Returns:
//   - Locker: ready-to-use locker.
//   - error: non-nil for an unknown provider or unreachable Redis.
func New(ctx context.Context, cfg *config.LockConfig) (Locker, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemory(), nil
	case "redis":
		ttl := cfg.TTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		return NewRedis(ctx, &cfg.Redis, ttl)
	default:
		return nil, fmt.Errorf("unsupported lock provider: %s", cfg.Provider)
	}
}
