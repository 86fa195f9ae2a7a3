package service

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/logger"
	"golang.org/x/sync/errgroup"
)

// ReindexStats summarizes a bulk re-index run.
type ReindexStats struct {
	Total     int
	Completed int
	Failed    int
	Failures  map[string]error
	StartTime time.Time
	EndTime   time.Time
}

// ReindexAll re-ingests every video with at most workers running at once.
// A failing video is recorded in the stats and does not stop the others.
// Parameters:
//   - ctx: cancelling it stops scheduling further videos.
//   - workers: concurrency bound; values below 1 mean 1.
// Returns:
//   - *ReindexStats: per-run counts and per-video failures.
//   - error: non-nil only if the video list cannot be read or ctx is cancelled.
func (s *VideoService) ReindexAll(ctx context.Context, workers int) (*ReindexStats, error) {
	ids, err := s.videos.ListIDs(ctx)
	if err != nil {
		return nil, domain.Upstream(domain.StageStore, err)
	}

	stats := &ReindexStats{
		Total:     len(ids),
		Failures:  make(map[string]error),
		StartTime: time.Now(),
	}
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldCount: len(ids),
		"workers":         workers,
	}).Info("Starting re-index")

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, id := range ids {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.Reindex(gCtx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				stats.Failures[id] = err
				return nil
			}
			stats.Completed++
			return nil
		})
	}
	_ = g.Wait()
	stats.EndTime = time.Now()

	logger.Metric(ctx, stats.StartTime, logger.Fields{
		"completed": stats.Completed,
		"failed":    stats.Failed,
	}).Info("Re-index finished")

	return stats, ctx.Err()
}
