package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/service"
)

// Reindexer re-ingests every video.
type Reindexer interface {
	ReindexAll(ctx context.Context, workers int) (*service.ReindexStats, error)
}

// AdminHandler runs bulk re-index jobs in the background, one at a time.
type AdminHandler struct {
	reindexer Reindexer
	logger    *logger.Logger

	mu            sync.RWMutex
	isRunning     bool
	lastStats     *service.ReindexStats
	lastRunTime   time.Time
	lastRunStatus string
	done          chan struct{}
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - reindexer: bulk re-index entry point.
//   - log: logger for background jobs, which outlive their request.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(reindexer Reindexer, log *logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &AdminHandler{
		reindexer: reindexer,
		logger:    log.WithField(logger.FieldComponent, "admin"),
	}
}

// ReindexRequest is the body of POST /api/v1/admin/reindex.
type ReindexRequest struct {
	Workers int `json:"workers" binding:"omitempty,min=1,max=32"`
}

// ReindexStatsResponse is the JSON form of service.ReindexStats.
type ReindexStatsResponse struct {
	Total      int               `json:"total"`
	Completed  int               `json:"completed"`
	Failed     int               `json:"failed"`
	Failures   map[string]string `json:"failures,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// ReindexStatusResponse represents the re-index job status.
type ReindexStatusResponse struct {
	IsRunning     bool                  `json:"is_running"`
	LastRunTime   string                `json:"last_run_time,omitempty"`
	LastRunStatus string                `json:"last_run_status,omitempty"`
	LastStats     *ReindexStatsResponse `json:"last_stats,omitempty"`
}

func toStatsResponse(stats *service.ReindexStats) *ReindexStatsResponse {
	if stats == nil {
		return nil
	}
	resp := &ReindexStatsResponse{
		Total:      stats.Total,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
		DurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
	}
	if len(stats.Failures) > 0 {
		resp.Failures = make(map[string]string, len(stats.Failures))
		for id, err := range stats.Failures {
			resp.Failures[id] = err.Error()
		}
	}
	return resp
}

// TriggerReindex handles POST /api/v1/admin/reindex.
// The job runs detached from the request; poll GetReindexStatus for the result.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	ctx := c.Request.Context()

	var req ReindexRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.Workers == 0 {
		req.Workers = 4
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Re-index request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, ErrorResponse{Error: "re-index is already running"})
		return
	}
	h.isRunning = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting re-index: workers=%d, client_ip=%s", req.Workers, c.ClientIP())

	jobCtx := h.logger.WithField(logger.FieldRequestID, logger.GetRequestID(ctx)).WithContext(context.WithoutCancel(ctx))
	go h.run(jobCtx, req.Workers, done)

	c.JSON(http.StatusAccepted, gin.H{"message": "re-index started", "workers": req.Workers})
}

func (h *AdminHandler) run(ctx context.Context, workers int, done chan struct{}) {
	defer close(done)

	stats, err := h.reindexer.ReindexAll(ctx, workers)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.isRunning = false
	h.lastStats = stats
	h.lastRunTime = time.Now()
	switch {
	case err != nil:
		h.lastRunStatus = "failed: " + err.Error()
		logger.FromContext(ctx).WithError(err).Error("Re-index failed")
	case stats != nil && stats.Failed > 0:
		h.lastRunStatus = "completed with failures"
	default:
		h.lastRunStatus = "success"
	}
}

// Wait blocks until the running job, if any, has finished.
func (h *AdminHandler) Wait() {
	h.mu.RLock()
	done := h.done
	h.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// GetReindexStatus handles GET /api/v1/admin/reindex.
func (h *AdminHandler) GetReindexStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := ReindexStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastStats:     toStatsResponse(h.lastStats),
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
