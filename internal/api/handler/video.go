package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/service"
)

// VideoService is the ingestion surface the video endpoints need.
type VideoService interface {
	Create(ctx context.Context, in service.CreateVideoInput) (*domain.Video, error)
	Get(ctx context.Context, id string) (*domain.Video, error)
	List(ctx context.Context, skip, limit int) ([]domain.Video, error)
	Update(ctx context.Context, id string, in service.UpdateVideoInput) (*domain.Video, error)
	Reindex(ctx context.Context, id string) (*domain.Video, error)
	Delete(ctx context.Context, id string) error
	Transcribe(ctx context.Context, url string) (*domain.Transcript, error)
	Transcript(ctx context.Context, id string) (string, error)
}

// VideoHandler handles video endpoints.
type VideoHandler struct {
	videos VideoService
}

// NewVideoHandler creates a new video handler.
// Parameters:
//   - videos: ingestion pipeline.
// Returns:
//   - *VideoHandler: initialized handler.
func NewVideoHandler(videos VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// CreateVideoRequest is the body of POST /api/v1/videos.
type CreateVideoRequest struct {
	URL         string `json:"url" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateVideoRequest is the body of PUT /api/v1/videos/:id. Omitted fields are unchanged.
type UpdateVideoRequest struct {
	URL         *string `json:"url"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// TranscribeRequest is the body of POST /api/v1/videos/transcribe.
type TranscribeRequest struct {
	URL string `json:"url" binding:"required"`
}

// PipelineErrorResponse reports a failed ingestion together with the video left behind.
type PipelineErrorResponse struct {
	ErrorResponse
	Video *domain.Video `json:"video,omitempty"`
}

// ListVideosResponse is the body of GET /api/v1/videos.
type ListVideosResponse struct {
	Videos []domain.Video `json:"videos"`
	Skip   int            `json:"skip"`
	Limit  int            `json:"limit"`
}

// respondPipeline writes a pipeline result. A failure after the video was persisted
// still carries the video so clients can see its failed status.
func respondPipeline(c *gin.Context, okStatus int, video *domain.Video, err error) {
	if err == nil {
		c.JSON(okStatus, video)
		return
	}
	if video == nil {
		respondError(c, err)
		return
	}
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, PipelineErrorResponse{ErrorResponse: newErrorResponse(err), Video: video})
}

// CreateVideo handles POST /api/v1/videos.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *VideoHandler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	video, err := h.videos.Create(c.Request.Context(), service.CreateVideoInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
	})
	respondPipeline(c, http.StatusCreated, video, err)
}

// ListVideos handles GET /api/v1/videos?skip=&limit=.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		badRequest(c, err)
		return
	}

	videos, err := h.videos.List(c.Request.Context(), skip, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListVideosResponse{Videos: videos, Skip: skip, Limit: limit})
}

// GetVideo handles GET /api/v1/videos/:id.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	video, err := h.videos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

// UpdateVideo handles PUT /api/v1/videos/:id.
func (h *VideoHandler) UpdateVideo(c *gin.Context) {
	var req UpdateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	video, err := h.videos.Update(c.Request.Context(), c.Param("id"), service.UpdateVideoInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
	})
	respondPipeline(c, http.StatusOK, video, err)
}

// ReindexVideo handles POST /api/v1/videos/:id/reindex.
func (h *VideoHandler) ReindexVideo(c *gin.Context) {
	video, err := h.videos.Reindex(c.Request.Context(), c.Param("id"))
	respondPipeline(c, http.StatusOK, video, err)
}

// DeleteVideo handles DELETE /api/v1/videos/:id.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	if err := h.videos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transcribe handles POST /api/v1/videos/transcribe.
func (h *VideoHandler) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	transcript, err := h.videos.Transcribe(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":           req.URL,
		"transcription": transcript.Text,
	})
}

// GetTranscript handles GET /api/v1/videos/:id/transcript.
func (h *VideoHandler) GetTranscript(c *gin.Context) {
	id := c.Param("id")
	text, err := h.videos.Transcript(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video_id":      id,
		"transcription": text,
	})
}
