package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/videoqa/internal/domain"
)

// QAService is the question-answering surface the QA endpoints need.
type QAService interface {
	Ask(ctx context.Context, videoID, question string) (*domain.QAHistory, error)
	History(ctx context.Context, videoID string) ([]domain.QAHistory, error)
	AskPlaceholder(ctx context.Context, videoID, question string) (*domain.PlaceholderAnswer, error)
}

// QAHandler handles question answering endpoints.
type QAHandler struct {
	qa QAService
}

// NewQAHandler creates a new QA handler.
func NewQAHandler(qa QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

// AskRequest is the body of POST /api/v1/qa/ask.
type AskRequest struct {
	VideoID  string `json:"video_id" binding:"required"`
	Question string `json:"question" binding:"required"`
}

// QuestionRequest is the body of POST /api/v1/videos/:id/qa.
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// HistoryResponse is the body of GET /api/v1/qa/history/:video_id.
type HistoryResponse struct {
	VideoID string             `json:"video_id"`
	History []domain.QAHistory `json:"history"`
	Total   int                `json:"total"`
}

// Ask handles POST /api/v1/qa/ask.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes the persisted history entry as JSON).
func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.qa.Ask(c.Request.Context(), req.VideoID, req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// History handles GET /api/v1/qa/history/:video_id.
func (h *QAHandler) History(c *gin.Context) {
	videoID := c.Param("video_id")
	entries, err := h.qa.History(c.Request.Context(), videoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{VideoID: videoID, History: entries, Total: len(entries)})
}

// AskPlaceholder handles POST /api/v1/videos/:id/qa, the placeholder mode.
func (h *QAHandler) AskPlaceholder(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	answer, err := h.qa.AskPlaceholder(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
