package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/videoqa/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Error: err.Error(),
		Kind:  string(domain.KindOf(err)),
		Stage: string(domain.StageOf(err)),
	}
}

// respondError writes err with its mapped status and logs server-side failures.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, newErrorResponse(err))
}

func badRequest(c *gin.Context, err error) {
	respondError(c, domain.Validation("invalid request: %v", err))
}
