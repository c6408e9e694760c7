package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownProject):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyText),
		errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexingInProgress), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the mapped status.
func writeError(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Error: err.Error(), Message: message})
}

func badRequest(c *gin.Context, message string, err error) {
	if err == nil {
		err = domain.ErrInvalidInput
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Message: message})
}
