package controllers

import (
	"errors"
	"net/http"

	"github.com/lemonbanan4/ai-web-research/internal/llm"
	"github.com/lemonbanan4/ai-web-research/internal/services"
	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var cfgErr *domain.ConfigError
	var apiErr *llm.APIError
	var upErr *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, services.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTaskCompleted):
		return http.StatusConflict
	case errors.Is(err, services.ErrServiceClosed), errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &upErr), errors.As(err, &apiErr), errors.Is(err, llm.ErrEmptyCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
