package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dom "tasktracker/internal/domain"
)

// statusOf maps a domain error to the HTTP status the client sees.
func statusOf(err error) int {
	switch {
	case errors.Is(err, dom.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dom.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dom.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status. Internal errors are logged and
// hidden behind a generic message.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
