package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/landtruth/registry/internal/registry/model"
	"go.uber.org/zap"
)

// writeError maps a domain error onto an HTTP response. Conflicts are
// surfaced as retryable 409s; integrity faults are systemic and logged at
// error level before returning 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var ve *model.ErrValidation
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrDuplicateAsset):
		c.JSON(http.StatusConflict, gin.H{"error": "asset id already exists"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "sequence conflict",
			"retryable": true,
		})
	case model.IsIntegrity(err):
		logger.Error("integrity fault", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
