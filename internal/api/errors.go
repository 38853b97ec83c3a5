package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/apperr"
)

// writeError maps the apperr taxonomy onto status codes. Only unexpected
// errors are logged; msg is what the client sees for those.
func writeError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	var (
		invalid  *apperr.ValidationError
		notFound *apperr.NotFoundError
		conflict *apperr.ConflictError
	)
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": invalid.Fields})
	case errors.Is(err, apperr.ErrForbidden):
		// Never say why.
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "field": conflict.Field})
	case errors.Is(err, apperr.ErrTransient):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry"})
	default:
		logger.Error(msg, zap.Error(err), zap.String("route", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// pathID reads a positive numeric path parameter. On failure it writes the
// 400 response and returns false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body. On failure it writes the 400 response and
// returns false.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var invalid *apperr.ValidationError
		if errors.As(apperr.FromValidator(err), &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": invalid.Fields})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
