package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"kloset/internal/domain/shared/fault"
)

// respondFault translates the error taxonomy into HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func respondFault(c *gin.Context, logger *slog.Logger, err error) {
	switch fault.KindOf(err) {
	case fault.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case fault.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case fault.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case fault.KindInvalidState, fault.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case fault.KindDependency:
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream dependency failed"})
	default:
		if logger != nil {
			logger.Error("request failed", "error", err, "path", c.FullPath())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
