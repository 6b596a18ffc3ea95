package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/legoreviews/internal/repository"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports whether the database answers and which schema version it
// carries. A database that is behind the binary reports "degraded".
func (h *HealthHandler) Health(c *gin.Context) {
	version, err := repository.SchemaVersion(c.Request.Context(), h.db)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	status := "ok"
	if version < repository.LatestSchemaVersion() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"schema_version": version,
	})
}
