package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/service"
	"github.com/user/protoscribe-go/internal/version"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	health *service.HealthRegistry
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(health *service.HealthRegistry) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health returns the service health status with per-provider detail.
func (h *HealthHandler) Health(c *gin.Context) {
	records := h.health.SnapshotAll()

	available := 0
	for _, r := range records {
		if r.Available {
			available++
		}
	}

	status := "healthy"
	if available == 0 && len(records) > 0 {
		status = "unhealthy"
	} else if available < len(records) {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"version":   version.Short(),
		"available": available,
		"providers": records,
	})
}
