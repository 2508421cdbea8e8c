package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/service"
)

// UsageHandler serves cost and rate-limit usage reports.
type UsageHandler struct {
	costs   *service.CostTracker
	limiter *service.ProviderRateLimiter
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(costs *service.CostTracker, limiter *service.ProviderRateLimiter) *UsageHandler {
	return &UsageHandler{costs: costs, limiter: limiter}
}

// GetSummary returns aggregated cost figures over a window of days.
// GET /api/v1/usage/summary?days=30
func (h *UsageHandler) GetSummary(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			errorResponse(c, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	c.JSON(http.StatusOK, h.costs.Summary(days))
}

// GetRateLimits returns the current per-provider minute-window consumption.
// GET /api/v1/usage/rate-limits
func (h *UsageHandler) GetRateLimits(c *gin.Context) {
	usage := make(map[string]gin.H, len(models.AllProviders))
	for _, p := range models.AllProviders {
		requests, tokens := h.limiter.Usage(p)
		usage[string(p)] = gin.H{"requests": requests, "tokens": tokens}
	}
	c.JSON(http.StatusOK, gin.H{"providers": usage})
}
