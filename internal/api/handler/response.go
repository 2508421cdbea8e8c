package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/models"
)

// errorResponse sends a JSON error response with {detail: message} format.
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

// analysisErrorResponse maps analysis errors to HTTP status codes,
// preserving the error category in the payload.
func analysisErrorResponse(c *gin.Context, err error) {
	var valErr *models.ValidationError
	var provErr *models.ProviderError
	var malErr *models.MalformedResponseError
	var noneErr *models.NoProvidersAvailableError
	var timeoutErr *models.TimeoutError

	// Terminal orchestration errors are matched first: exhaustion wraps the
	// last per-candidate failure, which may itself be a ValidationError, and
	// that must not surface as a client error.
	switch {
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"detail": timeoutErr.Error(),
			"error":  gin.H{"type": "timeout_error"},
		})
	case errors.As(err, &noneErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"detail": noneErr.Error(),
			"error":  gin.H{"type": "no_providers_available"},
		})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": valErr.Error(),
			"error":  gin.H{"type": "validation_error", "field": valErr.Field},
		})
	case errors.As(err, &malErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"detail": malErr.Error(),
			"error":  gin.H{"type": "malformed_response", "provider": string(malErr.Provider)},
		})
	case errors.As(err, &provErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"detail": provErr.Error(),
			"error":  gin.H{"type": "provider_error", "provider": string(provErr.Provider)},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": "Analysis failed",
			"error":  gin.H{"type": "internal_error"},
		})
	}
}
