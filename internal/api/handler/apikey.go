package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/repository"
	"github.com/user/protoscribe-go/internal/service"
)

// APIKeyHandler handles API key management endpoints. Admin only.
type APIKeyHandler struct {
	keyRepo *repository.APIKeyRepository
	auth    *service.AuthService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keyRepo *repository.APIKeyRepository, auth *service.AuthService) *APIKeyHandler {
	return &APIKeyHandler{keyRepo: keyRepo, auth: auth}
}

// ListAPIKeys lists API keys.
// GET /api/admin/keys
func (h *APIKeyHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.keyRepo.FindAll(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to list API keys")
		return
	}
	if keys == nil {
		keys = []*models.APIKey{}
	}
	c.JSON(http.StatusOK, keys)
}

// CreateAPIKey creates a new API key. The full key is returned exactly once.
// POST /api/admin/keys
func (h *APIKeyHandler) CreateAPIKey(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	fullKey, key, err := h.auth.CreateAPIKey(c.Request.Context(), body.Name)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":      fullKey,
		"key_info": key,
	})
}

// RevokeAPIKey deactivates an API key.
// POST /api/admin/keys/:id/revoke
func (h *APIKeyHandler) RevokeAPIKey(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid key ID")
		return
	}

	if _, err := h.keyRepo.FindByID(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusNotFound, "API key not found")
		return
	}
	if err := h.keyRepo.Revoke(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to revoke API key")
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
