package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/guidelines"
)

// GuidelineHandler serves reporting guideline checklists.
type GuidelineHandler struct {
	loader *guidelines.Loader
}

// NewGuidelineHandler creates a new GuidelineHandler.
func NewGuidelineHandler(loader *guidelines.Loader) *GuidelineHandler {
	return &GuidelineHandler{loader: loader}
}

// ListGuidelines lists the available guideline identifiers.
// GET /api/v1/guidelines
func (h *GuidelineHandler) ListGuidelines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"guidelines": h.loader.List()})
}

// GetGuideline returns one guideline checklist.
// GET /api/v1/guidelines/:id
func (h *GuidelineHandler) GetGuideline(c *gin.Context) {
	g, err := h.loader.Load(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, "Guideline not found")
		return
	}
	c.JSON(http.StatusOK, g)
}
