package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/service"
)

// ComplianceHandler serves rule-based checklist compliance checks. Unlike
// the analysis endpoints it makes no provider calls, so it stays usable
// when no LLM provider is configured.
type ComplianceHandler struct {
	checker *service.ComplianceChecker
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(checker *service.ComplianceChecker) *ComplianceHandler {
	return &ComplianceHandler{checker: checker}
}

type complianceRequest struct {
	ProtocolText string   `json:"protocol_text" binding:"required"`
	GuidelineIDs []string `json:"guideline_ids" binding:"required"`
}

// CheckCompliance runs a keyword compliance check of a protocol.
// POST /api/v1/compliance
func (h *ComplianceHandler) CheckCompliance(c *gin.Context) {
	var body complianceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := h.checker.Check(body.ProtocolText, body.GuidelineIDs)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}
