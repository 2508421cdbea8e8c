package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/repository"
	"github.com/user/protoscribe-go/internal/service"
	"go.uber.org/zap"
)

// AnalysisHandler handles protocol analysis endpoints.
type AnalysisHandler struct {
	analyzer     *service.Analyzer
	analysisRepo *repository.AnalysisRepository
	logger       *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analyzer *service.Analyzer, analysisRepo *repository.AnalysisRepository, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, analysisRepo: analysisRepo, logger: logger}
}

type analyzeRequest struct {
	ProtocolText string             `json:"protocol_text" binding:"required"`
	AnalysisType string             `json:"analysis_type" binding:"required"`
	GuidelineIDs []string           `json:"guideline_ids" binding:"required"`
	Context      map[string]string  `json:"context"`
	Provider     string             `json:"provider"`
	Weights      map[string]float64 `json:"weights"`
}

// Analyze runs a protocol analysis.
// POST /api/v1/analyses
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := models.AnalysisRequest{
		ProtocolText: body.ProtocolText,
		Type:         models.AnalysisType(body.AnalysisType),
		GuidelineIDs: body.GuidelineIDs,
		Context:      body.Context,
		Provider:     models.ProviderIdentity(body.Provider),
		Weights:      body.Weights,
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.logger.Warn("analysis failed",
			zap.String("analysis_type", body.AnalysisType),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		analysisErrorResponse(c, err)
		return
	}

	stored := &models.StoredAnalysis{
		ID:           uuid.NewString(),
		AnalysisType: req.Type,
		GuidelineIDs: req.GuidelineIDs,
		Result:       result,
		Provider:     result.Metadata.Provider,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.analysisRepo.Insert(c.Request.Context(), stored); err != nil {
		// The analysis itself succeeded; losing the stored copy is not fatal.
		h.logger.Error("failed to persist analysis", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     stored.ID,
		"result": result,
	})
}

// GetAnalysis retrieves a stored analysis by ID.
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	analysis, err := h.analysisRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "Analysis not found")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// ListAnalyses lists recent analyses.
// GET /api/v1/analyses
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			errorResponse(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	analyses, err := h.analysisRepo.FindRecent(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to list analyses")
		return
	}
	if analyses == nil {
		analyses = []*models.StoredAnalysis{}
	}

	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}
