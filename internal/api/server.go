package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/protoscribe-go/internal/api/handler"
	"github.com/user/protoscribe-go/internal/api/middleware"
	"github.com/user/protoscribe-go/internal/guidelines"
	"github.com/user/protoscribe-go/internal/repository"
	"github.com/user/protoscribe-go/internal/service"
	"go.uber.org/zap"
)

// Server wraps the HTTP router and its dependencies.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// ServerDeps holds all dependencies for the API server.
type ServerDeps struct {
	Analyzer       *service.Analyzer
	Compliance     *service.ComplianceChecker
	AuthService    *service.AuthService
	HealthRegistry *service.HealthRegistry
	CostTracker    *service.CostTracker
	RateLimiter    *service.ProviderRateLimiter
	Guidelines     *guidelines.Loader
	AnalysisRepo   *repository.AnalysisRepository
	KeyRepo        *repository.APIKeyRepository
	RateLimit      *middleware.RateLimitConfig
	AuthEnabled    bool
	Logger         *zap.Logger
}

// NewServer creates a new API server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware.
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(deps.RateLimit))

	// Health check (no auth).
	healthHandler := handler.NewHealthHandler(deps.HealthRegistry)
	r.GET("/api/health", healthHandler.Health)

	// Analysis endpoints (API key auth).
	analysisHandler := handler.NewAnalysisHandler(deps.Analyzer, deps.AnalysisRepo, logger)
	complianceHandler := handler.NewComplianceHandler(deps.Compliance)
	guidelineHandler := handler.NewGuidelineHandler(deps.Guidelines)
	usageHandler := handler.NewUsageHandler(deps.CostTracker, deps.RateLimiter)

	v1 := r.Group("/api/v1")
	if deps.AuthEnabled {
		v1.Use(middleware.RequireAPIKey(deps.AuthService))
	}
	{
		v1.POST("/analyses", analysisHandler.Analyze)
		v1.GET("/analyses", analysisHandler.ListAnalyses)
		v1.GET("/analyses/:id", analysisHandler.GetAnalysis)

		v1.POST("/compliance", complianceHandler.CheckCompliance)

		v1.GET("/guidelines", guidelineHandler.ListGuidelines)
		v1.GET("/guidelines/:id", guidelineHandler.GetGuideline)

		v1.GET("/usage/summary", usageHandler.GetSummary)
		v1.GET("/usage/rate-limits", usageHandler.GetRateLimits)
	}

	// Admin endpoints (Basic auth against the admin account).
	keyHandler := handler.NewAPIKeyHandler(deps.KeyRepo, deps.AuthService)
	admin := r.Group("/api/admin")
	admin.Use(middleware.RequireAdmin(deps.AuthService))
	{
		admin.GET("/keys", keyHandler.ListAPIKeys)
		admin.POST("/keys", keyHandler.CreateAPIKey)
		admin.POST("/keys/:id/revoke", keyHandler.RevokeAPIKey)
	}

	return &Server{router: r, logger: logger}
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
