package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/user/protoscribe-go/internal/api"
	"github.com/user/protoscribe-go/internal/api/middleware"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/database"
	"github.com/user/protoscribe-go/internal/guidelines"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"github.com/user/protoscribe-go/internal/repository"
	"github.com/user/protoscribe-go/internal/service"
	"github.com/user/protoscribe-go/internal/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v":
			fmt.Println(version.Info())
			os.Exit(0)
		case "--init":
			if err := runInit(); err != nil {
				log.Fatalf("init: %v", err)
			}
			os.Exit(0)
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		}
	}
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func printUsage() {
	fmt.Printf("ProtoScribe - %s\n\n", version.Short())
	fmt.Println("Usage: protoscribe [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --init         Generate .env.example configuration template")
	fmt.Println("  --version, -v  Show version information")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("Without options, starts the protocol analysis server.")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("  Use environment variables or .env file (see .env.example)")
	fmt.Println("  Run 'protoscribe --init' to generate configuration template")
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger.
	logDir := getLogDir()
	logger, err := newLogger(cfg.Server.LogLevel, logDir, cfg.LogRotation)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting protoscribe",
		zap.String("version", version.Short()),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	// Initialize database.
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	// Run migrations.
	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Initialize repositories.
	keyRepo := repository.NewAPIKeyRepository(db)
	userRepo := repository.NewUserRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Initialize guideline loader and provider registry.
	guidelineLoader := guidelines.NewLoader(cfg.Guidelines.Dir)
	registry := provider.NewRegistry(cfg.Providers, logger)
	if registry.Len() == 0 {
		logger.Warn("no providers enabled; analysis requests will fail")
	}

	// Initialize orchestration services.
	health := service.NewHealthRegistry(registry, cfg.Analyzer.HealthInterval, logger)
	health.Start()
	defer health.Stop()

	limiter := service.NewProviderRateLimiter(providerBudgets(cfg.Providers))
	costs := service.NewCostTracker(func(rec models.UsageRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := usageRepo.Insert(ctx, rec); err != nil {
			logger.Warn("failed to persist usage record", zap.Error(err))
		}
	}, logger)

	cache := service.NewAnalysisCache(cfg.Analyzer.CacheMaxSize, cfg.Analyzer.CacheTTL, logger)
	ranker := service.NewProviderRanker(health, registry)
	analyzer := service.NewAnalyzer(
		registry,
		service.NewPromptBuilder(guidelineLoader),
		service.NewResponseParser(),
		cache,
		limiter,
		costs,
		health,
		ranker,
		service.AnalyzerOptions{
			MaxTokens:       cfg.Analyzer.MaxTokens,
			Temperature:     cfg.Analyzer.Temperature,
			RequestTimeout:  cfg.Analyzer.RequestTimeout,
			MaxConcurrent:   cfg.Analyzer.MaxConcurrent,
			DefaultProvider: models.ProviderIdentity(cfg.Analyzer.DefaultProvider),
		},
		logger,
	)

	// Initialize auth, provisioning the admin account and bootstrap key.
	authService := service.NewAuthService(keyRepo, userRepo, logger)
	if cfg.Security.AuthEnabled {
		if err := authService.CreateDefaultAdmin(
			context.Background(),
			cfg.Security.DefaultAdmin.Username,
			cfg.Security.DefaultAdmin.Password,
		); err != nil {
			logger.Warn("failed to create default admin", zap.Error(err))
		}
		if err := authService.BootstrapAPIKey(context.Background(), cfg.Security.BootstrapAPIKey); err != nil {
			logger.Warn("failed to provision bootstrap API key", zap.Error(err))
		}
	}

	// Create HTTP server.
	server := api.NewServer(api.ServerDeps{
		Analyzer:       analyzer,
		Compliance:     service.NewComplianceChecker(guidelineLoader),
		AuthService:    authService,
		HealthRegistry: health,
		CostTracker:    costs,
		RateLimiter:    limiter,
		Guidelines:     guidelineLoader,
		AnalysisRepo:   analysisRepo,
		KeyRepo:        keyRepo,
		RateLimit: &middleware.RateLimitConfig{
			Enabled:       cfg.RateLimit.Enabled,
			MaxRequests:   cfg.RateLimit.MaxRequests,
			WindowSeconds: cfg.RateLimit.WindowSeconds,
		},
		AuthEnabled: cfg.Security.AuthEnabled,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Analyzer.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", addr))

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func providerBudgets(pc config.ProvidersConfig) map[models.ProviderIdentity]service.ProviderBudget {
	budgets := make(map[models.ProviderIdentity]service.ProviderBudget)
	for id, p := range map[models.ProviderIdentity]config.ProviderConfig{
		models.ProviderOpenAI:      pc.OpenAI,
		models.ProviderAnthropic:   pc.Anthropic,
		models.ProviderAzureOpenAI: pc.AzureOpenAI,
	} {
		if !p.Enabled {
			continue
		}
		budgets[id] = service.ProviderBudget{
			RequestsPerMinute: p.RequestsPerMinute,
			TokensPerMinute:   p.TokensPerMinute,
		}
	}
	return budgets
}

func newLogger(level string, logDir string, rotation config.LogRotationConfig) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug", "DEBUG":
		zapLevel = zap.DebugLevel
	case "warn", "WARN":
		zapLevel = zap.WarnLevel
	case "error", "ERROR":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "protoscribe.log"),
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}

	// File core: JSON encoder for structured log parsing
	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.TimeKey = "ts"
	fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(fileEncoderCfg),
		zapcore.AddSync(lj),
		zapLevel,
	)

	// Console core: human-readable output to stdout/stderr
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderCfg)

	// stdout for DEBUG/INFO, stderr for WARN/ERROR+
	stdoutCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapLevel && l < zapcore.WarnLevel
		}),
	)
	stderrCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapLevel && l >= zapcore.WarnLevel
		}),
	)

	core := zapcore.NewTee(fileCore, stdoutCore, stderrCore)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	), nil
}

func getLogDir() string {
	if dir := os.Getenv("PROTOSCRIBE_LOGS_DIR"); dir != "" {
		return dir
	}
	return "logs"
}
