// Package config provides configuration management with 2-tier priority:
// Environment variables (including .env file) > Default values
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Providers   ProvidersConfig
	Analyzer    AnalyzerConfig
	Guidelines  GuidelinesConfig
	Database    DatabaseConfig
	LogRotation LogRotationConfig
	RateLimit   RateLimitConfig
	Security    SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host     string
	Port     int
	LogLevel string
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Enabled           bool
	RequestsPerMinute int
	TokensPerMinute   int
	MaxRetries        int
	RetryDelay        time.Duration
	Timeout           time.Duration

	// Azure only
	Deployment string
	APIVersion string
}

// ProvidersConfig holds per-vendor provider settings.
type ProvidersConfig struct {
	OpenAI      ProviderConfig
	Anthropic   ProviderConfig
	AzureOpenAI ProviderConfig
}

// AnalyzerConfig holds orchestration settings.
type AnalyzerConfig struct {
	DefaultProvider string
	MaxTokens       int
	Temperature     float64
	CacheTTL        time.Duration
	CacheMaxSize    int
	MaxConcurrent   int
	RequestTimeout  time.Duration
	HealthInterval  time.Duration
}

// GuidelinesConfig holds checklist loading settings.
type GuidelinesConfig struct {
	Dir string // optional directory of JSON overrides; embedded defaults otherwise
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LogRotationConfig holds log rotation settings powered by lumberjack.
type LogRotationConfig struct {
	MaxSizeMB  int  // Maximum size in MB before rotation
	MaxBackups int  // Maximum number of old log files to retain
	MaxAgeDays int  // Maximum number of days to retain old log files
	Compress   bool // Whether to gzip compress rotated files
}

// RateLimitConfig holds HTTP-level rate limiting configuration.
// Per-provider token budgets are configured on ProviderConfig instead.
type RateLimitConfig struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	AuthEnabled     bool
	BootstrapAPIKey string // plaintext key created on first start when set
	DefaultAdmin    DefaultAdminConfig
}

// DefaultAdminConfig holds default admin credentials.
type DefaultAdminConfig struct {
	Username string
	Password string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8000,
			LogLevel: "INFO",
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				BaseURL:           "https://api.openai.com",
				Model:             "gpt-4o",
				Enabled:           true,
				RequestsPerMinute: 60,
				TokensPerMinute:   150000,
				MaxRetries:        2,
				RetryDelay:        500 * time.Millisecond,
				Timeout:           60 * time.Second,
			},
			Anthropic: ProviderConfig{
				BaseURL:           "https://api.anthropic.com",
				Model:             "claude-sonnet-4-20250514",
				Enabled:           true,
				RequestsPerMinute: 60,
				TokensPerMinute:   120000,
				MaxRetries:        2,
				RetryDelay:        500 * time.Millisecond,
				Timeout:           60 * time.Second,
			},
			AzureOpenAI: ProviderConfig{
				Model:             "gpt-4o",
				Deployment:        "gpt-4o",
				APIVersion:        "2024-06-01",
				Enabled:           false,
				RequestsPerMinute: 60,
				TokensPerMinute:   150000,
				MaxRetries:        2,
				RetryDelay:        500 * time.Millisecond,
				Timeout:           60 * time.Second,
			},
		},
		Analyzer: AnalyzerConfig{
			DefaultProvider: "openai",
			MaxTokens:       4000,
			Temperature:     0.1,
			CacheTTL:        time.Hour,
			CacheMaxSize:    1000,
			MaxConcurrent:   3,
			RequestTimeout:  5 * time.Minute,
			HealthInterval:  60 * time.Second,
		},
		Guidelines: GuidelinesConfig{},
		Database: DatabaseConfig{
			Path:            "protoscribe.db",
			MaxOpenConns:    15,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			MaxRequests:   100,
			WindowSeconds: 60,
		},
		Security: SecurityConfig{
			AuthEnabled: false,
			DefaultAdmin: DefaultAdminConfig{
				Username: "admin",
				Password: "admin123",
			},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Analyzer.MaxConcurrent < 1 {
		return &ConfigError{Field: "analyzer.max_concurrent", Message: "must be at least 1"}
	}
	if c.Analyzer.Temperature < 0 || c.Analyzer.Temperature > 2 {
		return &ConfigError{Field: "analyzer.temperature", Message: "must be between 0 and 2"}
	}
	if c.Analyzer.CacheTTL <= 0 {
		return &ConfigError{Field: "analyzer.cache_ttl", Message: "must be positive"}
	}
	if _, ok := map[string]bool{"openai": true, "anthropic": true, "azure_openai": true}[c.Analyzer.DefaultProvider]; !ok {
		return &ConfigError{Field: "analyzer.default_provider", Message: "unknown provider " + c.Analyzer.DefaultProvider}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + ": " + e.Message
}

// Helper functions for environment variable parsing.

func getEnvStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	lower := strings.ToLower(v)
	return lower == "true" || lower == "1" || lower == "yes" || lower == "on"
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
