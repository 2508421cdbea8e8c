package config

import (
	"fmt"
	"os"
)

// Load loads configuration with 2-tier priority:
// Environment variables (including .env file) > Default values
func Load() (*Config, error) {
	// Load .env file if exists
	loadDotEnv()

	// Start with defaults
	cfg := DefaultConfig()

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads a .env file from the working directory.
func loadDotEnv() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // .env file is optional
	}

	// Simple .env parser: KEY=VALUE lines
	for _, line := range splitLines(string(data)) {
		line = trimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		if idx := indexOf(line, '='); idx > 0 {
			key := trimSpace(line[:idx])
			val := trimSpace(line[idx+1:])
			// Remove surrounding quotes
			val = trimQuotes(val)
			// Only set if not already set (env vars take precedence)
			if os.Getenv(key) == "" {
				os.Setenv(key, val)
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.Server.Host = getEnvStr("PROTOSCRIBE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PROTOSCRIBE_PORT", cfg.Server.Port)
	cfg.Server.LogLevel = getEnvStr("LOG_LEVEL", cfg.Server.LogLevel)

	// Provider credentials and endpoints
	applyProviderOverrides(&cfg.Providers.OpenAI, "OPENAI")
	applyProviderOverrides(&cfg.Providers.Anthropic, "ANTHROPIC")
	applyProviderOverrides(&cfg.Providers.AzureOpenAI, "AZURE_OPENAI")
	cfg.Providers.AzureOpenAI.Deployment = getEnvStr("AZURE_OPENAI_DEPLOYMENT", cfg.Providers.AzureOpenAI.Deployment)
	cfg.Providers.AzureOpenAI.APIVersion = getEnvStr("AZURE_OPENAI_API_VERSION", cfg.Providers.AzureOpenAI.APIVersion)

	// Providers without a key are unusable regardless of the enabled flag.
	if cfg.Providers.AzureOpenAI.APIKey != "" && os.Getenv("AZURE_OPENAI_ENABLED") == "" {
		cfg.Providers.AzureOpenAI.Enabled = true
	}

	// Analyzer config
	cfg.Analyzer.DefaultProvider = getEnvStr("PROTOSCRIBE_DEFAULT_PROVIDER", cfg.Analyzer.DefaultProvider)
	cfg.Analyzer.MaxTokens = getEnvInt("PROTOSCRIBE_MAX_TOKENS", cfg.Analyzer.MaxTokens)
	cfg.Analyzer.Temperature = getEnvFloat("PROTOSCRIBE_TEMPERATURE", cfg.Analyzer.Temperature)
	cfg.Analyzer.CacheTTL = getEnvDuration("PROTOSCRIBE_CACHE_TTL", cfg.Analyzer.CacheTTL)
	cfg.Analyzer.CacheMaxSize = getEnvInt("PROTOSCRIBE_CACHE_MAX_SIZE", cfg.Analyzer.CacheMaxSize)
	cfg.Analyzer.MaxConcurrent = getEnvInt("PROTOSCRIBE_MAX_CONCURRENT", cfg.Analyzer.MaxConcurrent)
	cfg.Analyzer.RequestTimeout = getEnvDuration("PROTOSCRIBE_REQUEST_TIMEOUT", cfg.Analyzer.RequestTimeout)
	cfg.Analyzer.HealthInterval = getEnvDuration("PROTOSCRIBE_HEALTH_INTERVAL", cfg.Analyzer.HealthInterval)

	// Guidelines dir
	cfg.Guidelines.Dir = getEnvStr("PROTOSCRIBE_GUIDELINES_DIR", cfg.Guidelines.Dir)

	// Database path
	if dbPath := os.Getenv("PROTOSCRIBE_DB"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Log rotation config
	cfg.LogRotation.MaxSizeMB = getEnvInt("PROTOSCRIBE_LOG_MAX_SIZE_MB", cfg.LogRotation.MaxSizeMB)
	cfg.LogRotation.MaxBackups = getEnvInt("PROTOSCRIBE_LOG_MAX_BACKUPS", cfg.LogRotation.MaxBackups)
	cfg.LogRotation.MaxAgeDays = getEnvInt("PROTOSCRIBE_LOG_MAX_AGE_DAYS", cfg.LogRotation.MaxAgeDays)
	cfg.LogRotation.Compress = getEnvBool("PROTOSCRIBE_LOG_COMPRESS", cfg.LogRotation.Compress)

	// HTTP rate limit config
	cfg.RateLimit.Enabled = getEnvBool("PROTOSCRIBE_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.MaxRequests = getEnvInt("PROTOSCRIBE_RATE_LIMIT_MAX_REQUESTS", cfg.RateLimit.MaxRequests)
	cfg.RateLimit.WindowSeconds = getEnvInt("PROTOSCRIBE_RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimit.WindowSeconds)

	// Security config
	cfg.Security.AuthEnabled = getEnvBool("PROTOSCRIBE_AUTH_ENABLED", cfg.Security.AuthEnabled)
	cfg.Security.BootstrapAPIKey = getEnvStr("PROTOSCRIBE_BOOTSTRAP_API_KEY", cfg.Security.BootstrapAPIKey)
	cfg.Security.DefaultAdmin.Username = getEnvStr("PROTOSCRIBE_ADMIN_USERNAME", cfg.Security.DefaultAdmin.Username)
	cfg.Security.DefaultAdmin.Password = getEnvStr("PROTOSCRIBE_ADMIN_PASSWORD", cfg.Security.DefaultAdmin.Password)
}

// applyProviderOverrides applies the common per-provider environment variables.
func applyProviderOverrides(p *ProviderConfig, prefix string) {
	p.APIKey = getEnvStr(prefix+"_API_KEY", p.APIKey)
	p.BaseURL = getEnvStr(prefix+"_BASE_URL", p.BaseURL)
	p.Model = getEnvStr(prefix+"_MODEL", p.Model)
	p.Enabled = getEnvBool(prefix+"_ENABLED", p.Enabled)
	p.RequestsPerMinute = getEnvInt(prefix+"_REQUESTS_PER_MINUTE", p.RequestsPerMinute)
	p.TokensPerMinute = getEnvInt(prefix+"_TOKENS_PER_MINUTE", p.TokensPerMinute)
	p.Timeout = getEnvDuration(prefix+"_TIMEOUT", p.Timeout)
}

// String utility functions (avoiding external dependencies).

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func indexOf(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
