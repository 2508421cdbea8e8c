package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/service"
)

func testRotationConfig() config.LogRotationConfig {
	return config.LogRotationConfig{
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Compress:   false,
	}
}

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := newLogger("INFO", tmpDir, testRotationConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test message")
	_ = logger.Sync()

	// Verify log file was created.
	logFile := filepath.Join(tmpDir, "protoscribe.log")
	_, err = os.Stat(logFile)
	require.NoError(t, err)
}

func TestNewLoggerLevels(t *testing.T) {
	tmpDir := t.TempDir()
	rotation := testRotationConfig()

	levels := []string{"DEBUG", "INFO", "WARN", "ERROR", "invalid"}
	for _, level := range levels {
		logger, err := newLogger(level, tmpDir, rotation)
		require.NoError(t, err)
		require.NotNil(t, logger)
	}
}

func TestNewLoggerCreatesDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := newLogger("INFO", tmpDir, testRotationConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	// Verify nested directory was created.
	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestGetLogDir(t *testing.T) {
	t.Setenv("PROTOSCRIBE_LOGS_DIR", "/var/log/protoscribe")
	assert.Equal(t, "/var/log/protoscribe", getLogDir())

	t.Setenv("PROTOSCRIBE_LOGS_DIR", "")
	assert.Equal(t, "logs", getLogDir())
}

func TestProviderBudgets(t *testing.T) {
	pc := config.ProvidersConfig{
		OpenAI:      config.ProviderConfig{Enabled: true, RequestsPerMinute: 60, TokensPerMinute: 150000},
		Anthropic:   config.ProviderConfig{Enabled: false, RequestsPerMinute: 60, TokensPerMinute: 120000},
		AzureOpenAI: config.ProviderConfig{Enabled: true, RequestsPerMinute: 30, TokensPerMinute: 50000},
	}

	budgets := providerBudgets(pc)

	require.Len(t, budgets, 2)
	assert.Equal(t, service.ProviderBudget{RequestsPerMinute: 60, TokensPerMinute: 150000}, budgets[models.ProviderOpenAI])
	assert.Equal(t, service.ProviderBudget{RequestsPerMinute: 30, TokensPerMinute: 50000}, budgets[models.ProviderAzureOpenAI])
	assert.NotContains(t, budgets, models.ProviderAnthropic, "disabled providers carry no budget")
}

func TestRunInit(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, runInit())

	data, err := os.ReadFile(".env.example")
	require.NoError(t, err)
	assert.Contains(t, string(data), "OPENAI_API_KEY")
	assert.Contains(t, string(data), "PROTOSCRIBE_PORT")

	// The template is safe to regenerate over an existing copy.
	require.NoError(t, runInit())
	again, err := os.ReadFile(".env.example")
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
