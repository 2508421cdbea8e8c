//go:build !integration && !e2e
// +build !integration,!e2e

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

func TestNewRegistry_SkipsDisabledAndKeyless(t *testing.T) {
	cfg := config.ProvidersConfig{
		OpenAI:      config.ProviderConfig{Enabled: true, APIKey: "sk-1", Model: "gpt-4o", Timeout: time.Second},
		Anthropic:   config.ProviderConfig{Enabled: false, APIKey: "ant-1", Model: "claude-sonnet-4", Timeout: time.Second},
		AzureOpenAI: config.ProviderConfig{Enabled: true, APIKey: "", Model: "gpt-4o", Timeout: time.Second},
	}

	r := NewRegistry(cfg, zap.NewNop())

	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(models.ProviderOpenAI)
	assert.True(t, ok)
	_, ok = r.Get(models.ProviderAnthropic)
	assert.False(t, ok, "disabled provider must not register")
	_, ok = r.Get(models.ProviderAzureOpenAI)
	assert.False(t, ok, "provider without credentials must not register")
}

func TestRegistry_IdentitiesStableOrder(t *testing.T) {
	cfg := config.ProvidersConfig{
		OpenAI:      config.ProviderConfig{Enabled: true, APIKey: "a", Model: "gpt-4o", Timeout: time.Second},
		Anthropic:   config.ProviderConfig{Enabled: true, APIKey: "b", Model: "claude-sonnet-4", Timeout: time.Second},
		AzureOpenAI: config.ProviderConfig{Enabled: true, APIKey: "c", Model: "gpt-4o", Timeout: time.Second},
	}

	r := NewRegistry(cfg, zap.NewNop())

	require.Equal(t, 3, r.Len())
	assert.Equal(t, []models.ProviderIdentity{
		models.ProviderOpenAI,
		models.ProviderAnthropic,
		models.ProviderAzureOpenAI,
	}, r.Identities())
}
