//go:build !integration && !e2e
// +build !integration,!e2e

package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"github.com/user/protoscribe-go/internal/service"
	"github.com/user/protoscribe-go/tests/testutil"
)

func newTestHealthRegistry(adapters ...provider.Adapter) *service.HealthRegistry {
	registry := provider.NewRegistryFromAdapters(adapters...)
	return service.NewHealthRegistry(registry, 0, testutil.NewTestLogger())
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	health := newTestHealthRegistry(
		&stubAdapter{id: models.ProviderOpenAI, model: "gpt-4o"},
		&stubAdapter{id: models.ProviderAnthropic, model: "claude-sonnet-4"},
	)

	h := NewHealthHandler(health)
	c, w := testutil.NewTestContextWithRequest("GET", "/api/health", nil)
	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string                                               `json:"status"`
		Version   string                                               `json:"version"`
		Available int                                                  `json:"available"`
		Providers map[models.ProviderIdentity]models.ProviderHealthRecord `json:"providers"`
	}
	testutil.FromJSON(t, w.Body.Bytes(), &resp)

	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)
	assert.Equal(t, 2, resp.Available)
	assert.Len(t, resp.Providers, 2)
}

func TestHealthHandler_Degraded(t *testing.T) {
	health := newTestHealthRegistry(
		&stubAdapter{id: models.ProviderOpenAI, model: "gpt-4o"},
		&stubAdapter{id: models.ProviderAnthropic, model: "claude-sonnet-4"},
	)
	health.SetAvailable(models.ProviderAnthropic, false)
	health.RecordFailure(models.ProviderAnthropic, errors.New("upstream down"))

	h := NewHealthHandler(health)
	c, w := testutil.NewTestContextWithRequest("GET", "/api/health", nil)
	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string `json:"status"`
		Available int    `json:"available"`
	}
	testutil.FromJSON(t, w.Body.Bytes(), &resp)

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 1, resp.Available)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	health := newTestHealthRegistry(&stubAdapter{id: models.ProviderOpenAI, model: "gpt-4o"})
	health.SetAvailable(models.ProviderOpenAI, false)

	h := NewHealthHandler(health)
	c, w := testutil.NewTestContextWithRequest("GET", "/api/health", nil)
	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}
