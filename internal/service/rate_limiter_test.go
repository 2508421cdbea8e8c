//go:build !integration && !e2e
// +build !integration,!e2e

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/user/protoscribe-go/internal/models"
)

func TestProviderRateLimiter_RequestBudget(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderOpenAI: {RequestsPerMinute: 2},
	})

	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 100))
	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 100))
	assert.False(t, limiter.CheckAndReserve(models.ProviderOpenAI, 100), "third request in the minute should be rejected")
}

func TestProviderRateLimiter_TokenBudget(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderAnthropic: {TokensPerMinute: 1000},
	})

	assert.True(t, limiter.CheckAndReserve(models.ProviderAnthropic, 600))
	assert.False(t, limiter.CheckAndReserve(models.ProviderAnthropic, 600), "would exceed token budget")
	assert.True(t, limiter.CheckAndReserve(models.ProviderAnthropic, 400), "fits remaining budget")
}

func TestProviderRateLimiter_RejectionDoesNotConsume(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderOpenAI: {TokensPerMinute: 1000},
	})

	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 900))
	assert.False(t, limiter.CheckAndReserve(models.ProviderOpenAI, 200))

	_, tokens := limiter.Usage(models.ProviderOpenAI)
	assert.Equal(t, 900, tokens, "rejected reservation must not count against the budget")
}

func TestProviderRateLimiter_ZeroLimitUnlimited(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderOpenAI: {},
	})

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10000))
	}
}

func TestProviderRateLimiter_UnknownProviderAllowed(t *testing.T) {
	limiter := NewProviderRateLimiter(nil)
	assert.True(t, limiter.CheckAndReserve(models.ProviderAnthropic, 50))
}

func TestProviderRateLimiter_WindowRollover(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderOpenAI: {RequestsPerMinute: 1},
	})

	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10))
	assert.False(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10))

	// Next minute window: budget resets.
	limiter.now = func() time.Time { return base.Add(time.Minute) }
	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10))

	requests, _ := limiter.Usage(models.ProviderOpenAI)
	assert.Equal(t, 1, requests, "usage reports only the current window")
}

func TestProviderRateLimiter_IndependentProviders(t *testing.T) {
	limiter := NewProviderRateLimiter(map[models.ProviderIdentity]ProviderBudget{
		models.ProviderOpenAI:    {RequestsPerMinute: 1},
		models.ProviderAnthropic: {RequestsPerMinute: 1},
	})

	assert.True(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10))
	assert.False(t, limiter.CheckAndReserve(models.ProviderOpenAI, 10))
	assert.True(t, limiter.CheckAndReserve(models.ProviderAnthropic, 10), "providers have independent budgets")
}
