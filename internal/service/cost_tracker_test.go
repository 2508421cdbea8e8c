//go:build !integration && !e2e
// +build !integration,!e2e

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"go.uber.org/zap"
)

func TestCostTracker_RecordUsage(t *testing.T) {
	tracker := NewCostTracker(nil, zap.NewNop())

	pricing := provider.Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}
	rec, err := tracker.RecordUsage(models.ProviderAnthropic, "claude-sonnet-4-20250514", pricing, 1000, 500, models.AnalysisComprehensive)
	require.NoError(t, err)

	// 1000 input at $3/MTok + 500 output at $15/MTok
	assert.InDelta(t, 0.003+0.0075, rec.Cost, 1e-9)
	assert.Equal(t, models.ProviderAnthropic, rec.Provider)
	assert.Equal(t, 1000, rec.InputTokens)
	assert.Equal(t, 500, rec.OutputTokens)
	assert.Equal(t, models.AnalysisComprehensive, rec.AnalysisType)
	assert.Len(t, tracker.Records(), 1)
}

func TestCostTracker_RejectsNegativeTokens(t *testing.T) {
	tracker := NewCostTracker(nil, zap.NewNop())

	_, err := tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", provider.Pricing{}, -1, 100, models.AnalysisClarity)
	assert.Error(t, err)
	_, err = tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", provider.Pricing{}, 100, -1, models.AnalysisClarity)
	assert.Error(t, err)
	assert.Empty(t, tracker.Records())
}

func TestCostTracker_Sink(t *testing.T) {
	var sunk []models.UsageRecord
	tracker := NewCostTracker(func(rec models.UsageRecord) {
		sunk = append(sunk, rec)
	}, zap.NewNop())

	pricing := provider.Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}
	_, err := tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", pricing, 200, 100, models.AnalysisClarity)
	require.NoError(t, err)

	require.Len(t, sunk, 1)
	assert.Equal(t, "gpt-4o", sunk[0].Model)
}

func TestCostTracker_Summary(t *testing.T) {
	tracker := NewCostTracker(nil, zap.NewNop())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	openai := provider.Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}
	anthropic := provider.Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}

	_, err := tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", openai, 1000, 1000, models.AnalysisComprehensive)
	require.NoError(t, err)
	_, err = tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", openai, 2000, 500, models.AnalysisClarity)
	require.NoError(t, err)
	_, err = tracker.RecordUsage(models.ProviderAnthropic, "claude-sonnet-4-20250514", anthropic, 1000, 200, models.AnalysisComprehensive)
	require.NoError(t, err)

	summary := tracker.Summary(30)
	assert.Equal(t, 3, summary.Requests)
	assert.Equal(t, 1000+1000+2000+500+1000+200, summary.TotalTokens)

	wantOpenAI := openai.Cost(1000, 1000) + openai.Cost(2000, 500)
	wantAnthropic := anthropic.Cost(1000, 200)
	assert.InDelta(t, wantOpenAI+wantAnthropic, summary.TotalCost, 1e-9)
	assert.InDelta(t, summary.TotalCost/3, summary.AvgCostPerCall, 1e-9)

	require.Contains(t, summary.ByProvider, models.ProviderOpenAI)
	assert.Equal(t, 2, summary.ByProvider[models.ProviderOpenAI].Requests)
	assert.InDelta(t, wantOpenAI, summary.ByProvider[models.ProviderOpenAI].TotalCost, 1e-9)
}

func TestCostTracker_SummaryWindow(t *testing.T) {
	tracker := NewCostTracker(nil, zap.NewNop())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	// One record 40 days back, one inside the window.
	tracker.now = func() time.Time { return now.AddDate(0, 0, -40) }
	_, err := tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", provider.Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}, 100, 100, models.AnalysisClarity)
	require.NoError(t, err)

	tracker.now = func() time.Time { return now }
	_, err = tracker.RecordUsage(models.ProviderOpenAI, "gpt-4o", provider.Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}, 100, 100, models.AnalysisClarity)
	require.NoError(t, err)

	summary := tracker.Summary(30)
	assert.Equal(t, 1, summary.Requests, "records older than the window are ignored")
}
