package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"go.uber.org/zap"
)

// ProviderCostSummary is the per-provider slice of a cost report.
type ProviderCostSummary struct {
	TotalCost    float64 `json:"total_cost"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Requests     int     `json:"requests"`
}

// CostSummary aggregates spend over a trailing window.
type CostSummary struct {
	WindowDays     int                                          `json:"window_days"`
	TotalCost      float64                                      `json:"total_cost"`
	TotalTokens    int                                          `json:"total_tokens"`
	Requests       int                                          `json:"requests"`
	AvgCostPerCall float64                                      `json:"avg_cost_per_request"`
	ByProvider     map[models.ProviderIdentity]*ProviderCostSummary `json:"by_provider"`
}

// UsageSink receives a copy of every recorded usage record, e.g. to mirror
// the ledger into persistent storage. Called outside the tracker's lock.
type UsageSink func(models.UsageRecord)

// CostTracker attributes real spend to provider/model/analysis-type
// combinations. The ledger is append-only and process-scoped; it is injected
// into the analyzer rather than held as a package singleton so tests get
// fresh state.
type CostTracker struct {
	mu      sync.Mutex
	records []models.UsageRecord
	sink    UsageSink
	logger  *zap.Logger
	now     func() time.Time
}

// NewCostTracker creates a CostTracker. sink may be nil.
func NewCostTracker(sink UsageSink, logger *zap.Logger) *CostTracker {
	return &CostTracker{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// RecordUsage appends a usage record, computing cost from the price table
// entry. Negative token counts are rejected.
func (t *CostTracker) RecordUsage(
	providerID models.ProviderIdentity,
	model string,
	pricing provider.Pricing,
	inputTokens, outputTokens int,
	analysisType models.AnalysisType,
) (models.UsageRecord, error) {
	if inputTokens < 0 || outputTokens < 0 {
		return models.UsageRecord{}, fmt.Errorf("negative token count: input=%d output=%d", inputTokens, outputTokens)
	}

	record := models.UsageRecord{
		Provider:     providerID,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         pricing.Cost(inputTokens, outputTokens),
		AnalysisType: analysisType,
		Timestamp:    t.now().UTC(),
	}

	t.mu.Lock()
	t.records = append(t.records, record)
	t.mu.Unlock()

	t.logger.Debug("usage recorded",
		zap.String("provider", string(providerID)),
		zap.String("model", model),
		zap.Int("input_tokens", inputTokens),
		zap.Int("output_tokens", outputTokens),
		zap.Float64("cost", record.Cost))

	if t.sink != nil {
		t.sink(record)
	}
	return record, nil
}

// Summary aggregates cost over the trailing window of windowDays days.
func (t *CostTracker) Summary(windowDays int) *CostSummary {
	cutoff := t.now().UTC().AddDate(0, 0, -windowDays)

	summary := &CostSummary{
		WindowDays: windowDays,
		ByProvider: make(map[models.ProviderIdentity]*ProviderCostSummary),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		summary.TotalCost += r.Cost
		summary.TotalTokens += r.InputTokens + r.OutputTokens
		summary.Requests++

		ps := summary.ByProvider[r.Provider]
		if ps == nil {
			ps = &ProviderCostSummary{}
			summary.ByProvider[r.Provider] = ps
		}
		ps.TotalCost += r.Cost
		ps.InputTokens += r.InputTokens
		ps.OutputTokens += r.OutputTokens
		ps.Requests++
	}

	if summary.Requests > 0 {
		summary.AvgCostPerCall = summary.TotalCost / float64(summary.Requests)
	}
	return summary
}

// Records returns a copy of the ledger, oldest first.
func (t *CostTracker) Records() []models.UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.UsageRecord, len(t.records))
	copy(out, t.records)
	return out
}
