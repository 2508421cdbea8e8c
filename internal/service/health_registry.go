package service

import (
	"context"
	"sync"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"go.uber.org/zap"
)

// healthWindow bounds the rolling window of attempt outcomes per provider.
const healthWindow = 20

// attemptOutcome is one call attempt's contribution to rolling health stats.
type attemptOutcome struct {
	success bool
	latency time.Duration
}

// providerHealth tracks one provider's availability and rolling stats.
// Created on first use, updated after every call attempt, never destroyed.
type providerHealth struct {
	available bool
	outcomes  []attemptOutcome
	lastCheck time.Time
	lastError string
}

// HealthRegistry holds per-provider health records. It is injected into the
// analyzer at construction, and optionally runs a background probe loop that
// refreshes availability via each adapter's liveness check.
type HealthRegistry struct {
	mu      sync.RWMutex
	records map[models.ProviderIdentity]*providerHealth

	registry *provider.Registry
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthRegistry creates a HealthRegistry over the given adapters.
func NewHealthRegistry(registry *provider.Registry, interval time.Duration, logger *zap.Logger) *HealthRegistry {
	hr := &HealthRegistry{
		records:  make(map[models.ProviderIdentity]*providerHealth),
		registry: registry,
		interval: interval,
		logger:   logger,
	}
	// Providers start available; the first failed attempt or probe flips them.
	for _, id := range registry.Identities() {
		hr.records[id] = &providerHealth{available: true}
	}
	return hr
}

// Start begins periodic availability probing. No-op when interval is zero.
func (hr *HealthRegistry) Start() {
	if hr.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	hr.cancel = cancel
	hr.done = make(chan struct{})
	go hr.loop(ctx)
}

// Stop halts the probe loop.
func (hr *HealthRegistry) Stop() {
	if hr.cancel != nil {
		hr.cancel()
		<-hr.done
	}
}

func (hr *HealthRegistry) loop(ctx context.Context) {
	defer close(hr.done)

	ticker := time.NewTicker(hr.interval)
	defer ticker.Stop()

	hr.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hr.CheckNow(ctx)
		}
	}
}

// CheckNow probes every configured provider once and updates availability.
func (hr *HealthRegistry) CheckNow(ctx context.Context) {
	for _, id := range hr.registry.Identities() {
		adapter, ok := hr.registry.Get(id)
		if !ok {
			continue
		}
		available := adapter.CheckAvailability(ctx)
		hr.SetAvailable(id, available)
		if !available {
			hr.logger.Warn("provider probe failed", zap.String("provider", string(id)))
		}
	}
}

// IsAvailable reports last-known availability. Unknown providers are treated
// as available so a fresh deployment does not lock everything out.
func (hr *HealthRegistry) IsAvailable(id models.ProviderIdentity) bool {
	hr.mu.RLock()
	defer hr.mu.RUnlock()
	rec, ok := hr.records[id]
	if !ok {
		return true
	}
	return rec.available
}

// SetAvailable updates a provider's availability flag.
func (hr *HealthRegistry) SetAvailable(id models.ProviderIdentity, available bool) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	rec := hr.recordLocked(id)
	rec.available = available
	rec.lastCheck = time.Now()
}

// RecordSuccess records a successful call attempt with its latency.
func (hr *HealthRegistry) RecordSuccess(id models.ProviderIdentity, latency time.Duration) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	rec := hr.recordLocked(id)
	rec.available = true
	rec.lastError = ""
	rec.lastCheck = time.Now()
	rec.push(attemptOutcome{success: true, latency: latency})
}

// RecordFailure records a failed call attempt.
func (hr *HealthRegistry) RecordFailure(id models.ProviderIdentity, err error) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	rec := hr.recordLocked(id)
	if err != nil {
		rec.lastError = err.Error()
	}
	rec.lastCheck = time.Now()
	rec.push(attemptOutcome{success: false})
}

// Snapshot returns the current health record for one provider.
func (hr *HealthRegistry) Snapshot(id models.ProviderIdentity) models.ProviderHealthRecord {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	rec, ok := hr.records[id]
	if !ok {
		return models.ProviderHealthRecord{Available: true, SuccessRate: 1}
	}
	return rec.snapshot()
}

// SnapshotAll returns health records for every tracked provider.
func (hr *HealthRegistry) SnapshotAll() map[models.ProviderIdentity]models.ProviderHealthRecord {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	out := make(map[models.ProviderIdentity]models.ProviderHealthRecord, len(hr.records))
	for id, rec := range hr.records {
		out[id] = rec.snapshot()
	}
	return out
}

// recordLocked returns the record for id, creating it on first use.
// Must be called with the lock held.
func (hr *HealthRegistry) recordLocked(id models.ProviderIdentity) *providerHealth {
	rec, ok := hr.records[id]
	if !ok {
		rec = &providerHealth{available: true}
		hr.records[id] = rec
	}
	return rec
}

// push appends an outcome, keeping the window bounded.
func (h *providerHealth) push(o attemptOutcome) {
	h.outcomes = append(h.outcomes, o)
	if len(h.outcomes) > healthWindow {
		h.outcomes = h.outcomes[len(h.outcomes)-healthWindow:]
	}
}

// snapshot computes the rolling stats. With no recorded attempts the success
// rate reads as 1 so new providers are not penalized.
func (h *providerHealth) snapshot() models.ProviderHealthRecord {
	rec := models.ProviderHealthRecord{
		Available:   h.available,
		SuccessRate: 1,
		LastCheck:   h.lastCheck,
		LastError:   h.lastError,
	}
	if len(h.outcomes) == 0 {
		return rec
	}

	successes := 0
	var totalLatency time.Duration
	for _, o := range h.outcomes {
		if o.success {
			successes++
			totalLatency += o.latency
		}
	}
	rec.SuccessRate = float64(successes) / float64(len(h.outcomes))
	if successes > 0 {
		rec.AvgLatency = totalLatency / time.Duration(successes)
	}
	return rec
}
