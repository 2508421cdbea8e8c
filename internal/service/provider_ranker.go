package service

import (
	"sort"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
)

// Default ranking weights. Callers may override any subset per request.
const (
	weightAvailability = 0.30
	weightPerformance  = 0.25
	weightSpeed        = 0.20
	weightCost         = 0.15
	weightCapability   = 0.10
)

// capabilityScores rates how well each provider handles each analysis type,
// in [0,1]. Comprehensive reviews favor the larger-context vendors.
var capabilityScores = map[models.ProviderIdentity]map[models.AnalysisType]float64{
	models.ProviderOpenAI: {
		models.AnalysisComprehensive: 0.9,
		models.AnalysisClarity:       0.9,
		models.AnalysisConsistency:   0.85,
	},
	models.ProviderAnthropic: {
		models.AnalysisComprehensive: 0.95,
		models.AnalysisClarity:       0.85,
		models.AnalysisConsistency:   0.9,
	},
	models.ProviderAzureOpenAI: {
		models.AnalysisComprehensive: 0.9,
		models.AnalysisClarity:       0.9,
		models.AnalysisConsistency:   0.85,
	},
}

// ProviderRanker orders candidate providers by a weighted score over
// availability, historical success rate, speed, estimated cost and
// capability for the analysis type.
type ProviderRanker struct {
	health   *HealthRegistry
	registry *provider.Registry
}

// NewProviderRanker creates a ProviderRanker.
func NewProviderRanker(health *HealthRegistry, registry *provider.Registry) *ProviderRanker {
	return &ProviderRanker{health: health, registry: registry}
}

// rankedProvider pairs a candidate with its computed score.
type rankedProvider struct {
	id    models.ProviderIdentity
	score float64
	order int // position in the stable enumeration, for tie-breaks
}

// Rank orders candidates best-first. weights overrides the default weights
// for any of the keys availability, performance, speed, cost, capability.
func (r *ProviderRanker) Rank(candidates []models.ProviderIdentity, analysisType models.AnalysisType, weights map[string]float64) []models.ProviderIdentity {
	if len(candidates) <= 1 {
		return candidates
	}

	wAvail := weightOr(weights, "availability", weightAvailability)
	wPerf := weightOr(weights, "performance", weightPerformance)
	wSpeed := weightOr(weights, "speed", weightSpeed)
	wCost := weightOr(weights, "cost", weightCost)
	wCap := weightOr(weights, "capability", weightCapability)

	// Relative normalization for latency and cost across the candidate set.
	minLatency, minCost := r.minima(candidates)

	ranked := make([]rankedProvider, 0, len(candidates))
	for _, id := range candidates {
		health := r.health.Snapshot(id)

		avail := 0.0
		if health.Available {
			avail = 1.0
		}

		speed := 1.0
		if health.AvgLatency > 0 && minLatency > 0 {
			speed = float64(minLatency) / float64(health.AvgLatency)
		}

		cost := 1.0
		if c := r.estimatedCost(id); c > 0 && minCost > 0 {
			cost = minCost / c
		}

		capability := 0.5
		if caps, ok := capabilityScores[id]; ok {
			if c, ok := caps[analysisType]; ok {
				capability = c
			}
		}

		ranked = append(ranked, rankedProvider{
			id:    id,
			score: wAvail*avail + wPerf*health.SuccessRate + wSpeed*speed + wCost*cost + wCap*capability,
			order: enumOrder(id),
		})
	}

	// Stable tie-break by provider identity enumeration order.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	out := make([]models.ProviderIdentity, len(ranked))
	for i, rp := range ranked {
		out[i] = rp.id
	}
	return out
}

// minima finds the smallest observed latency and estimated cost among
// candidates, for relative normalization.
func (r *ProviderRanker) minima(candidates []models.ProviderIdentity) (time.Duration, float64) {
	var minLatency time.Duration
	var minCost float64
	for _, id := range candidates {
		if lat := r.health.Snapshot(id).AvgLatency; lat > 0 && (minLatency == 0 || lat < minLatency) {
			minLatency = lat
		}
		if c := r.estimatedCost(id); c > 0 && (minCost == 0 || c < minCost) {
			minCost = c
		}
	}
	return minLatency, minCost
}

// estimatedCost is a comparable per-call cost figure: the blended price of
// one thousand input and one thousand output tokens.
func (r *ProviderRanker) estimatedCost(id models.ProviderIdentity) float64 {
	adapter, ok := r.registry.Get(id)
	if !ok {
		return 0
	}
	return adapter.Pricing().Cost(1000, 1000)
}

func weightOr(weights map[string]float64, key string, fallback float64) float64 {
	if weights == nil {
		return fallback
	}
	if w, ok := weights[key]; ok {
		return w
	}
	return fallback
}

// enumOrder returns the position of id in the stable provider enumeration.
func enumOrder(id models.ProviderIdentity) int {
	for i, p := range models.AllProviders {
		if p == id {
			return i
		}
	}
	return len(models.AllProviders)
}
