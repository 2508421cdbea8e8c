package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/protoscribe-go/internal/models"
	"github.com/user/protoscribe-go/internal/provider"
	"go.uber.org/zap"
)

// fallbackChains declares which providers may substitute for each primary.
// Azure serves the same models as OpenAI, so each is the other's first
// substitute.
var fallbackChains = map[models.ProviderIdentity][]models.ProviderIdentity{
	models.ProviderOpenAI:      {models.ProviderAzureOpenAI, models.ProviderAnthropic},
	models.ProviderAnthropic:   {models.ProviderOpenAI, models.ProviderAzureOpenAI},
	models.ProviderAzureOpenAI: {models.ProviderOpenAI, models.ProviderAnthropic},
}

// AnalyzerOptions configures the orchestration behavior.
type AnalyzerOptions struct {
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	MaxConcurrent  int

	// DefaultProvider is preferred when a request names no provider.
	DefaultProvider models.ProviderIdentity
}

// Analyzer is the fallback and provider-selection manager. It owns the
// request lifecycle: candidate ordering, the attempt/failure/fallback
// protocol, cache and budget checks, and health and cost bookkeeping.
type Analyzer struct {
	registry *provider.Registry
	prompts  *PromptBuilder
	parser   *ResponseParser
	cache    *AnalysisCache
	limiter  *ProviderRateLimiter
	costs    *CostTracker
	health   *HealthRegistry
	ranker   *ProviderRanker
	opts     AnalyzerOptions
	logger   *zap.Logger

	// Buffered-channel semaphore bounding in-flight provider calls.
	// Waiters are served in FIFO order.
	slots chan struct{}
}

// NewAnalyzer creates an Analyzer. All shared state (cache, limiter, cost
// ledger, health registry) is injected so tests can construct fresh state.
func NewAnalyzer(
	registry *provider.Registry,
	prompts *PromptBuilder,
	parser *ResponseParser,
	cache *AnalysisCache,
	limiter *ProviderRateLimiter,
	costs *CostTracker,
	health *HealthRegistry,
	ranker *ProviderRanker,
	opts AnalyzerOptions,
	logger *zap.Logger,
) *Analyzer {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Analyzer{
		registry: registry,
		prompts:  prompts,
		parser:   parser,
		cache:    cache,
		limiter:  limiter,
		costs:    costs,
		health:   health,
		ranker:   ranker,
		opts:     opts,
		logger:   logger,
		slots:    make(chan struct{}, opts.MaxConcurrent),
	}
}

// Analyze runs one protocol analysis, trying candidate providers in order
// until one produces a schema-valid result. Per-provider failures are
// absorbed; the caller sees either a complete result (possibly from a
// fallback provider, flagged in metadata) or one of the terminal errors.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if a.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.RequestTimeout)
		defer cancel()
	}

	candidates, primary := a.candidateOrder(req)
	if len(candidates) == 0 {
		return nil, &models.NoProvidersAvailableError{}
	}

	// Cache check precedes any provider call. The key includes the provider,
	// so each candidate's slot is checked in order. Metadata is restamped
	// against this request's preference; the cached copy is not shared.
	for _, id := range candidates {
		key := CacheKey(req.ProtocolText, req.Type, req.GuidelineIDs, id)
		if cached, ok := a.cache.Get(key); ok {
			cached.Metadata.RequestedProvider = primary
			cached.Metadata.FallbackUsed = cached.Metadata.Provider != primary
			return cached, nil
		}
	}

	// Bound in-flight provider calls; excess requests queue here in FIFO order.
	select {
	case a.slots <- struct{}{}:
		defer func() { <-a.slots }()
	case <-ctx.Done():
		return nil, a.terminalCtxErr(ctx)
	}

	var lastErr error

	for _, id := range candidates {
		if ctx.Err() != nil {
			return nil, a.terminalCtxErr(ctx)
		}

		result, err := a.attempt(ctx, req, id)
		if err == nil {
			result.Metadata.RequestedProvider = primary
			result.Metadata.FallbackUsed = result.Metadata.Provider != primary

			key := CacheKey(req.ProtocolText, req.Type, req.GuidelineIDs, id)
			a.cache.Put(key, result)
			return result, nil
		}

		if errors.Is(err, errRateLimited) {
			// Budget exhausted for this minute: skip without a health penalty.
			a.logger.Info("provider over budget, skipping",
				zap.String("provider", string(id)))
			continue
		}
		if ctx.Err() != nil {
			return nil, a.terminalCtxErr(ctx)
		}

		lastErr = err

		var verr *models.ValidationError
		if errors.As(err, &verr) {
			// Schema-violating output is a provider-quality issue, not
			// necessarily systemic; logged distinctly because repeated
			// occurrences point at prompt/schema drift.
			a.logger.Warn("provider output failed schema validation",
				zap.String("provider", string(id)),
				zap.String("field", verr.Field),
				zap.String("reason", verr.Reason))
			continue
		}

		a.health.RecordFailure(id, err)
		a.logger.Warn("provider attempt failed",
			zap.String("provider", string(id)),
			zap.Error(err))
	}

	return nil, &models.NoProvidersAvailableError{LastErr: lastErr}
}

// errRateLimited is the internal skip signal for budget-exhausted providers.
var errRateLimited = errors.New("provider rate limit reached")

// attempt runs the Prompt Build → Rate-check → Call → Parse sequence for one
// candidate. The sequence is strictly ordered within a request.
func (a *Analyzer) attempt(ctx context.Context, req models.AnalysisRequest, id models.ProviderIdentity) (*models.AnalysisResult, error) {
	adapter, ok := a.registry.Get(id)
	if !ok {
		return nil, &models.ProviderError{Provider: id, Message: "provider not configured"}
	}

	prompt, err := a.prompts.Build(req, id)
	if err != nil {
		return nil, fmt.Errorf("build prompt for %s: %w", id, err)
	}

	estimated := provider.EstimateTokens(prompt) + a.opts.MaxTokens
	if !a.limiter.CheckAndReserve(id, estimated) {
		return nil, errRateLimited
	}

	start := time.Now()
	raw, usage, err := adapter.Analyze(ctx, prompt, a.opts.MaxTokens, a.opts.Temperature)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	result, err := a.parser.Parse(raw, req.Type, req.GuidelineIDs, id, adapter.Model())
	if err != nil {
		return nil, err
	}

	a.health.RecordSuccess(id, latency)

	if _, err := a.costs.RecordUsage(id, adapter.Model(), adapter.Pricing(), usage.InputTokens, usage.OutputTokens, req.Type); err != nil {
		a.logger.Warn("failed to record usage", zap.Error(err))
	}

	return result, nil
}

// candidateOrder builds the ordered provider attempt list and the primary it
// should be measured against for fallback metadata: the explicitly requested
// provider with its static fallback chain, or the ranked set with the
// configured default promoted to the front. The primary is fixed BEFORE
// availability filtering, so a result served while the requested provider is
// down is still flagged as a fallback. Unconfigured or unavailable providers
// are filtered out of the attempt list.
func (a *Analyzer) candidateOrder(req models.AnalysisRequest) ([]models.ProviderIdentity, models.ProviderIdentity) {
	primary := req.Provider

	var order []models.ProviderIdentity
	if req.Provider != "" {
		order = append(order, req.Provider)
		order = append(order, fallbackChains[req.Provider]...)
	} else {
		order = a.ranker.Rank(a.registry.Identities(), req.Type, req.Weights)
		if def := a.opts.DefaultProvider; def != "" {
			order = promoteToFront(order, def)
		}
		if len(order) > 0 {
			primary = order[0]
		}
	}

	out := make([]models.ProviderIdentity, 0, len(order))
	for _, id := range order {
		if _, ok := a.registry.Get(id); !ok {
			continue
		}
		if !a.health.IsAvailable(id) {
			continue
		}
		out = append(out, id)
	}
	return out, primary
}

// promoteToFront moves id to the head of order, keeping the relative order
// of the remaining entries. No-op when id is not present.
func promoteToFront(order []models.ProviderIdentity, id models.ProviderIdentity) []models.ProviderIdentity {
	for i, v := range order {
		if v != id {
			continue
		}
		out := make([]models.ProviderIdentity, 0, len(order))
		out = append(out, id)
		out = append(out, order[:i]...)
		out = append(out, order[i+1:]...)
		return out
	}
	return order
}

// terminalCtxErr maps context termination to the public error taxonomy.
func (a *Analyzer) terminalCtxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.TimeoutError{Err: ctx.Err()}
	}
	return ctx.Err()
}

// validateRequest enforces the input contract.
func validateRequest(req models.AnalysisRequest) error {
	if req.ProtocolText == "" {
		return &models.ValidationError{Field: "protocol_text", Reason: "must not be empty"}
	}
	if !req.Type.Valid() {
		return &models.ValidationError{Field: "analysis_type", Reason: fmt.Sprintf("unknown analysis type %q", req.Type)}
	}
	if len(req.GuidelineIDs) == 0 {
		return &models.ValidationError{Field: "guideline_ids", Reason: "at least one guideline id is required"}
	}
	if req.Provider != "" {
		if _, ok := models.ParseProvider(string(req.Provider)); !ok {
			return &models.ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", req.Provider)}
		}
	}
	return nil
}
