// Package provider implements the LLM vendor adapters. Each adapter executes
// a single analysis call against one vendor's API and returns raw text output;
// all orchestration (fallback, caching, budgets) lives above this package.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

// Pricing is the static per-model price table entry, in USD per million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost computes the spend for the given token counts.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMTok/1e6 + float64(outputTokens)*p.OutputPerMTok/1e6
}

// Adapter is the uniform interface every vendor implements.
type Adapter interface {
	// Identity returns the vendor this adapter talks to.
	Identity() models.ProviderIdentity

	// Model returns the configured model name.
	Model() string

	// Analyze executes one analysis call and returns the raw text output.
	// Failures are reported as *models.ProviderError.
	Analyze(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, models.TokenUsage, error)

	// CheckAvailability is a lightweight liveness probe. It never returns an
	// error; any failure reads as unavailable.
	CheckAvailability(ctx context.Context) bool

	// Pricing returns the static per-model price table entry.
	Pricing() Pricing
}

// systemPrompt frames every analysis call, regardless of vendor.
const systemPrompt = "You are an expert clinical trial protocol reviewer with deep knowledge of CONSORT, SPIRIT and regulatory reporting requirements."

// Registry holds the configured adapters keyed by provider identity.
type Registry struct {
	adapters map[models.ProviderIdentity]Adapter
}

// NewRegistry builds a registry from configuration, instantiating one adapter
// per enabled vendor that has credentials.
func NewRegistry(cfg config.ProvidersConfig, logger *zap.Logger) *Registry {
	r := &Registry{adapters: make(map[models.ProviderIdentity]Adapter)}

	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey != "" {
		r.adapters[models.ProviderOpenAI] = NewOpenAIAdapter(cfg.OpenAI, logger)
	}
	if cfg.Anthropic.Enabled && cfg.Anthropic.APIKey != "" {
		r.adapters[models.ProviderAnthropic] = NewAnthropicAdapter(cfg.Anthropic, logger)
	}
	if cfg.AzureOpenAI.Enabled && cfg.AzureOpenAI.APIKey != "" {
		r.adapters[models.ProviderAzureOpenAI] = NewAzureOpenAIAdapter(cfg.AzureOpenAI, logger)
	}

	return r
}

// NewRegistryFromAdapters builds a registry from explicit adapters.
func NewRegistryFromAdapters(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.ProviderIdentity]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Identity()] = a
	}
	return r
}

// Get returns the adapter for the given identity.
func (r *Registry) Get(id models.ProviderIdentity) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Identities returns the configured provider identities in stable
// enumeration order.
func (r *Registry) Identities() []models.ProviderIdentity {
	ids := make([]models.ProviderIdentity, 0, len(r.adapters))
	for _, id := range models.AllProviders {
		if _, ok := r.adapters[id]; ok {
			ids = append(ids, id)
		}
	}
	// Adapters outside the known enumeration (tests) sort after, by name.
	var extra []models.ProviderIdentity
	for id := range r.adapters {
		known := false
		for _, k := range models.AllProviders {
			if id == k {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(ids, extra...)
}

// Len returns the number of configured adapters.
func (r *Registry) Len() int { return len(r.adapters) }

// EstimateTokens gives a rough token estimate for budget reservations.
// English text averages about 4 characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// doWithRetry executes call with constant-backoff retries. The call wraps
// transient failures (429s, 5xx, transport errors) in retry.RetryableError.
func doWithRetry(ctx context.Context, maxRetries int, delay time.Duration, call func(ctx context.Context) error) error {
	return retry.Do(ctx, retry.WithMaxRetries(uint64(maxRetries), retry.NewConstant(delay)), call)
}

// drainBody reads and closes an HTTP response body, capped to keep error
// payloads bounded.
func drainBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	return body
}

// statusRetryable reports whether an HTTP status is worth retrying.
func statusRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// providerErr builds a *models.ProviderError with a bounded detail string.
func providerErr(id models.ProviderIdentity, msg string, status int, body []byte, err error) *models.ProviderError {
	details := ""
	if status > 0 {
		details = fmt.Sprintf("status %d", status)
	}
	if len(body) > 0 {
		preview := string(body)
		if len(preview) > 300 {
			preview = preview[:300] + "..."
		}
		details += ": " + preview
	}
	return &models.ProviderError{Provider: id, Message: msg, Details: details, Err: err}
}
