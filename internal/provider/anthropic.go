package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sethvargo/go-retry"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

const anthropicAPIVersion = "2023-06-01"

// anthropicPricing maps model name fragments to price table entries,
// USD per million tokens.
var anthropicPricing = []struct {
	fragment string
	pricing  Pricing
}{
	{"opus", Pricing{InputPerMTok: 15.00, OutputPerMTok: 75.00}},
	{"sonnet", Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}},
	{"haiku", Pricing{InputPerMTok: 0.80, OutputPerMTok: 4.00}},
}

var anthropicDefaultPricing = Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}

// AnthropicAdapter talks to the Anthropic messages API.
type AnthropicAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewAnthropicAdapter creates an adapter for the Anthropic API.
func NewAnthropicAdapter(cfg config.ProviderConfig, logger *zap.Logger) *AnthropicAdapter {
	return &AnthropicAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Identity returns the provider identity.
func (a *AnthropicAdapter) Identity() models.ProviderIdentity { return models.ProviderAnthropic }

// Model returns the configured model name.
func (a *AnthropicAdapter) Model() string { return a.cfg.Model }

// Pricing returns the price table entry for the configured model.
func (a *AnthropicAdapter) Pricing() Pricing {
	for _, entry := range anthropicPricing {
		if strings.Contains(a.cfg.Model, entry.fragment) {
			return entry.pricing
		}
	}
	return anthropicDefaultPricing
}

// messagesRequest is the Anthropic messages API request body.
type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// messagesResponse is the Anthropic messages API response body.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Analyze executes one analysis call against the Anthropic API.
func (a *AnthropicAdapter) Analyze(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, models.TokenUsage, error) {
	id := a.Identity()
	url := fmt.Sprintf("%s/v1/messages", strings.TrimSuffix(a.cfg.BaseURL, "/"))

	payload, err := json.Marshal(messagesRequest{
		Model:       a.cfg.Model,
		System:      systemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", models.TokenUsage{}, providerErr(id, "marshal request", 0, nil, err)
	}

	var raw string
	var usage models.TokenUsage
	err = doWithRetry(ctx, a.cfg.MaxRetries, a.cfg.RetryDelay, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return providerErr(id, "create request", 0, nil, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", a.cfg.APIKey)
		req.Header.Set("anthropic-version", anthropicAPIVersion)

		resp, err := a.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return providerErr(id, "request cancelled", 0, nil, ctx.Err())
			}
			return retry.RetryableError(providerErr(id, "request failed", 0, nil, err))
		}

		respBody := drainBody(resp)
		if resp.StatusCode != http.StatusOK {
			perr := providerErr(id, "API returned error", resp.StatusCode, respBody, nil)
			if statusRetryable(resp.StatusCode) {
				return retry.RetryableError(perr)
			}
			return perr
		}

		var parsed messagesResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return providerErr(id, "decode response envelope", resp.StatusCode, respBody, err)
		}

		var texts []string
		for _, block := range parsed.Content {
			if block.Type == "text" && block.Text != "" {
				texts = append(texts, block.Text)
			}
		}
		if len(texts) == 0 {
			return providerErr(id, "empty response", resp.StatusCode, respBody, nil)
		}

		raw = strings.TrimSpace(strings.Join(texts, "\n"))
		usage = models.TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		}
		return nil
	})
	if err != nil {
		var perr *models.ProviderError
		if errors.As(err, &perr) {
			return "", models.TokenUsage{}, perr
		}
		return "", models.TokenUsage{}, providerErr(id, "request failed", 0, nil, err)
	}

	return raw, usage, nil
}

// CheckAvailability probes the models endpoint.
func (a *AnthropicAdapter) CheckAvailability(ctx context.Context) bool {
	url := fmt.Sprintf("%s/v1/models", strings.TrimSuffix(a.cfg.BaseURL, "/"))
	return probeEndpoint(ctx, a.client, url, map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": anthropicAPIVersion,
	})
}
