package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

// openAIPricing maps model name fragments to price table entries,
// USD per million tokens.
var openAIPricing = []struct {
	fragment string
	pricing  Pricing
}{
	{"gpt-4o-mini", Pricing{InputPerMTok: 0.15, OutputPerMTok: 0.60}},
	{"gpt-4o", Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}},
	{"gpt-4-turbo", Pricing{InputPerMTok: 10.00, OutputPerMTok: 30.00}},
	{"gpt-4", Pricing{InputPerMTok: 30.00, OutputPerMTok: 60.00}},
	{"gpt-3.5", Pricing{InputPerMTok: 0.50, OutputPerMTok: 1.50}},
}

var openAIDefaultPricing = Pricing{InputPerMTok: 2.50, OutputPerMTok: 10.00}

// OpenAIAdapter talks to the OpenAI chat completions API.
type OpenAIAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIAdapter creates an adapter for the OpenAI API.
func NewOpenAIAdapter(cfg config.ProviderConfig, logger *zap.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Identity returns the provider identity.
func (a *OpenAIAdapter) Identity() models.ProviderIdentity { return models.ProviderOpenAI }

// Model returns the configured model name.
func (a *OpenAIAdapter) Model() string { return a.cfg.Model }

// Pricing returns the price table entry for the configured model.
func (a *OpenAIAdapter) Pricing() Pricing {
	for _, entry := range openAIPricing {
		if strings.Contains(a.cfg.Model, entry.fragment) {
			return entry.pricing
		}
	}
	return openAIDefaultPricing
}

// chatRequest is the OpenAI-compatible chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI-compatible chat completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Analyze executes one analysis call against the OpenAI API.
func (a *OpenAIAdapter) Analyze(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, models.TokenUsage, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", strings.TrimSuffix(a.cfg.BaseURL, "/"))
	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
	return openAIStyleAnalyze(ctx, a.client, a.Identity(), url, headers, chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, a.cfg.MaxRetries, a.cfg.RetryDelay)
}

// CheckAvailability probes the models endpoint.
func (a *OpenAIAdapter) CheckAvailability(ctx context.Context) bool {
	url := fmt.Sprintf("%s/v1/models", strings.TrimSuffix(a.cfg.BaseURL, "/"))
	return probeEndpoint(ctx, a.client, url, map[string]string{"Authorization": "Bearer " + a.cfg.APIKey})
}

// openAIStyleAnalyze executes an OpenAI-compatible chat completions call.
// Azure shares the wire format, so both adapters route through here.
func openAIStyleAnalyze(
	ctx context.Context,
	client *http.Client,
	id models.ProviderIdentity,
	url string,
	headers map[string]string,
	body chatRequest,
	maxRetries int,
	retryDelay time.Duration,
) (string, models.TokenUsage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", models.TokenUsage{}, providerErr(id, "marshal request", 0, nil, err)
	}

	var raw string
	var usage models.TokenUsage
	err = doWithRetry(ctx, maxRetries, retryDelay, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return providerErr(id, "create request", 0, nil, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
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

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return providerErr(id, "decode response envelope", resp.StatusCode, respBody, err)
		}
		if len(parsed.Choices) == 0 {
			return providerErr(id, "empty response", resp.StatusCode, respBody, nil)
		}

		raw = strings.TrimSpace(parsed.Choices[0].Message.Content)
		usage = models.TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
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

// probeEndpoint performs a lightweight GET liveness probe. Never errors.
func probeEndpoint(ctx context.Context, client *http.Client, url string, headers map[string]string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	drainBody(resp)
	return resp.StatusCode < 500 && resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden
}
