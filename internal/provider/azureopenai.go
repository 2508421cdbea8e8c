package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/user/protoscribe-go/internal/config"
	"github.com/user/protoscribe-go/internal/models"
	"go.uber.org/zap"
)

// AzureOpenAIAdapter talks to an Azure OpenAI deployment. The wire format is
// OpenAI's chat completions; only the URL scheme and auth header differ.
type AzureOpenAIAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewAzureOpenAIAdapter creates an adapter for an Azure OpenAI deployment.
func NewAzureOpenAIAdapter(cfg config.ProviderConfig, logger *zap.Logger) *AzureOpenAIAdapter {
	return &AzureOpenAIAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Identity returns the provider identity.
func (a *AzureOpenAIAdapter) Identity() models.ProviderIdentity { return models.ProviderAzureOpenAI }

// Model returns the configured model name.
func (a *AzureOpenAIAdapter) Model() string { return a.cfg.Model }

// Pricing returns the price table entry for the configured model.
// Azure bills the same models at OpenAI list prices.
func (a *AzureOpenAIAdapter) Pricing() Pricing {
	for _, entry := range openAIPricing {
		if strings.Contains(a.cfg.Model, entry.fragment) {
			return entry.pricing
		}
	}
	return openAIDefaultPricing
}

// Analyze executes one analysis call against the Azure OpenAI deployment.
func (a *AzureOpenAIAdapter) Analyze(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, models.TokenUsage, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(a.cfg.BaseURL, "/"), a.cfg.Deployment, a.cfg.APIVersion)
	headers := map[string]string{"api-key": a.cfg.APIKey}
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

// CheckAvailability probes the deployments listing endpoint.
func (a *AzureOpenAIAdapter) CheckAvailability(ctx context.Context) bool {
	url := fmt.Sprintf("%s/openai/deployments?api-version=%s",
		strings.TrimSuffix(a.cfg.BaseURL, "/"), a.cfg.APIVersion)
	return probeEndpoint(ctx, a.client, url, map[string]string{"api-key": a.cfg.APIKey})
}
