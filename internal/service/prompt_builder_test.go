//go:build !integration && !e2e
// +build !integration,!e2e

package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/guidelines"
	"github.com/user/protoscribe-go/internal/models"
)

func newTestPromptBuilder() *PromptBuilder {
	return NewPromptBuilder(guidelines.NewLoader(""))
}

func promptRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		ProtocolText: "A phase 3 randomized trial of drug X.",
		Type:         models.AnalysisComprehensive,
		GuidelineIDs: []string{"consort"},
	}
}

func TestPromptBuilder_Deterministic(t *testing.T) {
	b := newTestPromptBuilder()
	req := promptRequest()

	p1, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)
	p2, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)

	assert.Equal(t, p1, p2, "identical inputs must produce identical prompts")
}

func TestPromptBuilder_ProviderTailoring(t *testing.T) {
	b := newTestPromptBuilder()
	req := promptRequest()

	anthropic, err := b.Build(req, models.ProviderAnthropic)
	require.NoError(t, err)
	assert.Contains(t, anthropic, "<task>")
	assert.Contains(t, anthropic, "<protocol>")
	assert.Contains(t, anthropic, "<output_schema>")
	assert.NotContains(t, anthropic, "## Task")

	openai, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)
	assert.Contains(t, openai, "## Task")
	assert.Contains(t, openai, "## Protocol")
	assert.NotContains(t, openai, "<task>")

	// Azure uses the OpenAI-family layout.
	azure, err := b.Build(req, models.ProviderAzureOpenAI)
	require.NoError(t, err)
	assert.Contains(t, azure, "## Task")
}

func TestPromptBuilder_IncludesProtocolAndGuidelines(t *testing.T) {
	b := newTestPromptBuilder()
	req := promptRequest()

	prompt, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, req.ProtocolText)
	assert.Contains(t, prompt, "CONSORT")
	assert.Contains(t, prompt, "overall_score")
	assert.Contains(t, prompt, "excellent|good|needs_improvement|poor")
}

func TestPromptBuilder_CategorySetPerType(t *testing.T) {
	b := newTestPromptBuilder()

	req := promptRequest()
	req.Type = models.AnalysisClarity
	prompt, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, "language_clarity")
	assert.Contains(t, prompt, "specificity")
	assert.NotContains(t, prompt, "statistical_rigor")
}

func TestPromptBuilder_ContextSupplement(t *testing.T) {
	b := newTestPromptBuilder()

	req := promptRequest()
	req.Context = map[string]string{
		"study_phase":      "phase 2",
		"regulatory_region": "EU",
	}
	prompt, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, "phase 2")
	assert.Contains(t, prompt, "EU")
	// Template order is fixed: study_phase precedes regulatory_region.
	assert.Less(t, strings.Index(prompt, "phase 2"), strings.Index(prompt, "EU"))
}

func TestPromptBuilder_NoContextNoPlaceholder(t *testing.T) {
	b := newTestPromptBuilder()

	prompt, err := b.Build(promptRequest(), models.ProviderOpenAI)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "## Additional Context")

	tagged, err := b.Build(promptRequest(), models.ProviderAnthropic)
	require.NoError(t, err)
	assert.NotContains(t, tagged, "<context>")
}

func TestPromptBuilder_UnknownGuideline(t *testing.T) {
	b := newTestPromptBuilder()

	req := promptRequest()
	req.GuidelineIDs = []string{"nonexistent"}
	_, err := b.Build(req, models.ProviderOpenAI)
	assert.Error(t, err)
}

func TestPromptBuilder_MultipleGuidelines(t *testing.T) {
	b := newTestPromptBuilder()

	req := promptRequest()
	req.GuidelineIDs = []string{"consort", "spirit"}
	prompt, err := b.Build(req, models.ProviderOpenAI)
	require.NoError(t, err)

	assert.Contains(t, prompt, "CONSORT")
	assert.Contains(t, prompt, "SPIRIT")
	assert.Contains(t, prompt, `"consort": <number 0-100>`)
	assert.Contains(t, prompt, `"spirit": <number 0-100>`)
}
