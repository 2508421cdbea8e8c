//go:build !integration && !e2e
// +build !integration,!e2e

package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/protoscribe-go/internal/models"
)

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func encodePayload(t *testing.T, m map[string]any) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}

func parseValid(t *testing.T, raw string) (*models.AnalysisResult, error) {
	t.Helper()
	return NewResponseParser().Parse(raw, models.AnalysisComprehensive, []string{"consort"}, models.ProviderOpenAI, "gpt-4o")
}

func TestParse_ValidResponse(t *testing.T) {
	raw := validResponse(t, models.AnalysisComprehensive, []string{"consort"}, 82)

	result, err := parseValid(t, raw)
	require.NoError(t, err)

	assert.Equal(t, 82.0, result.OverallScore)
	assert.Equal(t, 82.0, result.GuidelineScores["consort"])
	assert.Len(t, result.Categories, 4)
	assert.Equal(t, models.StatusGood, result.Categories["methodology"].Status)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.SuggestionImprovement, result.Suggestions[0].Type)
	assert.Equal(t, models.ProviderOpenAI, result.Metadata.Provider)
	assert.Equal(t, "gpt-4o", result.Metadata.Model)
	assert.False(t, result.Metadata.Timestamp.IsZero())
}

func TestParse_StripsMarkdownFence(t *testing.T) {
	raw := "Here is my analysis:\n```json\n" + validResponse(t, models.AnalysisComprehensive, []string{"consort"}, 75) + "\n```\nLet me know if you need more detail."

	result, err := parseValid(t, raw)
	require.NoError(t, err)
	assert.Equal(t, 75.0, result.OverallScore)
}

func TestParse_ExtractsEmbeddedObject(t *testing.T) {
	raw := "Analysis follows. " + validResponse(t, models.AnalysisComprehensive, []string{"consort"}, 60) + " Done."

	result, err := parseValid(t, raw)
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.OverallScore)
}

func TestParse_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no JSON", "I could not analyze this protocol."},
		{"broken JSON", `{"overall_score": 80, "guideline_scores": {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseValid(t, tt.raw)
			var malErr *models.MalformedResponseError
			require.ErrorAs(t, err, &malErr)
			assert.Equal(t, models.ProviderOpenAI, malErr.Provider)
		})
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	mutate := func(t *testing.T, fn func(map[string]any)) string {
		t.Helper()
		payload := decodePayload(t, validResponse(t, models.AnalysisComprehensive, []string{"consort"}, 82))
		fn(payload)
		return encodePayload(t, payload)
	}

	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{
			"missing overall_score",
			mutate(t, func(m map[string]any) { delete(m, "overall_score") }),
			"overall_score",
		},
		{
			"overall_score out of range",
			mutate(t, func(m map[string]any) { m["overall_score"] = 101.0 }),
			"overall_score",
		},
		{
			"missing guideline score",
			mutate(t, func(m map[string]any) { m["guideline_scores"] = map[string]any{} }),
			"guideline_scores.consort",
		},
		{
			"missing category",
			mutate(t, func(m map[string]any) {
				delete(m["categories"].(map[string]any), "methodology")
			}),
			"categories.methodology",
		},
		{
			"bad category status",
			mutate(t, func(m map[string]any) {
				m["categories"].(map[string]any)["methodology"] = map[string]any{"score": 50.0, "status": "amazing"}
			}),
			"categories.methodology.status",
		},
		{
			"bad suggestion type",
			mutate(t, func(m map[string]any) {
				m["suggestions"].([]any)[0].(map[string]any)["type"] = "nitpick"
			}),
			"suggestions[0].type",
		},
		{
			"confidence out of range",
			mutate(t, func(m map[string]any) {
				m["suggestions"].([]any)[0].(map[string]any)["confidence"] = 1.5
			}),
			"suggestions[0].confidence",
		},
		{
			"missing confidence",
			mutate(t, func(m map[string]any) {
				delete(m["suggestions"].([]any)[0].(map[string]any), "confidence")
			}),
			"suggestions[0].confidence",
		},
		{
			"empty suggestion content",
			mutate(t, func(m map[string]any) {
				m["suggestions"].([]any)[0].(map[string]any)["content"] = "   "
			}),
			"suggestions[0].content",
		},
		{
			"missing strengths for comprehensive",
			mutate(t, func(m map[string]any) { delete(m, "strengths") }),
			"strengths",
		},
		{
			"missing critical_issues for comprehensive",
			mutate(t, func(m map[string]any) { delete(m, "critical_issues") }),
			"critical_issues",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseValid(t, tt.raw)
			var valErr *models.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}
}

func TestParse_StrengthsOptionalForNonComprehensive(t *testing.T) {
	payload := decodePayload(t, validResponse(t, models.AnalysisClarity, []string{"consort"}, 70))
	delete(payload, "strengths")
	delete(payload, "critical_issues")

	result, err := NewResponseParser().Parse(encodePayload(t, payload), models.AnalysisClarity, []string{"consort"}, models.ProviderAnthropic, "claude-sonnet-4-20250514")
	require.NoError(t, err)
	assert.Empty(t, result.Strengths)
}

func TestParse_GuidelineIDCaseInsensitive(t *testing.T) {
	raw := validResponse(t, models.AnalysisComprehensive, []string{"consort"}, 82)

	result, err := NewResponseParser().Parse(raw, models.AnalysisComprehensive, []string{"CONSORT"}, models.ProviderOpenAI, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, 82.0, result.GuidelineScores["consort"])
}
