// Package models defines the domain models for the protocol analysis service.
package models

import "time"

// AnalysisType represents the kind of analysis to perform on a protocol.
type AnalysisType string

const (
	AnalysisComprehensive AnalysisType = "comprehensive"
	AnalysisClarity       AnalysisType = "clarity"
	AnalysisConsistency   AnalysisType = "consistency"
)

// Valid reports whether t is a known analysis type.
func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisComprehensive, AnalysisClarity, AnalysisConsistency:
		return true
	}
	return false
}

// ProviderIdentity identifies an LLM vendor. It is used as a map key for
// health, cost and rate-limit state, so the set is closed.
type ProviderIdentity string

const (
	ProviderOpenAI      ProviderIdentity = "openai"
	ProviderAnthropic   ProviderIdentity = "anthropic"
	ProviderAzureOpenAI ProviderIdentity = "azure_openai"
)

// AllProviders lists every known provider in stable enumeration order.
// Ranking tie-breaks rely on this ordering.
var AllProviders = []ProviderIdentity{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderAzureOpenAI,
}

// ParseProvider converts a string to a ProviderIdentity.
func ParseProvider(s string) (ProviderIdentity, bool) {
	switch ProviderIdentity(s) {
	case ProviderOpenAI, ProviderAnthropic, ProviderAzureOpenAI:
		return ProviderIdentity(s), true
	}
	return "", false
}

// SuggestionType classifies an improvement suggestion.
type SuggestionType string

const (
	SuggestionCritical    SuggestionType = "critical"
	SuggestionImprovement SuggestionType = "improvement"
	SuggestionStyle       SuggestionType = "style"
)

// SuggestionPriority orders suggestions for the reader.
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

// CategoryStatus is the qualitative rating attached to a category score.
type CategoryStatus string

const (
	StatusExcellent        CategoryStatus = "excellent"
	StatusGood             CategoryStatus = "good"
	StatusNeedsImprovement CategoryStatus = "needs_improvement"
	StatusPoor             CategoryStatus = "poor"
)

// AnalysisRequest describes one protocol analysis. It is treated as
// immutable once constructed; the orchestrator never mutates it.
type AnalysisRequest struct {
	ProtocolText string             `json:"protocol_text"`
	Type         AnalysisType       `json:"analysis_type"`
	GuidelineIDs []string           `json:"guideline_ids"`
	Context      map[string]string  `json:"context,omitempty"`
	Provider     ProviderIdentity   `json:"provider,omitempty"` // explicit preference, optional
	Weights      map[string]float64 `json:"weights,omitempty"`  // ranking weight overrides, optional
}

// Suggestion is a single actionable recommendation tied to a protocol section.
type Suggestion struct {
	Section      string             `json:"section"`
	Type         SuggestionType     `json:"type"`
	Content      string             `json:"content"`
	Confidence   float64            `json:"confidence"`
	Priority     SuggestionPriority `json:"priority"`
	GuidelineRef string             `json:"guideline_ref,omitempty"`
	Rationale    string             `json:"rationale,omitempty"`
}

// CategoryResult is the per-category breakdown of an analysis.
type CategoryResult struct {
	Score  float64        `json:"score"`
	Status CategoryStatus `json:"status"`
}

// ResultMetadata records which provider actually produced a result.
type ResultMetadata struct {
	Provider          ProviderIdentity `json:"provider"`
	RequestedProvider ProviderIdentity `json:"requested_provider,omitempty"`
	FallbackUsed      bool             `json:"fallback_used"`
	Model             string           `json:"model,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
}

// AnalysisResult is the validated outcome of one protocol analysis.
// Every score is within [0,100].
type AnalysisResult struct {
	OverallScore    float64                   `json:"overall_score"`
	GuidelineScores map[string]float64        `json:"guideline_scores"`
	Categories      map[string]CategoryResult `json:"categories"`
	Suggestions     []Suggestion              `json:"suggestions"`
	Strengths       []string                  `json:"strengths"`
	CriticalIssues  []string                  `json:"critical_issues"`
	Metadata        ResultMetadata            `json:"metadata"`
}

// TokenUsage reports token counts for one provider call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UsageRecord attributes spend to a provider/model/analysis-type combination.
type UsageRecord struct {
	Provider     ProviderIdentity `json:"provider"`
	Model        string           `json:"model"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
	Cost         float64          `json:"cost"`
	AnalysisType AnalysisType     `json:"analysis_type"`
	Timestamp    time.Time        `json:"timestamp"`
}

// ProviderHealthRecord is the rolling health state for one provider.
type ProviderHealthRecord struct {
	Available   bool          `json:"available"`
	SuccessRate float64       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
	LastCheck   time.Time     `json:"last_check"`
	LastError   string        `json:"last_error,omitempty"`
}

// StoredAnalysis is a persisted analysis record.
type StoredAnalysis struct {
	ID           string           `json:"id"`
	AnalysisType AnalysisType     `json:"analysis_type"`
	GuidelineIDs []string         `json:"guideline_ids"`
	Result       *AnalysisResult  `json:"result"`
	Provider     ProviderIdentity `json:"provider"`
	CreatedAt    time.Time        `json:"created_at"`
}

// User represents an operator account. Only admin accounts exist.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIKey represents an API key for authentication.
type APIKey struct {
	ID         int64      `json:"id"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"key_prefix"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}
