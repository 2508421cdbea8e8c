package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/user/protoscribe-go/internal/models"
)

var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// resultPayload mirrors the JSON schema the prompt instructs the model to
// produce. Pointer fields distinguish absent from zero.
type resultPayload struct {
	OverallScore    *float64                      `json:"overall_score"`
	GuidelineScores map[string]float64            `json:"guideline_scores"`
	Categories      map[string]categoryPayload    `json:"categories"`
	Suggestions     []suggestionPayload           `json:"suggestions"`
	Strengths       []string                      `json:"strengths"`
	CriticalIssues  []string                      `json:"critical_issues"`
}

type categoryPayload struct {
	Score  *float64 `json:"score"`
	Status string   `json:"status"`
}

type suggestionPayload struct {
	Section      string   `json:"section"`
	Type         string   `json:"type"`
	Content      string   `json:"content"`
	Confidence   *float64 `json:"confidence"`
	Priority     string   `json:"priority"`
	GuidelineRef string   `json:"guideline_ref"`
	Rationale    string   `json:"rationale"`
}

// ResponseParser converts raw provider text into a validated AnalysisResult.
type ResponseParser struct{}

// NewResponseParser creates a ResponseParser.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Parse strips any non-JSON wrapping from raw model output, parses it and
// validates it against the schema for the requested analysis type. On
// success it returns the result with provider metadata attached. Failures
// are *models.MalformedResponseError (not parseable) or
// *models.ValidationError (parseable but schema-violating).
func (p *ResponseParser) Parse(
	raw string,
	analysisType models.AnalysisType,
	guidelineIDs []string,
	provider models.ProviderIdentity,
	model string,
) (*models.AnalysisResult, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, &models.MalformedResponseError{Provider: provider, Reason: "no JSON object found in response"}
	}

	var payload resultPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, &models.MalformedResponseError{Provider: provider, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	result, err := validatePayload(&payload, analysisType, guidelineIDs)
	if err != nil {
		return nil, err
	}

	result.Metadata = models.ResultMetadata{
		Provider:  provider,
		Model:     model,
		Timestamp: time.Now().UTC(),
	}
	return result, nil
}

// validatePayload enforces the result schema and converts to the domain type.
func validatePayload(payload *resultPayload, analysisType models.AnalysisType, guidelineIDs []string) (*models.AnalysisResult, error) {
	if payload.OverallScore == nil {
		return nil, &models.ValidationError{Field: "overall_score", Reason: "required field missing"}
	}
	if err := checkScore("overall_score", *payload.OverallScore); err != nil {
		return nil, err
	}

	if payload.GuidelineScores == nil {
		return nil, &models.ValidationError{Field: "guideline_scores", Reason: "required field missing"}
	}
	for _, id := range guidelineIDs {
		key := strings.ToLower(id)
		score, ok := payload.GuidelineScores[key]
		if !ok {
			return nil, &models.ValidationError{Field: "guideline_scores." + key, Reason: "score missing for requested guideline"}
		}
		if err := checkScore("guideline_scores."+key, score); err != nil {
			return nil, err
		}
	}

	if payload.Categories == nil {
		return nil, &models.ValidationError{Field: "categories", Reason: "required field missing"}
	}
	categories := make(map[string]models.CategoryResult, len(payload.Categories))
	for _, name := range AnalysisCategories[analysisType] {
		cat, ok := payload.Categories[name]
		if !ok {
			return nil, &models.ValidationError{Field: "categories." + name, Reason: "required category missing"}
		}
		if cat.Score == nil {
			return nil, &models.ValidationError{Field: "categories." + name + ".score", Reason: "required field missing"}
		}
		if err := checkScore("categories."+name+".score", *cat.Score); err != nil {
			return nil, err
		}
		status := models.CategoryStatus(cat.Status)
		switch status {
		case models.StatusExcellent, models.StatusGood, models.StatusNeedsImprovement, models.StatusPoor:
		default:
			return nil, &models.ValidationError{Field: "categories." + name + ".status", Reason: fmt.Sprintf("unknown status %q", cat.Status)}
		}
		categories[name] = models.CategoryResult{Score: *cat.Score, Status: status}
	}

	if payload.Suggestions == nil {
		return nil, &models.ValidationError{Field: "suggestions", Reason: "required field missing"}
	}
	suggestions := make([]models.Suggestion, 0, len(payload.Suggestions))
	for i, s := range payload.Suggestions {
		field := fmt.Sprintf("suggestions[%d]", i)
		sType := models.SuggestionType(s.Type)
		switch sType {
		case models.SuggestionCritical, models.SuggestionImprovement, models.SuggestionStyle:
		default:
			return nil, &models.ValidationError{Field: field + ".type", Reason: fmt.Sprintf("unknown type %q", s.Type)}
		}
		priority := models.SuggestionPriority(s.Priority)
		switch priority {
		case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		default:
			return nil, &models.ValidationError{Field: field + ".priority", Reason: fmt.Sprintf("unknown priority %q", s.Priority)}
		}
		if s.Confidence == nil {
			return nil, &models.ValidationError{Field: field + ".confidence", Reason: "required field missing"}
		}
		if *s.Confidence < 0 || *s.Confidence > 1 {
			return nil, &models.ValidationError{Field: field + ".confidence", Reason: fmt.Sprintf("%.3f outside [0.0,1.0]", *s.Confidence)}
		}
		if strings.TrimSpace(s.Content) == "" {
			return nil, &models.ValidationError{Field: field + ".content", Reason: "must not be empty"}
		}
		suggestions = append(suggestions, models.Suggestion{
			Section:      s.Section,
			Type:         sType,
			Content:      s.Content,
			Confidence:   *s.Confidence,
			Priority:     priority,
			GuidelineRef: s.GuidelineRef,
			Rationale:    s.Rationale,
		})
	}

	// Comprehensive analyses must also report strengths and critical issues.
	if analysisType == models.AnalysisComprehensive {
		if payload.Strengths == nil {
			return nil, &models.ValidationError{Field: "strengths", Reason: "required field missing"}
		}
		if payload.CriticalIssues == nil {
			return nil, &models.ValidationError{Field: "critical_issues", Reason: "required field missing"}
		}
	}

	guidelineScores := make(map[string]float64, len(guidelineIDs))
	for _, id := range guidelineIDs {
		key := strings.ToLower(id)
		guidelineScores[key] = payload.GuidelineScores[key]
	}

	return &models.AnalysisResult{
		OverallScore:    *payload.OverallScore,
		GuidelineScores: guidelineScores,
		Categories:      categories,
		Suggestions:     suggestions,
		Strengths:       payload.Strengths,
		CriticalIssues:  payload.CriticalIssues,
	}, nil
}

// checkScore validates a score is within [0,100].
func checkScore(field string, score float64) error {
	if score < 0 || score > 100 {
		return &models.ValidationError{Field: field, Reason: fmt.Sprintf("%.2f outside [0,100]", score)}
	}
	return nil
}

// extractJSON extracts a JSON object from text, supporting markdown code
// blocks that some providers wrap their output in.
func extractJSON(text string) string {
	// Try markdown code block first
	if matches := jsonBlockRe.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// Try direct JSON
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		return text
	}

	// Fall back to the outermost brace pair
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}

	return ""
}
