package service

import (
	"math"
	"regexp"
	"strings"

	"github.com/user/protoscribe-go/internal/guidelines"
)

// ComplianceStatus classifies how well a protocol covers one checklist item.
type ComplianceStatus string

const (
	CompliancePass    ComplianceStatus = "pass"
	ComplianceWarning ComplianceStatus = "warning"
	ComplianceFail    ComplianceStatus = "fail"
)

// Keyword coverage thresholds for the pass/warning/fail split.
const (
	compliancePassThreshold    = 0.8
	complianceWarningThreshold = 0.4
)

// ComplianceItemResult is the verdict for one checklist item.
type ComplianceItemResult struct {
	ItemID      string           `json:"item_id"`
	Section     string           `json:"section"`
	Description string           `json:"description"`
	Status      ComplianceStatus `json:"status"`
	Confidence  float64          `json:"confidence"`
	Evidence    string           `json:"evidence,omitempty"`
	Issue       string           `json:"issue,omitempty"`
}

// GuidelineCompliance aggregates item verdicts for one guideline.
type GuidelineCompliance struct {
	GuidelineID string                 `json:"guideline_id"`
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	Score       float64                `json:"score"`
	Items       []ComplianceItemResult `json:"items"`
	FailedItems []ComplianceItemResult `json:"failed_items"`
	Warnings    []ComplianceItemResult `json:"warnings"`
}

// ComplianceReport is the deterministic rule-based compliance result across
// all requested guidelines.
type ComplianceReport struct {
	OverallScore float64               `json:"overall_score"`
	TotalItems   int                   `json:"total_items"`
	PassedItems  int                   `json:"passed_items"`
	Guidelines   []GuidelineCompliance `json:"guidelines"`
}

// ComplianceChecker runs keyword-based checklist coverage checks against a
// protocol text. It needs no provider and produces stable results, so it can
// serve as a baseline when no LLM provider is configured.
type ComplianceChecker struct {
	loader *guidelines.Loader
}

// NewComplianceChecker creates a ComplianceChecker.
func NewComplianceChecker(loader *guidelines.Loader) *ComplianceChecker {
	return &ComplianceChecker{loader: loader}
}

// Check evaluates the protocol text against every item of the requested
// guidelines. Guideline order in the report follows the request.
func (c *ComplianceChecker) Check(protocolText string, guidelineIDs []string) (*ComplianceReport, error) {
	report := &ComplianceReport{}
	text := strings.ToLower(protocolText)

	for _, id := range guidelineIDs {
		g, err := c.loader.Load(id)
		if err != nil {
			return nil, err
		}

		gc := GuidelineCompliance{
			GuidelineID: strings.ToLower(strings.TrimSpace(id)),
			Name:        g.Name,
			Version:     g.Version,
		}

		passed := 0
		for _, item := range g.Items {
			res := checkItem(protocolText, text, item)
			gc.Items = append(gc.Items, res)
			switch res.Status {
			case CompliancePass:
				passed++
			case ComplianceWarning:
				gc.Warnings = append(gc.Warnings, res)
			case ComplianceFail:
				gc.FailedItems = append(gc.FailedItems, res)
			}
		}

		gc.Score = roundScore(ratio(passed, len(gc.Items)) * 100)
		report.Guidelines = append(report.Guidelines, gc)
		report.TotalItems += len(gc.Items)
		report.PassedItems += passed
	}

	report.OverallScore = roundScore(ratio(report.PassedItems, report.TotalItems) * 100)
	return report, nil
}

// checkItem scores one checklist item by keyword coverage. text is the
// lowercased protocol; the original casing is kept for evidence excerpts.
func checkItem(original, text string, item guidelines.Item) ComplianceItemResult {
	keywords := item.Keywords
	if len(keywords) == 0 {
		keywords = descriptionKeywords(item.Description)
	}

	found := 0
	evidence := ""
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		idx := strings.Index(text, kw)
		if idx < 0 {
			continue
		}
		found++
		if evidence == "" {
			evidence = excerpt(original, idx, len(kw))
		}
	}

	res := ComplianceItemResult{
		ItemID:      item.ID,
		Section:     item.Section,
		Description: item.Description,
		Confidence:  ratio(found, len(keywords)),
		Evidence:    evidence,
	}

	switch {
	case res.Confidence >= compliancePassThreshold:
		res.Status = CompliancePass
	case res.Confidence >= complianceWarningThreshold:
		res.Status = ComplianceWarning
		res.Issue = "Item may be present but could be more explicit"
	default:
		res.Status = ComplianceFail
		res.Issue = "Item not found or not adequately addressed"
	}
	return res
}

var complianceWordRe = regexp.MustCompile(`[a-zA-Z]{4,}`)

// complianceStopwords are filler words excluded when deriving keywords from
// an item description.
var complianceStopwords = map[string]bool{
	"with": true, "that": true, "this": true, "they": true,
	"were": true, "been": true, "each": true, "from": true,
}

// descriptionKeywords derives search terms from the item description for
// guidelines whose definitions carry no explicit keyword list.
func descriptionKeywords(description string) []string {
	words := complianceWordRe.FindAllString(strings.ToLower(description), -1)
	seen := map[string]bool{}
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if complianceStopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// excerpt returns up to 200 characters of context around a keyword match.
func excerpt(text string, idx, matchLen int) string {
	start := idx - 80
	if start < 0 {
		start = 0
	}
	end := idx + matchLen + 80
	if end > len(text) {
		end = len(text)
	}
	out := strings.TrimSpace(text[start:end])
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	return out
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func roundScore(v float64) float64 {
	return math.Round(v*10) / 10
}
