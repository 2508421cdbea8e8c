package service

import (
	"fmt"
	"strings"

	"github.com/user/protoscribe-go/internal/guidelines"
	"github.com/user/protoscribe-go/internal/models"
)

// AnalysisCategories is the fixed category set per analysis type. The parser
// rejects results whose category breakdown does not match this set.
var AnalysisCategories = map[models.AnalysisType][]string{
	models.AnalysisComprehensive: {"completeness", "methodology", "ethics_reporting", "statistical_rigor"},
	models.AnalysisClarity:       {"language_clarity", "structure", "specificity"},
	models.AnalysisConsistency:   {"internal_consistency", "endpoint_alignment", "timeline_coherence"},
}

// analysisTaskFraming introduces each analysis type to the model.
var analysisTaskFraming = map[models.AnalysisType]string{
	models.AnalysisComprehensive: "Perform a comprehensive compliance review of the clinical trial protocol below against the reporting checklist items provided. Score the protocol, identify strengths and critical issues, and produce concrete improvement suggestions.",
	models.AnalysisClarity:       "Review the clinical trial protocol below for clarity, structure and specificity of language, using the reporting checklist items as reference for what each section must communicate.",
	models.AnalysisConsistency:   "Review the clinical trial protocol below for internal consistency: conflicts between endpoints and outcome measures, sample size and objectives, eligibility criteria and study population, timelines and procedures.",
}

// contextInstructions maps known context keys to supplementary instruction
// templates. Keys are emitted in this order so prompts stay deterministic.
var contextInstructions = []struct {
	key      string
	template string
}{
	{"study_phase", "This is a %s trial — pay particular attention to phase-appropriate requirements such as interim-analysis stopping rules and dose-escalation reporting."},
	{"therapeutic_area", "The therapeutic area is %s; weigh domain-specific outcome and safety reporting conventions accordingly."},
	{"regulatory_region", "The submission targets the %s regulatory region; flag deviations from that region's expectations."},
}

// PromptBuilder constructs provider-tailored analysis prompts. It never
// mutates its inputs and is deterministic: identical inputs produce an
// identical prompt, which cache-key stability and the test suite rely on.
type PromptBuilder struct {
	loader *guidelines.Loader
}

// NewPromptBuilder creates a PromptBuilder over the given guideline loader.
func NewPromptBuilder(loader *guidelines.Loader) *PromptBuilder {
	return &PromptBuilder{loader: loader}
}

// Build produces the prompt for one provider. Anthropic receives an
// XML-tagged layout; OpenAI-family providers receive a sectioned markdown
// layout. Content is identical across layouts.
func (b *PromptBuilder) Build(req models.AnalysisRequest, provider models.ProviderIdentity) (string, error) {
	guidelineText, err := b.renderGuidelines(req.GuidelineIDs)
	if err != nil {
		return "", err
	}

	framing := analysisTaskFraming[req.Type]
	schema := renderOutputSchema(req.Type, req.GuidelineIDs)
	supplement := renderContextInstructions(req.Context)

	if provider == models.ProviderAnthropic {
		return buildTaggedPrompt(framing, guidelineText, req.ProtocolText, schema, supplement), nil
	}
	return buildSectionedPrompt(framing, guidelineText, req.ProtocolText, schema, supplement), nil
}

// renderGuidelines concatenates checklist item descriptions for the prompt.
func (b *PromptBuilder) renderGuidelines(ids []string) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		g, err := b.loader.Load(id)
		if err != nil {
			return "", fmt.Errorf("load guideline %s: %w", id, err)
		}
		fmt.Fprintf(&sb, "%s %s (%s):\n", g.Name, g.Version, strings.ToLower(id))
		for _, item := range g.Items {
			fmt.Fprintf(&sb, "- [%s] %s — %s: %s\n", item.ID, item.Section, item.Item, item.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// renderOutputSchema spells out the exact JSON the model must return:
// field names, enum values and numeric ranges. The parser validates
// against the same rules.
func renderOutputSchema(analysisType models.AnalysisType, guidelineIDs []string) string {
	var sb strings.Builder
	sb.WriteString("Respond with a single JSON object and nothing else. Schema:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"overall_score\": <number 0-100>,\n")

	sb.WriteString("  \"guideline_scores\": {")
	for i, id := range guidelineIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q: <number 0-100>", strings.ToLower(id))
	}
	sb.WriteString("},\n")

	sb.WriteString("  \"categories\": {")
	for i, cat := range AnalysisCategories[analysisType] {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q: {\"score\": <number 0-100>, \"status\": \"excellent|good|needs_improvement|poor\"}", cat)
	}
	sb.WriteString("},\n")

	sb.WriteString("  \"suggestions\": [{\"section\": <string>, \"type\": \"critical|improvement|style\", \"content\": <string>, \"confidence\": <number 0.0-1.0>, \"priority\": \"high|medium|low\", \"guideline_ref\": <string, optional>, \"rationale\": <string, optional>}],\n")
	sb.WriteString("  \"strengths\": [<string>],\n")
	sb.WriteString("  \"critical_issues\": [<string>]\n")
	sb.WriteString("}")
	return sb.String()
}

// renderContextInstructions turns the optional context map into
// supplementary instructions. If context is absent, the result is empty
// and nothing is emitted — no placeholder text.
func renderContextInstructions(context map[string]string) string {
	if len(context) == 0 {
		return ""
	}
	var lines []string
	for _, ci := range contextInstructions {
		if v, ok := context[ci.key]; ok && v != "" {
			lines = append(lines, fmt.Sprintf(ci.template, v))
		}
	}
	return strings.Join(lines, "\n")
}

// buildTaggedPrompt renders the XML-tagged layout preferred by Anthropic.
func buildTaggedPrompt(framing, guidelineText, protocol, schema, supplement string) string {
	var sb strings.Builder
	sb.WriteString("<task>\n")
	sb.WriteString(framing)
	sb.WriteString("\n</task>\n\n")
	sb.WriteString("<guidelines>\n")
	sb.WriteString(guidelineText)
	sb.WriteString("\n</guidelines>\n\n")
	sb.WriteString("<protocol>\n")
	sb.WriteString(protocol)
	sb.WriteString("\n</protocol>\n\n")
	if supplement != "" {
		sb.WriteString("<context>\n")
		sb.WriteString(supplement)
		sb.WriteString("\n</context>\n\n")
	}
	sb.WriteString("<output_schema>\n")
	sb.WriteString(schema)
	sb.WriteString("\n</output_schema>")
	return sb.String()
}

// buildSectionedPrompt renders the markdown layout used for OpenAI-family
// providers.
func buildSectionedPrompt(framing, guidelineText, protocol, schema, supplement string) string {
	var sb strings.Builder
	sb.WriteString("## Task\n\n")
	sb.WriteString(framing)
	sb.WriteString("\n\n## Reporting Checklists\n\n")
	sb.WriteString(guidelineText)
	sb.WriteString("\n\n## Protocol\n\n")
	sb.WriteString(protocol)
	if supplement != "" {
		sb.WriteString("\n\n## Additional Context\n\n")
		sb.WriteString(supplement)
	}
	sb.WriteString("\n\n## Required Output\n\n")
	sb.WriteString(schema)
	return sb.String()
}
