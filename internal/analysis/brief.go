// Package analysis builds the language-model briefs for a research run and
// optionally sends them to an OpenAI-compatible chat endpoint.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-scripts/research/pkg/common"
)

var analysisTemplate = template.Must(template.New("analysis").Parse(`You are an expert business analyst specializing in providing insights on business niches.

You have collected data from {{.Count}} websites about a specific business niche.
Below is the collected data:

{{.Data}}

Please analyze this data and provide:

1. Market Overview: Summarize the current state of this business niche
2. Competitive Landscape: Who are the main players and how competitive is the space?
3. Opportunity Assessment: What opportunities exist in this niche?
4. Risk Analysis: What are the main risks and challenges?
5. Profitability Potential: How profitable could this niche be?
6. Entry Barriers: How difficult is it to enter this market?
7. Recommendation: Should someone pursue this business idea? (Score 1-10)

Focus on extracting factual information from the data provided, not making up details.
If certain information is missing, note that it's not available rather than inventing it.

Base your analysis strictly on the data collected from these websites.
`))

var ideasTemplate = template.Must(template.New("ideas").Parse(`As a business idea expert, generate 3 viable online business ideas based on:

Interest: {{.Interest}}
Industry: {{.Industry}}
Budget: {{.Budget}}
Skill Level: {{.SkillLevel}}

For each idea provide:
- Idea Name
- Description (2-3 sentences)
- Market Demand (High/Medium/Low with brief explanation)
- Monetization Potential (specific revenue streams)
- Competitive Landscape (brief overview)
- Risk Level (High/Medium/Low with explanation)
- Suggestion Score (1-10)

Focus on practical, actionable business ideas that match the user's parameters.
Consider the skill level and budget constraints carefully.
Provide specific rather than generic suggestions.
`))

// BuildAnalysisBrief renders the analysis instructions followed by the collected records as JSON
func BuildAnalysisBrief(records []common.WebsiteRecord) (string, error) {
	if records == nil {
		records = []common.WebsiteRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}

	var b strings.Builder
	err = analysisTemplate.Execute(&b, struct {
		Count int
		Data  string
	}{Count: len(records), Data: string(data)})
	if err != nil {
		return "", fmt.Errorf("failed to render analysis brief: %w", err)
	}
	return b.String(), nil
}

// IdeasRequest holds the parameters of a business-idea brief
type IdeasRequest struct {
	Interest   string
	Industry   string
	Budget     string
	SkillLevel string
}

// BuildIdeasBrief renders a brief asking for three business ideas
func BuildIdeasBrief(req IdeasRequest) (string, error) {
	fields := []struct{ name, value string }{
		{"interest", req.Interest},
		{"industry", req.Industry},
		{"budget", req.Budget},
		{"skill level", req.SkillLevel},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing idea parameters: %s", strings.Join(missing, ", "))
	}

	var b strings.Builder
	if err := ideasTemplate.Execute(&b, req); err != nil {
		return "", fmt.Errorf("failed to render ideas brief: %w", err)
	}
	return b.String(), nil
}
