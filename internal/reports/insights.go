package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/finledger/finledger/internal/domain"
)

// GeminiInsights asks a Gemini model for three short, concrete observations
// about the month's numbers.
type GeminiInsights struct {
	model string
}

// NewGeminiInsights creates an insight generator. An empty model uses the
// package default.
func NewGeminiInsights(model string) *GeminiInsights {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiInsights{model: model}
}

// Insights implements InsightGenerator.
func (g *GeminiInsights) Insights(ctx context.Context, month time.Time, stats Stats) ([]string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %v", domain.ErrUpstream, err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: g.prompt(month, stats)}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", domain.ErrUpstream, err)
	}
	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty response from model", domain.ErrUpstream)
	}

	var lines []string
	if err := json.Unmarshal([]byte(cleanInsightJSON(rawText)), &lines); err != nil {
		return nil, fmt.Errorf("%w: unmarshal insights JSON: %v", domain.ErrUpstream, err)
	}
	return lines, nil
}

func (g *GeminiInsights) prompt(month time.Time, stats Stats) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant.\n")
	b.WriteString("Analyze this spending data and provide 3 concise, actionable insights.\n")
	b.WriteString("Keep each insight friendly and under 25 words.\n")
	b.WriteString("Return STRICT JSON only: an array of 3 strings, no Markdown, no code fences.\n\n")
	fmt.Fprintf(&b, "Month: %s\n", month.Format("January 2006"))
	fmt.Fprintf(&b, "Total income: %s\n", stats.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Total expenses: %s\n", stats.TotalExpense.StringFixed(2))

	categories := make([]string, 0, len(stats.ByCategory))
	for c := range stats.ByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	b.WriteString("Expenses by category:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "  %s: %s\n", c, stats.ByCategory[c].StringFixed(2))
	}
	return b.String()
}

// cleanInsightJSON strips fences and junk around the JSON array.
func cleanInsightJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

var _ InsightGenerator = (*GeminiInsights)(nil)
