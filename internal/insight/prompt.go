package insight

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/newthinker/finsight/internal/core"
)

// SystemPrompt is the preamble sent with every completion request.
const SystemPrompt = "You are a helpful financial analyst."

// promptTemplate is shared by the pipeline chat template and the raw
// completion request. Variables: ticker, raw_summary.
const promptTemplate = `Given the ticker {{.ticker}} and the following data,
produce a concise investment analysis (3-6 short paragraphs) covering:
- recent price action summary
- key fundamental metrics (PE, beta)
- risk considerations
- investment thesis and recommended time horizon

Raw data:
{{.raw_summary}}`

var compiledPrompt = template.Must(template.New("insight").Parse(promptTemplate))

// FormatSummary renders the fixed-field data block for a snapshot.
// Every field is always present; missing values render as N/A.
func FormatSummary(s core.Snapshot) string {
	name := s.CompanyName
	if name == "" {
		name = core.NotAvailable
	}
	sector := s.Sector
	if sector == "" {
		sector = core.NotAvailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company Name: %s\n", name)
	fmt.Fprintf(&b, "Sector: %s\n", sector)
	fmt.Fprintf(&b, "Current Price: $%.2f\n", s.Price)
	fmt.Fprintf(&b, "Change %%: %.2f%%\n", s.PercentChange)
	fmt.Fprintf(&b, "P/E Ratio: %s\n", formatOptional(s.PERatio))
	fmt.Fprintf(&b, "Beta: %s\n", formatOptional(s.Beta))
	return b.String()
}

// RenderPrompt fills the analysis prompt for ticker.
func RenderPrompt(ticker, rawSummary string) (string, error) {
	var b strings.Builder
	if err := compiledPrompt.Execute(&b, promptVariables(ticker, rawSummary)); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return b.String(), nil
}

func promptVariables(ticker, rawSummary string) map[string]any {
	return map[string]any{
		"ticker":      ticker,
		"raw_summary": rawSummary,
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return core.NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}
