// Package report assembles the EDA text report and writes the downloadable files.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/utils"
)

// Section headers, in report order.
const (
	HeaderLoaded      = "Data Loaded Successfully!"
	HeaderPreview     = "Preview of Data (Top 5 Rows):"
	HeaderColumnInfo  = "Column Info:"
	HeaderSummary     = "Summary Statistics:"
	HeaderMissing     = "Missing Values:"
	HeaderAIInsights  = "AI Insights:"
	InsightsFileName  = "ai_eda_report.txt"
	ReportFileName    = "eda_report.txt"
	PDFFileName       = "visual_report.pdf"
	emptySectionValue = "(none)"
)

// Headers lists the five section headers that follow HeaderLoaded.
var Headers = []string{HeaderPreview, HeaderColumnInfo, HeaderSummary, HeaderMissing, HeaderAIInsights}

// Assemble joins the summary sections and the insight text under the fixed
// headers. Every header is present even when a section is empty.
func Assemble(sum *analysis.Summary, insights string) string {
	var preview, info, describe, missing string
	if sum != nil {
		preview, info, describe, missing = sum.Preview, sum.ColumnInfo, sum.Describe, sum.MissingValues
	}
	sections := []string{preview, info, describe, missing, strings.TrimSpace(insights)}

	var b strings.Builder
	b.WriteString(HeaderLoaded)
	b.WriteString("\n\n")
	for i, h := range Headers {
		body := sections[i]
		if strings.TrimSpace(body) == "" {
			body = emptySectionValue
		}
		b.WriteString(h)
		b.WriteByte('\n')
		b.WriteString(body)
		if i < len(Headers)-1 {
			b.WriteString("\n\n")
		} else {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// WriteInsights stores the insight text as ai_eda_report.txt in dir.
func WriteInsights(dir, text string) (string, error) {
	return writeText(dir, InsightsFileName, text)
}

// WriteReport stores the assembled report as eda_report.txt in dir.
func WriteReport(dir, text string) (string, error) {
	return writeText(dir, ReportFileName, text)
}

func writeText(dir, name, text string) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	p := filepath.Join(dir, name)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := utils.SafeWriteFile(p, []byte(text)); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return p, nil
}
