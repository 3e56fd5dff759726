package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const summarySQLWidth = 60

const summaryHeader = `╭───────────────────────────────────────────────────────────────╮
│                  PipeAudit Report Summary                     │
╰───────────────────────────────────────────────────────────────╯
`

// WriteSummary writes the human-readable summary of report to out.
// outputPath is announced as the location of the JSON report.
func WriteSummary(out io.Writer, report *models.Report, outputPath string) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	if _, err := io.WriteString(out, renderSummary(report, outputPath)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func renderSummary(report *models.Report, outputPath string) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(summaryHeader)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Target: %s / %s\n", report.Targets.Endpoint, report.Targets.Database)
	fmt.Fprintf(&b, "Tables: %s\n", strings.Join(report.Targets.Tables, ", "))
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt)
	b.WriteString("\n")

	icon, label := statusGlyph(report.Summary.Status)
	fmt.Fprintf(&b, "Status: %s %s\n", icon, label)
	b.WriteString("\n")

	if len(report.Findings) > 0 {
		fmt.Fprintf(&b, "Findings (%d total, %d critical, %d warning):\n",
			report.Summary.FindingsCount, report.Summary.CriticalCount, report.Summary.WarningCount)
		for _, f := range report.Findings {
			fmt.Fprintf(&b, "  %s [%s] %s: %s\n", severityGlyph(f.Severity), f.RuleID, f.Target, f.Message)
		}
		b.WriteString("\n")
	}

	if len(report.Actions) > 0 {
		b.WriteString("Recommended Actions:\n")
		for i, a := range report.Actions {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, priorityLabel(a.Priority), a.Description)
			if a.SQL != nil {
				fmt.Fprintf(&b, "     SQL: %s\n", truncateText(*a.SQL, summarySQLWidth))
			}
		}
		b.WriteString("\n")
	}

	if dag := report.Sections.MvDag; dag != nil {
		fmt.Fprintf(&b, "MV DAG: %d tables, %d materialized views, max depth %d\n",
			dag.TotalTables, dag.TotalMVs, dag.MaxDepth)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Full report written to: %s\n", outputPath)
	b.WriteString("\n")

	return b.String()
}

func statusGlyph(status models.Status) (string, string) {
	switch status {
	case models.StatusCritical:
		return "🚨", "CRITICAL"
	case models.StatusWarning:
		return "⚠️ ", "WARNING"
	default:
		return "✅", "HEALTHY"
	}
}

func severityGlyph(severity models.Severity) string {
	if severity == models.SeverityCritical {
		return "🚨"
	}
	return "⚠️ "
}

func priorityLabel(priority models.Priority) string {
	switch priority {
	case models.PriorityHigh:
		return "High"
	case models.PriorityMedium:
		return "Medium"
	case models.PriorityLow:
		return "Low"
	default:
		return string(priority)
	}
}

// truncateText cuts value to width runes, ending in "..." when shortened.
func truncateText(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
