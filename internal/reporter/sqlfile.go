package reporter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// mvDagSQLSeparator joins the two DAG queries inside one evidence entry.
const mvDagSQLSeparator = " | Dependencies: "

// WriteSQLFile writes every evidence query of report to path as a runnable
// script, one commented statement per entry in evidence order.
func WriteSQLFile(report *models.Report, path string) error {
	if report == nil {
		return &OutputError{Path: path, Err: fmt.Errorf("report is nil")}
	}
	return writeFileAtomic(path, []byte(renderSQLFile(report)))
}

func renderSQLFile(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "-- pipeaudit evidence for report %s\n", report.ReportID)
	fmt.Fprintf(&b, "-- target: %s / %s\n", report.Targets.Endpoint, report.Targets.Database)
	fmt.Fprintf(&b, "-- generated: %s\n", report.GeneratedAt)

	for _, e := range report.Evidence {
		b.WriteString("\n")
		fmt.Fprintf(&b, "-- %s: %s (collected %s)\n", e.ID, e.Source, e.CollectedAt)
		for _, stmt := range evidenceStatements(e) {
			b.WriteString(strings.TrimRight(strings.TrimSpace(stmt), ";"))
			b.WriteString(";\n")
		}
	}

	return b.String()
}

// evidenceStatements splits the combined DAG entry back into its two
// queries. Other entries hold a single statement.
func evidenceStatements(e models.Evidence) []string {
	if e.Source == models.SourceMvDag && strings.HasPrefix(e.SQL, "Tables: ") {
		tables, deps, ok := strings.Cut(strings.TrimPrefix(e.SQL, "Tables: "), mvDagSQLSeparator)
		if ok {
			return []string{tables, deps}
		}
	}
	return []string{e.SQL}
}
