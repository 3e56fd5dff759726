package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSummaryLayout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteSummary(&out, sampleReport(t), "/tmp/report.json"))
	rendered := out.String()

	assert.Contains(t, rendered, "PipeAudit Report Summary")
	assert.Contains(t, rendered, "Target: http://localhost:8123 / testdb\n")
	assert.Contains(t, rendered, "Tables: events\n")
	assert.Contains(t, rendered, "Generated: 2026-02-17T08:00:00Z\n")
	assert.Contains(t, rendered, "Status: 🚨 CRITICAL\n")
	assert.Contains(t, rendered, "Findings (3 total, 2 critical, 1 warning):\n")
	assert.Contains(t, rendered, "  🚨 [parts_explosion] testdb.events: ")
	assert.Contains(t, rendered, "Recommended Actions:\n")
	assert.Contains(t, rendered, "  1. [High] Run OPTIMIZE TABLE to reduce parts count\n")
	assert.Contains(t, rendered, "     SQL: OPTIMIZE TABLE testdb.events FINAL\n")
	assert.Contains(t, rendered, "MV DAG: 1 tables, 2 materialized views, max depth 2\n")
	assert.True(t, strings.HasSuffix(rendered, "Full report written to: /tmp/report.json\n\n"))

	// sections appear in a fixed order
	order := []string{"Target:", "Status:", "Findings (", "Recommended Actions:", "MV DAG:", "Full report written to:"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(rendered, marker)
		require.Greater(t, idx, last, marker)
		last = idx
	}
}

func TestWriteSummaryHealthy(t *testing.T) {
	report := &models.Report{
		GeneratedAt: "2026-02-17T08:00:00Z",
		Targets:     models.Targets{Endpoint: "http://ch:8123", Database: "db", Tables: []string{"a", "b"}},
		Summary:     models.Summary{Status: models.StatusHealthy},
	}

	var out bytes.Buffer
	require.NoError(t, WriteSummary(&out, report, "/out/report.json"))
	rendered := out.String()

	assert.Contains(t, rendered, "Tables: a, b\n")
	assert.Contains(t, rendered, "Status: ✅ HEALTHY\n")
	assert.NotContains(t, rendered, "Findings (")
	assert.NotContains(t, rendered, "Recommended Actions:")
	assert.NotContains(t, rendered, "MV DAG:")
}

func TestWriteSummaryWarningGlyph(t *testing.T) {
	report := &models.Report{
		Summary:  models.Summary{Status: models.StatusWarning, FindingsCount: 1, WarningCount: 1},
		Findings: []models.Finding{{RuleID: "disk_headroom", Severity: models.SeverityWarning, Target: "default", Message: "low"}},
	}

	var out bytes.Buffer
	require.NoError(t, WriteSummary(&out, report, "r.json"))
	assert.Contains(t, out.String(), "Status: ⚠️  WARNING\n")
	assert.Contains(t, out.String(), "  ⚠️  [disk_headroom] default: low\n")
}

func TestWriteSummaryTruncatesSQL(t *testing.T) {
	long := "SELECT * FROM system.mutations WHERE database = 'testdb' AND table = 'events' AND is_done = 0"
	report := &models.Report{
		Findings: []models.Finding{{ID: "f-1"}},
		Actions:  []models.Action{{FindingRef: "f-1", Priority: models.PriorityMedium, Description: "look", SQL: &long}},
	}

	var out bytes.Buffer
	require.NoError(t, WriteSummary(&out, report, "r.json"))
	assert.Contains(t, out.String(), "     SQL: "+long[:57]+"...\n")
	assert.Contains(t, out.String(), "  1. [Medium] look\n")
}

func TestTruncateText(t *testing.T) {
	cases := []struct {
		name  string
		value string
		width int
		want  string
	}{
		{name: "short", value: "short", width: 10, want: "short"},
		{name: "exact", value: strings.Repeat("x", 60), width: 60, want: strings.Repeat("x", 60)},
		{name: "long", value: "this is a long string", width: 10, want: "this is..."},
		{name: "multibyte", value: "ééééééééééé", width: 6, want: "ééé..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, truncateText(tc.value, tc.width))
		})
	}
}

func TestWriteSummaryNilInputs(t *testing.T) {
	assert.Error(t, WriteSummary(&bytes.Buffer{}, nil, "r.json"))
	assert.Error(t, WriteSummary(nil, &models.Report{}, "r.json"))
}
