package reporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSQLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.sql")
	report := sampleReport(t)
	require.NoError(t, WriteSQLFile(report, path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(payload)

	assert.True(t, strings.HasPrefix(text, "-- pipeaudit evidence for report "+report.ReportID+"\n"))
	assert.Contains(t, text, "-- ev-001: system.parts (collected 2026-02-17T08:00:00Z)\nSELECT parts FROM system.parts;\n")
	assert.Contains(t, text, "-- ev-006: system.tables (collected 2026-02-17T08:00:00Z)\nSELECT tables FROM system.tables;\nSELECT deps FROM system.tables;\n")

	// entries follow evidence order
	last := -1
	for _, e := range report.Evidence {
		idx := strings.Index(text, "-- "+e.ID+": ")
		require.Greater(t, idx, last, e.ID)
		last = idx
	}
}

func TestEvidenceStatements(t *testing.T) {
	cases := []struct {
		name string
		in   models.Evidence
		want []string
	}{
		{
			name: "single",
			in:   models.Evidence{Source: models.SourceParts, SQL: "SELECT 1"},
			want: []string{"SELECT 1"},
		},
		{
			name: "dag_pair",
			in:   models.Evidence{Source: models.SourceMvDag, SQL: "Tables: SELECT a | Dependencies: SELECT b"},
			want: []string{"SELECT a", "SELECT b"},
		},
		{
			name: "dag_without_separator",
			in:   models.Evidence{Source: models.SourceMvDag, SQL: "SELECT a"},
			want: []string{"SELECT a"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, evidenceStatements(tc.in))
		})
	}
}

func TestRenderSQLFileDoesNotDoubleTerminate(t *testing.T) {
	report := &models.Report{Evidence: []models.Evidence{{ID: "ev-001", Source: models.SourceDisks, SQL: "SELECT 1;"}}}
	assert.Contains(t, renderSQLFile(report), "\nSELECT 1;\n")
	assert.NotContains(t, renderSQLFile(report), ";;")
}
