package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSARIF(t *testing.T, path string) sarifLog {
	t.Helper()
	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded sarifLog
	require.NoError(t, json.Unmarshal(payload, &decoded))
	return decoded
}

func TestWriteSARIFProducesExpectedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.sarif")
	report := sampleReport(t)
	require.NoError(t, WriteSARIF(report, rules.DefaultRegistry(), "v1.2.3", path))

	decoded := readSARIF(t, path)
	assert.Equal(t, "2.1.0", decoded.Version)
	assert.Equal(t, sarifSchemaURI, decoded.Schema)
	require.Len(t, decoded.Runs, 1)

	run := decoded.Runs[0]
	require.NotNil(t, run.AutomationDetails)
	assert.Equal(t, "pipeaudit/audit/"+report.ReportID, run.AutomationDetails.ID)
	assert.Equal(t, "1.2.3", run.Tool.Driver.SemanticVersion)

	require.Len(t, run.Tool.Driver.Rules, 5)
	assert.Equal(t, "pipeaudit/parts_explosion", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, "Parts Explosion", run.Tool.Driver.Rules[0].Name)

	require.Len(t, run.Results, len(report.Findings))
	for i, result := range run.Results {
		finding := report.Findings[i]
		assert.Equal(t, "pipeaudit/"+finding.RuleID, result.RuleID)
		require.NotNil(t, result.RuleIndex)
		assert.Equal(t, result.RuleID, run.Tool.Driver.Rules[*result.RuleIndex].ID)
		assert.Equal(t, finding.Message, result.Message.Text)
		assert.Equal(t, hashFinding(finding.RuleID, finding.Target), result.PartialFingerprints[sarifFingerprintKey])
		require.Len(t, result.Locations, 1)
		assert.Equal(t, finding.Target, result.Locations[0].LogicalLocations[0].FullyQualifiedName)
	}
}

func TestWriteSARIFSeverityLevels(t *testing.T) {
	report := &models.Report{
		Findings: []models.Finding{
			{ID: "f-1", RuleID: "parts_explosion", Severity: models.SeverityCritical, Target: "db.events"},
			{ID: "f-2", RuleID: "disk_headroom", Severity: models.SeverityWarning, Target: "default"},
		},
	}
	path := filepath.Join(t.TempDir(), "report.sarif")
	require.NoError(t, WriteSARIF(report, rules.DefaultRegistry(), "dev", path))

	run := readSARIF(t, path).Runs[0]
	assert.Empty(t, run.Tool.Driver.SemanticVersion)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "table", run.Results[0].Locations[0].LogicalLocations[0].Kind)
	assert.Equal(t, "events", run.Results[0].Locations[0].LogicalLocations[0].Name)
	assert.Equal(t, "warning", run.Results[1].Level)
	assert.Equal(t, "object", run.Results[1].Locations[0].LogicalLocations[0].Kind)
}

func TestWriteSARIFUnknownRuleGetsDescriptor(t *testing.T) {
	report := &models.Report{
		Findings: []models.Finding{{ID: "f-1", RuleID: "custom", Severity: models.SeverityWarning, Target: "x"}},
	}
	path := filepath.Join(t.TempDir(), "report.sarif")
	require.NoError(t, WriteSARIF(report, nil, "dev", path))

	run := readSARIF(t, path).Runs[0]
	require.Len(t, run.Tool.Driver.Rules, 1)
	assert.Equal(t, "pipeaudit/custom", run.Tool.Driver.Rules[0].ID)
	assert.Equal(t, 0, *run.Results[0].RuleIndex)
}

func TestWriteSARIFEmptyResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.sarif")
	require.NoError(t, WriteSARIF(&models.Report{}, rules.DefaultRegistry(), "dev", path))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"results": []`)
}

func TestHashFindingIsStable(t *testing.T) {
	assert.Equal(t, hashFinding("parts_explosion", "db.t"), hashFinding("parts_explosion", "db.t"))
	assert.NotEqual(t, hashFinding("parts_explosion", "db.t"), hashFinding("parts_explosion", "db.u"))
	assert.Len(t, hashFinding("a"), 64)
}
