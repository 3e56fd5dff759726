package reporter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/report"
	"github.com/ppiankov/pipeaudit/internal/rules"
	"github.com/ppiankov/pipeaudit/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureTime = time.Date(2026, 2, 17, 8, 0, 0, 0, time.UTC)

// sampleReport runs the default rules over a pipeline with one critical
// parts finding, one low disk and a two-level MV chain.
func sampleReport(t *testing.T) *models.Report {
	t.Helper()

	age := uint64(5400)
	built, err := report.NewBuilder(
		models.Targets{Endpoint: "http://localhost:8123", Database: "testdb", Tables: []string{"events"}},
		report.WithClock(func() time.Time { return fixtureTime }),
		report.WithIDGenerator(func() string { return "9b2f3c1e-0000-4000-8000-000000000000" }),
	).
		WithParts([]models.PartsMetrics{{Database: "testdb", Table: "events", PartsCount: 1600, ActiveParts: 1500, TotalRows: 10_000, BytesOnDisk: 1 << 20, OldestPart: models.StringPtr("2026-02-16 00:00:00")}}, "SELECT parts FROM system.parts").
		WithMerges(nil, "SELECT merges FROM system.merges").
		WithMutations([]models.MutationMetrics{{Database: "testdb", Table: "events", TotalMutations: 2, ActiveMutations: 1, OldestActiveMutationAgeSec: &age}}, "SELECT mutations FROM system.mutations").
		WithDisk([]models.DiskMetrics{{DiskName: "default", Path: "/var/lib/clickhouse/", TotalSpace: 100 << 30, FreeSpace: 15 << 30, FreePercent: 15.0}}, "SELECT disks FROM system.disks").
		WithQueries(nil, "SELECT queries FROM system.query_log").
		WithMvDag(&models.MvDagSection{
			Nodes: []models.MvDagNode{
				{Name: "events", Database: "testdb", TableType: models.TableTypeTable, Engine: "MergeTree", Depth: 0},
				{Name: "events_daily", Database: "testdb", TableType: models.TableTypeMaterializedView, Engine: "MaterializedView", Depth: 1},
				{Name: "events_weekly", Database: "testdb", TableType: models.TableTypeMaterializedView, Engine: "MaterializedView", Depth: 2},
			},
			Edges: []models.MvDagEdge{
				{From: "testdb.events", To: "testdb.events_daily"},
				{From: "testdb.events_daily", To: "testdb.events_weekly"},
			},
			MaxDepth: 2, TotalTables: 1, TotalMVs: 2,
		}, "Tables: SELECT tables FROM system.tables | Dependencies: SELECT deps FROM system.tables").
		RunRules(rules.DefaultRegistry()).
		Build()
	require.NoError(t, err)
	return built
}

func TestGenerateWritesConfiguredOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutPath = filepath.Join(dir, "nested", "report.json")
	cfg.SQLFile = filepath.Join(dir, "evidence.sql")
	cfg.SARIFPath = filepath.Join(dir, "report.sarif")
	cfg.MetricsPath = filepath.Join(dir, "pipeaudit.prom")

	path, err := New(cfg, rules.DefaultRegistry(), "v1.0.0").Generate(sampleReport(t))
	require.NoError(t, err)
	assert.Equal(t, cfg.OutPath, path)

	for _, p := range []string{cfg.OutPath, cfg.SQLFile, cfg.SARIFPath, cfg.MetricsPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestGenerateSkipsOptionalOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutPath = filepath.Join(dir, "report.json")

	_, err := New(cfg, rules.DefaultRegistry(), "dev").Generate(sampleReport(t))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.json", entries[0].Name())
}

func TestGenerateReturnsAbsolutePath(t *testing.T) {
	chdirForTest(t, t.TempDir())
	cfg := config.DefaultConfig()
	cfg.OutPath = "report.json"

	path, err := New(cfg, nil, "dev").Generate(sampleReport(t))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "report.json", filepath.Base(path))
}

func TestGenerateOutputError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := config.DefaultConfig()
	cfg.OutPath = filepath.Join(blocker, "report.json")

	_, err := New(cfg, nil, "dev").Generate(sampleReport(t))
	require.Error(t, err)

	var outErr *OutputError
	require.True(t, errors.As(err, &outErr))
	assert.Equal(t, cfg.OutPath, outErr.Path)
	assert.Contains(t, err.Error(), cfg.OutPath)
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
