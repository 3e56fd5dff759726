package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/pkg/config"
)

// Snapshot is everything one audit run read from ClickHouse, paired with
// the SQL that produced each part.
type Snapshot struct {
	Parts        []models.PartsMetrics
	PartsSQL     string
	Merges       []models.MergeMetrics
	MergesSQL    string
	Mutations    []models.MutationMetrics
	MutationsSQL string
	Disks        []models.DiskMetrics
	DisksSQL     string
	Queries      []models.QueryMetrics
	QueriesSQL   string
	MvDag        *models.MvDagSection
	MvDagSQL     string
}

// Collector runs every collector against one database, in a fixed order
type Collector struct {
	querier       Querier
	database      string
	tables        []string
	queryLogLimit int
	progress      io.Writer
}

// New creates a collector over q. Progress lines are written to progress
// when it is non-nil.
func New(q Querier, cfg *config.Config, progress io.Writer) *Collector {
	return &Collector{
		querier:       q,
		database:      cfg.Database,
		tables:        append([]string(nil), cfg.Tables...),
		queryLogLimit: cfg.QueryLogLimit,
		progress:      progress,
	}
}

// Collect runs the collectors sequentially. The first failure aborts the run.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	var (
		parts     PartsCollector
		merges    MergesCollector
		mutations MutationsCollector
		disks     DisksCollector
		queryLog  QueryLogCollector
		mvDag     MvDagCollector
	)

	snap.PartsSQL = parts.SQL(c.database, c.tables)
	if err := c.step(ctx, "parts", func() (n int, err error) {
		snap.Parts, err = parts.Collect(ctx, c.querier, c.database, c.tables)
		return len(snap.Parts), err
	}); err != nil {
		return nil, err
	}

	snap.MergesSQL = merges.SQL(c.database, c.tables)
	if err := c.step(ctx, "merges", func() (n int, err error) {
		snap.Merges, err = merges.Collect(ctx, c.querier, c.database, c.tables)
		return len(snap.Merges), err
	}); err != nil {
		return nil, err
	}

	snap.MutationsSQL = mutations.SQL(c.database, c.tables)
	if err := c.step(ctx, "mutations", func() (n int, err error) {
		snap.Mutations, err = mutations.Collect(ctx, c.querier, c.database, c.tables)
		return len(snap.Mutations), err
	}); err != nil {
		return nil, err
	}

	snap.DisksSQL = disks.SQL()
	if err := c.step(ctx, "disks", func() (n int, err error) {
		snap.Disks, err = disks.Collect(ctx, c.querier)
		return len(snap.Disks), err
	}); err != nil {
		return nil, err
	}

	snap.QueriesSQL = queryLog.SQL(c.database, c.queryLogLimit)
	if err := c.step(ctx, "query_log", func() (n int, err error) {
		snap.Queries, err = queryLog.Collect(ctx, c.querier, c.database, c.queryLogLimit)
		return len(snap.Queries), err
	}); err != nil {
		return nil, err
	}

	snap.MvDagSQL = mvDag.SQL(c.database)
	if err := c.step(ctx, "mv_dag", func() (n int, err error) {
		snap.MvDag, err = mvDag.Collect(ctx, c.querier, c.database)
		if err != nil {
			return 0, err
		}
		return len(snap.MvDag.Nodes), nil
	}); err != nil {
		return nil, err
	}

	return snap, nil
}

func (c *Collector) step(ctx context.Context, name string, run func() (int, error)) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	c.printf("Collecting %s...\n", name)

	start := time.Now()
	count, err := run()
	if err != nil {
		return fmt.Errorf("collect %s: %w", name, err)
	}

	slog.Debug("collector finished",
		slog.String("collector", name),
		slog.Int("records", count),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (c *Collector) printf(format string, args ...any) {
	if c.progress == nil {
		return
	}
	fmt.Fprintf(c.progress, format, args...)
}
