package collector

import (
	"context"
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// MergesCollector aggregates in-flight merges per table
type MergesCollector struct{}

type mergesRow struct {
	Database           string  `ch:"database"`
	Table              string  `ch:"table"`
	MergesInQueue      uint64  `ch:"merges_in_queue"`
	MergeRowsRead      uint64  `ch:"merge_rows_read"`
	MergeBytesRead     uint64  `ch:"merge_bytes_read"`
	MaxMergeElapsedSec float64 `ch:"max_merge_elapsed_sec"`
}

// BuildQuery returns the merges aggregation for tables of database.
func (MergesCollector) BuildQuery(database string, tables []string) string {
	return fmt.Sprintf(`
SELECT
    database,
    table,
    count() AS merges_in_queue,
    sum(rows_read) AS merge_rows_read,
    sum(bytes_read_uncompressed) AS merge_bytes_read,
    max(elapsed) AS max_merge_elapsed_sec
FROM system.merges
WHERE %s
GROUP BY database, table
ORDER BY table
`, tableFilter(database, tables))
}

// SQL returns the statement recorded as evidence.
func (c MergesCollector) SQL(database string, tables []string) string {
	return c.BuildQuery(database, tables)
}

// Collect runs the merges query. Tables with no running merge produce no row.
func (c MergesCollector) Collect(ctx context.Context, q Querier, database string, tables []string) ([]models.MergeMetrics, error) {
	rows, err := FetchAll[mergesRow](ctx, q, c.BuildQuery(database, tables))
	if err != nil {
		return nil, err
	}

	metrics := make([]models.MergeMetrics, 0, len(rows))
	for _, r := range rows {
		metrics = append(metrics, models.MergeMetrics(r))
	}
	return metrics, nil
}
