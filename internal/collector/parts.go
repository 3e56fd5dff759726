package collector

import (
	"context"
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// PartsCollector aggregates system.parts per table
type PartsCollector struct{}

type partsRow struct {
	Database    string `ch:"database"`
	Table       string `ch:"table"`
	PartsCount  uint64 `ch:"parts_count"`
	ActiveParts uint64 `ch:"active_parts"`
	TotalRows   uint64 `ch:"total_rows"`
	BytesOnDisk uint64 `ch:"bytes_on_disk"`
	OldestPart  string `ch:"oldest_part"`
	NewestPart  string `ch:"newest_part"`
}

// BuildQuery returns the parts aggregation for tables of database.
func (PartsCollector) BuildQuery(database string, tables []string) string {
	return fmt.Sprintf(`
SELECT
    database,
    table,
    count() AS parts_count,
    countIf(active) AS active_parts,
    sum(rows) AS total_rows,
    sum(bytes_on_disk) AS bytes_on_disk,
    toString(min(modification_time)) AS oldest_part,
    toString(max(modification_time)) AS newest_part
FROM system.parts
WHERE %s
GROUP BY database, table
ORDER BY table
`, tableFilter(database, tables))
}

// SQL returns the statement recorded as evidence.
func (c PartsCollector) SQL(database string, tables []string) string {
	return c.BuildQuery(database, tables)
}

// Collect runs the parts query.
func (c PartsCollector) Collect(ctx context.Context, q Querier, database string, tables []string) ([]models.PartsMetrics, error) {
	rows, err := FetchAll[partsRow](ctx, q, c.BuildQuery(database, tables))
	if err != nil {
		return nil, err
	}

	metrics := make([]models.PartsMetrics, 0, len(rows))
	for _, r := range rows {
		metrics = append(metrics, models.PartsMetrics{
			Database:    r.Database,
			Table:       r.Table,
			PartsCount:  r.PartsCount,
			ActiveParts: r.ActiveParts,
			TotalRows:   r.TotalRows,
			BytesOnDisk: r.BytesOnDisk,
			OldestPart:  models.StringPtr(r.OldestPart),
			NewestPart:  models.StringPtr(r.NewestPart),
		})
	}
	return metrics, nil
}
