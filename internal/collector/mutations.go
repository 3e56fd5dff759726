package collector

import (
	"context"
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// MutationsCollector aggregates system.mutations per table
type MutationsCollector struct{}

type mutationsRow struct {
	Database                   string `ch:"database"`
	Table                      string `ch:"table"`
	TotalMutations             uint64 `ch:"total_mutations"`
	ActiveMutations            uint64 `ch:"active_mutations"`
	LatestMutationTime         string `ch:"latest_mutation_time"`
	OldestActiveMutationAgeSec uint64 `ch:"oldest_active_mutation_age_sec"`
}

// BuildQuery returns the mutations aggregation for tables of database.
func (MutationsCollector) BuildQuery(database string, tables []string) string {
	return fmt.Sprintf(`
SELECT
    database,
    table,
    count() AS total_mutations,
    countIf(is_done = 0) AS active_mutations,
    toString(max(create_time)) AS latest_mutation_time,
    toUInt64(maxIf(dateDiff('second', create_time, now()), is_done = 0)) AS oldest_active_mutation_age_sec
FROM system.mutations
WHERE %s
GROUP BY database, table
ORDER BY table
`, tableFilter(database, tables))
}

// SQL returns the statement recorded as evidence.
func (c MutationsCollector) SQL(database string, tables []string) string {
	return c.BuildQuery(database, tables)
}

// Collect runs the mutations query. The age is only meaningful while a
// mutation is still running and is dropped otherwise.
func (c MutationsCollector) Collect(ctx context.Context, q Querier, database string, tables []string) ([]models.MutationMetrics, error) {
	rows, err := FetchAll[mutationsRow](ctx, q, c.BuildQuery(database, tables))
	if err != nil {
		return nil, err
	}

	metrics := make([]models.MutationMetrics, 0, len(rows))
	for _, r := range rows {
		m := models.MutationMetrics{
			Database:           r.Database,
			Table:              r.Table,
			TotalMutations:     r.TotalMutations,
			ActiveMutations:    r.ActiveMutations,
			LatestMutationTime: models.StringPtr(r.LatestMutationTime),
		}
		if r.ActiveMutations > 0 {
			age := r.OldestActiveMutationAgeSec
			m.OldestActiveMutationAgeSec = &age
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
