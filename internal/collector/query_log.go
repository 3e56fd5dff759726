package collector

import (
	"context"
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// DefaultQueryLogLimit caps the number of fingerprints returned.
const DefaultQueryLogLimit = 20

// QueryLogCollector groups the last week of finished SELECTs by normalized
// fingerprint, heaviest readers first.
type QueryLogCollector struct{}

type queryLogRow struct {
	QueryFingerprint  string  `ch:"query_fingerprint"`
	ExecutionCount    uint64  `ch:"execution_count"`
	AvgDurationMs     float64 `ch:"avg_duration_ms"`
	TotalReadRows     uint64  `ch:"total_read_rows"`
	TotalReadBytes    uint64  `ch:"total_read_bytes"`
	TotalResultRows   uint64  `ch:"total_result_rows"`
	ReadAmplification float64 `ch:"read_amplification"`
	AvgMemoryBytes    uint64  `ch:"avg_memory_bytes"`
	SampleQuery       string  `ch:"sample_query"`
}

// BuildQuery returns the query_log aggregation. A non-positive limit
// falls back to DefaultQueryLogLimit.
func (QueryLogCollector) BuildQuery(database string, limit int) string {
	if limit <= 0 {
		limit = DefaultQueryLogLimit
	}
	return fmt.Sprintf(`
SELECT
    normalizeQuery(query) AS query_fingerprint,
    count() AS execution_count,
    avg(query_duration_ms) AS avg_duration_ms,
    sum(read_rows) AS total_read_rows,
    sum(read_bytes) AS total_read_bytes,
    sum(result_rows) AS total_result_rows,
    round(sum(read_rows) / greatest(sum(result_rows), 1), 2) AS read_amplification,
    toUInt64(avg(memory_usage)) AS avg_memory_bytes,
    any(query) AS sample_query
FROM system.query_log
WHERE type = 'QueryFinish'
  AND query_kind = 'Select'
  AND event_date >= today() - 7
  AND has(databases, %s)
GROUP BY query_fingerprint
ORDER BY total_read_rows DESC
LIMIT %d
`, quoteLiteral(database), limit)
}

// SQL returns the statement recorded as evidence.
func (c QueryLogCollector) SQL(database string, limit int) string {
	return c.BuildQuery(database, limit)
}

// Collect runs the query_log aggregation.
func (c QueryLogCollector) Collect(ctx context.Context, q Querier, database string, limit int) ([]models.QueryMetrics, error) {
	rows, err := FetchAll[queryLogRow](ctx, q, c.BuildQuery(database, limit))
	if err != nil {
		return nil, err
	}

	metrics := make([]models.QueryMetrics, 0, len(rows))
	for _, r := range rows {
		metrics = append(metrics, models.QueryMetrics{
			QueryFingerprint:  r.QueryFingerprint,
			ExecutionCount:    r.ExecutionCount,
			AvgDurationMs:     r.AvgDurationMs,
			TotalReadRows:     r.TotalReadRows,
			TotalReadBytes:    r.TotalReadBytes,
			TotalResultRows:   r.TotalResultRows,
			ReadAmplification: r.ReadAmplification,
			AvgMemoryBytes:    r.AvgMemoryBytes,
			SampleQuery:       models.StringPtr(r.SampleQuery),
		})
	}
	return metrics, nil
}
