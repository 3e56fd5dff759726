package collector

import (
	"context"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// DisksCollector reads system.disks. It is not filtered by table.
type DisksCollector struct{}

type disksRow struct {
	DiskName    string  `ch:"disk_name"`
	Path        string  `ch:"path"`
	TotalSpace  uint64  `ch:"total_space"`
	FreeSpace   uint64  `ch:"free_space"`
	FreePercent float64 `ch:"free_percent"`
}

const disksSQL = `
SELECT
    name AS disk_name,
    path,
    total_space,
    free_space,
    if(total_space = 0, 100, round(100.0 * free_space / total_space, 2)) AS free_percent
FROM system.disks
ORDER BY disk_name
`

// BuildQuery returns the disks query.
func (DisksCollector) BuildQuery() string {
	return disksSQL
}

// SQL returns the statement recorded as evidence.
func (c DisksCollector) SQL() string {
	return c.BuildQuery()
}

// Collect runs the disks query.
func (c DisksCollector) Collect(ctx context.Context, q Querier) ([]models.DiskMetrics, error) {
	rows, err := FetchAll[disksRow](ctx, q, c.BuildQuery())
	if err != nil {
		return nil, err
	}

	metrics := make([]models.DiskMetrics, 0, len(rows))
	for _, r := range rows {
		metrics = append(metrics, models.DiskMetrics(r).WithFinitePercent())
	}
	return metrics, nil
}
