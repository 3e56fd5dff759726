package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// MvDagCollector builds the materialized-view dependency graph of a database
type MvDagCollector struct{}

type tableRow struct {
	Database string `ch:"database"`
	Name     string `ch:"name"`
	Engine   string `ch:"engine"`
}

// dependencyRow reads as "database.name depends on dep_database.dep_table".
type dependencyRow struct {
	Database    string `ch:"database"`
	Name        string `ch:"name"`
	DepDatabase string `ch:"dep_database"`
	DepTable    string `ch:"dep_table"`
}

// BuildTablesQuery lists every table of database with its engine.
func (MvDagCollector) BuildTablesQuery(database string) string {
	return fmt.Sprintf(`
SELECT
    database,
    name,
    engine
FROM system.tables
WHERE database = %s
ORDER BY name
`, quoteLiteral(database))
}

// BuildDependenciesQuery flattens the dependents of every table of database.
// system.tables lists, on the source row, the views that read from it; the
// two arrays are zipped so each output row is one (dependent, source) pair.
func (MvDagCollector) BuildDependenciesQuery(database string) string {
	return fmt.Sprintf(`
SELECT
    dependent_database AS database,
    dependent_table AS name,
    source_database AS dep_database,
    source_table AS dep_table
FROM (
    SELECT
        database AS source_database,
        name AS source_table,
        dependent_database,
        dependent_table
    FROM system.tables
    ARRAY JOIN
        dependencies_database AS dependent_database,
        dependencies_table AS dependent_table
    WHERE database = %s AND notEmpty(dependencies_table)
)
ORDER BY database, name, dep_database, dep_table
`, quoteLiteral(database))
}

// SQL returns both statements joined for the evidence ledger.
func (c MvDagCollector) SQL(database string) string {
	return fmt.Sprintf("Tables: %s | Dependencies: %s",
		strings.TrimSpace(c.BuildTablesQuery(database)),
		strings.TrimSpace(c.BuildDependenciesQuery(database)),
	)
}

// Collect runs both queries and assembles the graph.
func (c MvDagCollector) Collect(ctx context.Context, q Querier, database string) (*models.MvDagSection, error) {
	tables, err := FetchAll[tableRow](ctx, q, c.BuildTablesQuery(database))
	if err != nil {
		return nil, err
	}
	deps, err := FetchAll[dependencyRow](ctx, q, c.BuildDependenciesQuery(database))
	if err != nil {
		return nil, err
	}
	return assembleDag(database, tables, deps), nil
}

func assembleDag(database string, tables []tableRow, deps []dependencyRow) *models.MvDagSection {
	dependsOn := make(map[string][]string)
	edges := make([]models.MvDagEdge, 0, len(deps))
	for _, d := range deps {
		to := models.QualifiedName(d.Database, d.Name)
		from := models.QualifiedName(d.DepDatabase, d.DepTable)
		dependsOn[to] = append(dependsOn[to], from)
		edges = append(edges, models.MvDagEdge{From: from, To: to})
	}

	depths := calculateDepths(database, tables, dependsOn)

	nodes := make([]models.MvDagNode, 0, len(tables))
	mvCount := 0
	maxDepth := 0
	for _, t := range tables {
		tableType := models.TableTypeTable
		if strings.Contains(t.Engine, "MaterializedView") {
			tableType = models.TableTypeMaterializedView
			mvCount++
		}
		node := models.MvDagNode{
			Name:      t.Name,
			Database:  t.Database,
			TableType: tableType,
			Engine:    t.Engine,
			Depth:     depths[models.QualifiedName(t.Database, t.Name)],
		}
		if node.Depth > maxDepth {
			maxDepth = node.Depth
		}
		nodes = append(nodes, node)
	}

	return &models.MvDagSection{
		Nodes:       nodes,
		Edges:       edges,
		MaxDepth:    maxDepth,
		TotalTables: len(tables) - mvCount,
		TotalMVs:    mvCount,
	}
}

// calculateDepths assigns each node the length of its longest path from a
// root. Roots are tables that depend on nothing. Relaxation stops at a fixed
// point or after one pass per node, whichever comes first; only a cycle can
// reach the cap.
func calculateDepths(database string, tables []tableRow, dependsOn map[string][]string) map[string]int {
	depths := make(map[string]int, len(tables))
	for _, t := range tables {
		key := models.QualifiedName(t.Database, t.Name)
		if _, ok := dependsOn[key]; !ok {
			depths[key] = 0
		}
	}

	keys := make([]string, 0, len(dependsOn))
	prefix := database + "."
	for key := range dependsOn {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	maxPasses := max(len(tables), 1)
	changed := true
	for pass := 0; changed && pass < maxPasses; pass++ {
		changed = false
		for _, key := range keys {
			best, found := -1, false
			for _, dep := range dependsOn[key] {
				if d, ok := depths[dep]; ok && d > best {
					best, found = d, true
				}
			}
			if !found {
				continue
			}
			if current, ok := depths[key]; !ok || current < best+1 {
				depths[key] = best + 1
				changed = true
			}
		}
	}

	if changed {
		slog.Warn("materialized view dependency graph did not converge; depths may be incomplete",
			slog.String("database", database),
			slog.Int("nodes", len(tables)),
			slog.Int("passes", maxPasses),
		)
	}

	return depths
}
