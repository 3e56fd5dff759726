package models

import "math"

// PartsMetrics aggregates system.parts for one table
type PartsMetrics struct {
	Database    string  `json:"database"`
	Table       string  `json:"table"`
	PartsCount  uint64  `json:"parts_count"`
	ActiveParts uint64  `json:"active_parts"`
	TotalRows   uint64  `json:"total_rows"`
	BytesOnDisk uint64  `json:"bytes_on_disk"`
	OldestPart  *string `json:"oldest_part,omitempty"`
	NewestPart  *string `json:"newest_part,omitempty"`
}

// Key returns the "db.table" identifier used across the audit context.
func (m PartsMetrics) Key() string {
	return QualifiedName(m.Database, m.Table)
}

// MergeMetrics aggregates in-flight merges from system.merges for one table
type MergeMetrics struct {
	Database           string  `json:"database"`
	Table              string  `json:"table"`
	MergesInQueue      uint64  `json:"merges_in_queue"`
	MergeRowsRead      uint64  `json:"merge_rows_read"`
	MergeBytesRead     uint64  `json:"merge_bytes_read"`
	MaxMergeElapsedSec float64 `json:"max_merge_elapsed_sec"`
}

// Key returns the "db.table" identifier.
func (m MergeMetrics) Key() string {
	return QualifiedName(m.Database, m.Table)
}

// MutationMetrics aggregates system.mutations for one table
type MutationMetrics struct {
	Database                   string  `json:"database"`
	Table                      string  `json:"table"`
	TotalMutations             uint64  `json:"total_mutations"`
	ActiveMutations            uint64  `json:"active_mutations"`
	LatestMutationTime         *string `json:"latest_mutation_time,omitempty"`
	OldestActiveMutationAgeSec *uint64 `json:"oldest_active_mutation_age_sec,omitempty"`
}

// Key returns the "db.table" identifier.
func (m MutationMetrics) Key() string {
	return QualifiedName(m.Database, m.Table)
}

// DiskMetrics describes one entry of system.disks
type DiskMetrics struct {
	DiskName    string  `json:"disk_name"`
	Path        string  `json:"path"`
	TotalSpace  uint64  `json:"total_space"`
	FreeSpace   uint64  `json:"free_space"`
	FreePercent float64 `json:"free_percent"`
}

// UnmeasuredFreePercent stands in for disks without a usable capacity,
// such as object storage reporting total_space = 0. Headroom does not
// apply to them, so they never raise disk_headroom.
const UnmeasuredFreePercent = 100.0

// WithFinitePercent returns m with a NaN or infinite FreePercent replaced
// by UnmeasuredFreePercent.
func (m DiskMetrics) WithFinitePercent() DiskMetrics {
	if math.IsNaN(m.FreePercent) || math.IsInf(m.FreePercent, 0) {
		m.FreePercent = UnmeasuredFreePercent
	}
	return m
}

// QueryMetrics aggregates finished SELECTs sharing one normalized fingerprint
type QueryMetrics struct {
	QueryFingerprint  string  `json:"query_fingerprint"`
	ExecutionCount    uint64  `json:"execution_count"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	TotalReadRows     uint64  `json:"total_read_rows"`
	TotalReadBytes    uint64  `json:"total_read_bytes"`
	TotalResultRows   uint64  `json:"total_result_rows"`
	ReadAmplification float64 `json:"read_amplification"`
	AvgMemoryBytes    uint64  `json:"avg_memory_bytes"`
	SampleQuery       *string `json:"sample_query,omitempty"`
}

// TableType distinguishes plain tables from materialized views in the DAG
type TableType string

const (
	TableTypeTable            TableType = "table"
	TableTypeMaterializedView TableType = "materialized_view"
)

// MvDagNode is one table or materialized view of the target database
type MvDagNode struct {
	Name      string    `json:"name"`
	Database  string    `json:"database"`
	TableType TableType `json:"table_type"`
	Engine    string    `json:"engine"`
	Depth     int       `json:"depth"`
}

// Key returns the "db.name" identifier used by edges.
func (n MvDagNode) Key() string {
	return QualifiedName(n.Database, n.Name)
}

// MvDagEdge points from a source table to the view reading from it.
// Both endpoints are "db.name" strings.
type MvDagEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MvDagSection is the assembled materialized-view dependency graph
type MvDagSection struct {
	Nodes       []MvDagNode `json:"nodes"`
	Edges       []MvDagEdge `json:"edges"`
	MaxDepth    int         `json:"max_depth"`
	TotalTables int         `json:"total_tables"`
	TotalMVs    int         `json:"total_mvs"`
}

// QualifiedName joins a database and an object name as "db.name".
func QualifiedName(database, name string) string {
	return database + "." + name
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
