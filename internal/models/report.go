package models

// ReportVersion is the schema version stamped on every report
const ReportVersion = "1.0.0"

// Report is the complete output document of one audit run
type Report struct {
	ReportVersion string     `json:"report_version"`
	ReportID      string     `json:"report_id"`
	GeneratedAt   string     `json:"generated_at"`
	Targets       Targets    `json:"targets"`
	Summary       Summary    `json:"summary"`
	Sections      Sections   `json:"sections"`
	Findings      []Finding  `json:"findings"`
	Actions       []Action   `json:"actions"`
	Evidence      []Evidence `json:"evidence"`
}

// Targets records what the operator asked to audit
type Targets struct {
	Endpoint string   `json:"endpoint"`
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
}

// Status is the overall health verdict of a report
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Summary holds finding counts and the derived status
type Summary struct {
	Status        Status `json:"status"`
	FindingsCount int    `json:"findings_count"`
	CriticalCount int    `json:"critical_count"`
	WarningCount  int    `json:"warning_count"`
}

// StatusFor derives the report status from severity counts.
func StatusFor(criticalCount, warningCount int) Status {
	switch {
	case criticalCount > 0:
		return StatusCritical
	case warningCount > 0:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// Sections holds the collected metrics. A section is nil when its
// collector produced no records.
type Sections struct {
	Parts     *PartsSection     `json:"parts,omitempty"`
	Merges    *MergesSection    `json:"merges,omitempty"`
	Mutations *MutationsSection `json:"mutations,omitempty"`
	Disk      *DiskSection      `json:"disk,omitempty"`
	QueryLog  *QueryLogSection  `json:"query_log,omitempty"`
	MvDag     *MvDagSection     `json:"mv_dag,omitempty"`
}

type PartsSection struct {
	Tables []PartsMetrics `json:"tables"`
}

type MergesSection struct {
	Tables []MergeMetrics `json:"tables"`
}

type MutationsSection struct {
	Tables []MutationMetrics `json:"tables"`
}

type DiskSection struct {
	Disks []DiskMetrics `json:"disks"`
}

type QueryLogSection struct {
	Queries []QueryMetrics `json:"queries"`
}

// Severity of a finding. Only warning and critical exist; a healthy
// condition produces no finding at all.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Finding is a rule-produced observation about one target
type Finding struct {
	ID           string   `json:"id"`
	RuleID       string   `json:"rule_id"`
	Severity     Severity `json:"severity"`
	Target       string   `json:"target"` // "db.table", disk name or query fingerprint
	Message      string   `json:"message"`
	EvidenceRefs []string `json:"evidence_refs"`
	Confidence   float64  `json:"confidence"`
}

// ActionType classifies a suggested remediation
type ActionType string

const (
	ActionRecommendation ActionType = "recommendation"
	ActionDDLProposal    ActionType = "ddl_proposal"
)

// Priority of an action
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Action is a suggested remediation attached to exactly one finding.
// SQL is proposed text only and never executed.
type Action struct {
	ID          string     `json:"id"`
	FindingRef  string     `json:"finding_ref"`
	ActionType  ActionType `json:"action_type"`
	Priority    Priority   `json:"priority"`
	Description string     `json:"description"`
	SQL         *string    `json:"sql,omitempty"`
}

// Evidence sources, one per collector
const (
	SourceParts     = "system.parts"
	SourceMerges    = "system.merges"
	SourceMutations = "system.mutations"
	SourceDisks     = "system.disks"
	SourceQueryLog  = "system.query_log"
	SourceMvDag     = "system.tables"
)

// Evidence links findings to the source query that produced their inputs
type Evidence struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	SQL         string `json:"sql"`
	CollectedAt string `json:"collected_at"`
}
