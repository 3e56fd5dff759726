package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/pipeaudit/internal/collector"
	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/rules"
)

var (
	// ErrDanglingAction means an action points at a finding that is not in the report.
	ErrDanglingAction = errors.New("action references unknown finding")
	// ErrInvalidSeverity means a rule produced a severity other than warning or critical.
	ErrInvalidSeverity = errors.New("invalid finding severity")
	// ErrDuplicateFinding means two findings share an id, leaving finding_ref ambiguous.
	ErrDuplicateFinding = errors.New("duplicate finding id")
	// ErrAlreadyBuilt is returned by a second call to Build.
	ErrAlreadyBuilt = errors.New("report already built")
)

// Option customises a Builder.
type Option func(*Builder)

// WithClock replaces time.Now for the generation and evidence timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator replaces the random report id.
func WithIDGenerator(newID func() string) Option {
	return func(b *Builder) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// keyed keeps first-insertion order while letting a later record for the
// same key replace the earlier one.
type keyed[T any] struct {
	order []string
	items map[string]T
}

func (k *keyed[T]) put(key string, item T) {
	if k.items == nil {
		k.items = make(map[string]T)
	}
	if _, ok := k.items[key]; !ok {
		k.order = append(k.order, key)
	}
	k.items[key] = item
}

func (k *keyed[T]) values() []T {
	out := make([]T, 0, len(k.order))
	for _, key := range k.order {
		out = append(out, k.items[key])
	}
	return out
}

func (k *keyed[T]) len() int {
	return len(k.order)
}

// Builder assembles one report. It is not safe for concurrent use and
// Build may be called once.
type Builder struct {
	targets models.Targets
	now     func() time.Time
	newID   func() string
	ledger  *Ledger

	parts     keyed[models.PartsMetrics]
	merges    keyed[models.MergeMetrics]
	mutations keyed[models.MutationMetrics]
	disk      []models.DiskMetrics
	queries   []models.QueryMetrics
	mvDag     *models.MvDagSection

	// evidence ids by source, last recorded wins
	evidence map[string]string

	findings []models.Finding
	actions  []models.Action
	built    bool
}

// NewBuilder starts an empty report for targets.
func NewBuilder(targets models.Targets, opts ...Option) *Builder {
	b := &Builder{
		targets:  targets,
		now:      time.Now,
		newID:    uuid.NewString,
		evidence: make(map[string]string),
		disk:     []models.DiskMetrics{},
		queries:  []models.QueryMetrics{},
		findings: []models.Finding{},
		actions:  []models.Action{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ledger = NewLedger(b.now)
	if b.targets.Tables == nil {
		b.targets.Tables = []string{}
	}
	return b
}

func (b *Builder) record(source, sql string) {
	b.evidence[source] = b.ledger.Record(source, sql)
}

// WithParts records the parts query as evidence and stores its metrics.
func (b *Builder) WithParts(metrics []models.PartsMetrics, sql string) *Builder {
	b.record(models.SourceParts, sql)
	for _, m := range metrics {
		b.parts.put(m.Key(), m)
	}
	return b
}

// WithMerges records the merges query as evidence and stores its metrics.
func (b *Builder) WithMerges(metrics []models.MergeMetrics, sql string) *Builder {
	b.record(models.SourceMerges, sql)
	for _, m := range metrics {
		b.merges.put(m.Key(), m)
	}
	return b
}

// WithMutations records the mutations query as evidence and stores its metrics.
func (b *Builder) WithMutations(metrics []models.MutationMetrics, sql string) *Builder {
	b.record(models.SourceMutations, sql)
	for _, m := range metrics {
		b.mutations.put(m.Key(), m)
	}
	return b
}

// WithDisk records the disks query as evidence and replaces the disk list.
func (b *Builder) WithDisk(metrics []models.DiskMetrics, sql string) *Builder {
	b.record(models.SourceDisks, sql)
	b.disk = make([]models.DiskMetrics, 0, len(metrics))
	for _, m := range metrics {
		b.disk = append(b.disk, m.WithFinitePercent())
	}
	return b
}

// WithQueries records the query_log query as evidence and replaces the query list.
func (b *Builder) WithQueries(metrics []models.QueryMetrics, sql string) *Builder {
	b.record(models.SourceQueryLog, sql)
	b.queries = append([]models.QueryMetrics{}, metrics...)
	return b
}

// WithMvDag records the DAG queries as evidence and stores the graph.
// A nil dag still records evidence but leaves the section absent.
func (b *Builder) WithMvDag(dag *models.MvDagSection, sql string) *Builder {
	b.record(models.SourceMvDag, sql)
	b.mvDag = dag
	return b
}

// WithSnapshot feeds every part of snap in collection order.
func (b *Builder) WithSnapshot(snap *collector.Snapshot) *Builder {
	return b.
		WithParts(snap.Parts, snap.PartsSQL).
		WithMerges(snap.Merges, snap.MergesSQL).
		WithMutations(snap.Mutations, snap.MutationsSQL).
		WithDisk(snap.Disks, snap.DisksSQL).
		WithQueries(snap.Queries, snap.QueriesSQL).
		WithMvDag(snap.MvDag, snap.MvDagSQL)
}

// RunRules evaluates registry over the metrics gathered so far and appends
// every finding and action.
func (b *Builder) RunRules(registry *rules.Registry) *Builder {
	ctx := b.auditContext()
	for _, result := range registry.EvaluateAll(ctx) {
		b.findings = append(b.findings, result.Finding)
		b.actions = append(b.actions, result.Actions...)
	}
	return b
}

func (b *Builder) auditContext() *rules.AuditContext {
	ctx := rules.NewAuditContext()
	for _, m := range b.parts.values() {
		ctx.AddParts(m)
	}
	for _, m := range b.merges.values() {
		ctx.AddMerges(m)
	}
	for _, m := range b.mutations.values() {
		ctx.AddMutations(m)
	}
	ctx.SetDisk(b.disk)
	ctx.SetQueries(b.queries)
	for source, id := range b.evidence {
		ctx.SetEvidence(source, id)
	}
	return ctx
}

// Build finalises the report. It fails when a finding has an unknown
// severity, a finding id repeats, or an action references a missing finding.
func (b *Builder) Build() (*models.Report, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true

	findingIDs := make(map[string]struct{}, len(b.findings))
	critical, warning := 0, 0
	for _, f := range b.findings {
		switch f.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityWarning:
			warning++
		default:
			return nil, fmt.Errorf("%w: finding %s has severity %q", ErrInvalidSeverity, f.ID, f.Severity)
		}
		if _, dup := findingIDs[f.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFinding, f.ID)
		}
		findingIDs[f.ID] = struct{}{}
	}
	for _, a := range b.actions {
		if _, ok := findingIDs[a.FindingRef]; !ok {
			return nil, fmt.Errorf("%w: action %s references %q", ErrDanglingAction, a.ID, a.FindingRef)
		}
	}

	return &models.Report{
		ReportVersion: models.ReportVersion,
		ReportID:      b.newID(),
		GeneratedAt:   b.now().UTC().Format(time.RFC3339),
		Targets:       b.targets,
		Summary: models.Summary{
			Status:        models.StatusFor(critical, warning),
			FindingsCount: len(b.findings),
			CriticalCount: critical,
			WarningCount:  warning,
		},
		Sections: b.sections(),
		Findings: b.findings,
		Actions:  b.actions,
		Evidence: b.ledger.All(),
	}, nil
}

func (b *Builder) sections() models.Sections {
	var s models.Sections
	if b.parts.len() > 0 {
		s.Parts = &models.PartsSection{Tables: b.parts.values()}
	}
	if b.merges.len() > 0 {
		s.Merges = &models.MergesSection{Tables: b.merges.values()}
	}
	if b.mutations.len() > 0 {
		s.Mutations = &models.MutationsSection{Tables: b.mutations.values()}
	}
	if len(b.disk) > 0 {
		s.Disk = &models.DiskSection{Disks: b.disk}
	}
	if len(b.queries) > 0 {
		s.QueryLog = &models.QueryLogSection{Queries: b.queries}
	}
	s.MvDag = b.mvDag
	return s
}
