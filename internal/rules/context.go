package rules

import (
	"sort"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// AuditContext is the read-only input of every rule. Per-table metrics are
// keyed by "db.table"; a later record for the same key replaces the earlier.
type AuditContext struct {
	Parts     map[string]models.PartsMetrics
	Merges    map[string]models.MergeMetrics
	Mutations map[string]models.MutationMetrics
	Disk      []models.DiskMetrics
	Queries   []models.QueryMetrics

	// evidence maps a source name such as "system.parts" to its ledger id.
	evidence map[string]string
}

// NewAuditContext returns an empty context.
func NewAuditContext() *AuditContext {
	return &AuditContext{
		Parts:     make(map[string]models.PartsMetrics),
		Merges:    make(map[string]models.MergeMetrics),
		Mutations: make(map[string]models.MutationMetrics),
		Disk:      []models.DiskMetrics{},
		Queries:   []models.QueryMetrics{},
		evidence:  make(map[string]string),
	}
}

func (c *AuditContext) AddParts(m models.PartsMetrics) {
	c.Parts[m.Key()] = m
}

func (c *AuditContext) AddMerges(m models.MergeMetrics) {
	c.Merges[m.Key()] = m
}

func (c *AuditContext) AddMutations(m models.MutationMetrics) {
	c.Mutations[m.Key()] = m
}

func (c *AuditContext) SetDisk(disks []models.DiskMetrics) {
	c.Disk = append([]models.DiskMetrics{}, disks...)
}

func (c *AuditContext) SetQueries(queries []models.QueryMetrics) {
	c.Queries = append([]models.QueryMetrics{}, queries...)
}

// SetEvidence records which evidence entry holds the SQL for source.
func (c *AuditContext) SetEvidence(source, evidenceID string) {
	c.evidence[source] = evidenceID
}

// EvidenceRefs returns the evidence ids backing source. The result is never
// nil so it always serializes as a JSON array.
func (c *AuditContext) EvidenceRefs(source string) []string {
	if id, ok := c.evidence[source]; ok {
		return []string{id}
	}
	return []string{}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
