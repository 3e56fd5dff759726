package rules

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const (
	partsWarningThreshold  uint64 = 300
	partsCriticalThreshold uint64 = 1000
)

// PartsExplosionRule flags tables whose active part count outruns merges
type PartsExplosionRule struct{}

func (PartsExplosionRule) ID() string   { return "parts_explosion" }
func (PartsExplosionRule) Name() string { return "Parts Explosion" }

func (r PartsExplosionRule) Evaluate(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, key := range sortedKeys(ctx.Parts) {
		active := ctx.Parts[key].ActiveParts

		var (
			severity    models.Severity
			priority    models.Priority
			level       string
			threshold   uint64
			description string
		)
		switch {
		case active > partsCriticalThreshold:
			severity, priority, level, threshold = models.SeverityCritical, models.PriorityHigh, "critical", partsCriticalThreshold
			description = "Run OPTIMIZE TABLE to reduce parts count"
		case active > partsWarningThreshold:
			severity, priority, level, threshold = models.SeverityWarning, models.PriorityMedium, "warning", partsWarningThreshold
			description = "Consider running OPTIMIZE TABLE to reduce parts"
		default:
			continue
		}

		n := len(results) + 1
		results = append(results, RuleResult{
			Finding: models.Finding{
				ID:           findingID("parts", n),
				RuleID:       r.ID(),
				Severity:     severity,
				Target:       key,
				Message:      fmt.Sprintf("Table has %d active parts, exceeding %s threshold of %d", active, level, threshold),
				EvidenceRefs: ctx.EvidenceRefs(models.SourceParts),
				Confidence:   1.0,
			},
			Actions: []models.Action{{
				ID:          actionID("parts", n),
				FindingRef:  findingID("parts", n),
				ActionType:  models.ActionDDLProposal,
				Priority:    priority,
				Description: description,
				SQL:         stringPtr(fmt.Sprintf("OPTIMIZE TABLE %s FINAL", key)),
			}},
		})
	}
	return results
}
