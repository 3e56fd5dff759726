package rules

import (
	"fmt"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const mutationStuckSec uint64 = 3600

var sqlLiteralEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// StuckMutationRule flags tables whose oldest running mutation is older
// than an hour. It only reports critical.
type StuckMutationRule struct{}

func (StuckMutationRule) ID() string   { return "stuck_mutation" }
func (StuckMutationRule) Name() string { return "Stuck Mutation" }

func (r StuckMutationRule) Evaluate(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, key := range sortedKeys(ctx.Mutations) {
		m := ctx.Mutations[key]
		if m.ActiveMutations == 0 || m.OldestActiveMutationAgeSec == nil {
			continue
		}
		age := *m.OldestActiveMutationAgeSec
		if age <= mutationStuckSec {
			continue
		}

		hours := float64(age) / 3600.0
		n := len(results) + 1
		results = append(results, RuleResult{
			Finding: models.Finding{
				ID:           findingID("mutation", n),
				RuleID:       r.ID(),
				Severity:     models.SeverityCritical,
				Target:       key,
				Message:      fmt.Sprintf("Mutation running for %.1f hours (threshold: 1 hour)", hours),
				EvidenceRefs: ctx.EvidenceRefs(models.SourceMutations),
				Confidence:   1.0,
			},
			Actions: []models.Action{{
				ID:          actionID("mutation", n),
				FindingRef:  findingID("mutation", n),
				ActionType:  models.ActionRecommendation,
				Priority:    models.PriorityHigh,
				Description: "Investigate mutation, consider KILL MUTATION if stuck",
				SQL: stringPtr(fmt.Sprintf(
					"SELECT * FROM system.mutations WHERE database = '%s' AND table = '%s' AND is_done = 0",
					sqlLiteralEscaper.Replace(m.Database), sqlLiteralEscaper.Replace(m.Table),
				)),
			}},
		})
	}
	return results
}
