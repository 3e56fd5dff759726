package rules

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const (
	mergeQueueWarning      uint64  = 10
	mergeElapsedWarningSec float64 = 3600
)

// MergeBacklogRule flags tables with a long merge queue or a slow merge.
// It never reports critical.
type MergeBacklogRule struct{}

func (MergeBacklogRule) ID() string   { return "merge_backlog" }
func (MergeBacklogRule) Name() string { return "Merge Backlog" }

func (r MergeBacklogRule) Evaluate(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, key := range sortedKeys(ctx.Merges) {
		m := ctx.Merges[key]
		queueHigh := m.MergesInQueue > mergeQueueWarning
		elapsedHigh := m.MaxMergeElapsedSec > mergeElapsedWarningSec

		var message string
		switch {
		case queueHigh && elapsedHigh:
			message = fmt.Sprintf("Merge queue has %d items and longest merge running for %.0fs", m.MergesInQueue, m.MaxMergeElapsedSec)
		case queueHigh:
			message = fmt.Sprintf("Merge queue has %d items (threshold: %d)", m.MergesInQueue, mergeQueueWarning)
		case elapsedHigh:
			message = fmt.Sprintf("Longest merge running for %.0fs (threshold: %.0fs)", m.MaxMergeElapsedSec, mergeElapsedWarningSec)
		default:
			continue
		}

		n := len(results) + 1
		results = append(results, RuleResult{
			Finding: models.Finding{
				ID:           findingID("merge", n),
				RuleID:       r.ID(),
				Severity:     models.SeverityWarning,
				Target:       key,
				Message:      message,
				EvidenceRefs: ctx.EvidenceRefs(models.SourceMerges),
				Confidence:   1.0,
			},
			Actions: []models.Action{{
				ID:          actionID("merge", n),
				FindingRef:  findingID("merge", n),
				ActionType:  models.ActionRecommendation,
				Priority:    models.PriorityMedium,
				Description: "Review write rate, consider throttling ingestion",
			}},
		})
	}
	return results
}
