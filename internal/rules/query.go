package rules

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const (
	readAmpWarning  = 100.0
	readAmpCritical = 1000.0

	maxTargetRunes = 80
)

// QueryAmplificationRule flags query fingerprints that read far more rows
// than they return
type QueryAmplificationRule struct{}

func (QueryAmplificationRule) ID() string   { return "query_amplification" }
func (QueryAmplificationRule) Name() string { return "Query Read Amplification" }

func (r QueryAmplificationRule) Evaluate(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, q := range ctx.Queries {
		amp := q.ReadAmplification

		var (
			severity    models.Severity
			priority    models.Priority
			message     string
			description string
		)
		switch {
		case amp > readAmpCritical:
			severity, priority = models.SeverityCritical, models.PriorityHigh
			message = fmt.Sprintf("Query has %.0fx read amplification (critical threshold: %.0fx)", amp, readAmpCritical)
			description = "Review query, add PREWHERE or adjust ORDER BY"
		case amp > readAmpWarning:
			severity, priority = models.SeverityWarning, models.PriorityMedium
			message = fmt.Sprintf("Query has %.0fx read amplification (warning threshold: %.0fx)", amp, readAmpWarning)
			description = "Consider optimizing query pattern"
		default:
			continue
		}

		n := len(results) + 1
		results = append(results, RuleResult{
			Finding: models.Finding{
				ID:           findingID("query", n),
				RuleID:       r.ID(),
				Severity:     severity,
				Target:       truncateFingerprint(q.QueryFingerprint),
				Message:      message,
				EvidenceRefs: ctx.EvidenceRefs(models.SourceQueryLog),
				Confidence:   1.0,
			},
			Actions: []models.Action{{
				ID:          actionID("query", n),
				FindingRef:  findingID("query", n),
				ActionType:  models.ActionRecommendation,
				Priority:    priority,
				Description: description,
			}},
		})
	}
	return results
}

// truncateFingerprint keeps targets at most 80 characters, ellipsis
// included. It cuts on rune boundaries.
func truncateFingerprint(fp string) string {
	runes := []rune(fp)
	if len(runes) <= maxTargetRunes {
		return fp
	}
	return string(runes[:maxTargetRunes-3]) + "..."
}
