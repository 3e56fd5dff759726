package rules

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

const (
	diskWarningFreePct  = 20.0
	diskCriticalFreePct = 10.0
	bytesPerGiB         = 1073741824.0
)

// DiskHeadroomRule flags disks running out of free space
type DiskHeadroomRule struct{}

func (DiskHeadroomRule) ID() string   { return "disk_headroom" }
func (DiskHeadroomRule) Name() string { return "Disk Headroom" }

func (r DiskHeadroomRule) Evaluate(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, disk := range ctx.Disk {
		var (
			severity    models.Severity
			priority    models.Priority
			description string
		)
		switch {
		case disk.FreePercent < diskCriticalFreePct:
			severity, priority = models.SeverityCritical, models.PriorityHigh
			description = "Expand storage or implement TTL policy urgently"
		case disk.FreePercent < diskWarningFreePct:
			severity, priority = models.SeverityWarning, models.PriorityMedium
			description = "Consider expanding storage or implementing TTL"
		default:
			continue
		}

		freeGB := float64(disk.FreeSpace) / bytesPerGiB
		n := len(results) + 1
		results = append(results, RuleResult{
			Finding: models.Finding{
				ID:           findingID("disk", n),
				RuleID:       r.ID(),
				Severity:     severity,
				Target:       disk.DiskName,
				Message:      fmt.Sprintf("Disk %s has only %.1f%% free (%.1fGB)", disk.DiskName, disk.FreePercent, freeGB),
				EvidenceRefs: ctx.EvidenceRefs(models.SourceDisks),
				Confidence:   1.0,
			},
			Actions: []models.Action{{
				ID:          actionID("disk", n),
				FindingRef:  findingID("disk", n),
				ActionType:  models.ActionRecommendation,
				Priority:    priority,
				Description: description,
			}},
		})
	}
	return results
}
