package reporter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/rules"
)

const (
	sarifRulePrefix     = "pipeaudit/"
	sarifFingerprintKey = "pipeaudit/findingHash"
	sarifSchemaURI      = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/cs01/schemas/sarif-schema-2.1.0.json"
)

var semanticVersionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool               `json:"tool"`
	Results           []sarifResult           `json:"results"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifAutomationDetails struct {
	ID string `json:"id"`
}

type sarifDriver struct {
	Name            string       `json:"name"`
	Version         string       `json:"version,omitempty"`
	InformationURI  string       `json:"informationUri,omitempty"`
	ShortDesc       sarifMessage `json:"shortDescription"`
	FullDesc        sarifMessage `json:"fullDescription"`
	Rules           []sarifRule  `json:"rules"`
	SemanticVersion string       `json:"semanticVersion,omitempty"`
}

type sarifRule struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ShortDesc     sarifMessage `json:"shortDescription"`
	DefaultConfig sarifConfig  `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Level               string            `json:"level,omitempty"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// WriteSARIF writes the findings of report as SARIF 2.1.0 to path. Every
// rule in registry gets a descriptor, plus any rule id that only appears
// in the findings.
func WriteSARIF(report *models.Report, registry *rules.Registry, version, path string) error {
	if report == nil {
		return &OutputError{Path: path, Err: fmt.Errorf("report is nil")}
	}

	descriptors, index := buildSARIFRules(registry, report.Findings)
	output := sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchemaURI,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:            "pipeaudit",
						Version:         version,
						SemanticVersion: normalizeSemanticVersion(version),
						InformationURI:  "https://github.com/ppiankov/pipeaudit",
						ShortDesc:       sarifMessage{Text: "ClickHouse ingestion pipeline auditor"},
						FullDesc:        sarifMessage{Text: "Detects parts explosion, merge backlog, stuck mutations, low disk headroom and read amplification from ClickHouse system tables."},
						Rules:           descriptors,
					},
				},
				Results: buildSARIFResults(report, index),
				AutomationDetails: &sarifAutomationDetails{
					ID: "pipeaudit/audit/" + report.ReportID,
				},
			},
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return &OutputError{Path: path, Err: fmt.Errorf("marshal SARIF: %w", err)}
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func buildSARIFRules(registry *rules.Registry, findings []models.Finding) ([]sarifRule, map[string]int) {
	descriptors := make([]sarifRule, 0)
	index := make(map[string]int)

	add := func(id, name string) {
		if _, ok := index[id]; ok {
			return
		}
		index[id] = len(descriptors)
		descriptors = append(descriptors, sarifRule{
			ID:            sarifRulePrefix + id,
			Name:          name,
			ShortDesc:     sarifMessage{Text: name},
			DefaultConfig: sarifConfig{Level: "warning"},
		})
	}

	if registry != nil {
		for _, rule := range registry.Rules() {
			add(rule.ID(), rule.Name())
		}
	}
	for _, f := range findings {
		add(f.RuleID, f.RuleID)
	}
	return descriptors, index
}

func buildSARIFResults(report *models.Report, index map[string]int) []sarifResult {
	results := make([]sarifResult, 0, len(report.Findings))
	for _, f := range report.Findings {
		ruleIndex := index[f.RuleID]
		results = append(results, sarifResult{
			RuleID:    sarifRulePrefix + f.RuleID,
			RuleIndex: &ruleIndex,
			Level:     mapSeverityToSARIFLevel(f.Severity),
			Message:   sarifMessage{Text: f.Message},
			Locations: targetLocation(f.Target),
			PartialFingerprints: map[string]string{
				sarifFingerprintKey: hashFinding(f.RuleID, f.Target),
			},
			Properties: map[string]any{
				"finding_id":    f.ID,
				"severity":      string(f.Severity),
				"evidence_refs": f.EvidenceRefs,
				"confidence":    f.Confidence,
			},
		})
	}
	return results
}

func targetLocation(target string) []sarifLocation {
	normalized := strings.TrimSpace(target)
	if normalized == "" {
		normalized = "unknown"
	}

	name := normalized
	kind := "object"
	if db, table, ok := strings.Cut(normalized, "."); ok && db != "" && table != "" && !strings.ContainsAny(normalized, " \t(") {
		name = table
		kind = "table"
	}

	return []sarifLocation{
		{
			LogicalLocations: []sarifLogicalLocation{
				{
					Name:               name,
					FullyQualifiedName: normalized,
					Kind:               kind,
				},
			},
		},
	}
}

func mapSeverityToSARIFLevel(severity models.Severity) string {
	if severity == models.SeverityCritical {
		return "error"
	}
	return "warning"
}

func normalizeSemanticVersion(version string) string {
	normalized := strings.TrimSpace(strings.TrimPrefix(version, "v"))
	if semanticVersionPattern.MatchString(normalized) {
		return normalized
	}
	return ""
}

func hashFinding(parts ...string) string {
	canonical := strings.Join(parts, "\x1f")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
