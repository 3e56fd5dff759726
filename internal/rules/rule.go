package rules

import (
	"fmt"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// Rule turns an audit context into findings. Evaluate must not fail:
// missing input yields no results.
type Rule interface {
	// ID is stable and unique within a registry.
	ID() string
	Name() string
	Evaluate(ctx *AuditContext) []RuleResult
}

// RuleResult pairs one finding with the actions proposed for it
type RuleResult struct {
	Finding models.Finding
	Actions []models.Action
}

// Registry holds rules in registration order
type Registry struct {
	rules []Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns the five built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		PartsExplosionRule{},
		MergeBacklogRule{},
		DiskHeadroomRule{},
		QueryAmplificationRule{},
		StuckMutationRule{},
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends rule. Its ID must not already be registered.
func (r *Registry) Register(rule Rule) error {
	for _, existing := range r.rules {
		if existing.ID() == rule.ID() {
			return fmt.Errorf("rule %q is already registered", rule.ID())
		}
	}
	r.rules = append(r.rules, rule)
	return nil
}

// EvaluateAll runs every rule and concatenates the results in registration order.
func (r *Registry) EvaluateAll(ctx *AuditContext) []RuleResult {
	results := []RuleResult{}
	for _, rule := range r.rules {
		results = append(results, rule.Evaluate(ctx)...)
	}
	return results
}

func (r *Registry) Len() int {
	return len(r.rules)
}

func (r *Registry) IsEmpty() bool {
	return len(r.rules) == 0
}

// RuleIDs lists rule ids in registration order.
func (r *Registry) RuleIDs() []string {
	ids := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		ids = append(ids, rule.ID())
	}
	return ids
}

// Rules returns a copy of the registered rules.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

func findingID(prefix string, n int) string {
	return fmt.Sprintf("f-%s-%d", prefix, n)
}

func actionID(prefix string, n int) string {
	return fmt.Sprintf("a-%s-%d", prefix, n)
}

func stringPtr(s string) *string {
	return &s
}
