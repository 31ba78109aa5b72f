// Package validator implements the three validation layers of the
// curation pipeline: per-case structural checks over the causal graph,
// rubric-based quality scoring, and corpus-level duplicate and
// distribution verification. Validators are pure: given the same input
// and configuration they return the same issues, and they never mutate
// the cases they inspect.
package validator

import (
	"fmt"
	"strings"

	"github.com/sells-group/caseforge/internal/causal"
	"github.com/sells-group/caseforge/internal/model"
)

// Rule ids emitted by the structural validator.
const (
	RuleParse    = "structure.parse"
	RuleCycle    = "structure.cycle"
	RuleBackdoor = "structure.backdoor"
	RuleCollider = "structure.collider"
	RuleRole     = "structure.role"
	RuleUnused   = "structure.unused"
)

// controlVocabulary are the phrases the collider heuristic looks for in
// reasoning steps.
var controlVocabulary = []string{
	"control for", "controls for", "controlling for", "controlled for",
	"adjust for", "adjusts for", "adjusting for", "adjusted for",
	"condition on", "conditions on", "conditioning on", "conditioned on",
}

// Structural validates the well-formedness of a case's causal graph.
type Structural struct{}

// NewStructural creates a structural validator.
func NewStructural() *Structural { return &Structural{} }

// Validate parses the case's causal structure and applies the graph
// rules in priority order. Issues come back sorted by rule priority,
// one cycle issue per case at most.
func (v *Structural) Validate(c *model.Case) []model.ValidationIssue {
	var issues []model.ValidationIssue

	g, err := causal.Parse(c.CausalStructure)
	if err != nil {
		return []model.ValidationIssue{{
			RuleID:   RuleParse,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("causal structure does not parse: %v", err),
			CaseID:   c.ID,
		}}
	}

	// Acyclicity. A cyclic causal graph is nonsensical and blocks
	// acceptance unconditionally.
	if cycle := g.FindCycle(); cycle != nil {
		issues = append(issues, model.ValidationIssue{
			RuleID:   RuleCycle,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("causal structure contains cycle %s", strings.Join(cycle, " -> ")),
			CaseID:   c.ID,
		})
	}

	issues = append(issues, v.checkBackdoor(c, g)...)
	issues = append(issues, v.checkCollider(c, g)...)
	issues = append(issues, v.checkRoles(c, g)...)

	return issues
}

// checkBackdoor verifies that every declared confounder actually sits
// on paths into both a treatment and an outcome variable. A confounder
// role that the graph does not back up is a plausibility failure.
func (v *Structural) checkBackdoor(c *model.Case, g *causal.Graph) []model.ValidationIssue {
	confounders := c.VariablesWithRole(model.RoleConfounder)
	if len(confounders) == 0 {
		return nil
	}
	treatments := c.VariablesWithRole(model.RoleTreatment)
	outcomes := c.VariablesWithRole(model.RoleOutcome)

	var issues []model.ValidationIssue
	for _, z := range confounders {
		if reachesAny(g, z, treatments) && reachesAny(g, z, outcomes) {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			RuleID:   RuleBackdoor,
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("declared confounder %q has no path into both a treatment and an outcome", z),
			CaseID:   c.ID,
		})
	}
	return issues
}

func reachesAny(g *causal.Graph, from string, targets []string) bool {
	for _, t := range targets {
		if g.Reaches(from, t) {
			return true
		}
	}
	return false
}

// checkCollider flags collider-structured variables that the reasoning
// steps describe as being controlled for. Conditioning on a collider
// opens a spurious path, so this is worth a warning even though
// legitimate exceptions exist.
func (v *Structural) checkCollider(c *model.Case, g *causal.Graph) []model.ValidationIssue {
	colliders := g.Colliders()
	if len(colliders) == 0 {
		return nil
	}

	var issues []model.ValidationIssue
	for _, name := range colliders {
		if !mentionedAsControlled(c.ReasoningSteps, name) {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			RuleID:   RuleCollider,
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("reasoning steps describe controlling for %q, which has collider structure", name),
			CaseID:   c.ID,
		})
	}
	return issues
}

// mentionedAsControlled reports whether any reasoning step both names
// the variable and uses conditioning vocabulary.
func mentionedAsControlled(steps []string, name string) bool {
	lowerName := strings.ToLower(name)
	for _, step := range steps {
		lower := strings.ToLower(step)
		if !strings.Contains(lower, lowerName) {
			continue
		}
		for _, phrase := range controlVocabulary {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}

// checkRoles enforces the closed role vocabulary and the agreement
// between declared variables and the names the structure references.
func (v *Structural) checkRoles(c *model.Case, g *causal.Graph) []model.ValidationIssue {
	var issues []model.ValidationIssue

	for _, name := range c.VariableNames() {
		if role := c.Variables[name]; !role.Valid() {
			issues = append(issues, model.ValidationIssue{
				RuleID:   RuleRole,
				Severity: model.SeverityMedium,
				Message:  fmt.Sprintf("variable %q has unknown role %q", name, role),
				CaseID:   c.ID,
			})
		}
	}

	for _, name := range g.Nodes() {
		if _, declared := c.Variables[name]; !declared {
			issues = append(issues, model.ValidationIssue{
				RuleID:   RuleRole,
				Severity: model.SeverityMedium,
				Message:  fmt.Sprintf("causal structure references undeclared variable %q", name),
				CaseID:   c.ID,
			})
		}
	}

	for _, name := range c.VariableNames() {
		if !g.Has(name) {
			issues = append(issues, model.ValidationIssue{
				RuleID:   RuleUnused,
				Severity: model.SeverityLow,
				Message:  fmt.Sprintf("declared variable %q never appears in the causal structure", name),
				CaseID:   c.ID,
			})
		}
	}

	return issues
}
