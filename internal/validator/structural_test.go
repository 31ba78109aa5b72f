package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/caseforge/internal/model"
)

func baseCase() model.Case {
	return model.Case{
		ID:       "case-000001",
		Scenario: "A hospital notices that patients who receive a new therapy recover faster than those who do not, but clinicians steer the sickest patients away from the therapy in the first place.",
		Variables: map[string]model.Role{
			"T": model.RoleTreatment,
			"O": model.RoleOutcome,
			"Z": model.RoleConfounder,
		},
		Level:           model.Level1,
		Category:        "confounding",
		Subcategory:     "severity-steering",
		Difficulty:      model.DifficultyMedium,
		CausalStructure: "Z -> T, Z -> O, T -> O",
		ReasoningSteps: []string{
			"Recovery differs between treated and untreated groups.",
			"Baseline severity influences both treatment assignment and recovery.",
			"Therefore the raw comparison cannot isolate the therapy's effect.",
		},
		RefusalText: "The comparison cannot support a causal claim: severity confounds treatment and outcome, so correlation here does not establish causation.",
	}
}

func issueRules(issues []model.ValidationIssue) []string {
	rules := make([]string, len(issues))
	for i, issue := range issues {
		rules[i] = issue.RuleID
	}
	return rules
}

func TestStructuralAcyclicity(t *testing.T) {
	t.Parallel()
	v := NewStructural()

	t.Run("acyclic graph passes", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleCycle)
	})

	t.Run("any cycle is critical", func(t *testing.T) {
		t.Parallel()
		for _, structure := range []string{
			"T -> O, O -> T",
			"Z -> T, T -> O, O -> Z",
			"T -> T",
		} {
			c := baseCase()
			c.CausalStructure = structure
			issues := v.Validate(&c)
			found := model.FilterSeverity(issues, model.SeverityCritical)
			require.NotEmpty(t, found, "structure %q", structure)
		}
	})

	t.Run("cycle reported once per case", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.CausalStructure = "T -> O, O -> Z, Z -> T, O -> T"
		issues := v.Validate(&c)
		count := 0
		for _, issue := range issues {
			if issue.RuleID == RuleCycle {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("malformed notation is critical", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.CausalStructure = "T ->"
		issues := v.Validate(&c)
		require.Len(t, issues, 1)
		assert.Equal(t, RuleParse, issues[0].RuleID)
		assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	})
}

func TestStructuralBackdoor(t *testing.T) {
	t.Parallel()
	v := NewStructural()

	t.Run("confounder with dual path passes", func(t *testing.T) {
		t.Parallel()
		c := model.Case{
			ID: "case-000002",
			Variables: map[string]model.Role{
				"A": model.RoleConfounder,
				"B": model.RoleTreatment,
				"C": model.RoleOutcome,
			},
			CausalStructure: "A -> B, A -> C",
		}
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleBackdoor)
	})

	t.Run("confounder missing outcome path is flagged high", func(t *testing.T) {
		t.Parallel()
		c := model.Case{
			ID: "case-000003",
			Variables: map[string]model.Role{
				"A": model.RoleConfounder,
				"B": model.RoleTreatment,
				"C": model.RoleOutcome,
			},
			CausalStructure: "A -> B",
		}
		issues := v.Validate(&c)
		var backdoor *model.ValidationIssue
		for i := range issues {
			if issues[i].RuleID == RuleBackdoor {
				backdoor = &issues[i]
			}
		}
		require.NotNil(t, backdoor)
		assert.Equal(t, model.SeverityHigh, backdoor.Severity)
	})

	t.Run("indirect paths count", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.Variables["M"] = model.RoleMediator
		c.CausalStructure = "Z -> M, M -> T, M -> O, T -> O"
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleBackdoor)
	})

	t.Run("no confounder declared, no check", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		delete(c.Variables, "Z")
		c.CausalStructure = "T -> O"
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleBackdoor)
	})
}

func TestStructuralCollider(t *testing.T) {
	t.Parallel()
	v := NewStructural()

	colliderCase := func() model.Case {
		c := baseCase()
		c.Variables = map[string]model.Role{
			"T": model.RoleTreatment,
			"O": model.RoleOutcome,
			"S": model.RoleCollider,
		}
		c.CausalStructure = "T -> S, O -> S"
		return c
	}

	t.Run("controlling for collider is flagged", func(t *testing.T) {
		t.Parallel()
		c := colliderCase()
		c.ReasoningSteps = []string{"The analysis proceeds by controlling for S before comparing groups."}
		issues := v.Validate(&c)
		assert.Contains(t, issueRules(issues), RuleCollider)
	})

	t.Run("collider never conditioned on is fine", func(t *testing.T) {
		t.Parallel()
		c := colliderCase()
		c.ReasoningSteps = []string{"S is a downstream symptom and is left alone."}
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleCollider)
	})

	t.Run("conditioning vocabulary without the variable is fine", func(t *testing.T) {
		t.Parallel()
		c := colliderCase()
		c.ReasoningSteps = []string{"The design adjusts for baseline age."}
		issues := v.Validate(&c)
		assert.NotContains(t, issueRules(issues), RuleCollider)
	})
}

func TestStructuralRoles(t *testing.T) {
	t.Parallel()
	v := NewStructural()

	t.Run("undeclared variable in structure", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.CausalStructure = "Z -> T, T -> O, Q -> O"
		issues := v.Validate(&c)
		assert.Contains(t, issueRules(issues), RuleRole)
	})

	t.Run("unknown role tag", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.Variables["T"] = model.Role("exposure")
		issues := v.Validate(&c)
		assert.Contains(t, issueRules(issues), RuleRole)
	})

	t.Run("declared but unreferenced variable", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.Variables["W"] = model.RoleMediator
		issues := v.Validate(&c)
		assert.Contains(t, issueRules(issues), RuleUnused)
	})
}

func TestStructuralDeterminism(t *testing.T) {
	t.Parallel()
	v := NewStructural()
	c := baseCase()
	c.CausalStructure = "Z -> T, T -> O, O -> Z"

	first := v.Validate(&c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, v.Validate(&c))
	}
}
