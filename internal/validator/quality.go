package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/caseforge/internal/causal"
	"github.com/sells-group/caseforge/internal/model"
)

// Rule ids emitted by the quality validator.
const (
	RuleLevel     = "schema.level"
	RuleMechanism = "schema.mechanism"
	RuleVerdict   = "schema.verdict"
	RuleClarity   = "quality.clarity"
	RuleVariables = "quality.variables"
	RuleTrap      = "quality.trap"
	RuleReasoning = "quality.reasoning"
	RuleRefusal   = "quality.refusal"
)

// maxScore caps the rubric total.
const maxScore = 10.0

// conclusionMarkers are accepted ways for a reasoning chain to commit
// to a conclusion in its final step.
var conclusionMarkers = []string{"therefore", "hence", "so the", "conclude", "conclusion"}

// hedgingVocabulary is what a correct refusal is expected to lean on.
var hedgingVocabulary = []string{
	"cannot", "can't", "correlation", "causation", "insufficient",
	"not enough", "no way to", "would need", "confound",
}

// Outcome routes a case after per-case validation.
type Outcome string

const (
	// OutcomePass marks the case accepted pending the corpus check.
	OutcomePass Outcome = "pass"
	// OutcomeRevise routes the case to the revision loop.
	OutcomeRevise Outcome = "revise"
	// OutcomeReject rejects the case outright, without spending any
	// revision budget on it.
	OutcomeReject Outcome = "reject"
)

// Quality scores a case against the five-dimension rubric and enforces
// level-conditional field requirements.
type Quality struct {
	pass   float64
	revise float64
}

// NewQuality creates a quality validator with the given thresholds.
func NewQuality(passThreshold, reviseThreshold float64) *Quality {
	return &Quality{pass: passThreshold, revise: reviseThreshold}
}

// Validate returns the rubric score (0-10) and any issues. Level-field
// defects are critical regardless of the numeric score. Scoring is a
// pure function of the case's fields.
func (q *Quality) Validate(c *model.Case) (float64, []model.ValidationIssue) {
	issues := q.checkLevelFields(c)

	score := 0.0
	for _, dim := range []func(*model.Case) (float64, *model.ValidationIssue){
		scoreClarity,
		scoreVariables,
		scoreTrap,
		scoreReasoning,
		scoreRefusal,
	} {
		sub, issue := dim(c)
		score += sub
		if issue != nil {
			issue.CaseID = c.ID
			issues = append(issues, *issue)
		}
	}
	if score > maxScore {
		score = maxScore
	}
	return score, issues
}

// Route decides the outcome for a validated case. A score below the
// revise threshold rejects outright: the case is too far gone for the
// revision loop to be worth its budget. At or above it, critical and
// high issues must be fixed before acceptance, so they route to
// revision, as do scores below the pass threshold.
func (q *Quality) Route(score float64, issues []model.ValidationIssue) Outcome {
	if score < q.revise {
		return OutcomeReject
	}
	if model.HasSeverity(issues, model.SeverityCritical) {
		return OutcomeRevise
	}
	if score >= q.pass && !model.HasSeverity(issues, model.SeverityHigh) {
		return OutcomePass
	}
	return OutcomeRevise
}

// checkLevelFields enforces that the populated conditional fields match
// exactly what the level requires.
func (q *Quality) checkLevelFields(c *model.Case) []model.ValidationIssue {
	if !c.Level.Valid() {
		return []model.ValidationIssue{{
			RuleID:   RuleLevel,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("unknown level %d", int(c.Level)),
			CaseID:   c.ID,
		}}
	}

	var issues []model.ValidationIssue
	critical := func(rule, msg string) {
		issues = append(issues, model.ValidationIssue{
			RuleID:   rule,
			Severity: model.SeverityCritical,
			Message:  msg,
			CaseID:   c.ID,
		})
	}

	switch c.Level {
	case model.Level1:
		if c.HiddenMechanism != "" {
			critical(RuleMechanism, "tier1 case must not carry a hidden mechanism")
		}
		if c.GroundTruth != nil {
			critical(RuleVerdict, "tier1 case must not carry a ground-truth verdict")
		}
	case model.Level2:
		if c.HiddenMechanism == "" {
			critical(RuleMechanism, "tier2 case is missing the hidden mechanism")
		}
		if c.GroundTruth != nil {
			critical(RuleVerdict, "tier2 case must not carry a ground-truth verdict")
		}
	case model.Level3:
		if c.HiddenMechanism != "" {
			critical(RuleMechanism, "tier3 case must not carry a hidden mechanism")
		}
		switch {
		case c.GroundTruth == nil:
			critical(RuleVerdict, "tier3 case is missing the ground-truth verdict")
		case !c.GroundTruth.Verdict.Valid():
			critical(RuleVerdict, fmt.Sprintf("verdict %q outside the permitted vocabulary", c.GroundTruth.Verdict))
		case c.GroundTruth.Justification == "":
			critical(RuleVerdict, "tier3 verdict has no justification")
		}
	}
	return issues
}

// scoreClarity is a length-band proxy for scenario readability.
func scoreClarity(c *model.Case) (float64, *model.ValidationIssue) {
	n := utf8.RuneCountInString(strings.TrimSpace(c.Scenario))
	var sub float64
	switch {
	case n == 0:
		sub = 0
	case n < 40:
		sub = 0.5
	case n < 120:
		sub = 1.2
	case n <= 600:
		sub = 2.0
	case n <= 900:
		sub = 1.5
	default:
		sub = 1.0
	}
	if sub < 1.0 {
		return sub, &model.ValidationIssue{
			RuleID:   RuleClarity,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("scenario length %d outside the readable band", n),
		}
	}
	return sub, nil
}

// scoreVariables rewards a complete, well-typed variable set.
func scoreVariables(c *model.Case) (float64, *model.ValidationIssue) {
	if len(c.Variables) < 2 {
		return 0, &model.ValidationIssue{
			RuleID:   RuleVariables,
			Severity: model.SeverityMedium,
			Message:  "fewer than two variables declared",
		}
	}
	hasTreatment := len(c.VariablesWithRole(model.RoleTreatment)) > 0
	hasOutcome := len(c.VariablesWithRole(model.RoleOutcome)) > 0
	if hasTreatment && hasOutcome {
		return 2.0, nil
	}
	return 1.0, &model.ValidationIssue{
		RuleID:   RuleVariables,
		Severity: model.SeverityMedium,
		Message:  "variable set lacks a treatment/outcome pair",
	}
}

// scoreTrap rewards a non-trivial trap: a third role beyond the plain
// treatment/outcome pair and enough structure to hide it in.
func scoreTrap(c *model.Case) (float64, *model.ValidationIssue) {
	trapRoles := 0
	for _, role := range []model.Role{model.RoleConfounder, model.RoleMediator, model.RoleCollider} {
		trapRoles += len(c.VariablesWithRole(role))
	}
	if trapRoles == 0 {
		return 0.8, &model.ValidationIssue{
			RuleID:   RuleTrap,
			Severity: model.SeverityMedium,
			Message:  "no confounder, mediator or collider declared; trap is trivial",
		}
	}
	if g, err := causal.Parse(c.CausalStructure); err == nil && g.EdgeCount() >= 2 {
		return 2.0, nil
	}
	return 1.4, nil
}

// scoreReasoning checks the chain's length band and that the last step
// commits to a conclusion.
func scoreReasoning(c *model.Case) (float64, *model.ValidationIssue) {
	n := len(c.ReasoningSteps)
	if n == 0 {
		return 0, &model.ValidationIssue{
			RuleID:   RuleReasoning,
			Severity: model.SeverityMedium,
			Message:  "no reasoning steps",
		}
	}

	var sub float64
	switch {
	case n < 3:
		sub = 1.0
	case n <= 6:
		sub = 2.0
	default:
		sub = 1.5
	}

	last := strings.ToLower(c.ReasoningSteps[n-1])
	concluded := false
	for _, marker := range conclusionMarkers {
		if strings.Contains(last, marker) {
			concluded = true
			break
		}
	}
	if !concluded && sub > 1.5 {
		sub = 1.5
	}
	if sub < 1.5 {
		return sub, &model.ValidationIssue{
			RuleID:   RuleReasoning,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("reasoning chain of %d steps is incomplete", n),
		}
	}
	return sub, nil
}

// scoreRefusal checks the refusal text demonstrates the hedge the trap
// calls for.
func scoreRefusal(c *model.Case) (float64, *model.ValidationIssue) {
	text := strings.TrimSpace(c.RefusalText)
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0, &model.ValidationIssue{
			RuleID:   RuleRefusal,
			Severity: model.SeverityMedium,
			Message:  "refusal text is empty",
		}
	}
	if n < 30 {
		return 0.5, &model.ValidationIssue{
			RuleID:   RuleRefusal,
			Severity: model.SeverityMedium,
			Message:  "refusal text too short to demonstrate the trap",
		}
	}
	lower := strings.ToLower(text)
	for _, phrase := range hedgingVocabulary {
		if strings.Contains(lower, phrase) {
			return 2.0, nil
		}
	}
	return 1.2, nil
}
