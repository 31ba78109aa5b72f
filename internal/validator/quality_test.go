package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/caseforge/internal/model"
)

func qualityValidator() *Quality { return NewQuality(7.0, 5.0) }

func tier2Case() model.Case {
	c := baseCase()
	c.Level = model.Level2
	c.HiddenMechanism = "Severity drives both treatment assignment and recovery speed, masking the therapy's true effect."
	return c
}

func tier3Case() model.Case {
	c := baseCase()
	c.Level = model.Level3
	c.GroundTruth = &model.GroundTruth{
		Verdict:       model.VerdictIndeterminate,
		Justification: "Without severity data the direction of the bias cannot be bounded.",
	}
	return c
}

func TestQualityLevelGates(t *testing.T) {
	t.Parallel()
	q := qualityValidator()

	criticalRules := func(c *model.Case) []string {
		_, issues := q.Validate(c)
		return issueRules(model.FilterSeverity(issues, model.SeverityCritical))
	}

	t.Run("well-formed tiers have no critical issues", func(t *testing.T) {
		t.Parallel()
		for _, c := range []model.Case{baseCase(), tier2Case(), tier3Case()} {
			assert.Empty(t, criticalRules(&c))
		}
	})

	t.Run("tier2 missing mechanism is critical", func(t *testing.T) {
		t.Parallel()
		c := tier2Case()
		c.HiddenMechanism = ""
		assert.Contains(t, criticalRules(&c), RuleMechanism)
	})

	t.Run("tier3 missing verdict is critical", func(t *testing.T) {
		t.Parallel()
		c := tier3Case()
		c.GroundTruth = nil
		assert.Contains(t, criticalRules(&c), RuleVerdict)
	})

	t.Run("tier3 verdict outside vocabulary is critical", func(t *testing.T) {
		t.Parallel()
		c := tier3Case()
		c.GroundTruth.Verdict = model.Verdict("maybe")
		assert.Contains(t, criticalRules(&c), RuleVerdict)
	})

	t.Run("conditional field at wrong tier is critical", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.HiddenMechanism = "unexpected"
		assert.Contains(t, criticalRules(&c), RuleMechanism)

		c2 := baseCase()
		c2.GroundTruth = &model.GroundTruth{Verdict: model.VerdictCausal, Justification: "x"}
		assert.Contains(t, criticalRules(&c2), RuleVerdict)

		c3 := tier2Case()
		c3.GroundTruth = &model.GroundTruth{Verdict: model.VerdictCausal, Justification: "x"}
		assert.Contains(t, criticalRules(&c3), RuleVerdict)
	})

	t.Run("unknown level is critical", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		c.Level = model.Level(7)
		assert.Contains(t, criticalRules(&c), RuleLevel)
	})
}

func TestQualityScoring(t *testing.T) {
	t.Parallel()
	q := qualityValidator()

	t.Run("complete case scores high", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		score, issues := q.Validate(&c)
		assert.GreaterOrEqual(t, score, 7.0)
		assert.Empty(t, model.FilterSeverity(issues, model.SeverityCritical))
	})

	t.Run("score capped at ten", func(t *testing.T) {
		t.Parallel()
		c := baseCase()
		score, _ := q.Validate(&c)
		assert.LessOrEqual(t, score, 10.0)
	})

	t.Run("empty case scores near zero", func(t *testing.T) {
		t.Parallel()
		c := model.Case{ID: "case-000009", Level: model.Level1}
		score, _ := q.Validate(&c)
		assert.Less(t, score, 5.0)
	})

	t.Run("missing refusal drags the score", func(t *testing.T) {
		t.Parallel()
		full := baseCase()
		fullScore, _ := q.Validate(&full)

		bare := baseCase()
		bare.RefusalText = ""
		bareScore, _ := q.Validate(&bare)
		assert.Less(t, bareScore, fullScore)
	})

	t.Run("deterministic given identical input", func(t *testing.T) {
		t.Parallel()
		c := tier2Case()
		firstScore, firstIssues := q.Validate(&c)
		for i := 0; i < 10; i++ {
			score, issues := q.Validate(&c)
			assert.Equal(t, firstScore, score)
			assert.Equal(t, firstIssues, issues)
		}
	})
}

func TestQualityRoute(t *testing.T) {
	t.Parallel()
	q := qualityValidator()

	critical := []model.ValidationIssue{{RuleID: RuleCycle, Severity: model.SeverityCritical}}
	high := []model.ValidationIssue{{RuleID: RuleBackdoor, Severity: model.SeverityHigh}}
	advisory := []model.ValidationIssue{{RuleID: RuleClarity, Severity: model.SeverityMedium}}

	t.Run("pass needs threshold and clean issues", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomePass, q.Route(8.5, nil))
		assert.Equal(t, OutcomePass, q.Route(7.0, advisory))
	})

	t.Run("critical always blocks", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomeRevise, q.Route(9.9, critical))
	})

	t.Run("high blocks acceptance", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomeRevise, q.Route(8.0, high))
	})

	t.Run("between thresholds routes to revision", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomeRevise, q.Route(6.0, nil))
	})

	t.Run("below revise threshold rejects outright", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, OutcomeReject, q.Route(2.0, nil))
	})

	t.Run("at revise threshold still revises", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomeRevise, q.Route(5.0, nil))
	})

	t.Run("score governs even with critical issues", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, OutcomeReject, q.Route(1.3, critical))
	})
}

// The revise threshold must actually move the reject boundary.
func TestQualityRoute_ReviseThreshold(t *testing.T) {
	t.Parallel()

	strict := NewQuality(7.0, 5.0)
	lenient := NewQuality(7.0, 0.0)

	assert.Equal(t, OutcomeReject, strict.Route(1.3, nil))
	assert.Equal(t, OutcomeRevise, lenient.Route(1.3, nil))
	assert.Equal(t, OutcomePass, lenient.Route(8.0, nil))
}
