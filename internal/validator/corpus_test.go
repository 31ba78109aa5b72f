package validator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/caseforge/internal/model"
)

func corpusValidator(threshold float64) *Corpus {
	return NewCorpus(threshold, defaultSimilarity(), DistributionTargets{})
}

func record(id, scenario string, score float64) model.CaseRecord {
	return model.CaseRecord{
		Case: model.Case{
			ID:         id,
			Scenario:   scenario,
			Level:      model.Level1,
			Category:   "confounding",
			Difficulty: model.DifficultyEasy,
		},
		State: model.CaseStateAccepted,
		Score: score,
	}
}

func TestCorpusExactDuplicates(t *testing.T) {
	t.Parallel()

	t.Run("identical normalized text always reported", func(t *testing.T) {
		t.Parallel()
		// Even a threshold above 1 cannot suppress exact duplicates.
		v := corpusValidator(1.0)
		a := record("case-000001", "Ice cream sales rise with drowning deaths.", 8)
		b := record("case-000002", "Ice cream sales rise with drowning   deaths!", 8)
		report := v.Check([]model.CaseRecord{a, b}, nil)
		require.Len(t, report.ExactDuplicates, 1)
		assert.True(t, report.ExactDuplicates[0].Exact)
		assert.Equal(t, "case-000001", report.ExactDuplicates[0].AID)
		assert.Equal(t, "case-000002", report.ExactDuplicates[0].BID)
	})

	t.Run("distinct text not exact", func(t *testing.T) {
		t.Parallel()
		v := corpusValidator(0.75)
		a := record("case-000001", "Ice cream sales rise with drowning deaths.", 8)
		b := record("case-000002", "Sunscreen sales rise with sunburn reports.", 8)
		report := v.Check([]model.CaseRecord{a, b}, nil)
		assert.Empty(t, report.ExactDuplicates)
	})
}

func TestCorpusNearDuplicates(t *testing.T) {
	t.Parallel()

	similar1 := "Cities that employ more police officers also record more crimes each year, and both quantities track total population size closely."
	similar2 := "Cities that employ more police officers also record more crimes every year, and both quantities track total population size closely."
	different := "Students who eat breakfast before school score higher on morning examinations than students who skip it entirely."

	t.Run("flags exactly the similar pair", func(t *testing.T) {
		t.Parallel()
		v := corpusValidator(0.75)
		report := v.Check([]model.CaseRecord{
			record("case-000001", similar1, 8),
			record("case-000002", similar2, 7),
			record("case-000003", different, 9),
		}, nil)

		require.Len(t, report.NearDuplicates, 1)
		pair := report.NearDuplicates[0]
		assert.Equal(t, "case-000001", pair.AID)
		assert.Equal(t, "case-000002", pair.BID)
		assert.False(t, pair.Exact)
		assert.Greater(t, pair.Score, 0.75)
	})

	t.Run("removing one of the pair clears the report", func(t *testing.T) {
		t.Parallel()
		v := corpusValidator(0.75)
		report := v.Check([]model.CaseRecord{
			record("case-000001", similar1, 8),
			record("case-000003", different, 9),
		}, nil)
		assert.Empty(t, report.NearDuplicates)
		assert.Empty(t, report.ExactDuplicates)
	})

	t.Run("incremental check compares new against accepted", func(t *testing.T) {
		t.Parallel()
		v := corpusValidator(0.75)
		accepted := []model.CaseRecord{record("case-000001", similar1, 8)}
		report := v.Check([]model.CaseRecord{record("case-000010", similar2, 7)}, accepted)
		require.Len(t, report.NearDuplicates, 1)
		assert.Equal(t, "case-000001", report.NearDuplicates[0].AID)
		assert.Equal(t, "case-000010", report.NearDuplicates[0].BID)
	})

	t.Run("accepted set not compared against itself", func(t *testing.T) {
		t.Parallel()
		v := corpusValidator(0.75)
		accepted := []model.CaseRecord{
			record("case-000001", similar1, 8),
			record("case-000002", similar2, 7),
		}
		report := v.Check(nil, accepted)
		assert.Empty(t, report.NearDuplicates)
	})
}

func TestCorpusStats(t *testing.T) {
	t.Parallel()
	v := corpusValidator(0.75)

	var records []model.CaseRecord
	for i := 1; i <= 10; i++ {
		records = append(records, record(
			fmt.Sprintf("case-%06d", i),
			fmt.Sprintf("Scenario number %d about an entirely distinct causal topic with its own wording.", i),
			float64(i),
		))
	}
	report := v.Check(records, nil)

	assert.Equal(t, 10, report.Stats.Cases)
	assert.InDelta(t, 5.5, report.Stats.MeanScore, 1e-9)
	assert.InDelta(t, 5.5, report.Stats.MedianScore, 1e-9)
	assert.Greater(t, report.Stats.P90Score, 8.0)
}

func TestCorpusPlaceholders(t *testing.T) {
	t.Parallel()
	v := corpusValidator(0.75)

	rec := record("case-000001", "A study of [TOPIC] finds a striking association that analysts rush to explain.", 6)
	report := v.Check([]model.CaseRecord{rec}, nil)
	require.NotEmpty(t, report.Placeholders)
	assert.Equal(t, RulePlaceholder, report.Placeholders[0].RuleID)
	assert.Equal(t, "case-000001", report.Placeholders[0].CaseID)
}

func TestCorpusDeterminism(t *testing.T) {
	t.Parallel()
	v := corpusValidator(0.5)

	records := []model.CaseRecord{
		record("case-000003", "Coffee drinkers report more ulcers than tea drinkers in a workplace survey.", 7),
		record("case-000001", "Coffee drinkers report more ulcers than tea drinkers in a workplace study.", 8),
		record("case-000002", "Remote employees file fewer sick days but also underreport mild illness.", 9),
	}
	first := v.Check(records, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, v.Check(records, nil))
	}
}
