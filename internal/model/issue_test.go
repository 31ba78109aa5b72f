package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())

	// Unknown severities rank below low.
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
}

func TestHasSeverity(t *testing.T) {
	issues := []ValidationIssue{
		{RuleID: "a", Severity: SeverityLow},
		{RuleID: "b", Severity: SeverityHigh},
	}

	assert.True(t, HasSeverity(issues, SeverityHigh))
	assert.False(t, HasSeverity(issues, SeverityCritical))
	assert.False(t, HasSeverity(nil, SeverityLow))
}

func TestFilterSeverity(t *testing.T) {
	issues := []ValidationIssue{
		{RuleID: "a", Severity: SeverityLow},
		{RuleID: "b", Severity: SeverityMedium},
		{RuleID: "c", Severity: SeverityCritical},
	}

	got := FilterSeverity(issues, SeverityMedium)
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[0].RuleID)
	assert.Equal(t, "c", got[1].RuleID)

	assert.Len(t, FilterSeverity(issues, SeverityCritical), 1)
}
