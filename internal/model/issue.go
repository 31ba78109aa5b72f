package model

// Severity orders validation issues from advisory to blocking.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank maps severities to numeric ranks for comparison.
// Higher rank means more severe.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the numeric rank of s; unknown severities rank lowest.
func (s Severity) Rank() int { return severityRank[s] }

// AtLeast reports whether s is as severe as other or more so.
func (s Severity) AtLeast(other Severity) bool { return s.Rank() >= other.Rank() }

// ValidationIssue records one rule violation found during a validation
// pass. Issues are immutable facts; they never mutate the case they
// reference.
type ValidationIssue struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	CaseID   string   `json:"case_id"`
}

// HasSeverity reports whether any issue in the slice meets the given
// severity or worse.
func HasSeverity(issues []ValidationIssue, min Severity) bool {
	for _, issue := range issues {
		if issue.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// FilterSeverity returns the issues at or above the given severity.
func FilterSeverity(issues []ValidationIssue, min Severity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range issues {
		if issue.Severity.AtLeast(min) {
			out = append(out, issue)
		}
	}
	return out
}
