package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/caseforge/internal/model"
)

// RulePlaceholder flags text fields still carrying template markers.
const RulePlaceholder = "corpus.placeholder"

// placeholderPatterns match the incomplete-template markers generators
// are known to leave behind.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[[A-Z][A-Z0-9 _-]*\]`),
	regexp.MustCompile(`\{\{[^}]*\}\}`),
	regexp.MustCompile(`<[A-Z][A-Z0-9 _-]*>`),
	regexp.MustCompile(`\b(?:TODO|TBD|FIXME|XXX)\b`),
	regexp.MustCompile(`(?i)lorem ipsum`),
}

// Boilerplate shorter than these bounds is suspicious on its own.
const (
	minScenarioRunes = 25
	minRefusalRunes  = 15
)

// CheckPlaceholders scans a case's text fields for template markers and
// suspiciously short boilerplate.
func CheckPlaceholders(c *model.Case) []model.ValidationIssue {
	var issues []model.ValidationIssue
	flag := func(field, msg string) {
		issues = append(issues, model.ValidationIssue{
			RuleID:   RulePlaceholder,
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("%s: %s", field, msg),
			CaseID:   c.ID,
		})
	}

	fields := []struct {
		name string
		text string
	}{
		{"scenario", c.Scenario},
		{"hidden_mechanism", c.HiddenMechanism},
		{"refusal_text", c.RefusalText},
		{"reasoning_steps", strings.Join(c.ReasoningSteps, "\n")},
	}
	for _, f := range fields {
		for _, pat := range placeholderPatterns {
			if m := pat.FindString(f.text); m != "" {
				flag(f.name, fmt.Sprintf("contains placeholder marker %q", m))
				break
			}
		}
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(c.Scenario)); n > 0 && n < minScenarioRunes {
		flag("scenario", fmt.Sprintf("only %d characters; likely boilerplate", n))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(c.RefusalText)); n > 0 && n < minRefusalRunes {
		flag("refusal_text", fmt.Sprintf("only %d characters; likely boilerplate", n))
	}

	return issues
}
