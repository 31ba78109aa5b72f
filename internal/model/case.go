package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Role tags a variable with its function in the causal scenario.
type Role string

const (
	RoleTreatment  Role = "treatment"
	RoleOutcome    Role = "outcome"
	RoleConfounder Role = "confounder"
	RoleMediator   Role = "mediator"
	RoleCollider   Role = "collider"
)

// Roles lists the closed role vocabulary in canonical order.
var Roles = []Role{RoleTreatment, RoleOutcome, RoleConfounder, RoleMediator, RoleCollider}

// Valid reports whether r is part of the closed vocabulary.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Level is the reasoning depth a case targets. It determines which
// conditional fields the case must carry.
type Level int

const (
	// Level1 cases carry no conditional fields.
	Level1 Level = 1
	// Level2 cases must explain the hidden mechanism behind the trap.
	Level2 Level = 2
	// Level3 cases must commit to a ground-truth verdict.
	Level3 Level = 3
)

// Valid reports whether l is one of the three tiers.
func (l Level) Valid() bool { return l >= Level1 && l <= Level3 }

func (l Level) String() string { return fmt.Sprintf("tier%d", int(l)) }

// Difficulty is the ordinal difficulty label.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the difficulty vocabulary in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Verdict is the three-valued ground-truth outcome required at Level3.
type Verdict string

const (
	VerdictCausal        Verdict = "causal"
	VerdictNotCausal     Verdict = "not-causal"
	VerdictIndeterminate Verdict = "indeterminate"
)

// Verdicts lists the permitted verdict vocabulary.
var Verdicts = []Verdict{VerdictCausal, VerdictNotCausal, VerdictIndeterminate}

// Valid reports whether v is one of the three permitted outcomes.
func (v Verdict) Valid() bool {
	return v == VerdictCausal || v == VerdictNotCausal || v == VerdictIndeterminate
}

// GroundTruth is the Level3-only verdict with its justification.
type GroundTruth struct {
	Verdict       Verdict `json:"verdict"`
	Justification string  `json:"justification"`
}

// Case is a single causal-reasoning scenario in the dataset.
//
// HiddenMechanism is populated only at Level2 and GroundTruth only at
// Level3; the quality validator treats a conditional field at the wrong
// tier as a structural defect.
type Case struct {
	ID              string          `json:"id"`
	Scenario        string          `json:"scenario"`
	Variables       map[string]Role `json:"variables"`
	Level           Level           `json:"level"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory"`
	Difficulty      Difficulty      `json:"difficulty"`
	CausalStructure string          `json:"causal_structure"`
	HiddenMechanism string          `json:"hidden_mechanism,omitempty"`
	GroundTruth     *GroundTruth    `json:"ground_truth,omitempty"`
	ReasoningSteps  []string        `json:"reasoning_steps"`
	RefusalText     string          `json:"refusal_text"`
}

// VariableNames returns the declared variable names in sorted order so
// callers iterate deterministically.
func (c *Case) VariableNames() []string {
	names := make([]string, 0, len(c.Variables))
	for name := range c.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariablesWithRole returns the sorted names of variables carrying the
// given role.
func (c *Case) VariablesWithRole(role Role) []string {
	var names []string
	for name, r := range c.Variables {
		if r == role {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

const idPrefix = "case-"

// FormatID renders an allocator number as a case identifier.
func FormatID(n int64) string {
	return fmt.Sprintf("%s%06d", idPrefix, n)
}

// ParseID extracts the numeric component of a case identifier.
func ParseID(id string) (int64, error) {
	raw, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, eris.Errorf("model: malformed case id %q", id)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: malformed case id %q", id)
	}
	return n, nil
}
