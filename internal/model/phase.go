package model

import "time"

// Phase identifies one stage of the curation pipeline.
type Phase string

const (
	PhaseSetup        Phase = "setup"
	PhaseGeneration   Phase = "generation"
	PhaseValidation   Phase = "validation"
	PhaseRevision     Phase = "revision"
	PhaseFinalization Phase = "finalization"
	PhaseComplete     Phase = "complete"
)

// PhaseOrder lists the phases in execution order. Transitions are
// strictly forward except validation and revision, which may cycle.
var PhaseOrder = []Phase{
	PhaseSetup,
	PhaseGeneration,
	PhaseValidation,
	PhaseRevision,
	PhaseFinalization,
	PhaseComplete,
}

// phaseRank maps phases to their position in PhaseOrder.
var phaseRank = func() map[Phase]int {
	m := make(map[Phase]int, len(PhaseOrder))
	for i, p := range PhaseOrder {
		m[p] = i
	}
	return m
}()

// Rank returns the execution-order position of p; unknown phases rank
// before setup.
func (p Phase) Rank() int {
	r, ok := phaseRank[p]
	if !ok {
		return -1
	}
	return r
}

// Before reports whether p precedes other in execution order.
func (p Phase) Before(other Phase) bool { return p.Rank() < other.Rank() }

// PhaseStatus is the per-phase completion state.
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusFailed     PhaseStatus = "failed"
)

// Checkpoint is the persisted controller state. It is written after
// every phase transition and every revision cycle so a restarted run
// resumes from the last completed phase without reissuing ids or
// reprocessing accepted cases.
type Checkpoint struct {
	Phase     Phase       `json:"phase"`
	Status    PhaseStatus `json:"status"`
	RunID     string      `json:"run_id"`
	Cycle     int         `json:"cycle"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// PhaseDone reports whether the checkpoint records the given phase as
// already completed (directly or by a later phase having started).
func (cp *Checkpoint) PhaseDone(p Phase) bool {
	if cp == nil {
		return false
	}
	if cp.Phase.Rank() > p.Rank() {
		return true
	}
	return cp.Phase == p && cp.Status == PhaseStatusCompleted
}
