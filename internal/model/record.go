package model

import "time"

// CaseState tracks where a case sits in the pipeline.
type CaseState string

const (
	// CaseStatePending cases await (re)validation.
	CaseStatePending CaseState = "pending"
	// CaseStateNeedsRevision cases failed validation with budget left.
	CaseStateNeedsRevision CaseState = "needs_revision"
	// CaseStateAccepted cases passed per-case validation and await the
	// corpus check.
	CaseStateAccepted CaseState = "accepted"
	// CaseStateRejected cases exhausted their revision budget or were
	// flagged at finalization; never retried.
	CaseStateRejected CaseState = "rejected"
	// CaseStateDropped cases lost duplicate adjudication.
	CaseStateDropped CaseState = "dropped"
	// CaseStateFinal cases are part of the published corpus.
	CaseStateFinal CaseState = "final"
)

// CaseRecord wraps a case with its pipeline bookkeeping: current state,
// last quality score, consumed revision cycles and the issues from the
// most recent validation pass. The revision bookkeeping is cleared once
// the case reaches a terminal state.
type CaseRecord struct {
	Case      Case              `json:"case"`
	State     CaseState         `json:"state"`
	Score     float64           `json:"score"`
	Revisions int               `json:"revisions"`
	Issues    []ValidationIssue `json:"issues,omitempty"`
	// FinalID is the densely renumbered id assigned at finalization.
	// The original id stays the primary key so interrupted runs never
	// collide.
	FinalID   string    `json:"final_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the record's state ends its lifecycle.
func (r *CaseRecord) Terminal() bool {
	switch r.State {
	case CaseStateRejected, CaseStateDropped, CaseStateFinal:
		return true
	}
	return false
}

// Run identifies one pipeline invocation.
type Run struct {
	ID          string      `json:"id"`
	Operation   string      `json:"operation"`
	Status      string      `json:"status"`
	Summary     *RunSummary `json:"summary,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// RunSummary is the user-visible outcome of a completed run. Accepted
// and rejected counts are always reported; distribution shortfalls are
// informational only.
type RunSummary struct {
	Generated     int                          `json:"generated"`
	Accepted      int                          `json:"accepted"`
	Rejected      int                          `json:"rejected"`
	Dropped       int                          `json:"dropped"`
	RevisionLoops int                          `json:"revision_loops"`
	RejectedWith  map[string][]ValidationIssue `json:"rejected_with,omitempty"`
	Shortfalls    []BucketResult               `json:"shortfalls,omitempty"`
}
