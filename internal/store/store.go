package store

import (
	"context"

	"github.com/sells-group/caseforge/internal/model"
)

// CaseFilter specifies criteria for listing case records.
type CaseFilter struct {
	States   []model.CaseState `json:"states,omitempty"`
	Category string            `json:"category,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Operation string `json:"operation,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the curation pipeline.
// It doubles as the allocator's counter store, so the case table and
// the id counter always live in the same database.
type Store interface {
	// Cases
	UpsertCase(ctx context.Context, rec *model.CaseRecord) error
	GetCase(ctx context.Context, id string) (*model.CaseRecord, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]model.CaseRecord, error)

	// Allocator checkpoint (satisfies ident.CounterStore)
	LoadCounter(ctx context.Context) (int64, error)
	SaveCounter(ctx context.Context, next int64) error
	MaxCaseNum(ctx context.Context) (int64, error)

	// Pipeline checkpoint
	LoadCheckpoint(ctx context.Context) (*model.Checkpoint, error)
	SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error

	// Runs
	CreateRun(ctx context.Context, operation string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)
