package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/caseforge/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRecord(num int64, state model.CaseState) *model.CaseRecord {
	return &model.CaseRecord{
		Case: model.Case{
			ID:       model.FormatID(num),
			Scenario: "A scenario long enough to be stored and retrieved without complaint.",
			Variables: map[string]model.Role{
				"T": model.RoleTreatment,
				"O": model.RoleOutcome,
			},
			Level:           model.Level1,
			Category:        "confounding",
			Difficulty:      model.DifficultyEasy,
			CausalStructure: "T -> O",
		},
		State: state,
		Score: 8.2,
	}
}

// --- Cases ---

func TestSQLite_Case_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord(1, model.CaseStatePending)
	require.NoError(t, st.UpsertCase(ctx, rec))

	got, err := st.GetCase(ctx, "case-000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Case.Scenario, got.Case.Scenario)
	assert.Equal(t, model.CaseStatePending, got.State)
	assert.InDelta(t, 8.2, got.Score, 1e-9)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSQLite_Case_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCase(context.Background(), "case-000099")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Case_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := testRecord(2, model.CaseStatePending)
	require.NoError(t, st.UpsertCase(ctx, rec))

	rec.State = model.CaseStateAccepted
	rec.Score = 9.0
	rec.Revisions = 2
	rec.FinalID = "case-000001"
	require.NoError(t, st.UpsertCase(ctx, rec))

	got, err := st.GetCase(ctx, "case-000002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.CaseStateAccepted, got.State)
	assert.Equal(t, 2, got.Revisions)
	assert.Equal(t, "case-000001", got.FinalID)
}

func TestSQLite_Case_RejectsMalformedID(t *testing.T) {
	st := newTestSQLiteStore(t)

	rec := testRecord(3, model.CaseStatePending)
	rec.Case.ID = "not-a-case-id"
	err := st.UpsertCase(context.Background(), rec)
	assert.Error(t, err)
}

func TestSQLite_ListCases_FilterAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertCase(ctx, testRecord(3, model.CaseStateAccepted)))
	require.NoError(t, st.UpsertCase(ctx, testRecord(1, model.CaseStatePending)))
	rec := testRecord(2, model.CaseStateAccepted)
	rec.Case.Category = "mediation"
	require.NoError(t, st.UpsertCase(ctx, rec))

	all, err := st.ListCases(ctx, CaseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "case-000001", all[0].Case.ID)
	assert.Equal(t, "case-000003", all[2].Case.ID)

	accepted, err := st.ListCases(ctx, CaseFilter{States: []model.CaseState{model.CaseStateAccepted}})
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	mediation, err := st.ListCases(ctx, CaseFilter{Category: "mediation"})
	require.NoError(t, err)
	require.Len(t, mediation, 1)
	assert.Equal(t, "case-000002", mediation[0].Case.ID)

	limited, err := st.ListCases(ctx, CaseFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "case-000002", limited[0].Case.ID)
}

func TestSQLite_MaxCaseNum(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	max, err := st.MaxCaseNum(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)

	require.NoError(t, st.UpsertCase(ctx, testRecord(7, model.CaseStatePending)))
	require.NoError(t, st.UpsertCase(ctx, testRecord(4, model.CaseStatePending)))

	max, err = st.MaxCaseNum(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), max)
}

// --- Allocator counter ---

func TestSQLite_Counter_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	next, err := st.LoadCounter(ctx)
	require.NoError(t, err)
	assert.Zero(t, next, "empty store has no checkpoint")

	require.NoError(t, st.SaveCounter(ctx, 42))
	require.NoError(t, st.SaveCounter(ctx, 43))

	next, err = st.LoadCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(43), next)
}

// --- Pipeline checkpoint ---

func TestSQLite_Checkpoint_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cp, err := st.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, st.SaveCheckpoint(ctx, model.Checkpoint{
		Phase:  model.PhaseGeneration,
		Status: model.PhaseStatusCompleted,
		RunID:  "run-1",
	}))
	require.NoError(t, st.SaveCheckpoint(ctx, model.Checkpoint{
		Phase:  model.PhaseValidation,
		Status: model.PhaseStatusInProgress,
		RunID:  "run-1",
		Cycle:  1,
	}))

	cp, err = st.LoadCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, model.PhaseValidation, cp.Phase)
	assert.Equal(t, model.PhaseStatusInProgress, cp.Status)
	assert.Equal(t, 1, cp.Cycle)
	assert.False(t, cp.UpdatedAt.IsZero())
}

// --- Runs ---

func TestSQLite_Run_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "run-all")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	summary := &model.RunSummary{Generated: 40, Accepted: 35, Rejected: 3, Dropped: 2}
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 35, got.Summary.Accepted)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLite_Run_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "validate")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "counter behind max case id"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunStatusFailed, got.Status)
}

func TestSQLite_Run_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	got, err := st.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, st.CompleteRun(ctx, "nope", nil))
	assert.Error(t, st.FailRun(ctx, "nope", "boom"))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "generate")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "finalize")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, nil))

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	generates, err := st.ListRuns(ctx, RunFilter{Operation: "generate"})
	require.NoError(t, err)
	require.Len(t, generates, 1)
	assert.Equal(t, a.ID, generates[0].ID)

	complete, err := st.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	assert.Len(t, complete, 1)
}
