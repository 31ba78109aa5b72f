package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/store"
)

func TestFormatStatus(t *testing.T) {
	cp := &model.Checkpoint{
		Phase:  model.PhaseValidation,
		Status: model.PhaseStatusInProgress,
		Cycle:  2,
	}
	counts := map[model.CaseState]int{
		model.CaseStateAccepted:      12,
		model.CaseStateNeedsRevision: 3,
	}
	last := &model.Run{
		ID:        "abc12345-6789-0000-0000-000000000000",
		Operation: "validate",
		Status:    store.RunStatusComplete,
		StartedAt: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	formatStatus(&buf, cp, counts, last)

	output := buf.String()
	assert.Contains(t, output, "validation")
	assert.Contains(t, output, "in_progress")
	assert.Contains(t, output, "Revision cycle:")
	assert.Contains(t, output, "15")
	assert.Contains(t, output, "accepted:")
	assert.Contains(t, output, "needs_revision:")
	assert.Contains(t, output, "validate complete")
	assert.Contains(t, output, "2026-03-10 09:15")
}

func TestFormatStatus_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	formatStatus(&buf, nil, map[model.CaseState]int{}, nil)

	output := buf.String()
	assert.Contains(t, output, "(not started)")
	assert.Contains(t, output, "Cases:")
	assert.NotContains(t, output, "Last run:")
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Operation:   "generate",
			Status:      store.RunStatusComplete,
			StartedAt:   started,
			CompletedAt: &completed,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Operation: "finalize",
			Status:    store.RunStatusFailed,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "OPERATION")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "generate")
	assert.Contains(t, output, "42s")
	assert.Contains(t, output, "def12345")
	assert.Contains(t, output, "failed")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
