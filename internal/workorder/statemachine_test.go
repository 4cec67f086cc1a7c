package workorder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-compliance/internal/models"
)

// forward is the only path an order may take to closed.
var forward = []models.WorkOrderStatus{
	models.StatusDraft,
	models.StatusApproved,
	models.StatusInProgress,
	models.StatusCompleted,
	models.StatusClosed,
}

func expectedCanTransition(from, to models.WorkOrderStatus) bool {
	if to == models.StatusCancelled {
		return from != models.StatusClosed && from != models.StatusCancelled
	}
	for i := 0; i < len(forward)-1; i++ {
		if forward[i] == from {
			return forward[i+1] == to
		}
	}
	return false
}

func TestCanTransition_AllPairs(t *testing.T) {
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, expectedCanTransition(from, to), CanTransition(from, to))
			})
		}
	}
}

func TestCanTransition_Examples(t *testing.T) {
	assert.False(t, CanTransition(models.StatusDraft, models.StatusCompleted))
	assert.True(t, CanTransition(models.StatusInProgress, models.StatusCompleted))
	assert.False(t, CanTransition(models.StatusDraft, models.StatusInProgress))
	assert.False(t, CanTransition(models.StatusApproved, models.StatusDraft))
	for _, to := range models.AllStatuses {
		assert.False(t, CanTransition(models.StatusClosed, to), "closed -> %s", to)
		assert.False(t, CanTransition(models.StatusCancelled, to), "cancelled -> %s", to)
	}
}

func TestAllowedNext_Terminal(t *testing.T) {
	assert.Empty(t, AllowedNext(models.StatusClosed))
	assert.Empty(t, AllowedNext(models.StatusCancelled))
	assert.Empty(t, AllowedNext("bogus"))
}

func TestIsTerminalAndBacklog(t *testing.T) {
	tests := []struct {
		status   models.WorkOrderStatus
		terminal bool
		backlog  bool
	}{
		{models.StatusDraft, false, true},
		{models.StatusApproved, false, true},
		{models.StatusInProgress, false, true},
		{models.StatusCompleted, false, false},
		{models.StatusClosed, true, false},
		{models.StatusCancelled, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, IsTerminal(tt.status))
			assert.Equal(t, tt.backlog, IsBacklog(tt.status))
		})
	}
}

func TestApplyTransition_FullLifecycle(t *testing.T) {
	created := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	order := models.WorkOrder{
		ID:        "wo-1",
		Title:     "Replace brake pads",
		Status:    models.StatusDraft,
		Priority:  models.PriorityHigh,
		CreatedAt: created,
	}

	approveAt := created.Add(time.Hour)
	approved, err := ApplyTransition(order, models.StatusApproved, "manager-9", approveAt)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, approveAt, *approved.ApprovedAt)
	assert.Equal(t, "manager-9", approved.ApprovedBy)
	assert.Nil(t, approved.CompletedAt)
	assert.NotContains(t, AllowedNext(approved.Status), models.StatusApproved)

	// the input value is untouched
	assert.Equal(t, models.StatusDraft, order.Status)
	assert.Nil(t, order.ApprovedAt)

	started, err := ApplyTransition(approved, models.StatusInProgress, "tech-2", approveAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, approved.ApprovedAt, started.ApprovedAt)
	assert.Equal(t, "manager-9", started.ApprovedBy)
	assert.Nil(t, started.CompletedAt)

	doneAt := approveAt.Add(26 * time.Hour)
	done, err := ApplyTransition(started, models.StatusCompleted, "tech-2", doneAt)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, doneAt, *done.CompletedAt)

	closed, err := ApplyTransition(done, models.StatusClosed, "manager-9", doneAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Equal(t, done.CompletedAt, closed.CompletedAt)

	// apart from status and the stamped fields nothing moved
	assert.Equal(t, order.Title, closed.Title)
	assert.Equal(t, order.Priority, closed.Priority)
	assert.Equal(t, order.CreatedAt, closed.CreatedAt)
}

func TestApplyTransition_RejectsSkips(t *testing.T) {
	order := models.WorkOrder{ID: "wo-2", Status: models.StatusDraft}

	out, err := ApplyTransition(order, models.StatusCompleted, "tech-1", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	assert.Equal(t, order, out)
	assert.Nil(t, out.CompletedAt)
}

func TestApplyTransition_EveryIllegalPairFails(t *testing.T) {
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			if CanTransition(from, to) {
				continue
			}
			_, err := ApplyTransition(models.WorkOrder{ID: "wo", Status: from}, to, "x", time.Now())
			assert.ErrorIs(t, err, models.ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}

func TestApplyTransition_CancelKeepsStamps(t *testing.T) {
	approvedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	order := models.WorkOrder{ID: "wo-3", Status: models.StatusApproved, ApprovedAt: &approvedAt, ApprovedBy: "m"}

	cancelled, err := ApplyTransition(order, models.StatusCancelled, "m", approvedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, &approvedAt, cancelled.ApprovedAt)
	assert.Nil(t, cancelled.CompletedAt)
	assert.Empty(t, AllowedNext(cancelled.Status))
}

func TestApplyTransition_CancelAfterCompletionClearsCompletedAt(t *testing.T) {
	approvedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	completedAt := approvedAt.Add(48 * time.Hour)
	order := models.WorkOrder{
		ID:          "wo-4",
		Status:      models.StatusCompleted,
		ApprovedAt:  &approvedAt,
		ApprovedBy:  "m",
		CompletedAt: &completedAt,
	}

	cancelled, err := ApplyTransition(order, models.StatusCancelled, "m", completedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)
	assert.Equal(t, &approvedAt, cancelled.ApprovedAt)
	assert.Equal(t, &completedAt, order.CompletedAt, "input order is not modified")
}
