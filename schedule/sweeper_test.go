package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermaloop/routine-engine/schedule"
	"github.com/dermaloop/routine-engine/schedule/store"
)

// =============================================================================
// OVERDUE SWEEPER TESTS
// =============================================================================

func pendingOcc(id string, graceEnd time.Time) schedule.Occurrence {
	return schedule.Occurrence{
		ID:             schedule.OccurrenceID(id),
		StepID:         "step-1",
		UserID:         testUser,
		ScheduledDate:  schedule.DateOf(graceEnd.Add(-24 * time.Hour)),
		TimeOfDay:      schedule.Morning,
		OnTimeDeadline: graceEnd.Add(-24 * time.Hour),
		GracePeriodEnd: graceEnd,
		Status:         schedule.StatusPending,
	}
}

func TestSweeper_ExpiredPendingBecomesMissed(t *testing.T) {
	// GIVEN: One pending occurrence past grace, one still within grace
	// WHEN: Sweeping
	// THEN: Only the expired one transitions to missed

	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mem.CreateOccurrences(ctx, []schedule.Occurrence{
		pendingOcc("expired", now.Add(-time.Hour)),
		pendingOcc("fresh", now.Add(time.Hour)),
	}))

	count, err := schedule.NewSweeper(mem).MarkOverdue(ctx, testUser, &now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expired, _ := mem.FindOccurrence(ctx, "expired")
	assert.Equal(t, schedule.StatusMissed, expired.Status)
	assert.Nil(t, expired.CompletedAt)
	assert.Equal(t, now, expired.UpdatedAt)

	fresh, _ := mem.FindOccurrence(ctx, "fresh")
	assert.Equal(t, schedule.StatusPending, fresh.Status)
}

func TestSweeper_ExactlyAtGraceEnd_NotYetOverdue(t *testing.T) {
	// Strict inequality: grace ending exactly at now is not overdue;
	// one unit past is.

	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mem.CreateOccurrences(ctx, []schedule.Occurrence{pendingOcc("boundary", now)}))

	sw := schedule.NewSweeper(mem)
	count, err := sw.MarkOverdue(ctx, testUser, &now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	later := now.Add(time.Nanosecond)
	count, err = sw.MarkOverdue(ctx, testUser, &later)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSweeper_Idempotent(t *testing.T) {
	// GIVEN: A swept occurrence
	// WHEN: Sweeping again at the same and at a later now
	// THEN: Count is 0 and the missed record's UpdatedAt is untouched

	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mem.CreateOccurrences(ctx, []schedule.Occurrence{
		pendingOcc("expired", now.Add(-time.Hour)),
	}))

	sw := schedule.NewSweeper(mem)
	count, err := sw.MarkOverdue(ctx, testUser, &now)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	first, _ := mem.FindOccurrence(ctx, "expired")

	count, err = sw.MarkOverdue(ctx, testUser, &now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	later := now.Add(time.Hour)
	count, err = sw.MarkOverdue(ctx, testUser, &later)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	second, _ := mem.FindOccurrence(ctx, "expired")
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "re-sweep must not re-touch missed rows")
}

// faultySweepStore fails every set-based sweep.
type faultySweepStore struct {
	*store.Memory
}

func (f *faultySweepStore) MarkOverdue(context.Context, schedule.UserID, time.Time) (int, error) {
	return 0, errors.New("database is locked")
}

func TestSweeper_StorageFault_GenericError(t *testing.T) {
	// Storage faults surface as the single named sweep error; the cause is
	// logged, never returned.
	sw := schedule.NewSweeper(&faultySweepStore{store.NewMemory()})
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	_, err := sw.MarkOverdue(context.Background(), testUser, &now)
	assert.ErrorIs(t, err, schedule.ErrSweepFailed)
	assert.NotContains(t, err.Error(), "database is locked")
}

func TestSweeper_OnlyTargetUser(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	other := pendingOcc("other-user", now.Add(-time.Hour))
	other.UserID = "someone-else"
	require.NoError(t, mem.CreateOccurrences(ctx, []schedule.Occurrence{
		pendingOcc("mine", now.Add(-time.Hour)),
		other,
	}))

	count, err := schedule.NewSweeper(mem).MarkOverdue(ctx, testUser, &now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	untouched, _ := mem.FindOccurrence(ctx, "other-user")
	assert.Equal(t, schedule.StatusPending, untouched.Status)
}
