package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dermaloop/routine-engine/schedule"
	"github.com/dermaloop/routine-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testUser = "7c3e2f10-5a8d-4b6e-9f21-0d4c8a7b3e52"

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testOccurrence(id string, d schedule.Date, status schedule.Status) schedule.Occurrence {
	onTime := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
	return schedule.Occurrence{
		ID:             schedule.OccurrenceID(id),
		StepID:         "step-1",
		UserID:         testUser,
		ScheduledDate:  d,
		TimeOfDay:      schedule.Morning,
		OnTimeDeadline: onTime,
		GracePeriodEnd: onTime.Add(24 * time.Hour),
		Status:         status,
		CreatedAt:      onTime.Add(-48 * time.Hour),
		UpdatedAt:      onTime.Add(-48 * time.Hour),
	}
}

// =============================================================================
// PRESCRIPTION ROUND TRIPS
// =============================================================================

func TestSQLite_RoutineRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	end := schedule.NewDate(2025, time.June, 30)
	routine := schedule.Routine{
		ID:            "routine-1",
		UserProfileID: testUser,
		StartDate:     schedule.NewDate(2025, time.January, 15),
		EndDate:       &end,
	}
	require.NoError(t, st.PutRoutine(ctx, routine))

	got, err := st.FindRoutine(ctx, "routine-1")
	require.NoError(t, err)
	assert.Equal(t, routine.StartDate, got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, end, *got.EndDate)

	_, err = st.FindRoutine(ctx, "missing")
	assert.ErrorIs(t, err, schedule.ErrRoutineNotFound)
}

func TestSQLite_OpenEndedRoutine(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutRoutine(ctx, schedule.Routine{
		ID: "routine-1", UserProfileID: testUser,
		StartDate: schedule.NewDate(2025, time.January, 15),
	}))

	got, err := st.FindRoutine(ctx, "routine-1")
	require.NoError(t, err)
	assert.Nil(t, got.EndDate)
}

func TestSQLite_ProfileRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutProfile(ctx, schedule.UserProfile{ID: testUser, Timezone: "Europe/Paris"}))

	got, err := st.FindProfile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", got.Timezone)

	_, err = st.FindProfile(ctx, "ghost")
	assert.ErrorIs(t, err, schedule.ErrProfileNotFound)
}

func TestSQLite_StepRoundTrip_FrequencySurvives(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	freq, err := schedule.NewFrequency("2x per week", []string{"Monday", "Thursday"})
	require.NoError(t, err)
	require.NoError(t, st.PutStep(ctx, schedule.RoutineStep{
		ID: "step-1", RoutineID: "routine-1", RoutineStep: 1,
		ProductName: "Retinol Serum", TimeOfDay: schedule.Evening, Frequency: freq,
	}))

	steps, err := st.FindStepsByRoutine(ctx, "routine-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "2x per week", steps[0].Frequency.Label())
	assert.True(t, steps[0].Frequency.Matches(schedule.NewDate(2025, time.January, 13))) // Monday
	assert.False(t, steps[0].Frequency.Matches(schedule.NewDate(2025, time.January, 14)))
}

func TestSQLite_FindStepsByIDs_Batch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	freq, _ := schedule.NewFrequency("daily", nil)
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, st.PutStep(ctx, schedule.RoutineStep{
			ID: schedule.StepID(id), RoutineID: "routine-1",
			ProductName: id, TimeOfDay: schedule.Morning, Frequency: freq,
		}))
	}

	steps, err := st.FindStepsByIDs(ctx, []schedule.StepID{"s1", "s3", "missing"})
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

func TestSQLite_OccurrenceRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	occ := testOccurrence("occ-1", schedule.NewDate(2025, time.February, 10), schedule.StatusPending)
	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{occ}))

	got, err := st.FindOccurrence(ctx, "occ-1")
	require.NoError(t, err)
	assert.Equal(t, occ.ScheduledDate, got.ScheduledDate)
	assert.True(t, occ.OnTimeDeadline.Equal(got.OnTimeDeadline))
	assert.True(t, occ.GracePeriodEnd.Equal(got.GracePeriodEnd))
	assert.Equal(t, schedule.StatusPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	_, err = st.FindOccurrence(ctx, "missing")
	assert.ErrorIs(t, err, schedule.ErrOccurrenceNotFound)
}

func TestSQLite_UpdateOccurrence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	occ := testOccurrence("occ-1", schedule.NewDate(2025, time.February, 10), schedule.StatusPending)
	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{occ}))

	done := occ.OnTimeDeadline.Add(-time.Hour)
	occ.CompletedAt = &done
	occ.Status = schedule.StatusOnTime
	occ.UpdatedAt = done
	require.NoError(t, st.UpdateOccurrence(ctx, occ))

	got, err := st.FindOccurrence(ctx, "occ-1")
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusOnTime, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))

	err = st.UpdateOccurrence(ctx, testOccurrence("ghost", schedule.NewDate(2025, time.March, 1), schedule.StatusPending))
	assert.ErrorIs(t, err, schedule.ErrOccurrenceNotFound)
}

func TestSQLite_FindOccurrencesInRange_Inclusive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{
		testOccurrence("before", schedule.NewDate(2025, time.February, 9), schedule.StatusPending),
		testOccurrence("start", schedule.NewDate(2025, time.February, 10), schedule.StatusPending),
		testOccurrence("end", schedule.NewDate(2025, time.February, 20), schedule.StatusPending),
		testOccurrence("after", schedule.NewDate(2025, time.February, 21), schedule.StatusPending),
	}))

	occs, err := st.FindOccurrencesInRange(ctx, testUser,
		schedule.NewDate(2025, time.February, 10), schedule.NewDate(2025, time.February, 20))
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func TestSQLite_MarkOverdue_StrictBoundaryAndIdempotent(t *testing.T) {
	// GIVEN: Grace ends at T for one row, before T for another
	// WHEN: Sweeping at exactly T, then again later
	// THEN: Only the strictly-elapsed row transitions, and only once

	st := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, time.February, 11, 12, 0, 0, 0, time.UTC)
	atBoundary := testOccurrence("boundary", schedule.NewDate(2025, time.February, 10), schedule.StatusPending)
	atBoundary.GracePeriodEnd = now
	expired := testOccurrence("expired", schedule.NewDate(2025, time.February, 9), schedule.StatusPending)
	expired.GracePeriodEnd = now.Add(-time.Hour)
	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{atBoundary, expired}))

	count, err := st.MarkOverdue(ctx, testUser, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, _ := st.FindOccurrence(ctx, "expired")
	assert.Equal(t, schedule.StatusMissed, got.Status)
	got, _ = st.FindOccurrence(ctx, "boundary")
	assert.Equal(t, schedule.StatusPending, got.Status)

	count, err = st.MarkOverdue(ctx, testUser, now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLite_DeleteForStep_StatusAndDateScoped(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	completed := testOccurrence("completed", schedule.NewDate(2025, time.February, 12), schedule.StatusOnTime)
	done := completed.OnTimeDeadline.Add(-time.Hour)
	completed.CompletedAt = &done

	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{
		testOccurrence("old-pending", schedule.NewDate(2025, time.February, 1), schedule.StatusPending),
		testOccurrence("new-pending", schedule.NewDate(2025, time.February, 10), schedule.StatusPending),
		testOccurrence("new-missed", schedule.NewDate(2025, time.February, 11), schedule.StatusMissed),
		completed,
	}))

	count, err := st.DeleteForStep(ctx, "step-1", schedule.NewDate(2025, time.February, 5),
		[]schedule.Status{schedule.StatusPending, schedule.StatusMissed})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	remaining, err := st.FindOccurrencesByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestSQLite_DeleteByUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateOccurrences(ctx, []schedule.Occurrence{
		testOccurrence("o1", schedule.NewDate(2025, time.February, 1), schedule.StatusPending),
		testOccurrence("o2", schedule.NewDate(2025, time.February, 2), schedule.StatusPending),
	}))

	count, err := st.DeleteByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	occs, err := st.FindOccurrencesByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, occs)
}
