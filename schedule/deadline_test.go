package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DEADLINE CALCULATOR TESTS
// =============================================================================

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDeadlines_MorningSlot_NoonLocal(t *testing.T) {
	// GIVEN: A morning step on Jan 15, 2025 in New York
	// WHEN: Computing the deadline pair
	// THEN: On-time is noon local; grace ends noon the next day

	ny := mustLoc(t, "America/New_York")
	d := DefaultDeadlines.Compute(NewDate(2025, time.January, 15), Morning, ny)

	assert.Equal(t, time.Date(2025, time.January, 15, 12, 0, 0, 0, ny), d.OnTime)
	assert.Equal(t, time.Date(2025, time.January, 16, 12, 0, 0, 0, ny), d.GraceEnd)
}

func TestDeadlines_EveningSlot_EndOfDayLocal(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	d := DefaultDeadlines.Compute(NewDate(2025, time.January, 15), Evening, ny)

	assert.Equal(t, time.Date(2025, time.January, 15, 23, 59, 0, 0, ny), d.OnTime)
	assert.Equal(t, time.Date(2025, time.January, 16, 23, 59, 0, 0, ny), d.GraceEnd)
}

func TestDeadlines_DSTSpringForward_GraceAbsorbsTransition(t *testing.T) {
	// GIVEN: An evening step on Mar 8, 2025, the night before US DST starts
	// WHEN: Computing the deadline pair
	// THEN: Grace ends at the same wall-clock time next day (a 23h span),
	//       and the construction invariant OnTime <= GraceEnd still holds

	ny := mustLoc(t, "America/New_York")
	d := DefaultDeadlines.Compute(NewDate(2025, time.March, 8), Evening, ny)

	assert.Equal(t, time.Date(2025, time.March, 9, 23, 59, 0, 0, ny), d.GraceEnd)
	assert.Equal(t, 23*time.Hour, d.GraceEnd.Sub(d.OnTime))
	assert.False(t, d.OnTime.After(d.GraceEnd))
}

func TestDeadlines_DSTFallBack_GraceAbsorbsTransition(t *testing.T) {
	// US DST ends Nov 2, 2025: the grace span stretches to 25h.
	ny := mustLoc(t, "America/New_York")
	d := DefaultDeadlines.Compute(NewDate(2025, time.November, 1), Evening, ny)

	assert.Equal(t, 25*time.Hour, d.GraceEnd.Sub(d.OnTime))
	assert.False(t, d.OnTime.After(d.GraceEnd))
}

func TestDeadlines_InvariantAcrossYear(t *testing.T) {
	// GIVEN: Every day of 2025, both slots, a DST-observing timezone
	// THEN: OnTime <= GraceEnd for every occurrence

	ny := mustLoc(t, "America/New_York")
	for d := NewDate(2025, time.January, 1); d.BeforeOrEqual(NewDate(2025, time.December, 31)); d = d.AddDays(1) {
		for _, slot := range []TimeOfDay{Morning, Evening} {
			pair := DefaultDeadlines.Compute(d, slot, ny)
			assert.False(t, pair.OnTime.After(pair.GraceEnd), "date %s slot %s", d, slot)
		}
	}
}

func TestProfile_InvalidTimezone(t *testing.T) {
	p := UserProfile{ID: "u1", Timezone: "Mars/Olympus_Mons"}
	_, err := p.Location()
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}
