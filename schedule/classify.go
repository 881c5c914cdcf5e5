package schedule

import "time"

// =============================================================================
// STATUS CLASSIFIER - on-time vs late for a completion instant
// =============================================================================

// Classify decides whether a completion at the given instant is on-time or
// late. Both boundaries are inclusive: completing exactly at the on-time
// deadline is on-time, and completing exactly at the grace-period end is
// late, not missed.
//
// Callers must have already checked now <= GraceEnd; Classify never returns
// missed. Missed is assigned only by the sweeper.
func Classify(now time.Time, d Deadlines) Status {
	if !now.After(d.OnTime) {
		return StatusOnTime
	}
	return StatusLate
}
