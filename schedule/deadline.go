package schedule

import "time"

// =============================================================================
// DEADLINE CALCULATOR - Date + slot + timezone -> deadline pair
// =============================================================================

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

// DeadlineConfig fixes the wall-clock deadline per slot and the grace span.
// The deadlines are a product configuration choice, not derived values.
type DeadlineConfig struct {
	Morning ClockTime
	Evening ClockTime

	// GraceDays is the number of calendar days after the deadline at which
	// the grace period ends, at the same wall-clock time. Computing it as a
	// calendar day (not 24h) in the user's zone absorbs DST transitions.
	GraceDays int
}

// DefaultDeadlines is the production configuration: morning steps are due by
// noon, evening steps by 23:59, and the grace period runs until the same
// wall-clock time the next day.
var DefaultDeadlines = DeadlineConfig{
	Morning:   ClockTime{Hour: 12},
	Evening:   ClockTime{Hour: 23, Minute: 59},
	GraceDays: 1,
}

// Deadlines is the computed pair for one occurrence.
// OnTime <= GraceEnd always holds.
type Deadlines struct {
	OnTime   time.Time
	GraceEnd time.Time
}

// Compute interprets the slot's wall-clock deadline on the given date in the
// given location and returns the absolute deadline pair.
func (c DeadlineConfig) Compute(d Date, slot TimeOfDay, loc *time.Location) Deadlines {
	clock := c.Morning
	if slot == Evening {
		clock = c.Evening
	}

	onTime := time.Date(d.Year, d.Month, d.Day, clock.Hour, clock.Minute, 0, 0, loc)
	graceEnd := time.Date(d.Year, d.Month, d.Day+c.GraceDays, clock.Hour, clock.Minute, 0, 0, loc)

	return Deadlines{OnTime: onTime, GraceEnd: graceEnd}
}
