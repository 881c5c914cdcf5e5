package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar date with no time component
// =============================================================================

// Date is a calendar date (year, month, day) with no clock or zone. Scheduled
// dates are date-only; the instant semantics live on the deadline pair.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// Normalize through time.Date so callers may pass overflowing components.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current calendar date in the given location.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.midnightUTC().Before(other.midnightUTC()) }
func (d Date) After(other Date) bool         { return d.midnightUTC().After(other.midnightUTC()) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return NewDate(d.Year, d.Month, d.Day+n) }
func (d Date) AddMonths(n int) Date { return NewDate(d.Year, d.Month+time.Month(n), d.Day) }

// Properties
func (d Date) Weekday() time.Weekday { return d.midnightUTC().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }

func (d Date) String() string { return d.midnightUTC().Format("2006-01-02") }

// Display renders the date the way compliance reports show missed dates,
// e.g. "Sunday, Jan 12, 2025".
func (d Date) Display() string { return d.midnightUTC().Format("Monday, Jan 2, 2006") }

// DaysBetween returns the number of days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.midnightUTC().Sub(from.midnightUTC()).Hours() / 24)
}
