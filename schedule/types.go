/*
Package schedule provides the routine compliance engine.

PURPOSE:
  This package contains the domain types and algorithms for expanding a
  prescribed skincare routine into dated scheduled occurrences, classifying
  their completion as on-time or late, sweeping expired occurrences to
  missed, and rolling occurrences up into compliance statistics.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeOfDay: Which slot of the day a step belongs to (morning/evening)
  - Frequency: A tagged recurrence rule (daily, Nx/week, specific days)
  - Occurrence: One scheduled instance of a step due on one calendar date
  - Status: The occurrence lifecycle (pending -> on-time/late/missed)
  - RoutineStep/Routine/UserProfile: Read-only prescription inputs

DESIGN PRINCIPLES:
  1. Terminal statuses are immutable: an occurrence reaches on-time, late
     or missed exactly once and is never re-mutated.
  2. Stored status lags wall-clock reality: a pending occurrence past its
     grace period stays pending until the sweeper runs. Readers sweep first.
  3. Frequency rules are validated once at the boundary; the scheduling
     predicate is a pure day-set membership test.

USAGE:
  freq, _ := schedule.NewFrequency("3x per week", []string{"Monday", "Wednesday", "Friday"})
  occ := schedule.Occurrence{Status: schedule.StatusPending, ...}

SEE ALSO:
  - scheduler.go: Expands steps into occurrences
  - deadline.go: Deadline and grace-period computation
  - stats.go: Compliance aggregation
*/
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type RoutineID string
type StepID string
type OccurrenceID string

// =============================================================================
// TIME OF DAY - Which slot of the day a step belongs to
// =============================================================================

type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Evening TimeOfDay = "evening"
)

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch TimeOfDay(strings.ToLower(s)) {
	case Morning:
		return Morning, nil
	case Evening:
		return Evening, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// =============================================================================
// FREQUENCY - Tagged recurrence rule
// =============================================================================

type FrequencyKind string

const (
	FrequencyDaily        FrequencyKind = "daily"
	FrequencyTimesPerWeek FrequencyKind = "times_per_week"
	FrequencySpecificDays FrequencyKind = "specific_days"
)

// Frequency is the recurrence rule for a step. Count and Days are only
// meaningful for the non-daily kinds; NewFrequency validates the shape so
// Matches can trust the day set without re-deriving the count.
type Frequency struct {
	Kind  FrequencyKind
	Count int                   // populated for times_per_week
	Days  map[time.Weekday]bool // populated for times_per_week and specific_days
}

// NewFrequency parses a raw frequency label ("daily", "2x per week",
// "specific_days") and weekday names into a validated Frequency.
// For "Nx per week" the day-set size must equal N; for specific_days the
// set must be non-empty.
func NewFrequency(raw string, dayNames []string) (Frequency, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))

	if raw == string(FrequencyDaily) {
		return Frequency{Kind: FrequencyDaily}, nil
	}

	days, err := parseWeekdays(dayNames)
	if err != nil {
		return Frequency{}, err
	}

	if raw == string(FrequencySpecificDays) {
		if len(days) == 0 {
			return Frequency{}, fmt.Errorf("%w: specific_days requires at least one day", ErrInvalidFrequency)
		}
		return Frequency{Kind: FrequencySpecificDays, Days: days}, nil
	}

	// "Nx per week"
	var count int
	if _, err := fmt.Sscanf(raw, "%dx per week", &count); err != nil || count < 1 || count > 7 {
		return Frequency{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, raw)
	}
	if len(days) != count {
		return Frequency{}, fmt.Errorf("%w: %dx per week requires exactly %d days, got %d",
			ErrInvalidFrequency, count, count, len(days))
	}
	return Frequency{Kind: FrequencyTimesPerWeek, Count: count, Days: days}, nil
}

// Matches reports whether an occurrence is due on the given date.
// For the non-daily kinds this is a pure membership test on the day set;
// the Nx count is enforced at construction, never here.
func (f Frequency) Matches(d Date) bool {
	switch f.Kind {
	case FrequencyDaily:
		return true
	case FrequencyTimesPerWeek, FrequencySpecificDays:
		return f.Days[d.Weekday()]
	default:
		return false
	}
}

// Label renders the frequency back into its storage form.
func (f Frequency) Label() string {
	if f.Kind == FrequencyTimesPerWeek {
		return fmt.Sprintf("%dx per week", f.Count)
	}
	return string(f.Kind)
}

// DayNames returns the configured weekday names in Monday-first order.
func (f Frequency) DayNames() []string {
	var names []string
	for _, wd := range []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	} {
		if f.Days[wd] {
			names = append(names, wd.String())
		}
	}
	return names
}

func parseWeekdays(names []string) (map[time.Weekday]bool, error) {
	byName := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	days := make(map[time.Weekday]bool, len(names))
	for _, n := range names {
		wd, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidFrequency, n)
		}
		days[wd] = true
	}
	return days, nil
}

// =============================================================================
// OCCURRENCE STATUS - pending -> on-time | late | missed
// =============================================================================

type Status string

const (
	StatusPending Status = "pending"
	StatusOnTime  Status = "on-time"
	StatusLate    Status = "late"
	StatusMissed  Status = "missed"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool { return s != StatusPending }

// Countable reports whether the occurrence participates in compliance
// statistics. Pending occurrences are excluded from every rollup.
func (s Status) Countable() bool { return s == StatusOnTime || s == StatusLate || s == StatusMissed }

// =============================================================================
// OCCURRENCE - One scheduled instance of a step
// =============================================================================

// Occurrence is the core mutable record: one instance of a routine step due
// on one calendar date, with its deadline pair precomputed as absolute
// instants in the user's timezone.
//
// Invariants:
//   - OnTimeDeadline <= GracePeriodEnd, always.
//   - Status pending  <=> CompletedAt == nil (until swept).
//   - Status on-time or late => CompletedAt != nil.
//   - Status missed => CompletedAt == nil.
type Occurrence struct {
	ID             OccurrenceID
	StepID         StepID
	UserID         UserID
	ScheduledDate  Date
	TimeOfDay      TimeOfDay
	OnTimeDeadline time.Time
	GracePeriodEnd time.Time
	CompletedAt    *time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// =============================================================================
// PRESCRIPTION INPUTS - Read-only records owned by the routine author
// =============================================================================

// RoutineStep is one product/instruction slot within a routine.
type RoutineStep struct {
	ID          StepID
	RoutineID   RoutineID
	RoutineStep int    // ordinal position within the routine
	ProductName string
	TimeOfDay   TimeOfDay
	Frequency   Frequency
}

// Routine is the prescription container: a date range owned by one user.
// EndDate == nil means open-ended; the scheduler substitutes a six-month
// horizon from its generation anchor.
type Routine struct {
	ID            RoutineID
	UserProfileID UserID
	StartDate     Date
	EndDate       *Date
}

// UserProfile carries the only user fact this engine reads: the IANA
// timezone every deadline is computed in.
type UserProfile struct {
	ID       UserID
	Timezone string
}

// Location resolves the profile's IANA timezone.
func (p UserProfile) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, p.Timezone, err)
	}
	return loc, nil
}
