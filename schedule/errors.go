/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every operation returns one of these rather than leaking storage or
  parsing failures to callers.

ERROR CATEGORIES:
  1. Not-found errors - Missing routine, profile, step, or occurrence.
     Ownership mismatches report as not-found on purpose: a caller must
     not be able to learn that someone else's occurrence exists.
  2. State-conflict errors - Illegal occurrence transitions.
  3. Validation errors - Malformed identifiers, dates, frequencies.
  4. Storage errors - Persistence faults, wrapped into one named error
     per operation at the boundary.

USAGE:
  if errors.Is(err, schedule.ErrGracePeriodExpired) {
      // surface the stable user-facing message
  }

SEE ALSO:
  - complete.go: Uses the state-conflict errors
  - stats.go: Wraps storage faults into ErrStatsUnavailable
*/
package schedule

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRoutineNotFound is returned when a referenced routine doesn't exist.
	ErrRoutineNotFound = errors.New("routine not found")

	// ErrProfileNotFound is returned when the user profile doesn't exist.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrStepNotFound is returned when a step isn't among the routine's products.
	ErrStepNotFound = errors.New("routine step not found")

	// ErrOccurrenceNotFound is returned when an occurrence doesn't exist OR
	// when it exists but belongs to another user. The two cases are
	// deliberately indistinguishable.
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrAlreadyCompleted is returned when completing an occurrence that
	// already has a completion recorded.
	ErrAlreadyCompleted = errors.New("occurrence already completed")

	// ErrGracePeriodExpired is returned when the completion instant falls
	// past the grace-period end. The occurrence is left untouched.
	ErrGracePeriodExpired = errors.New("this step can no longer be completed (grace period expired)")

	// ErrInvalidUserID is returned when a user identifier fails format
	// validation, before any storage access.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidDate is returned for unparseable calendar dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidTimeOfDay is returned for slots other than morning/evening.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")

	// ErrInvalidFrequency is returned when a frequency rule is malformed,
	// including an Nx-per-week day set whose size doesn't match N.
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrInvalidTimezone is returned when a profile carries an unloadable
	// IANA timezone string.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrStatsUnavailable is the single error the aggregator reports for
	// any storage fault. The underlying cause is logged, never returned.
	ErrStatsUnavailable = errors.New("failed to fetch compliance stats")

	// ErrScheduleFailed is the single error the scheduler reports for any
	// storage fault. The underlying cause is logged, never returned.
	ErrScheduleFailed = errors.New("failed to generate schedule")

	// ErrSweepFailed is the single error the sweeper reports for any
	// storage fault. The underlying cause is logged, never returned.
	ErrSweepFailed = errors.New("failed to sweep overdue occurrences")

	// ErrCompleteFailed is the single error the recorder reports for any
	// storage fault. The underlying cause is logged, never returned.
	ErrCompleteFailed = errors.New("failed to record completion")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing (or not owned)
// record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoutineNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrOccurrenceNotFound)
}

// IsConflict returns true if the error is an illegal state transition.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrGracePeriodExpired)
}

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidTimeOfDay) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidTimezone)
}
