/*
store.go - Persistence interfaces for the compliance engine

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never constructs queries; it asks these interfaces for records and hands
  back mutated ones. Different implementations can use SQLite, PostgreSQL,
  or in-memory storage.

KEY INTERFACES:
  RoutineStore:    Routine lookup (read-only from the engine's view)
  StepStore:       Step lookup, including the batched join for stats
  ProfileStore:    User timezone lookup
  OccurrenceStore: The one mutable surface: create/read/update occurrences,
                   the set-based overdue sweep, and scoped deletion

MUTATION CONTRACT:
  Occurrences are created pending, transition to a terminal status exactly
  once (Update or MarkOverdue), and are deleted only by DeleteForStep /
  DeleteByUser. MarkOverdue is a single set-based write so two concurrent
  sweeps never double-count.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - schedule/store: In-memory for tests/dev

SEE ALSO:
  - scheduler.go, sweeper.go, complete.go, stats.go: The consumers
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// READ-ONLY PRESCRIPTION STORES
// =============================================================================

// RoutineStore looks up routine prescriptions.
type RoutineStore interface {
	// FindRoutine returns the routine or ErrRoutineNotFound.
	FindRoutine(ctx context.Context, id RoutineID) (Routine, error)
}

// StepStore looks up routine steps.
type StepStore interface {
	// FindStepsByRoutine returns all steps of a routine, in routine order.
	// An empty result is not an error.
	FindStepsByRoutine(ctx context.Context, id RoutineID) ([]RoutineStep, error)

	// FindStepsByIDs returns the steps for the given ids in one batch.
	// Missing ids are silently absent from the result.
	FindStepsByIDs(ctx context.Context, ids []StepID) ([]RoutineStep, error)
}

// ProfileStore looks up user profiles.
type ProfileStore interface {
	// FindProfile returns the profile or ErrProfileNotFound.
	FindProfile(ctx context.Context, id UserID) (UserProfile, error)
}

// =============================================================================
// OCCURRENCE STORE - The mutable surface
// =============================================================================

// OccurrenceStore persists scheduled occurrences.
type OccurrenceStore interface {
	// CreateOccurrences inserts a batch atomically. Either all rows are
	// written or none are.
	CreateOccurrences(ctx context.Context, occs []Occurrence) error

	// FindOccurrence returns the occurrence or ErrOccurrenceNotFound.
	FindOccurrence(ctx context.Context, id OccurrenceID) (Occurrence, error)

	// FindOccurrencesByUser returns all of a user's occurrences.
	FindOccurrencesByUser(ctx context.Context, userID UserID) ([]Occurrence, error)

	// FindOccurrencesInRange returns a user's occurrences with scheduled
	// date in [from, to]. Order is not guaranteed; callers re-sort.
	FindOccurrencesInRange(ctx context.Context, userID UserID, from, to Date) ([]Occurrence, error)

	// FindOccurrencesOnDate returns a user's occurrences for one date.
	FindOccurrencesOnDate(ctx context.Context, userID UserID, d Date) ([]Occurrence, error)

	// UpdateOccurrence persists a mutated occurrence by id.
	UpdateOccurrence(ctx context.Context, occ Occurrence) error

	// MarkOverdue transitions every pending occurrence of the user with
	// grace_period_end strictly before now to missed, stamping UpdatedAt.
	// Returns the number of rows transitioned. Idempotent.
	MarkOverdue(ctx context.Context, userID UserID, now time.Time) (int, error)

	// DeleteForStep removes a step's occurrences dated >= from whose status
	// is in statuses. Returns the number of rows removed. Completed history
	// is never touched because callers pass only pending/missed.
	DeleteForStep(ctx context.Context, stepID StepID, from Date, statuses []Status) (int, error)

	// DeleteByUser removes every occurrence of a user.
	DeleteByUser(ctx context.Context, userID UserID) (int, error)
}
