package schedule

import (
	"context"
	"log"
	"time"
)

// =============================================================================
// OVERDUE SWEEPER - pending past grace -> missed
// =============================================================================

// Sweeper lazily reconciles stored status with wall-clock reality: every
// pending occurrence whose grace period has strictly elapsed becomes missed.
// Nothing sweeps eagerly; read paths that report compliance must call this
// first, so a stale pending row is never presented as still completable.
type Sweeper struct {
	Occurrences OccurrenceStore
	Now         func() time.Time
}

func NewSweeper(occs OccurrenceStore) *Sweeper {
	return &Sweeper{Occurrences: occs, Now: time.Now}
}

// MarkOverdue transitions the user's expired pending occurrences to missed
// and returns how many rows changed. An occurrence whose grace period ends
// exactly at now is not yet overdue (strict <). Running twice with the same
// or a later now re-touches nothing: already-missed rows keep their
// UpdatedAt and the second count is zero.
func (sw *Sweeper) MarkOverdue(ctx context.Context, userID UserID, at *time.Time) (int, error) {
	now := sw.clock()
	if at != nil {
		now = *at
	}
	n, err := sw.Occurrences.MarkOverdue(ctx, userID, now)
	if err != nil {
		log.Printf("overdue sweep: user %s: %v", userID, err)
		return 0, ErrSweepFailed
	}
	return n, nil
}

func (sw *Sweeper) clock() time.Time {
	if sw.Now != nil {
		return sw.Now()
	}
	return time.Now()
}
