package schedule

import (
	"context"
	"errors"
	"log"
	"time"
)

// =============================================================================
// COMPLETION RECORDER - The single user-driven transition
// =============================================================================

// Recorder guards the only transition a user can drive: pending -> on-time
// or pending -> late. Every precondition is checked before any write, so a
// failed attempt never mutates the record.
type Recorder struct {
	Occurrences OccurrenceStore
	Now         func() time.Time
}

func NewRecorder(occs OccurrenceStore) *Recorder {
	return &Recorder{Occurrences: occs, Now: time.Now}
}

// Completion is the successful result of Complete.
type Completion struct {
	Status      Status
	CompletedAt time.Time
}

// Complete marks one occurrence complete on behalf of the acting user.
// Checks, in order:
//  1. The occurrence exists and belongs to the acting user. An ownership
//     mismatch reports ErrOccurrenceNotFound, identical to non-existence,
//     so a non-owner can't probe for other users' records.
//  2. It isn't already completed (ErrAlreadyCompleted).
//  3. The completion instant is within the grace period, boundary
//     inclusive (ErrGracePeriodExpired). The record stays pending; the
//     sweeper will mark it missed later.
//
// On success the classifier decides on-time vs late and the record is
// persisted with its completion instant. Storage faults are logged and
// reported as the single ErrCompleteFailed; the cause never reaches the
// caller.
func (r *Recorder) Complete(ctx context.Context, id OccurrenceID, userID UserID, at *time.Time) (Completion, error) {
	occ, err := r.Occurrences.FindOccurrence(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOccurrenceNotFound) {
			return Completion{}, err
		}
		log.Printf("record completion: find occurrence %s: %v", id, err)
		return Completion{}, ErrCompleteFailed
	}
	if occ.UserID != userID {
		return Completion{}, ErrOccurrenceNotFound
	}
	if occ.CompletedAt != nil {
		return Completion{}, ErrAlreadyCompleted
	}

	now := r.clock()
	if at != nil {
		now = *at
	}
	if now.After(occ.GracePeriodEnd) {
		return Completion{}, ErrGracePeriodExpired
	}

	status := Classify(now, Deadlines{OnTime: occ.OnTimeDeadline, GraceEnd: occ.GracePeriodEnd})
	occ.CompletedAt = &now
	occ.Status = status
	occ.UpdatedAt = now

	if err := r.Occurrences.UpdateOccurrence(ctx, occ); err != nil {
		if errors.Is(err, ErrOccurrenceNotFound) {
			return Completion{}, err
		}
		log.Printf("record completion: update occurrence %s: %v", id, err)
		return Completion{}, ErrCompleteFailed
	}
	return Completion{Status: status, CompletedAt: now}, nil
}

func (r *Recorder) clock() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
