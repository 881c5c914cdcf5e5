/*
scheduler.go - Expands routine steps into scheduled occurrences

PURPOSE:
  Walks a routine's date range day by day, evaluates each step's frequency
  predicate, and materializes a pending Occurrence (with its deadline pair)
  for every matching date. All occurrences for one call are inserted as a
  single atomic batch, in ascending date order.

ENTRY POINTS:
  GenerateForRoutine: All steps, anchored at the routine's start date.
  GenerateForStep:    One step only, anchored at today. Used when a product
                      is added to an already-published routine.
  DeleteForStep:      Removes a step's pending/missed occurrences from a
                      cutoff date onward, ahead of regeneration after the
                      step definition changes. Completed history survives.

HORIZON:
  A routine with no end date is scheduled six months past the generation
  anchor. Note the anchor differs between the two generation entry points
  (routine start vs today); both are intentional.

SEE ALSO:
  - deadline.go: The per-occurrence deadline pair
  - store.go: The stores this consumes
*/
package schedule

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// DefaultHorizonMonths is the scheduling horizon for open-ended routines.
const DefaultHorizonMonths = 6

// Scheduler expands steps into occurrence rows.
type Scheduler struct {
	Routines    RoutineStore
	Steps       StepStore
	Profiles    ProfileStore
	Occurrences OccurrenceStore
	Deadlines   DeadlineConfig

	// Now is the clock; tests override it. Defaults to time.Now.
	Now func() time.Time
}

// NewScheduler wires a scheduler with the default deadline configuration.
func NewScheduler(routines RoutineStore, steps StepStore, profiles ProfileStore, occs OccurrenceStore) *Scheduler {
	return &Scheduler{
		Routines:    routines,
		Steps:       steps,
		Profiles:    profiles,
		Occurrences: occs,
		Deadlines:   DefaultDeadlines,
		Now:         time.Now,
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// storeErr passes domain sentinels through untouched and collapses any
// other storage fault into ErrScheduleFailed. The cause is logged, never
// returned, so it can't reach an end user.
func storeErr(op string, err error) error {
	if IsNotFound(err) || IsValidation(err) {
		return err
	}
	log.Printf("scheduler: %s: %v", op, err)
	return ErrScheduleFailed
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateForRoutine creates occurrences for every step of the routine, from
// the routine's start date through its end date (or six months past the
// start date when open-ended). Returns the number of occurrences created.
// A routine with zero steps yields zero, not an error.
func (s *Scheduler) GenerateForRoutine(ctx context.Context, routineID RoutineID) (int, error) {
	routine, err := s.Routines.FindRoutine(ctx, routineID)
	if err != nil {
		return 0, storeErr("find routine", err)
	}
	profile, err := s.Profiles.FindProfile(ctx, routine.UserProfileID)
	if err != nil {
		return 0, storeErr("find profile", err)
	}
	loc, err := profile.Location()
	if err != nil {
		return 0, err
	}
	steps, err := s.Steps.FindStepsByRoutine(ctx, routineID)
	if err != nil {
		return 0, storeErr("find steps", err)
	}

	from := routine.StartDate
	to := effectiveEnd(routine.EndDate, from)

	var batch []Occurrence
	for _, step := range steps {
		batch = append(batch, s.expand(step, routine.UserProfileID, from, to, loc)...)
	}
	return s.insert(ctx, batch)
}

// GenerateForStep creates occurrences for a single step of the routine, from
// today (in the user's timezone) through the routine's end date, or six
// months from today when open-ended. Used when a product is added to a
// routine that is already live.
func (s *Scheduler) GenerateForStep(ctx context.Context, routineID RoutineID, stepID StepID) (int, error) {
	routine, err := s.Routines.FindRoutine(ctx, routineID)
	if err != nil {
		return 0, storeErr("find routine", err)
	}
	profile, err := s.Profiles.FindProfile(ctx, routine.UserProfileID)
	if err != nil {
		return 0, storeErr("find profile", err)
	}
	loc, err := profile.Location()
	if err != nil {
		return 0, err
	}
	steps, err := s.Steps.FindStepsByRoutine(ctx, routineID)
	if err != nil {
		return 0, storeErr("find steps", err)
	}

	var step *RoutineStep
	for i := range steps {
		if steps[i].ID == stepID {
			step = &steps[i]
			break
		}
	}
	if step == nil {
		return 0, ErrStepNotFound
	}

	from := DateOf(s.now().In(loc))
	to := effectiveEnd(routine.EndDate, from)

	return s.insert(ctx, s.expand(*step, routine.UserProfileID, from, to, loc))
}

// DeleteForStep removes the step's occurrences dated >= from that are still
// pending or missed, leaving completed history intact. A zero-value from
// defaults to today in the step owner's timezone, the same anchor
// GenerateForStep uses for the regeneration that typically follows.
func (s *Scheduler) DeleteForStep(ctx context.Context, stepID StepID, from Date) (int, error) {
	if from.IsZero() {
		loc, err := s.ownerLocation(ctx, stepID)
		if err != nil {
			return 0, err
		}
		from = DateOf(s.now().In(loc))
	}
	n, err := s.Occurrences.DeleteForStep(ctx, stepID, from, []Status{StatusPending, StatusMissed})
	if err != nil {
		return 0, storeErr("delete for step", err)
	}
	return n, nil
}

// ownerLocation resolves the timezone of the user whose routine owns the step.
func (s *Scheduler) ownerLocation(ctx context.Context, stepID StepID) (*time.Location, error) {
	steps, err := s.Steps.FindStepsByIDs(ctx, []StepID{stepID})
	if err != nil {
		return nil, storeErr("find step", err)
	}
	if len(steps) == 0 {
		return nil, ErrStepNotFound
	}
	routine, err := s.Routines.FindRoutine(ctx, steps[0].RoutineID)
	if err != nil {
		return nil, storeErr("find routine", err)
	}
	profile, err := s.Profiles.FindProfile(ctx, routine.UserProfileID)
	if err != nil {
		return nil, storeErr("find profile", err)
	}
	return profile.Location()
}

// =============================================================================
// EXPANSION
// =============================================================================

// expand walks [from, to] inclusive and materializes a pending occurrence
// for every date the step's frequency matches, in ascending date order.
func (s *Scheduler) expand(step RoutineStep, userID UserID, from, to Date, loc *time.Location) []Occurrence {
	now := s.now()
	var occs []Occurrence
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if !step.Frequency.Matches(d) {
			continue
		}
		dl := s.Deadlines.Compute(d, step.TimeOfDay, loc)
		occs = append(occs, Occurrence{
			ID:             OccurrenceID(uuid.NewString()),
			StepID:         step.ID,
			UserID:         userID,
			ScheduledDate:  d,
			TimeOfDay:      step.TimeOfDay,
			OnTimeDeadline: dl.OnTime,
			GracePeriodEnd: dl.GraceEnd,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return occs
}

func (s *Scheduler) insert(ctx context.Context, occs []Occurrence) (int, error) {
	if len(occs) == 0 {
		return 0, nil
	}
	if err := s.Occurrences.CreateOccurrences(ctx, occs); err != nil {
		return 0, storeErr("insert occurrences", err)
	}
	return len(occs), nil
}

// effectiveEnd resolves the scheduling horizon: the routine's own end date
// when set, otherwise six months past the generation anchor.
func effectiveEnd(end *Date, anchor Date) Date {
	if end != nil {
		return *end
	}
	return anchor.AddMonths(DefaultHorizonMonths)
}
