// Package store provides an in-memory implementation of the schedule
// persistence interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dermaloop/routine-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	routines    map[schedule.RoutineID]schedule.Routine
	steps       map[schedule.StepID]schedule.RoutineStep
	profiles    map[schedule.UserID]schedule.UserProfile
	occurrences map[schedule.OccurrenceID]schedule.Occurrence
}

func NewMemory() *Memory {
	return &Memory{
		routines:    make(map[schedule.RoutineID]schedule.Routine),
		steps:       make(map[schedule.StepID]schedule.RoutineStep),
		profiles:    make(map[schedule.UserID]schedule.UserProfile),
		occurrences: make(map[schedule.OccurrenceID]schedule.Occurrence),
	}
}

// =============================================================================
// SEEDING - Prescription records are read-only to the engine
// =============================================================================

func (m *Memory) PutRoutine(r schedule.Routine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routines[r.ID] = r
}

func (m *Memory) PutStep(s schedule.RoutineStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[s.ID] = s
}

func (m *Memory) PutProfile(p schedule.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// =============================================================================
// PRESCRIPTION LOOKUPS
// =============================================================================

func (m *Memory) FindRoutine(_ context.Context, id schedule.RoutineID) (schedule.Routine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routines[id]
	if !ok {
		return schedule.Routine{}, schedule.ErrRoutineNotFound
	}
	return r, nil
}

func (m *Memory) FindStepsByRoutine(_ context.Context, id schedule.RoutineID) ([]schedule.RoutineStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var steps []schedule.RoutineStep
	for _, s := range m.steps {
		if s.RoutineID == id {
			steps = append(steps, s)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].RoutineStep < steps[j].RoutineStep })
	return steps, nil
}

func (m *Memory) FindStepsByIDs(_ context.Context, ids []schedule.StepID) ([]schedule.RoutineStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	steps := make([]schedule.RoutineStep, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.steps[id]; ok {
			steps = append(steps, s)
		}
	}
	return steps, nil
}

func (m *Memory) FindProfile(_ context.Context, id schedule.UserID) (schedule.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return schedule.UserProfile{}, schedule.ErrProfileNotFound
	}
	return p, nil
}

// =============================================================================
// OCCURRENCES
// =============================================================================

func (m *Memory) CreateOccurrences(_ context.Context, occs []schedule.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range occs {
		m.occurrences[o.ID] = o
	}
	return nil
}

func (m *Memory) FindOccurrence(_ context.Context, id schedule.OccurrenceID) (schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.occurrences[id]
	if !ok {
		return schedule.Occurrence{}, schedule.ErrOccurrenceNotFound
	}
	return o, nil
}

func (m *Memory) FindOccurrencesByUser(_ context.Context, userID schedule.UserID) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []schedule.Occurrence
	for _, o := range m.occurrences {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *Memory) FindOccurrencesInRange(_ context.Context, userID schedule.UserID, from, to schedule.Date) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []schedule.Occurrence
	for _, o := range m.occurrences {
		if o.UserID == userID && o.ScheduledDate.AfterOrEqual(from) && o.ScheduledDate.BeforeOrEqual(to) {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *Memory) FindOccurrencesOnDate(ctx context.Context, userID schedule.UserID, d schedule.Date) ([]schedule.Occurrence, error) {
	return m.FindOccurrencesInRange(ctx, userID, d, d)
}

func (m *Memory) UpdateOccurrence(_ context.Context, occ schedule.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occurrences[occ.ID]; !ok {
		return schedule.ErrOccurrenceNotFound
	}
	m.occurrences[occ.ID] = occ
	return nil
}

func (m *Memory) MarkOverdue(_ context.Context, userID schedule.UserID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, o := range m.occurrences {
		if o.UserID != userID || o.Status != schedule.StatusPending {
			continue
		}
		// Strict inequality: exactly at the boundary is not yet overdue.
		if o.GracePeriodEnd.Before(now) {
			o.Status = schedule.StatusMissed
			o.UpdatedAt = now
			m.occurrences[id] = o
			count++
		}
	}
	return count, nil
}

func (m *Memory) DeleteForStep(_ context.Context, stepID schedule.StepID, from schedule.Date, statuses []schedule.Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[schedule.Status]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	count := 0
	for id, o := range m.occurrences {
		if o.StepID == stepID && o.ScheduledDate.AfterOrEqual(from) && allowed[o.Status] {
			delete(m.occurrences, id)
			count++
		}
	}
	return count, nil
}

func (m *Memory) DeleteByUser(_ context.Context, userID schedule.UserID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, o := range m.occurrences {
		if o.UserID == userID {
			delete(m.occurrences, id)
			count++
		}
	}
	return count, nil
}
