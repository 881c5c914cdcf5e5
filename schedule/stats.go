/*
stats.go - Compliance aggregation over a date range

PURPOSE:
  Rolls a user's countable occurrences (on-time, late, missed) up into
  overall, AM/PM, and per-step statistics. Pending occurrences are excluded
  everywhere: "prescribed" means countable-in-range, a deliberate scoping
  choice for the compliance window.

SWEEP-BEFORE-READ:
  The aggregator does not sweep. Callers run the sweeper first so no
  occurrence that is actually overdue is still sitting in pending when the
  window is read. Two requests racing between generation and sweep can
  still observe a stale pending row; that window is accepted.

ERROR POLICY:
  The user id is format-validated before any storage access. Any storage
  fault is logged and surfaced as the single ErrStatsUnavailable error; no
  partial results are ever returned.

SEE ALSO:
  - sweeper.go: The reconciliation pass callers run first
  - store.go: FindOccurrencesInRange and the batched step join
*/
package schedule

import (
	"context"
	"log"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT SHAPES
// =============================================================================

// OverallStats counts every countable occurrence in the window.
type OverallStats struct {
	Prescribed int             `json:"prescribed"`
	OnTime     int             `json:"onTime"`
	Late       int             `json:"late"`
	Missed     int             `json:"missed"`
	Rate       decimal.Decimal `json:"completionRate"` // (onTime+late)/prescribed, 0 when empty
}

// SlotStats counts one time-of-day slot's countable occurrences.
type SlotStats struct {
	Prescribed int             `json:"prescribed"`
	Completed  int             `json:"completed"` // onTime + late
	OnTime     int             `json:"onTime"`
	Late       int             `json:"late"`
	Missed     int             `json:"missed"`
	Rate       decimal.Decimal `json:"completionRate"`
}

// StepStats counts one step's countable occurrences, with the missed dates
// rendered for display (e.g. "Sunday, Jan 12, 2025") in date order.
type StepStats struct {
	StepID      StepID    `json:"stepId"`
	ProductName string    `json:"productName"`
	TimeOfDay   TimeOfDay `json:"timeOfDay"`
	Frequency   string    `json:"frequency"`
	Prescribed  int       `json:"prescribed"`
	Completed   int       `json:"completed"`
	OnTime      int       `json:"onTime"`
	Late        int       `json:"late"`
	Missed      int       `json:"missed"`
	MissedDates []string  `json:"missedDates"`
}

// ComplianceStats is the full rollup for one user and window.
type ComplianceStats struct {
	Overall OverallStats `json:"overall"`
	AM      SlotStats    `json:"am"`
	PM      SlotStats    `json:"pm"`
	Steps   []StepStats  `json:"steps"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes compliance statistics.
type Aggregator struct {
	Occurrences OccurrenceStore
	Steps       StepStore

	validate *validator.Validate
}

func NewAggregator(occs OccurrenceStore, steps StepStore) *Aggregator {
	return &Aggregator{
		Occurrences: occs,
		Steps:       steps,
		validate:    validator.New(),
	}
}

// Stats aggregates the user's countable occurrences with scheduled date in
// [from, to] inclusive.
func (a *Aggregator) Stats(ctx context.Context, userID UserID, from, to Date) (ComplianceStats, error) {
	if err := a.validate.Var(string(userID), "required,uuid4"); err != nil {
		return ComplianceStats{}, ErrInvalidUserID
	}

	occs, err := a.Occurrences.FindOccurrencesInRange(ctx, userID, from, to)
	if err != nil {
		log.Printf("compliance stats: fetch occurrences for %s: %v", userID, err)
		return ComplianceStats{}, ErrStatsUnavailable
	}

	// Storage order is not guaranteed; missed-date lists follow date order.
	countable := occs[:0:0]
	for _, o := range occs {
		if o.Status.Countable() {
			countable = append(countable, o)
		}
	}
	sort.Slice(countable, func(i, j int) bool {
		return countable[i].ScheduledDate.Before(countable[j].ScheduledDate)
	})

	stats := ComplianceStats{
		Overall: overall(countable),
		AM:      slot(countable, Morning),
		PM:      slot(countable, Evening),
	}

	steps, err := a.perStep(ctx, countable)
	if err != nil {
		log.Printf("compliance stats: join steps for %s: %v", userID, err)
		return ComplianceStats{}, ErrStatsUnavailable
	}
	stats.Steps = steps
	return stats, nil
}

// =============================================================================
// ROLLUPS
// =============================================================================

func overall(occs []Occurrence) OverallStats {
	s := OverallStats{Prescribed: len(occs)}
	for _, o := range occs {
		switch o.Status {
		case StatusOnTime:
			s.OnTime++
		case StatusLate:
			s.Late++
		case StatusMissed:
			s.Missed++
		}
	}
	s.Rate = rate(s.OnTime+s.Late, s.Prescribed)
	return s
}

func slot(occs []Occurrence, tod TimeOfDay) SlotStats {
	var s SlotStats
	for _, o := range occs {
		if o.TimeOfDay != tod {
			continue
		}
		s.Prescribed++
		switch o.Status {
		case StatusOnTime:
			s.OnTime++
		case StatusLate:
			s.Late++
		case StatusMissed:
			s.Missed++
		}
	}
	s.Completed = s.OnTime + s.Late
	s.Rate = rate(s.Completed, s.Prescribed)
	return s
}

// perStep groups countable occurrences by step, joining step definitions in
// one batched lookup rather than one query per occurrence. Steps appear in
// first-encountered (date) order.
func (a *Aggregator) perStep(ctx context.Context, occs []Occurrence) ([]StepStats, error) {
	var order []StepID
	groups := make(map[StepID][]Occurrence)
	for _, o := range occs {
		if _, seen := groups[o.StepID]; !seen {
			order = append(order, o.StepID)
		}
		groups[o.StepID] = append(groups[o.StepID], o)
	}
	if len(order) == 0 {
		return []StepStats{}, nil
	}

	defs, err := a.Steps.FindStepsByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[StepID]RoutineStep, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}

	steps := make([]StepStats, 0, len(order))
	for _, id := range order {
		def := byID[id]
		st := StepStats{
			StepID:      id,
			ProductName: def.ProductName,
			TimeOfDay:   def.TimeOfDay,
			Frequency:   def.Frequency.Label(),
			MissedDates: []string{},
		}
		for _, o := range groups[id] {
			st.Prescribed++
			switch o.Status {
			case StatusOnTime:
				st.OnTime++
			case StatusLate:
				st.Late++
			case StatusMissed:
				st.Missed++
				st.MissedDates = append(st.MissedDates, o.ScheduledDate.Display())
			}
		}
		st.Completed = st.OnTime + st.Late
		steps = append(steps, st)
	}
	return steps, nil
}

func rate(completed, prescribed int) decimal.Decimal {
	if prescribed == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(prescribed))).
		Round(4)
}
