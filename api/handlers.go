/*
handlers.go - HTTP API handlers for the routine compliance engine

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Prescription:
    POST   /api/profiles                         Register user profile
    POST   /api/routines                         Create routine
    POST   /api/routines/{id}/steps              Add step to routine

  Scheduling:
    POST   /api/routines/{id}/generate           Generate full-routine schedule
    POST   /api/routines/{id}/steps/{stepID}/generate  Generate one step
    DELETE /api/steps/{id}/occurrences           Delete pending/missed from a date

  Compliance:
    POST   /api/users/{id}/sweep                 Sweep overdue to missed
    POST   /api/occurrences/{id}/complete        Mark occurrence complete
    GET    /api/users/{id}/occurrences?date=     Day view (sweeps first)
    GET    /api/users/{id}/compliance?start=&end= Compliance stats (sweeps first)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Not found (including ownership mismatches, by design)
  - 409: State conflicts (already completed, grace period expired)
  - 500: Internal errors

SWEEP-BEFORE-READ:
  Both read endpoints run the sweeper before fetching, so no compliance
  view ever reports a stale pending occurrence that is actually overdue.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dermaloop/routine-engine/schedule"
	"github.com/dermaloop/routine-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Scheduler  *schedule.Scheduler
	Sweeper    *schedule.Sweeper
	Recorder   *schedule.Recorder
	Aggregator *schedule.Aggregator

	validate *validator.Validate
}

// NewHandler creates a new handler with the given store, wiring the engine
// components against it.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:      store,
		Scheduler:  schedule.NewScheduler(store, store, store, store),
		Sweeper:    schedule.NewSweeper(store),
		Recorder:   schedule.NewRecorder(store),
		Aggregator: schedule.NewAggregator(store, store),
		validate:   validator.New(),
	}
}

// =============================================================================
// PRESCRIPTION HANDLERS
// =============================================================================

// CreateProfile registers a user profile with its timezone.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile := schedule.UserProfile{ID: schedule.UserID(req.ID), Timezone: req.Timezone}
	if err := h.Store.PutProfile(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// CreateRoutine creates a routine prescription.
func (h *Handler) CreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req CreateRoutineRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	routine := schedule.Routine{
		ID:            schedule.RoutineID(req.ID),
		UserProfileID: schedule.UserID(req.UserProfileID),
		StartDate:     start,
	}
	if req.EndDate != nil {
		end, err := schedule.ParseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		routine.EndDate = &end
	}

	if err := h.Store.PutRoutine(r.Context(), routine); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save routine")
		return
	}
	writeJSON(w, http.StatusCreated, CountDTO{Count: 1})
}

// CreateStep adds a product slot to a routine. The frequency rule is
// validated here, once, so the scheduler can trust it.
func (h *Handler) CreateStep(w http.ResponseWriter, r *http.Request) {
	routineID := schedule.RoutineID(chi.URLParam(r, "id"))

	var req CreateStepRequest
	if !h.decode(w, r, &req) {
		return
	}

	tod, err := schedule.ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	freq, err := schedule.NewFrequency(req.Frequency, req.Days)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	step := schedule.RoutineStep{
		ID:          schedule.StepID(req.ID),
		RoutineID:   routineID,
		RoutineStep: req.RoutineStep,
		ProductName: req.ProductName,
		TimeOfDay:   tod,
		Frequency:   freq,
	}
	if err := h.Store.PutStep(r.Context(), step); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save step")
		return
	}
	writeJSON(w, http.StatusCreated, CountDTO{Count: 1})
}

// =============================================================================
// SCHEDULING HANDLERS
// =============================================================================

// GenerateForRoutine expands every step of a routine into occurrences.
func (h *Handler) GenerateForRoutine(w http.ResponseWriter, r *http.Request) {
	routineID := schedule.RoutineID(chi.URLParam(r, "id"))

	count, err := h.Scheduler.GenerateForRoutine(r.Context(), routineID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: count})
}

// GenerateForStep expands a single step, from today onward.
func (h *Handler) GenerateForStep(w http.ResponseWriter, r *http.Request) {
	routineID := schedule.RoutineID(chi.URLParam(r, "id"))
	stepID := schedule.StepID(chi.URLParam(r, "stepID"))

	count, err := h.Scheduler.GenerateForStep(r.Context(), routineID, stepID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: count})
}

// DeleteForStep removes a step's pending/missed occurrences from a cutoff
// date (query param "from", default today in the owner's timezone) onward.
func (h *Handler) DeleteForStep(w http.ResponseWriter, r *http.Request) {
	stepID := schedule.StepID(chi.URLParam(r, "id"))

	var from schedule.Date
	if raw := r.URL.Query().Get("from"); raw != "" {
		var err error
		if from, err = schedule.ParseDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	count, err := h.Scheduler.DeleteForStep(r.Context(), stepID, from)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: count})
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// Sweep transitions the user's expired pending occurrences to missed.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	userID := schedule.UserID(chi.URLParam(r, "id"))

	count, err := h.Sweeper.MarkOverdue(r.Context(), userID, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: count})
}

// Complete marks one occurrence complete on behalf of the acting user.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	occID := schedule.OccurrenceID(chi.URLParam(r, "id"))

	var req CompleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	var at *time.Time
	if req.CompletedAt != nil {
		t, err := time.Parse(time.RFC3339, *req.CompletedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid completed_at")
			return
		}
		at = &t
	}

	result, err := h.Recorder.Complete(r.Context(), occID, schedule.UserID(req.UserID), at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompletionDTO{
		Status:      string(result.Status),
		CompletedAt: result.CompletedAt.Format(time.RFC3339),
	})
}

// DayOccurrences returns the user's occurrences for one date, sweeping
// first so nothing stale-pending is reported.
func (h *Handler) DayOccurrences(w http.ResponseWriter, r *http.Request) {
	userID := schedule.UserID(chi.URLParam(r, "id"))

	d, err := schedule.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Sweeper.MarkOverdue(r.Context(), userID, nil); err != nil {
		writeDomainError(w, err)
		return
	}

	occs, err := h.Store.FindOccurrencesOnDate(r.Context(), userID, d)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list occurrences")
		return
	}
	sort.Slice(occs, func(i, j int) bool {
		return occs[i].OnTimeDeadline.Before(occs[j].OnTimeDeadline)
	})

	dtos := make([]OccurrenceDTO, len(occs))
	for i, o := range occs {
		dtos[i] = toOccurrenceDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Compliance returns the user's compliance stats for [start, end],
// sweeping first.
func (h *Handler) Compliance(w http.ResponseWriter, r *http.Request) {
	userID := schedule.UserID(chi.URLParam(r, "id"))

	start, err := schedule.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := schedule.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Sweeper.MarkOverdue(r.Context(), userID, nil); err != nil {
		writeDomainError(w, err)
		return
	}

	stats, err := h.Aggregator.Stats(r.Context(), userID, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorDTO{Error: msg})
}

// writeDomainError maps engine errors onto HTTP statuses. Internal causes
// are already logged at the engine boundary; only the stable message
// reaches the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case schedule.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case schedule.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
