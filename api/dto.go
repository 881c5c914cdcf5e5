/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run the
  shared validator before touching domain logic. Cross-field frequency rules
  (day-set size vs the Nx count) are enforced by schedule.NewFrequency.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/stats.go: ComplianceStats is returned as-is (it carries its
    own JSON tags)
*/
package api

import (
	"time"

	"github.com/dermaloop/routine-engine/schedule"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateProfileRequest registers a user profile with its IANA timezone.
type CreateProfileRequest struct {
	ID       string `json:"id" validate:"required,uuid4"`
	Timezone string `json:"timezone" validate:"required,timezone"`
}

// CreateRoutineRequest creates a prescription container.
type CreateRoutineRequest struct {
	ID            string  `json:"id" validate:"required"`
	UserProfileID string  `json:"user_profile_id" validate:"required,uuid4"`
	StartDate     string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateStepRequest adds a product slot to a routine.
type CreateStepRequest struct {
	ID          string   `json:"id" validate:"required"`
	RoutineStep int      `json:"routine_step" validate:"min=0"`
	ProductName string   `json:"product_name" validate:"required"`
	TimeOfDay   string   `json:"time_of_day" validate:"required,oneof=morning evening"`
	Frequency   string   `json:"frequency" validate:"required"`
	Days        []string `json:"days,omitempty" validate:"dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
}

// CompleteRequest marks an occurrence complete. CompletedAt defaults to now.
type CompleteRequest struct {
	UserID      string  `json:"user_id" validate:"required"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// OccurrenceDTO represents an occurrence in API responses.
type OccurrenceDTO struct {
	ID             string  `json:"id"`
	StepID         string  `json:"step_id"`
	UserID         string  `json:"user_id"`
	ScheduledDate  string  `json:"scheduled_date"`
	TimeOfDay      string  `json:"time_of_day"`
	OnTimeDeadline string  `json:"on_time_deadline"`
	GracePeriodEnd string  `json:"grace_period_end"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	Status         string  `json:"status"`
}

func toOccurrenceDTO(o schedule.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		ID:             string(o.ID),
		StepID:         string(o.StepID),
		UserID:         string(o.UserID),
		ScheduledDate:  o.ScheduledDate.String(),
		TimeOfDay:      string(o.TimeOfDay),
		OnTimeDeadline: o.OnTimeDeadline.Format(time.RFC3339),
		GracePeriodEnd: o.GracePeriodEnd.Format(time.RFC3339),
		Status:         string(o.Status),
	}
	if o.CompletedAt != nil {
		s := o.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

// CompletionDTO is the result of a successful completion.
type CompletionDTO struct {
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at"`
}

// CountDTO wraps the row count of sweep/generate/delete operations.
type CountDTO struct {
	Count int `json:"count"`
}

// ErrorDTO is the uniform error envelope.
type ErrorDTO struct {
	Error string `json:"error"`
}
