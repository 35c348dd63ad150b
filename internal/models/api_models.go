package models

import (
	"time"

	"github.com/google/uuid"
)

// API Request Models

// ReserveRequest asks for stock to be reserved for a maintenance task
type ReserveRequest struct {
	ItemCode   string `json:"item_code" binding:"required" validate:"required"`
	TaskID     string `json:"task_id" binding:"required" validate:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1" validate:"required,min=1"`
	ReservedBy string `json:"reserved_by" binding:"required" validate:"required"`
}

// ReturnRequest returns a reservation with a condition verdict
type ReturnRequest struct {
	ItemCondition    string     `json:"item_condition" binding:"required" validate:"required"`
	QuantityReturned int        `json:"quantity_returned" binding:"required,min=1" validate:"required,min=1"`
	NeedsReplacement bool       `json:"needs_replacement"`
	Notes            string     `json:"notes"`
	DateReturned     *time.Time `json:"date_returned,omitempty"`
	ReturnedBy       string     `json:"returned_by" binding:"required" validate:"required"`
}

// API Response Models

// ReserveResponse reports the reservation the caller now holds. Created is
// false when an identical active reservation already existed and its id was
// returned instead of creating a duplicate.
type ReserveResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Created       bool      `json:"created"`
}

// ReturnOutcome reports the result of a condition-branched return
type ReturnOutcome struct {
	ReturnID             uuid.UUID     `json:"return_id"`
	ReservationID        uuid.UUID     `json:"reservation_id"`
	ItemCode             string        `json:"item_code"`
	QuantityReturned     int           `json:"quantity_returned"`
	ItemCondition        ItemCondition `json:"item_condition"`
	IsDefective          bool          `json:"is_defective"`
	NeedsReplacement     bool          `json:"needs_replacement"`
	Status               string        `json:"status"`
	NewStock             *int          `json:"new_stock"`
	ReplacementRequestID *uuid.UUID    `json:"replacement_request_id"`
}

// ReturnEnvelope is the wire shape of a successful return response
type ReturnEnvelope struct {
	Success bool           `json:"success"`
	Data    *ReturnOutcome `json:"data"`
}

// ItemAvailability is the read-path view of a ledger entry
type ItemAvailability struct {
	ItemCode     string     `json:"item_code"`
	ItemName     string     `json:"item_name"`
	CurrentStock int        `json:"current_stock"`
	ReorderLevel int        `json:"reorder_level"`
	Status       ItemStatus `json:"status"`
	IsActive     bool       `json:"is_active"`
	CacheHit     bool       `json:"cache_hit"`
	LastUpdated  time.Time  `json:"last_updated"`
}

// Problem detail types (RFC 7807)
const (
	ProblemTypeValidationError = "validation-error"
	ProblemTypeBusinessError   = "business-logic-error"
	ProblemTypeNotFound        = "not-found"
	ProblemTypeTransient       = "service-unavailable"
	ProblemTypeInternalError   = "internal-error"
)

type ProblemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

// NewValidationProblem creates a validation error problem
func NewValidationProblem(field, message string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeValidationError,
		Title:  "Validation Failed",
		Status: 400,
		Detail: message,
		Field:  field,
	}
}

// NewNotFoundProblem creates a not found error problem
func NewNotFoundProblem(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeNotFound,
		Title:  "Resource Not Found",
		Status: 404,
		Detail: detail,
	}
}

// NewConflictProblem creates a state conflict problem
func NewConflictProblem(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeBusinessError,
		Title:  "State Conflict",
		Status: 409,
		Detail: detail,
	}
}

// NewTransientProblem creates a retryable service-unavailable problem
func NewTransientProblem(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeTransient,
		Title:  "Service Unavailable",
		Status: 503,
		Detail: detail,
	}
}

// NewInternalErrorProblem creates an internal server error problem
func NewInternalErrorProblem() *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeInternalError,
		Title:  "Internal Server Error",
		Status: 500,
		Detail: "An unexpected error occurred",
	}
}
