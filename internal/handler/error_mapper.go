package handler

import (
	"errors"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/model"
	"github.com/forgo/courtside/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrSessionNotFound):
		return model.NewNotFoundError("session")
	case errors.Is(err, service.ErrPoolNotFound):
		return model.NewNotFoundError("pool")
	case errors.Is(err, service.ErrQueueEntryNotFound):
		return model.NewNotFoundError("queue entry")
	case errors.Is(err, service.ErrParticipantNotFound):
		return model.NewNotFoundError("pool participant")
	case errors.Is(err, service.ErrCourtNotFound):
		return model.NewNotFoundError("session court")
	case errors.Is(err, service.ErrMemberNotFound):
		return model.NewNotFoundError("member")

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidTeam):
		return model.NewValidationError([]model.FieldError{{Field: "team", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidGender):
		return model.NewValidationError([]model.FieldError{{Field: "gender", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidProposal):
		return model.NewValidationError([]model.FieldError{{Field: "proposal", Message: err.Error()}})
	case errors.Is(err, service.ErrValidation):
		return model.NewValidationError([]model.FieldError{{Field: "request", Message: err.Error()}})

	// ===== Capacity Errors → 422 =====
	case errors.Is(err, service.ErrCapacity):
		return model.NewCapacityError(err.Error())

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrAlreadyQueued),
		errors.Is(err, service.ErrMemberPooled),
		errors.Is(err, service.ErrMemberAlreadyInPool):
		return model.NewAlreadyExistsError(err.Error())
	case errors.Is(err, service.ErrConflict):
		return model.NewConflictError(err.Error())

	// ===== State Errors → 409 =====
	case errors.Is(err, service.ErrState):
		return model.NewStateError(err.Error())

	// ===== Storage Errors → 500 =====
	case errors.Is(err, database.ErrConnection), errors.Is(err, database.ErrQuery):
		return model.NewDatabaseError()

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}
