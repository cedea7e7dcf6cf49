package service

import (
	"errors"
	"fmt"
)

// Centralized service layer errors.
// Every specific error wraps exactly one category, so callers can branch on
// either: errors.Is(err, ErrCourtBooked) or errors.Is(err, ErrConflict).

// ===== Categories =====
var (
	// ErrValidation: a referenced session, pool, entry or court is missing, or input is malformed
	ErrValidation = errors.New("validation failed")
	// ErrCapacity: not enough candidates, or a pool/team is not the required size
	ErrCapacity = errors.New("capacity exceeded")
	// ErrConflict: another request already consumed or booked the resource
	ErrConflict = errors.New("conflict")
	// ErrState: records are not in a state that allows the operation
	ErrState = errors.New("invalid state")
)

// ===== Not Found (validation) =====
var (
	ErrSessionNotFound     = fmt.Errorf("%w: session not found", ErrValidation)
	ErrPoolNotFound        = fmt.Errorf("%w: pool not found", ErrValidation)
	ErrQueueEntryNotFound  = fmt.Errorf("%w: queue entry not found", ErrValidation)
	ErrParticipantNotFound = fmt.Errorf("%w: pool participant not found", ErrValidation)
	ErrCourtNotFound       = fmt.Errorf("%w: session court not found", ErrValidation)
	ErrMemberNotFound      = fmt.Errorf("%w: member not found", ErrValidation)
)

// ===== Input (validation) =====
var (
	ErrInvalidTeam     = fmt.Errorf("%w: team must be A or B", ErrValidation)
	ErrInvalidGender   = fmt.Errorf("%w: gender must be ANY, MALE or FEMALE", ErrValidation)
	ErrInvalidProposal = fmt.Errorf("%w: proposal must seat four distinct members, two per team", ErrValidation)
)

// ===== Capacity =====
var (
	ErrInsufficientParticipants = fmt.Errorf("%w: at least four eligible queued members are required", ErrCapacity)
	ErrPoolIncomplete           = fmt.Errorf("%w: pool must hold exactly two players per team", ErrCapacity)
	ErrTeamFull                 = fmt.Errorf("%w: team already has two players", ErrCapacity)
)

// ===== Conflict =====
var (
	ErrMemberAlreadyInPool = fmt.Errorf("%w: member is already in this pool", ErrConflict)
	ErrCourtBooked         = fmt.Errorf("%w: court is already booked", ErrConflict)
	ErrQueueEntryConsumed  = fmt.Errorf("%w: queue entry was already taken", ErrConflict)
	ErrAlreadyQueued       = fmt.Errorf("%w: member is already queued in this session", ErrConflict)
	ErrMemberPooled        = fmt.Errorf("%w: member is already in a pool for this session", ErrConflict)
	ErrConcurrentUpdate    = fmt.Errorf("%w: records were changed by another request", ErrConflict)
)

// ===== State =====
var (
	ErrSessionMismatch = fmt.Errorf("%w: records belong to different sessions", ErrState)
	ErrPoolGone        = fmt.Errorf("%w: pool was promoted or disbanded", ErrState)
	ErrPoolChanged     = fmt.Errorf("%w: pool participants changed", ErrState)
	ErrSessionInactive = fmt.Errorf("%w: session is not active", ErrState)
)

// ErrorCategory names the category of err for metrics and logs
func ErrorCategory(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrState):
		return "state"
	default:
		return "error"
	}
}
