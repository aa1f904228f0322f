package handler

import (
	"errors"
	"log/slog"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Typed errors are checked first so their context reaches the client.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	var pd *model.ProblemDetails
	if errors.As(err, &pd) {
		return pd
	}

	var lockErr *model.LockConflictError
	if errors.As(err, &lockErr) {
		return model.NewParticipantLockedError(lockErr.Holder)
	}
	var rosterErr *model.IncompleteRosterError
	if errors.As(err, &rosterErr) {
		return model.NewIncompleteRosterError(rosterErr)
	}
	var lockedErr *service.EventLockedError
	if errors.As(err, &lockedErr) {
		return model.NewEventLockedError(lockedErr.Status)
	}
	if current, ok := service.IsVersionConflict(err); ok {
		return model.NewVersionConflictError(current)
	}

	switch {
	// ===== Identity → 401 / 403 =====
	case errors.Is(err, service.ErrTeamLeaderRequired):
		return model.NewUnauthorizedError(err.Error())
	case errors.Is(err, service.ErrNotTeamLeader):
		pd := model.NewForbiddenError(err.Error())
		pd.Code = model.ErrCodeNotOwner
		return pd
	case errors.Is(err, service.ErrLockNotHeld):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found → 404 =====
	case errors.Is(err, service.ErrEventNotFound):
		return model.NewNotFoundError("event")
	case errors.Is(err, service.ErrParticipantNotFound):
		return model.NewNotFoundError("participant")
	case errors.Is(err, service.ErrSlotNotFound):
		return model.NewNotFoundError("slot")

	// ===== Conflict → 409 =====
	case errors.Is(err, service.ErrParticipantLocked):
		return model.NewParticipantLockedError(nil)
	case errors.Is(err, service.ErrEventLocked):
		return model.NewConflictError(err.Error())
	case errors.Is(err, service.ErrSlotAlreadyEmpty),
		errors.Is(err, service.ErrAlreadyAssigned),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrIncompleteRoster):
		return model.NewConflictError(err.Error())

	// ===== Validation → 422 =====
	case errors.Is(err, service.ErrHelperUnavailable):
		pd := model.NewValidationError([]model.FieldError{{Field: "participant_id", Message: err.Error()}})
		pd.Code = model.ErrCodeUnavailable
		return pd
	case errors.Is(err, service.ErrInvalidJob),
		errors.Is(err, service.ErrJobRestricted):
		return model.NewValidationError([]model.FieldError{{Field: "job", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidPartySize):
		return model.NewValidationError([]model.FieldError{{Field: "party_size", Message: err.Error()}})

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error and names the failed
// operation on unexpected errors, which are logged
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 {
		slog.Error(operation+" failed", slog.String("error", err.Error()))
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}
