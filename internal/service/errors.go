package service

import (
	"errors"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable. Typed errors
// (model.LockConflictError, model.IncompleteRosterError,
// database.VersionConflictError) carry context and match these with errors.Is.

// ===== Event Errors =====
var (
	ErrEventNotFound     = errors.New("event not found")
	ErrNotTeamLeader     = errors.New("only the event's team leader can do this")
	ErrEventLocked       = errors.New("event status does not allow roster changes")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrVersionConflict   = database.ErrVersionConflict
	ErrIncompleteRoster  = model.ErrIncompleteRoster
)

// ===== Roster Errors =====
var (
	ErrSlotNotFound     = model.ErrSlotNotFound
	ErrSlotAlreadyEmpty = model.ErrSlotAlreadyEmpty
	ErrAlreadyAssigned  = model.ErrAlreadyAssigned
	ErrJobRestricted    = model.ErrJobRestricted
	ErrInvalidPartySize = model.ErrUnsupportedPartySize
)

// ===== Participant Errors =====
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidJob          = errors.New("participant cannot play the selected job")
	ErrHelperUnavailable   = errors.New("helper is not available for the event time")
)

// ===== Draft Lock Errors =====
var (
	ErrParticipantLocked = model.ErrLockHeld
	ErrLockNotHeld       = model.ErrLockNotHeld
)

// ===== Identity Errors =====
var (
	ErrTeamLeaderRequired = errors.New("team leader identity is required")
)

// EventLockedError reports the status that blocked a roster change
type EventLockedError struct {
	Status model.EventStatus
}

func (e *EventLockedError) Error() string {
	return ErrEventLocked.Error() + ": " + string(e.Status)
}

func (e *EventLockedError) Is(target error) bool {
	return target == ErrEventLocked
}
