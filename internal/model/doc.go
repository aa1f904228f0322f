// Package model defines the domain entities of the raid planner.
//
// The package is pure: no I/O, no clocks other than the times callers pass in.
//
// # Domain Entities
//
//   - ScheduledEvent: a raid session owned by one team leader, with a version
//     counter that guards every write
//   - EventRoster / PartySlot: the fixed-size party; slot roles never change
//     and FilledSlots is maintained incrementally by Assign and Unassign
//   - Participant: the closed union of *Helper and *Progger
//   - DraftLock: a short-lived claim on a participant within one event
//
// # Errors
//
// Roster failures are sentinel errors (ErrSlotNotFound, ErrSlotAlreadyEmpty,
// ErrAlreadyAssigned, ...). IncompleteRosterError and LockConflictError carry
// context and match their sentinels through errors.Is.
//
// HTTP errors use RFC 9457 ProblemDetails:
//
//	model.NewParticipantLockedError(lock).WriteJSON(w)
package model
