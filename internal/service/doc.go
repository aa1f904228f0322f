// Package service implements roster scheduling: events, draft locks,
// slot assignment, lifecycle transitions and change notification.
//
// # Components
//
//   - EventService: create, list, update, cancel and delete scheduled events
//   - DraftLockManager: per-event leader locks on participants, with TTL
//   - AssignmentCoordinator: assign and unassign roster slots
//   - LifecycleController: status transitions and the publish gate
//   - ChangeNotifier: fan-out of roster changes to stream subscribers and sinks
//   - ParticipantService: helper and progger profiles
//
// Stores are consumed through the interfaces in interfaces.go so each
// component can be tested against the in-memory repositories.
//
// # Error Handling
//
// Services return the sentinel errors in errors.go, or typed errors that
// match them with errors.Is:
//
//	err := coordinator.Assign(ctx, req)
//	var conflict *model.LockConflictError
//	if errors.As(err, &conflict) {
//	    // conflict.Lock names the leader holding the participant
//	}
//
// The handler package maps these to problem details.
package service
