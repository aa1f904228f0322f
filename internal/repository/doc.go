// Package repository implements storage for events, draft locks and the
// participant directory.
//
// Every store has an in-memory implementation used by tests and local
// development, plus persistent backends selected by configuration:
//
//	events        MemoryEventStore, SurrealEventStore, PostgresEventStore
//	participants  MemoryParticipantDirectory, SurrealParticipantDirectory,
//	              PostgresParticipantDirectory
//	draft locks   MemoryLockStore, RedisLockStore
//
// # Versioned writes
//
// Event stores implement optimistic concurrency. Save replaces a record only
// when its stored version equals the caller's expected version, otherwise it
// returns *database.VersionConflictError carrying the stored version:
//
//	err := store.Save(ctx, event, expected)
//	var vc *database.VersionConflictError
//	if errors.As(err, &vc) {
//	    // reload and retry, or surface vc.Actual to the client
//	}
//
// # Locks
//
// Lock stores take "now" as an argument so expiry is decided by the caller's
// clock. Expired locks are invisible to Get and ListByEvent and are physically
// removed by Sweep. The Redis store also sets a key TTL.
//
// Get methods return (nil, nil) when the record is absent.
package repository
