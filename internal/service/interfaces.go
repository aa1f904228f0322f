package service

import (
	"context"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// EventStore persists events. Save is a compare-and-set on version: it
// fails with *database.VersionConflictError when the stored version is not
// expectedVersion. Get returns nil, nil for an unknown id.
type EventStore interface {
	Create(ctx context.Context, event *model.ScheduledEvent) error
	Get(ctx context.Context, eventID string) (*model.ScheduledEvent, error)
	List(ctx context.Context, filters model.EventFilters) ([]*model.ScheduledEvent, error)
	Save(ctx context.Context, event *model.ScheduledEvent, expectedVersion int) error
	Delete(ctx context.Context, eventID string) error
}

// LockStore holds draft locks. Acquire must check and set atomically.
type LockStore interface {
	Acquire(ctx context.Context, lock *model.DraftLock, now time.Time) (*model.DraftLock, error)
	Get(ctx context.Context, key model.LockKey, now time.Time) (*model.DraftLock, error)
	Release(ctx context.Context, key model.LockKey, requestedBy string, now time.Time) (bool, error)
	ListByEvent(ctx context.Context, eventID string, now time.Time) ([]*model.DraftLock, error)
	DeleteByEvent(ctx context.Context, eventID, holder string) (int, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// ParticipantDirectory resolves participant profiles. A nil participant
// with a nil error means the participant does not exist.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error)
}

// AvailabilityChecker answers whether a helper can attend [start, end)
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, helperID string, start, end time.Time) (bool, error)
}

// ChangePublisher receives committed roster changes
type ChangePublisher interface {
	Publish(change *Change)
}
