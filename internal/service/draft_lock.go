package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// AcquireLockRequest describes a draft lock claim
type AcquireLockRequest struct {
	EventID         string
	ParticipantID   string
	ParticipantType model.ParticipantType
	RequestedBy     string
	RequestedByName string
	SlotID          string
	// TTL <= 0 uses the manager default
	TTL time.Duration
}

// DraftLockManager is the only writer of draft locks. Locks are records in a
// LockStore, never held mutexes, so an abandoned lock simply expires.
type DraftLockManager struct {
	store      LockStore
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewDraftLockManager creates a lock manager. A non-positive defaultTTL
// falls back to model.DefaultLockTTL.
func NewDraftLockManager(store LockStore, defaultTTL time.Duration, logger *slog.Logger) *DraftLockManager {
	if defaultTTL <= 0 {
		defaultTTL = model.DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftLockManager{
		store:      store,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// DefaultTTL returns the TTL applied when a request does not set one
func (m *DraftLockManager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// Acquire claims the participant for the requester. A live lock held by
// someone else fails with *model.LockConflictError; the requester's own live
// lock is renewed with a fresh expiry and the new slot.
func (m *DraftLockManager) Acquire(ctx context.Context, req AcquireLockRequest) (*model.DraftLock, error) {
	if req.RequestedBy == "" {
		return nil, ErrTeamLeaderRequired
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	ttl = min(ttl, model.MaxLockTTL)
	now := m.now().UTC()

	lock, err := m.store.Acquire(ctx, &model.DraftLock{
		EventID:         req.EventID,
		ParticipantID:   req.ParticipantID,
		ParticipantType: req.ParticipantType,
		LockedBy:        req.RequestedBy,
		LockedByName:    req.RequestedByName,
		SlotID:          req.SlotID,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}, now)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("draft lock acquired",
		slog.String("event_id", req.EventID),
		slog.String("participant", lock.Key().String()),
		slog.String("locked_by", lock.LockedBy),
		slog.Time("expires_at", lock.ExpiresAt))
	return lock, nil
}

// Release drops the requester's lock. An absent or expired lock is not an
// error; a live lock held by someone else returns ErrLockNotHeld.
func (m *DraftLockManager) Release(ctx context.Context, eventID, participantID string, participantType model.ParticipantType, requestedBy string) (bool, error) {
	key := model.LockKey{EventID: eventID, ParticipantID: participantID, ParticipantType: participantType}
	return m.store.Release(ctx, key, requestedBy, m.now().UTC())
}

// LockHolder returns the live lock on the participant unless it is held by
// excluding. Pass an empty excluding to see any holder.
func (m *DraftLockManager) LockHolder(ctx context.Context, eventID, participantID string, participantType model.ParticipantType, excluding string) (*model.DraftLock, error) {
	key := model.LockKey{EventID: eventID, ParticipantID: participantID, ParticipantType: participantType}
	lock, err := m.store.Get(ctx, key, m.now().UTC())
	if err != nil || lock == nil {
		return nil, err
	}
	if excluding != "" && lock.LockedBy == excluding {
		return nil, nil
	}
	return lock, nil
}

// IsLocked reports whether someone other than excluding holds a live lock
func (m *DraftLockManager) IsLocked(ctx context.Context, eventID, participantID string, participantType model.ParticipantType, excluding string) (bool, error) {
	lock, err := m.LockHolder(ctx, eventID, participantID, participantType, excluding)
	return lock != nil, err
}

// ListEventLocks returns the event's live locks, oldest first
func (m *DraftLockManager) ListEventLocks(ctx context.Context, eventID string) ([]*model.DraftLock, error) {
	locks, err := m.store.ListByEvent(ctx, eventID, m.now().UTC())
	if err != nil {
		return nil, err
	}
	sort.Slice(locks, func(i, j int) bool {
		if !locks[i].CreatedAt.Equal(locks[j].CreatedAt) {
			return locks[i].CreatedAt.Before(locks[j].CreatedAt)
		}
		return locks[i].Key().String() < locks[j].Key().String()
	})
	return locks, nil
}

// ReleaseAllForLeader drops every lock leaderID holds in the event
func (m *DraftLockManager) ReleaseAllForLeader(ctx context.Context, eventID, leaderID string) (int, error) {
	if leaderID == "" {
		return 0, ErrTeamLeaderRequired
	}
	return m.store.DeleteByEvent(ctx, eventID, leaderID)
}

// ReleaseAllForEvent drops every lock in the event
func (m *DraftLockManager) ReleaseAllForEvent(ctx context.Context, eventID string) (int, error) {
	return m.store.DeleteByEvent(ctx, eventID, "")
}

// Sweep removes expired locks from the store. Readers already ignore them;
// this only bounds memory.
func (m *DraftLockManager) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx, m.now().UTC())
}

// releaseQuietly drops the requester's lock after a committed write. The
// write already succeeded, so failures are only logged.
func (m *DraftLockManager) releaseQuietly(ctx context.Context, eventID string, ref model.ParticipantRef, requestedBy string) {
	_, err := m.Release(ctx, eventID, ref.ID, ref.Type, requestedBy)
	if err != nil && !errors.Is(err, ErrLockNotHeld) {
		m.logger.Warn("failed to release draft lock",
			slog.String("event_id", eventID),
			slog.String("participant", ref.String()),
			slog.String("error", err.Error()))
	}
}
