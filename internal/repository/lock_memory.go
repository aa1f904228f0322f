package repository

import (
	"context"
	"sync"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// MemoryLockStore holds draft locks in process. Expired entries are treated
// as absent by every read and removed by Sweep.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[model.LockKey]*model.DraftLock
}

// NewMemoryLockStore creates an empty store
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{locks: make(map[model.LockKey]*model.DraftLock)}
}

// Acquire installs lock unless a live lock held by someone else exists.
// A live lock held by the same requester is renewed and keeps its CreatedAt.
func (s *MemoryLockStore) Acquire(ctx context.Context, lock *model.DraftLock, now time.Time) (*model.DraftLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := lock.Key()
	if current, ok := s.locks[key]; ok && !current.IsExpired(now) {
		if current.LockedBy != lock.LockedBy {
			held := *current
			return nil, &model.LockConflictError{Holder: &held}
		}
		renewed := *lock
		renewed.CreatedAt = current.CreatedAt
		s.locks[key] = &renewed
		out := renewed
		return &out, nil
	}

	stored := *lock
	s.locks[key] = &stored
	out := stored
	return &out, nil
}

// Get returns the live lock for key, or nil
func (s *MemoryLockStore) Get(ctx context.Context, key model.LockKey, now time.Time) (*model.DraftLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.locks[key]
	if !ok || current.IsExpired(now) {
		return nil, nil
	}
	out := *current
	return &out, nil
}

// Release deletes the lock when requestedBy holds it. An absent or expired
// lock is not an error; a live lock held by someone else is ErrLockNotHeld.
func (s *MemoryLockStore) Release(ctx context.Context, key model.LockKey, requestedBy string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.locks[key]
	if !ok {
		return false, nil
	}
	if current.IsExpired(now) {
		delete(s.locks, key)
		return false, nil
	}
	if current.LockedBy != requestedBy {
		return false, model.ErrLockNotHeld
	}
	delete(s.locks, key)
	return true, nil
}

// ListByEvent returns the live locks of one event
func (s *MemoryLockStore) ListByEvent(ctx context.Context, eventID string, now time.Time) ([]*model.DraftLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.DraftLock
	for _, l := range s.locks {
		if l.EventID == eventID && !l.IsExpired(now) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DeleteByEvent removes the event's locks held by holder, or all of them
// when holder is empty
func (s *MemoryLockStore) DeleteByEvent(ctx context.Context, eventID, holder string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, l := range s.locks {
		if l.EventID != eventID || (holder != "" && l.LockedBy != holder) {
			continue
		}
		delete(s.locks, key)
		n++
	}
	return n, nil
}

// Sweep drops expired locks and returns how many were removed
func (s *MemoryLockStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, l := range s.locks {
		if l.IsExpired(now) {
			delete(s.locks, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included
func (s *MemoryLockStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
