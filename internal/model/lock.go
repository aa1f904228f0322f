package model

import (
	"errors"
	"fmt"
	"time"
)

// DefaultLockTTL applies when a caller does not ask for a specific TTL
const DefaultLockTTL = 5 * time.Minute

// MaxLockTTL bounds a requested TTL
const MaxLockTTL = 30 * time.Minute

var (
	// ErrLockHeld means another requester holds a live lock on the participant
	ErrLockHeld = errors.New("participant is being drafted by another team leader")
	// ErrLockNotHeld means a release named a lock the requester does not own
	ErrLockNotHeld = errors.New("lock is held by another team leader")
)

// LockKey identifies a draft lock. Scope is a single event.
type LockKey struct {
	EventID         string          `json:"event_id"`
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
}

func (k LockKey) String() string {
	return k.EventID + ":" + string(k.ParticipantType) + ":" + k.ParticipantID
}

// DraftLock is a short-lived claim on a participant while a team leader
// decides where to place them. An expired lock is treated as absent.
type DraftLock struct {
	EventID         string          `json:"event_id"`
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
	LockedBy        string          `json:"locked_by"`
	LockedByName    string          `json:"locked_by_name"`
	SlotID          string          `json:"slot_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// Key returns the lock identity
func (l *DraftLock) Key() LockKey {
	return LockKey{EventID: l.EventID, ParticipantID: l.ParticipantID, ParticipantType: l.ParticipantType}
}

// IsExpired reports whether now is past the expiry
func (l *DraftLock) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// LockConflictError reports the live lock that blocked an operation
type LockConflictError struct {
	Holder *DraftLock
}

func (e *LockConflictError) Error() string {
	if e.Holder == nil {
		return ErrLockHeld.Error()
	}
	return fmt.Sprintf("participant is being drafted by %s until %s",
		e.Holder.LockedByName, e.Holder.ExpiresAt.UTC().Format(time.RFC3339))
}

func (e *LockConflictError) Is(target error) bool {
	return target == ErrLockHeld
}
