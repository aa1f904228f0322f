package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// MemoryEventStore keeps events in process. Every read and write copies the
// event so callers never share roster memory with the store.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events map[string]*model.ScheduledEvent
}

// NewMemoryEventStore creates an empty store
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[string]*model.ScheduledEvent)}
}

// Create stores a new event
func (s *MemoryEventStore) Create(ctx context.Context, event *model.ScheduledEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("%w: event %s", database.ErrDuplicate, event.ID)
	}
	s.events[event.ID] = event.Clone()
	return nil
}

// Get returns a copy of the event, or nil when absent
func (s *MemoryEventStore) Get(ctx context.Context, eventID string) (*model.ScheduledEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.events[eventID].Clone(), nil
}

// List returns matching events ordered by scheduled time
func (s *MemoryEventStore) List(ctx context.Context, filters model.EventFilters) ([]*model.ScheduledEvent, error) {
	s.mu.RLock()
	out := make([]*model.ScheduledEvent, 0, len(s.events))
	for _, e := range s.events {
		if filters.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Save replaces the event if the stored version still equals expectedVersion
func (s *MemoryEventStore) Save(ctx context.Context, event *model.ScheduledEvent, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.events[event.ID]
	if !ok {
		return fmt.Errorf("%w: event %s", database.ErrNotFound, event.ID)
	}
	if stored.Version != expectedVersion {
		return &database.VersionConflictError{Expected: expectedVersion, Actual: stored.Version}
	}
	s.events[event.ID] = event.Clone()
	return nil
}

// Delete removes the event
func (s *MemoryEventStore) Delete(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return fmt.Errorf("%w: event %s", database.ErrNotFound, eventID)
	}
	delete(s.events, eventID)
	return nil
}
