package repository

import (
	"context"
	"sync"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// MemoryParticipantDirectory is an in-process participant directory used by
// the memory store driver and tests
type MemoryParticipantDirectory struct {
	mu       sync.RWMutex
	helpers  map[string]*model.Helper
	proggers map[string]*model.Progger
}

// NewMemoryParticipantDirectory creates an empty directory
func NewMemoryParticipantDirectory() *MemoryParticipantDirectory {
	return &MemoryParticipantDirectory{
		helpers:  make(map[string]*model.Helper),
		proggers: make(map[string]*model.Progger),
	}
}

// SaveHelper inserts or replaces a helper
func (d *MemoryParticipantDirectory) SaveHelper(ctx context.Context, h *model.Helper) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *h
	cp.Jobs = append([]model.Job(nil), h.Jobs...)
	cp.Availability = append([]model.AvailabilityWindow(nil), h.Availability...)
	d.helpers[h.ID] = &cp
	return nil
}

// SaveProgger inserts or replaces a progger
func (d *MemoryParticipantDirectory) SaveProgger(ctx context.Context, p *model.Progger) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *p
	d.proggers[p.ID] = &cp
	return nil
}

// GetParticipant returns the participant, or nil when unknown
func (d *MemoryParticipantDirectory) GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch typ {
	case model.ParticipantTypeHelper:
		if h, ok := d.helpers[id]; ok {
			cp := *h
			return &cp, nil
		}
	case model.ParticipantTypeProgger:
		if p, ok := d.proggers[id]; ok {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// IsAvailable reports whether the helper's weekly windows cover [start, end)
func (d *MemoryParticipantDirectory) IsAvailable(ctx context.Context, helperID string, start, end time.Time) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h, ok := d.helpers[helperID]
	if !ok {
		return false, nil
	}
	return h.AvailableDuring(start, end), nil
}
