package model

import (
	"fmt"
	"time"
)

// ParticipantType discriminates the two kinds of people a roster can hold
type ParticipantType string

const (
	ParticipantTypeHelper  ParticipantType = "helper"
	ParticipantTypeProgger ParticipantType = "progger"
)

// IsValid reports whether t is a known participant type
func (t ParticipantType) IsValid() bool {
	return t == ParticipantTypeHelper || t == ParticipantTypeProgger
}

// Participant is either a *Helper or a *Progger. The set is closed: the
// unexported marker keeps other packages from adding variants, so a type
// switch over the two cases is exhaustive.
type Participant interface {
	ParticipantID() string
	ParticipantType() ParticipantType
	DisplayName() string
	DiscordUserID() string
	// CanPlay reports whether the participant may be slotted on job
	CanPlay(job Job) bool
	isParticipant()
}

// ParticipantRef identifies a participant without its profile
type ParticipantRef struct {
	ID   string          `json:"id"`
	Type ParticipantType `json:"type"`
}

func (r ParticipantRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// RefOf returns the identity of p
func RefOf(p Participant) ParticipantRef {
	return ParticipantRef{ID: p.ParticipantID(), Type: p.ParticipantType()}
}

// Helper is an experienced player who fills seats for other groups.
type Helper struct {
	ID           string               `json:"id"`
	DiscordID    string               `json:"discord_id"`
	Name         string               `json:"name"`
	Jobs         []Job                `json:"jobs"`
	Availability []AvailabilityWindow `json:"availability,omitempty"`
}

func (h *Helper) ParticipantID() string            { return h.ID }
func (h *Helper) ParticipantType() ParticipantType { return ParticipantTypeHelper }
func (h *Helper) DisplayName() string              { return h.Name }
func (h *Helper) DiscordUserID() string            { return h.DiscordID }
func (h *Helper) isParticipant()                   {}

// CanPlay reports whether job is one of the helper's registered jobs
func (h *Helper) CanPlay(job Job) bool {
	for _, j := range h.Jobs {
		if j == job {
			return true
		}
	}
	return false
}

// AvailableDuring reports whether the helper's weekly windows cover the
// whole of [start, end). Adjacent windows chain across midnight.
func (h *Helper) AvailableDuring(start, end time.Time) bool {
	if len(h.Availability) == 0 || !end.After(start) {
		return false
	}
	cur, end := start.UTC(), end.UTC()
	for i := 0; i < 16 && cur.Before(end); i++ {
		next, ok := h.coveredUntil(cur)
		if !ok {
			return false
		}
		cur = next
	}
	return !cur.Before(end)
}

// coveredUntil returns the latest end among windows containing t
func (h *Helper) coveredUntil(t time.Time) (time.Time, bool) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	var until time.Time
	found := false
	for _, w := range h.Availability {
		if w.Weekday != t.Weekday() {
			continue
		}
		ws := day.Add(time.Duration(w.StartMinute) * time.Minute)
		we := day.Add(time.Duration(w.EndMinute) * time.Minute)
		if !t.Before(ws) && t.Before(we) && we.After(until) {
			until = we
			found = true
		}
	}
	return until, found
}

// AvailabilityWindow is a recurring weekly block, in UTC minutes from midnight.
// EndMinute may be 1440 to run to the end of the day.
type AvailabilityWindow struct {
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
}

// Validate checks the window bounds
func (w AvailabilityWindow) Validate() error {
	if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
		return fmt.Errorf("weekday %d out of range", w.Weekday)
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
		return fmt.Errorf("invalid window %d-%d", w.StartMinute, w.EndMinute)
	}
	return nil
}

// Progger is a player learning the encounter; the roster exists for them.
type Progger struct {
	ID        string    `json:"id"`
	DiscordID string    `json:"discord_id"`
	Name      string    `json:"name"`
	Job       Job       `json:"job"`
	Encounter Encounter `json:"encounter"`
	ProgPoint string    `json:"prog_point,omitempty"`
	// Availability is the progger's own note, e.g. "weeknights after 8pm ET".
	// Only helpers carry structured windows.
	Availability string `json:"availability,omitempty"`
}

func (p *Progger) ParticipantID() string            { return p.ID }
func (p *Progger) ParticipantType() ParticipantType { return ParticipantTypeProgger }
func (p *Progger) DisplayName() string              { return p.Name }
func (p *Progger) DiscordUserID() string            { return p.DiscordID }
func (p *Progger) isParticipant()                   {}

// CanPlay reports whether job is the progger's signed-up job
func (p *Progger) CanPlay(job Job) bool {
	return p.Job == job
}

// SlotAssignment is the participant snapshot stored in a slot. It is a copy
// taken at assignment time, not a live reference to the profile.
type SlotAssignment struct {
	ID          string          `json:"id"`
	Type        ParticipantType `json:"type"`
	DiscordID   string          `json:"discord_id"`
	Name        string          `json:"name"`
	Job         Job             `json:"job"`
	Role        Role            `json:"role"`
	IsConfirmed bool            `json:"is_confirmed"`
	AssignedAt  time.Time       `json:"assigned_at"`
	AssignedBy  string          `json:"assigned_by"`
}

// Ref returns the identity of the assigned participant
func (a *SlotAssignment) Ref() ParticipantRef {
	return ParticipantRef{ID: a.ID, Type: a.Type}
}

// NewSlotAssignment snapshots p playing job. Helpers are confirmed on
// assignment; proggers confirm later.
func NewSlotAssignment(p Participant, job Job, assignedBy string, at time.Time) *SlotAssignment {
	a := &SlotAssignment{
		ID:         p.ParticipantID(),
		Type:       p.ParticipantType(),
		DiscordID:  p.DiscordUserID(),
		Name:       p.DisplayName(),
		Job:        job,
		Role:       job.Role(),
		AssignedAt: at.UTC(),
		AssignedBy: assignedBy,
	}
	switch p.(type) {
	case *Helper:
		a.IsConfirmed = true
	case *Progger:
		a.IsConfirmed = false
	}
	return a
}
