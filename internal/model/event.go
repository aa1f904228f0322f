package model

import (
	"fmt"
	"strings"
	"time"
)

// EventStatus is the lifecycle state of a scheduled event
type EventStatus string

const (
	EventStatusDraft      EventStatus = "draft"
	EventStatusPublished  EventStatus = "published"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusInProgress,
		EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// AllowsRosterEdits reports whether slots may still change in this status
func (s EventStatus) AllowsRosterEdits() bool {
	return s == EventStatusDraft || s == EventStatusPublished
}

// IsTerminal reports whether no further transitions exist
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

// Encounter identifies the raid content an event is scheduled for
type Encounter string

const (
	EncounterUCoB Encounter = "ucob"
	EncounterUWU  Encounter = "uwu"
	EncounterTEA  Encounter = "tea"
	EncounterDSR  Encounter = "dsr"
	EncounterTOP  Encounter = "top"
	EncounterFRU  Encounter = "fru"
)

// IsValid reports whether e is a known encounter
func (e Encounter) IsValid() bool {
	switch e {
	case EncounterUCoB, EncounterUWU, EncounterTEA, EncounterDSR, EncounterTOP, EncounterFRU:
		return true
	}
	return false
}

// Event field limits
const (
	MaxEventNameLength  = 100
	MinDurationMinutes  = 30
	MaxDurationMinutes  = 12 * 60
	DefaultEventMinutes = 120
)

// ScheduledEvent is a raid session and its roster.
// Version starts at 1 and grows by one with every persisted change.
type ScheduledEvent struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Encounter       Encounter    `json:"encounter"`
	ScheduledTime   time.Time    `json:"scheduled_time"`
	DurationMinutes int          `json:"duration_minutes"`
	TeamLeaderID    string       `json:"team_leader_id"`
	TeamLeaderName  string       `json:"team_leader_name"`
	Status          EventStatus  `json:"status"`
	Roster          *EventRoster `json:"roster"`
	CreatedAt       time.Time    `json:"created_at"`
	LastModified    time.Time    `json:"last_modified"`
	Version         int          `json:"version"`
}

// EndTime returns when the session is planned to finish
func (e *ScheduledEvent) EndTime() time.Time {
	return e.ScheduledTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// IsOwnedBy reports whether leaderID created the event
func (e *ScheduledEvent) IsOwnedBy(leaderID string) bool {
	return leaderID != "" && e.TeamLeaderID == leaderID
}

// Clone returns a deep copy
func (e *ScheduledEvent) Clone() *ScheduledEvent {
	if e == nil {
		return nil
	}
	out := *e
	out.Roster = e.Roster.Clone()
	return &out
}

// EventFilters narrows ListEvents. Zero values mean "any".
type EventFilters struct {
	TeamLeaderID string
	Status       *EventStatus
	Encounter    *Encounter
	DateFrom     *time.Time
	DateTo       *time.Time
}

// Matches reports whether e passes every set filter
func (f EventFilters) Matches(e *ScheduledEvent) bool {
	if f.TeamLeaderID != "" && e.TeamLeaderID != f.TeamLeaderID {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Encounter != nil && e.Encounter != *f.Encounter {
		return false
	}
	if f.DateFrom != nil && e.ScheduledTime.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && e.ScheduledTime.After(*f.DateTo) {
		return false
	}
	return true
}

// CreateEventRequest represents a request to schedule a new event
type CreateEventRequest struct {
	Name            string    `json:"name"`
	Encounter       Encounter `json:"encounter"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	PartySize       int       `json:"party_size,omitempty"`
}

// Validate checks if the create request is valid
func (r *CreateEventRequest) Validate() []FieldError {
	var errors []FieldError

	name := strings.TrimSpace(r.Name)
	if name == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > MaxEventNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name must be 100 characters or less"})
	}
	if !r.Encounter.IsValid() {
		errors = append(errors, FieldError{Field: "encounter", Message: "encounter must be one of ucob, uwu, tea, dsr, top, fru"})
	}
	if r.ScheduledTime.IsZero() {
		errors = append(errors, FieldError{Field: "scheduled_time", Message: "scheduled_time is required"})
	}
	if r.DurationMinutes != 0 && (r.DurationMinutes < MinDurationMinutes || r.DurationMinutes > MaxDurationMinutes) {
		errors = append(errors, FieldError{Field: "duration_minutes", Message: "duration_minutes must be between 30 and 720"})
	}
	if r.PartySize != 0 {
		if _, ok := RosterTemplate(r.PartySize); !ok {
			errors = append(errors, FieldError{Field: "party_size", Message: "party_size must be 4 or 8"})
		}
	}
	return errors
}

// UpdateEventRequest is a partial update. Status changes go through the
// lifecycle rules.
type UpdateEventRequest struct {
	Name            *string      `json:"name,omitempty"`
	Encounter       *Encounter   `json:"encounter,omitempty"`
	ScheduledTime   *time.Time   `json:"scheduled_time,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	Status          *EventStatus `json:"status,omitempty"`
	ExpectedVersion *int         `json:"expected_version,omitempty"`
}

// Validate checks if the update request is valid
func (r *UpdateEventRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" || len(name) > MaxEventNameLength {
			errors = append(errors, FieldError{Field: "name", Message: "name must be 1-100 characters"})
		}
	}
	if r.Encounter != nil && !r.Encounter.IsValid() {
		errors = append(errors, FieldError{Field: "encounter", Message: "unknown encounter"})
	}
	if r.ScheduledTime != nil && r.ScheduledTime.IsZero() {
		errors = append(errors, FieldError{Field: "scheduled_time", Message: "scheduled_time cannot be empty"})
	}
	if r.DurationMinutes != nil && (*r.DurationMinutes < MinDurationMinutes || *r.DurationMinutes > MaxDurationMinutes) {
		errors = append(errors, FieldError{Field: "duration_minutes", Message: "duration_minutes must be between 30 and 720"})
	}
	if r.Status != nil && !r.Status.IsValid() {
		errors = append(errors, FieldError{Field: "status", Message: "unknown status"})
	}
	return errors
}

// HasFieldChanges reports whether any non-status field is set
func (r *UpdateEventRequest) HasFieldChanges() bool {
	return r.Name != nil || r.Encounter != nil || r.ScheduledTime != nil || r.DurationMinutes != nil
}

// AssignParticipantRequest places a participant into a slot
type AssignParticipantRequest struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
	SlotID          string          `json:"slot_id"`
	Job             Job             `json:"job"`
	ExpectedVersion *int            `json:"expected_version,omitempty"`
}

// Validate checks if the assign request is valid
func (r *AssignParticipantRequest) Validate() []FieldError {
	var errors []FieldError
	if r.ParticipantID == "" {
		errors = append(errors, FieldError{Field: "participant_id", Message: "participant_id is required"})
	}
	if !r.ParticipantType.IsValid() {
		errors = append(errors, FieldError{Field: "participant_type", Message: "participant_type must be 'helper' or 'progger'"})
	}
	if r.SlotID == "" {
		errors = append(errors, FieldError{Field: "slot_id", Message: "slot_id is required"})
	}
	if job, ok := ParseJob(string(r.Job)); !ok {
		errors = append(errors, FieldError{Field: "job", Message: "unknown job"})
	} else {
		r.Job = job
	}
	return errors
}

// LockParticipantRequest takes a draft lock on a participant
type LockParticipantRequest struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
	SlotID          string          `json:"slot_id,omitempty"`
	TTLSeconds      int             `json:"ttl_seconds,omitempty"`
}

// Validate checks if the lock request is valid
func (r *LockParticipantRequest) Validate() []FieldError {
	var errors []FieldError
	if r.ParticipantID == "" {
		errors = append(errors, FieldError{Field: "participant_id", Message: "participant_id is required"})
	}
	if !r.ParticipantType.IsValid() {
		errors = append(errors, FieldError{Field: "participant_type", Message: "participant_type must be 'helper' or 'progger'"})
	}
	if r.TTLSeconds < 0 {
		errors = append(errors, FieldError{Field: "ttl_seconds", Message: "ttl_seconds cannot be negative"})
	} else if maxSeconds := int(MaxLockTTL / time.Second); r.TTLSeconds > maxSeconds {
		errors = append(errors, FieldError{Field: "ttl_seconds", Message: fmt.Sprintf("ttl_seconds cannot exceed %d", maxSeconds)})
	}
	return errors
}
