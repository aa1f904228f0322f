package model

import (
	"testing"
	"time"
)

func hasFieldError(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestCreateEventRequest_Validate_Valid(t *testing.T) {
	t.Parallel()

	req := &CreateEventRequest{
		Name:          "FRU prog night",
		Encounter:     EncounterFRU,
		ScheduledTime: time.Date(2026, 11, 2, 20, 0, 0, 0, time.UTC),
	}

	if errs := req.Validate(); len(errs) > 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestCreateEventRequest_Validate_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   CreateEventRequest
		field string
	}{
		{"missing name", CreateEventRequest{Encounter: EncounterTOP, ScheduledTime: time.Now()}, "name"},
		{"unknown encounter", CreateEventRequest{Name: "x", Encounter: "p12s", ScheduledTime: time.Now()}, "encounter"},
		{"missing time", CreateEventRequest{Name: "x", Encounter: EncounterTOP}, "scheduled_time"},
		{"short duration", CreateEventRequest{Name: "x", Encounter: EncounterTOP, ScheduledTime: time.Now(), DurationMinutes: 10}, "duration_minutes"},
		{"odd party size", CreateEventRequest{Name: "x", Encounter: EncounterTOP, ScheduledTime: time.Now(), PartySize: 6}, "party_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestUpdateEventRequest_Validate(t *testing.T) {
	t.Parallel()

	blank := "  "
	status := EventStatus("archived")
	req := &UpdateEventRequest{Name: &blank, Status: &status}

	errs := req.Validate()
	if !hasFieldError(errs, "name") || !hasFieldError(errs, "status") {
		t.Errorf("expected name and status errors, got %v", errs)
	}
	if !req.HasFieldChanges() {
		t.Error("expected name to count as a field change")
	}
}

func TestAssignParticipantRequest_Validate_NormalizesJob(t *testing.T) {
	t.Parallel()

	req := &AssignParticipantRequest{
		ParticipantID:   "h1",
		ParticipantType: ParticipantTypeHelper,
		SlotID:          "tank-1",
		Job:             "gnb",
	}

	if errs := req.Validate(); len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if req.Job != JobGunbreaker {
		t.Errorf("expected job GNB, got %s", req.Job)
	}
}

func TestAssignParticipantRequest_Validate_Invalid(t *testing.T) {
	t.Parallel()

	req := &AssignParticipantRequest{ParticipantType: "guest", Job: "ACN"}
	errs := req.Validate()
	for _, field := range []string{"participant_id", "participant_type", "slot_id", "job"} {
		if !hasFieldError(errs, field) {
			t.Errorf("expected error on %s, got %v", field, errs)
		}
	}
}

func TestLockParticipantRequest_Validate(t *testing.T) {
	t.Parallel()

	req := &LockParticipantRequest{ParticipantID: "p1", ParticipantType: ParticipantTypeProgger, TTLSeconds: -1}
	if errs := req.Validate(); !hasFieldError(errs, "ttl_seconds") {
		t.Errorf("expected ttl_seconds error, got %v", errs)
	}

	req.TTLSeconds = int(MaxLockTTL/time.Second) + 1
	if errs := req.Validate(); !hasFieldError(errs, "ttl_seconds") {
		t.Errorf("expected ttl_seconds error above the cap, got %v", errs)
	}

	req.TTLSeconds = int(MaxLockTTL / time.Second)
	if errs := req.Validate(); len(errs) != 0 {
		t.Errorf("expected the cap itself to be accepted, got %v", errs)
	}
}
