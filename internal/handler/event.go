package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/forgo/raidplan/api/internal/middleware"
	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// EventHandler handles event endpoints
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// teamLeader returns the acting team leader named by the request headers
func teamLeader(r *http.Request) (service.TeamLeader, bool) {
	id := middleware.GetTeamLeaderID(r.Context())
	return service.TeamLeader{ID: id, Name: middleware.GetTeamLeaderName(r.Context())}, id != ""
}

func writeLeaderRequired(w http.ResponseWriter) {
	WriteError(w, model.NewUnauthorizedError("X-Team-Leader-ID header is required"))
}

// CreateEvent handles POST /v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}

	var req model.CreateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), leader, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create event"))
		return
	}

	WriteData(w, http.StatusCreated, event, eventLinks(event.ID))
}

// ListEvents handles GET /v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filters, fieldErrors := parseEventFilters(r)
	if len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	events, err := h.eventService.ListEvents(r.Context(), filters)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list events"))
		return
	}
	if events == nil {
		events = []*model.ScheduledEvent{}
	}

	WriteCollection(w, http.StatusOK, events, len(events), map[string]string{
		"self": r.URL.RequestURI(),
	})
}

func parseEventFilters(r *http.Request) (model.EventFilters, []model.FieldError) {
	q := r.URL.Query()
	var filters model.EventFilters
	var fieldErrors []model.FieldError

	filters.TeamLeaderID = q.Get("team_leader_id")
	if v := q.Get("status"); v != "" {
		status := model.EventStatus(v)
		if !status.IsValid() {
			fieldErrors = append(fieldErrors, model.FieldError{Field: "status", Message: "unknown status"})
		}
		filters.Status = &status
	}
	if v := q.Get("encounter"); v != "" {
		encounter := model.Encounter(v)
		if !encounter.IsValid() {
			fieldErrors = append(fieldErrors, model.FieldError{Field: "encounter", Message: "unknown encounter"})
		}
		filters.Encounter = &encounter
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"date_from", &filters.DateFrom}, {"date_to", &filters.DateTo}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fieldErrors = append(fieldErrors, model.FieldError{Field: p.name, Message: "must be RFC3339"})
			continue
		}
		*p.dst = &t
	}
	return filters, fieldErrors
}

// GetEvent handles GET /v1/events/{eventId}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventId")

	event, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get event"))
		return
	}

	WriteData(w, http.StatusOK, event, eventLinks(eventID))
}

// UpdateEvent handles PATCH /v1/events/{eventId}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}
	eventID := r.PathValue("eventId")

	var req model.UpdateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	event, err := h.eventService.UpdateEvent(r.Context(), eventID, leader, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update event"))
		return
	}

	WriteData(w, http.StatusOK, event, eventLinks(eventID))
}

// versionRequest is the optional body of cancel
type versionRequest struct {
	ExpectedVersion *int `json:"expected_version,omitempty"`
}

// CancelEvent handles POST /v1/events/{eventId}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}
	eventID := r.PathValue("eventId")

	var req versionRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.eventService.CancelEvent(r.Context(), eventID, leader, req.ExpectedVersion)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel event"))
		return
	}

	WriteData(w, http.StatusOK, event, eventLinks(eventID))
}

// DeleteEvent handles DELETE /v1/events/{eventId}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}

	if err := h.eventService.DeleteEvent(r.Context(), r.PathValue("eventId"), leader); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete event"))
		return
	}

	WriteNoContent(w)
}
