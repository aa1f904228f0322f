package handler

import (
	"net/http"
	"strconv"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// AssignmentHandler handles roster slot endpoints
type AssignmentHandler struct {
	coordinator *service.AssignmentCoordinator
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(coordinator *service.AssignmentCoordinator) *AssignmentHandler {
	return &AssignmentHandler{coordinator: coordinator}
}

// Assign handles POST /v1/events/{eventId}/assignments
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}
	eventID := r.PathValue("eventId")

	var req model.AssignParticipantRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	event, err := h.coordinator.Assign(r.Context(), service.AssignRequest{
		EventID:         eventID,
		TeamLeaderID:    leader.ID,
		ParticipantID:   req.ParticipantID,
		ParticipantType: req.ParticipantType,
		SlotID:          req.SlotID,
		Job:             req.Job,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "assign participant"))
		return
	}

	WriteData(w, http.StatusOK, event, eventLinks(eventID))
}

// Unassign handles DELETE /v1/events/{eventId}/slots/{slotId}/assignment.
// The expected version may be passed as ?expected_version=.
func (h *AssignmentHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}
	eventID := r.PathValue("eventId")

	var expected *int
	if v := r.URL.Query().Get("expected_version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, model.NewValidationError([]model.FieldError{{
				Field:   "expected_version",
				Message: "expected_version must be a positive integer",
			}}))
			return
		}
		expected = &n
	}

	event, err := h.coordinator.Unassign(r.Context(), eventID, leader.ID, r.PathValue("slotId"), expected)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "unassign participant"))
		return
	}

	WriteData(w, http.StatusOK, event, eventLinks(eventID))
}
