package handler

import (
	"net/http"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// LockHandler handles draft lock endpoints
type LockHandler struct {
	eventService *service.EventService
}

// NewLockHandler creates a new lock handler
func NewLockHandler(eventService *service.EventService) *LockHandler {
	return &LockHandler{eventService: eventService}
}

// List handles GET /v1/events/{eventId}/locks
func (h *LockHandler) List(w http.ResponseWriter, r *http.Request) {
	locks, err := h.eventService.ListLocks(r.Context(), r.PathValue("eventId"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list locks"))
		return
	}
	if locks == nil {
		locks = []*model.DraftLock{}
	}
	WriteCollection(w, http.StatusOK, locks, len(locks), nil)
}

// Lock handles POST /v1/events/{eventId}/locks
func (h *LockHandler) Lock(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}
	eventID := r.PathValue("eventId")

	var req model.LockParticipantRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	lock, err := h.eventService.LockParticipant(r.Context(), eventID, leader, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "lock participant"))
		return
	}

	WriteData(w, http.StatusCreated, lock, map[string]string{
		"self":  "/v1/events/" + eventID + "/locks/" + string(lock.ParticipantType) + "/" + lock.ParticipantID,
		"event": "/v1/events/" + eventID,
	})
}

// Release handles DELETE /v1/events/{eventId}/locks/{participantType}/{participantId}
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	leader, ok := teamLeader(r)
	if !ok {
		writeLeaderRequired(w)
		return
	}

	participantType := model.ParticipantType(r.PathValue("participantType"))
	if !participantType.IsValid() {
		WriteError(w, model.NewValidationError([]model.FieldError{{
			Field:   "participant_type",
			Message: "participant_type must be 'helper' or 'progger'",
		}}))
		return
	}

	err := h.eventService.ReleaseLock(r.Context(), r.PathValue("eventId"), leader, r.PathValue("participantId"), participantType)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "release lock"))
		return
	}

	WriteNoContent(w)
}
