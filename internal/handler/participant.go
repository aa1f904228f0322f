package handler

import (
	"net/http"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/service"
)

// ParticipantHandler handles helper and progger profile endpoints
type ParticipantHandler struct {
	participantService *service.ParticipantService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(participantService *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// PutHelper handles PUT /v1/helpers/{helperId}
func (h *ParticipantHandler) PutHelper(w http.ResponseWriter, r *http.Request) {
	var helper model.Helper
	if err := DecodeJSON(r, &helper); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	helper.ID = r.PathValue("helperId")

	saved, err := h.participantService.SaveHelper(r.Context(), &helper)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "save helper"))
		return
	}
	WriteData(w, http.StatusOK, saved, map[string]string{"self": "/v1/helpers/" + saved.ID})
}

// GetHelper handles GET /v1/helpers/{helperId}
func (h *ParticipantHandler) GetHelper(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, r.PathValue("helperId"), model.ParticipantTypeHelper)
}

// PutProgger handles PUT /v1/proggers/{proggerId}
func (h *ParticipantHandler) PutProgger(w http.ResponseWriter, r *http.Request) {
	var progger model.Progger
	if err := DecodeJSON(r, &progger); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	progger.ID = r.PathValue("proggerId")

	saved, err := h.participantService.SaveProgger(r.Context(), &progger)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "save progger"))
		return
	}
	WriteData(w, http.StatusOK, saved, map[string]string{"self": "/v1/proggers/" + saved.ID})
}

// GetProgger handles GET /v1/proggers/{proggerId}
func (h *ParticipantHandler) GetProgger(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, r.PathValue("proggerId"), model.ParticipantTypeProgger)
}

func (h *ParticipantHandler) get(w http.ResponseWriter, r *http.Request, id string, typ model.ParticipantType) {
	p, err := h.participantService.GetParticipant(r.Context(), id, typ)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get participant"))
		return
	}
	WriteData(w, http.StatusOK, p, nil)
}
