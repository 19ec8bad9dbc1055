package api

import (
	"net/http"
)

// Join handles POST /participants.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, err)
		return
	}

	participant, err := h.presence.Join(r.Context(), req.Name)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, toParticipantResponse(participant))
}

// ListParticipants handles GET /participants.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.presence.List(r.Context())
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, toParticipantResponses(participants))
}

// Heartbeat handles POST /status.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := h.presence.Heartbeat(r.Context(), r.Header.Get(UserHeader)); err != nil {
		h.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
