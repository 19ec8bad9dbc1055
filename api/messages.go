package api

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PostMessage handles POST /messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, err)
		return
	}

	message, err := h.messages.Post(r.Context(), domain.PostMessageCommand{
		From: r.Header.Get(UserHeader),
		To:   req.To,
		Text: req.Text,
		Kind: domain.Kind(req.Type),
	})
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, toMessageResponse(message))
}

// ListMessages handles GET /messages?limit=N.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.Error(w, errors.ErrInvalidLimit)
			return
		}
		limit = &n
	}

	messages, err := h.messages.Visible(r.Context(), r.Header.Get(UserHeader), limit)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, toMessageResponses(messages))
}

// EditMessage handles PUT /messages/{id}.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := decode(r, &req); err != nil {
		h.Error(w, err)
		return
	}

	err := h.messages.Edit(r.Context(), domain.EditMessageCommand{
		ID:        id,
		Requester: r.Header.Get(UserHeader),
		To:        req.To,
		Text:      req.Text,
		Kind:      domain.Kind(req.Type),
	})
	if err != nil {
		h.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteMessage handles DELETE /messages/{id}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}
	if err := h.messages.Delete(r.Context(), id, r.Header.Get(UserHeader)); err != nil {
		h.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// messageID parses the path id. An id that is not a UUID cannot name any
// message, so it is reported as not found.
func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, errors.ErrMessageNotFound)
		return uuid.Nil, false
	}
	return id, true
}
