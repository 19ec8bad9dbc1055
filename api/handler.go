package api

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	log      *slog.Logger
	presence services.IPresenceService
	messages services.IMessageService
	store    contract.Pinger
}

func NewHandler(
	log *slog.Logger,
	presence services.IPresenceService,
	messages services.IMessageService,
	store contract.Pinger,
) *Handler {
	return &Handler{log: log, presence: presence, messages: messages, store: store}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Debug("Response not written", "err", err)
	}
}

const internalErrorMessage = "internal error"

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

// Error maps a service error to its HTTP status and writes it.
func (h *Handler) Error(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := statusOf(code)
	if status == http.StatusInternalServerError {
		// The cause stays in the log, never in the response.
		h.log.Error("Request failed", "err", err)
		h.JSON(w, status, errorResponse{Code: errors.CodeStoreFault, Error: internalErrorMessage})
		return
	}
	h.JSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func statusOf(code errors.Code) int {
	switch code {
	case errors.CodeValidation, errors.CodeUnknownSender:
		return http.StatusUnprocessableEntity
	case errors.CodeNameTaken:
		return http.StatusConflict
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeForbidden:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body. Any malformed body is a validation failure.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Validation(err)
	}
	return nil
}
