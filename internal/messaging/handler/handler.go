// Package handler exposes direct messaging and broadcasts over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carelink/internal/messaging/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Handler handles messaging endpoints.
type Handler struct {
	messages *service.Service
	logger   *slog.Logger
}

// New creates a messaging Handler.
func New(messages *service.Service, logger *slog.Logger) *Handler {
	return &Handler{messages: messages, logger: logger}
}

// Register mounts the messaging routes. The caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", h.handleSend)
		r.Post("/broadcast", h.handleBroadcast)
		r.Get("/conversations", h.handleConversations)
		r.Route("/threads/{counterpartID}", func(r chi.Router) {
			r.Get("/", h.handleThread)
			r.Post("/read", h.handleMarkThreadRead)
		})
	})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var input service.SendInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	message, err := h.messages.Send(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, message)
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var input service.BroadcastInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	messages, err := h.messages.Broadcast(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]int{"sent": len(messages)})
}

func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.messages.Conversations(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, conversations)
}

func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request) {
	counterpartID, err := counterpartIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	messages, err := h.messages.Thread(r.Context(), counterpartID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleMarkThreadRead(w http.ResponseWriter, r *http.Request) {
	counterpartID, err := counterpartIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.messages.MarkThreadRead(r.Context(), counterpartID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func counterpartIDParam(r *http.Request) (id.UserID, error) {
	counterpartID, err := id.ParseUserID(chi.URLParam(r, "counterpartID"))
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return counterpartID, nil
}
