// Package handler exposes the caller's notification inbox over HTTP, plus a
// server-sent-events stream backed by the realtime publisher. Deployments
// without Redis keep the inbox endpoints and clients poll instead.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carelink/internal/notification/realtime"
	"carelink/internal/notification/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/requestcontext"
)

// Handler handles notification endpoints.
type Handler struct {
	notifications *service.Service
	publisher     *realtime.Publisher
	logger        *slog.Logger
}

// New creates a notification Handler. publisher may be nil; the stream
// endpoint then reports push as unavailable.
func New(notifications *service.Service, publisher *realtime.Publisher, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, publisher: publisher, logger: logger}
}

// Register mounts the notification routes. The caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Get("/stream", h.handleStream)
		r.Post("/mark-all-read", h.handleMarkAllRead)
		r.Delete("/read", h.handleClearRead)
		r.Route("/{notificationID}", func(r chi.Router) {
			r.Post("/read", h.handleMarkRead)
			r.Delete("/", h.handleDelete)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, notifications)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.UnreadCount(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := notificationIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), notificationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllRead(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	notificationID, err := notificationIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.notifications.Delete(r.Context(), notificationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.ClearRead(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStream serves live notifications as server-sent events until the
// client disconnects.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "live notifications are not configured"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	ctx := r.Context()
	feed, err := h.publisher.Subscribe(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "live notifications are unavailable"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for notification := range feed {
		payload, err := json.Marshal(notification)
		if err != nil {
			h.logger.Warn("dropping unencodable notification from stream", "error", err)
			continue
		}
		fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

func notificationIDParam(r *http.Request) (id.NotificationID, error) {
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		return id.NotificationID{}, dErrors.New(dErrors.CodeValidation, "invalid notification id")
	}
	return notificationID, nil
}
