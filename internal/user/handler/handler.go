// Package handler exposes authentication, account management, and the
// caller's own notification preferences over HTTP. Login is the only route
// mounted outside the auth middleware.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	notificationmodels "carelink/internal/notification/models"
	"carelink/internal/transport/http/shared"
	"carelink/internal/user/service"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/requestcontext"
)

// Handler handles user endpoints.
type Handler struct {
	users  *service.Service
	logger *slog.Logger
}

// New creates a user Handler.
func New(users *service.Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// RegisterPublic mounts routes that work without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// Register mounts the authenticated user routes. Admin checks live in the
// service, not in routing.
func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Post("/deactivate", h.handleDeactivate)
		})
	})
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.handleMe)
		r.Get("/preferences", h.handleGetPreferences)
		r.Put("/preferences", h.handleUpdatePreferences)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.users.Authenticate(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.users.Create(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var input service.UpdateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.users.Update(r.Context(), userID, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.users.Deactivate(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.users.GetPreferences(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, prefs)
}

func (h *Handler) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs notificationmodels.Preferences
	if err := shared.DecodeJSON(r, &prefs); err != nil {
		shared.WriteError(w, err)
		return
	}
	updated, err := h.users.UpdatePreferences(r.Context(), prefs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, updated)
}

func userIDParam(r *http.Request) (id.UserID, error) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		return id.UserID{}, dErrors.New(dErrors.CodeValidation, "invalid user id")
	}
	return userID, nil
}
