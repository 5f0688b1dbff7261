// Package handler exposes caregiver management over HTTP. The assignment
// endpoint surfaces conflicts as a 409 carrying the incumbent, so the UI can
// render a confirmation step and retry with confirm=true.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carelink/internal/caregiver/models"
	"carelink/internal/caregiver/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Handler handles caregiver endpoints.
type Handler struct {
	caregivers *service.Service
	logger     *slog.Logger
}

// New creates a caregiver Handler.
func New(caregivers *service.Service, logger *slog.Logger) *Handler {
	return &Handler{caregivers: caregivers, logger: logger}
}

// Register mounts the caregiver routes. The caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/caregivers", func(r chi.Router) {
		r.Post("/", h.handleCreateStandalone)
		r.Get("/", h.handleListPool)
		r.Route("/{caregiverID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/assign", h.handleAssign)
			r.Post("/deactivate", h.handleDeactivate)
			r.Patch("/checklist", h.handleUpdateChecklist)
		})
	})
	r.Route("/clients/{clientID}/caregivers", func(r chi.Router) {
		r.Post("/", h.handleAddToClient)
		r.Get("/", h.handleListByClient)
	})
}

func (h *Handler) handleCreateStandalone(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	caregiver, err := h.caregivers.CreateStandalone(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, caregiver)
}

func (h *Handler) handleListPool(w http.ResponseWriter, r *http.Request) {
	caregivers, err := h.caregivers.ListPool(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caregivers)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caregiverID, err := caregiverIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	caregiver, err := h.caregivers.Get(r.Context(), caregiverID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caregiver)
}

type assignRequest struct {
	ClientID string `json:"client_id"`
	Confirm  bool   `json:"confirm"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	caregiverID, err := caregiverIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req assignRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	clientID, err := id.ParseClientID(req.ClientID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return
	}
	result, err := h.caregivers.Assign(r.Context(), caregiverID, clientID, req.Confirm)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if result.Conflict != nil {
		shared.WriteJSON(w, http.StatusConflict, result)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

type deactivateRequest struct {
	EndedAt *time.Time `json:"ended_at,omitempty"`
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	caregiverID, err := caregiverIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req deactivateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	caregiver, err := h.caregivers.Deactivate(r.Context(), caregiverID, req.EndedAt)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caregiver)
}

func (h *Handler) handleUpdateChecklist(w http.ResponseWriter, r *http.Request) {
	caregiverID, err := caregiverIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var update models.ChecklistUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, err)
		return
	}
	caregiver, err := h.caregivers.UpdateChecklist(r.Context(), caregiverID, update)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caregiver)
}

func (h *Handler) handleAddToClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return
	}
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	caregiver, err := h.caregivers.AddToClient(r.Context(), clientID, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, caregiver)
}

func (h *Handler) handleListByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid client id"))
		return
	}
	caregivers, err := h.caregivers.ListByClient(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, caregivers)
}

func caregiverIDParam(r *http.Request) (id.CaregiverID, error) {
	caregiverID, err := id.ParseCaregiverID(chi.URLParam(r, "caregiverID"))
	if err != nil {
		return id.CaregiverID{}, dErrors.New(dErrors.CodeValidation, "invalid caregiver id")
	}
	return caregiverID, nil
}
