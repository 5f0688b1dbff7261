// Package handler exposes referral capture and conversion over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carelink/internal/referral/models"
	"carelink/internal/referral/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Handler handles referral endpoints.
type Handler struct {
	referrals *service.Service
	logger    *slog.Logger
}

// New creates a referral Handler.
func New(referrals *service.Service, logger *slog.Logger) *Handler {
	return &Handler{referrals: referrals, logger: logger}
}

// Register mounts the referral routes. The caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/referrals", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{referralID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/checklist", h.handleUpdateChecklist)
			r.Delete("/", h.handleDelete)
			r.Post("/convert", h.handleConvert)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	referral, err := h.referrals.Create(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, referral)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	referrals, err := h.referrals.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, referrals)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	referralID, err := referralIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	referral, err := h.referrals.Get(r.Context(), referralID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, referral)
}

func (h *Handler) handleUpdateChecklist(w http.ResponseWriter, r *http.Request) {
	referralID, err := referralIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var update service.ChecklistUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, err)
		return
	}
	referral, err := h.referrals.UpdateChecklist(r.Context(), referralID, update)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, referral)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	referralID, err := referralIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.referrals.Delete(r.Context(), referralID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	referralID, err := referralIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var form models.IntakeForm
	if err := shared.DecodeJSON(r, &form); err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.referrals.Convert(r.Context(), referralID, form)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, client)
}

func referralIDParam(r *http.Request) (id.ReferralID, error) {
	referralID, err := id.ParseReferralID(chi.URLParam(r, "referralID"))
	if err != nil {
		return id.ReferralID{}, dErrors.New(dErrors.CodeValidation, "invalid referral id")
	}
	return referralID, nil
}
