// Package handler exposes the client lifecycle over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carelink/internal/client/models"
	"carelink/internal/client/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Handler handles client endpoints.
type Handler struct {
	clients *service.Service
	logger  *slog.Logger
}

// New creates a client Handler.
func New(clients *service.Service, logger *slog.Logger) *Handler {
	return &Handler{clients: clients, logger: logger}
}

// Register mounts the client routes. The caller applies auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/count", h.handleCount)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/detail", h.handleGetDetail)
			r.Patch("/", h.handleUpdateDetails)
			r.Patch("/checklist", h.handleUpdateChecklist)
			r.Get("/can-advance", h.handleCanAdvance)
			r.Post("/advance", h.handleAdvancePhase)
			r.Put("/phase", h.handleCorrectPhase)
			r.Delete("/", h.handleDelete)
			r.Post("/notes", h.handleAddNote)
			r.Get("/notes", h.handleListNotes)
		})
	})
	r.Delete("/notes/{noteID}", h.handleDeleteNote)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.Create(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, client)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	clients, err := h.clients.List(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, clients)
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.clients.Count(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.Get(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) handleGetDetail(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	detail, err := h.clients.GetDetail(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var update models.DetailsUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.UpdateDetails(r.Context(), clientID, update)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) handleUpdateChecklist(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var update models.ChecklistUpdate
	if err := shared.DecodeJSON(r, &update); err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.UpdateChecklist(r.Context(), clientID, update)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, client)
}

func (h *Handler) handleCanAdvance(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	ready, err := h.clients.CanAdvance(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"can_advance": ready})
}

func (h *Handler) handleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.AdvancePhase(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, client)
}

type correctPhaseRequest struct {
	Phase models.Phase `json:"phase"`
}

func (h *Handler) handleCorrectPhase(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req correctPhaseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	client, err := h.clients.CorrectPhase(r.Context(), clientID, req.Phase)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, client)
}

type deleteRequest struct {
	Confirmation string `json:"confirmation"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req deleteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.clients.Delete(r.Context(), clientID, req.Confirmation); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addNoteRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req addNoteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	note, err := h.clients.AddNote(r.Context(), clientID, req.Content)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, note)
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	clientID, err := clientIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	notes, err := h.clients.ListNotes(r.Context(), clientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, notes)
}

func (h *Handler) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, err := id.ParseNoteID(chi.URLParam(r, "noteID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid note id"))
		return
	}
	if err := h.clients.DeleteNote(r.Context(), noteID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientIDParam(r *http.Request) (id.ClientID, error) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		return id.ClientID{}, dErrors.New(dErrors.CodeValidation, "invalid client id")
	}
	return clientID, nil
}

func filterFromQuery(r *http.Request) models.Filter {
	q := r.URL.Query()
	var filter models.Filter
	if v := q.Get("phase"); v != "" {
		phase := models.Phase(v)
		filter.Phase = &phase
	}
	if v := q.Get("status"); v != "" {
		status := models.ClientStatus(v)
		filter.Status = &status
	}
	if v := q.Get("program"); v != "" {
		filter.Program = &v
	}
	if v := q.Get("county"); v != "" {
		filter.County = &v
	}
	filter.SortBy = q.Get("sort_by")
	filter.SortDesc = q.Get("sort_dir") == "desc"
	return filter
}
