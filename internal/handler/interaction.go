package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
)

// InteractionHandler handles HTTP requests for contact interactions.
type InteractionHandler struct {
	svc    *service.InteractionService
	logger *slog.Logger
}

// NewInteractionHandler creates a new InteractionHandler.
func NewInteractionHandler(svc *service.InteractionService, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/contact-interactions.
func (h *InteractionHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	contactID, err := optionalUUID(r, "contact_id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), contactID, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, items, params, total)
}

// Get handles GET /api/v1/contact-interactions/{id}.
func (h *InteractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	i, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, i)
}

// Create handles POST /api/v1/contact-interactions.
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateInteractionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	i, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToInput())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, i)
}

// Update handles PATCH /api/v1/contact-interactions/{id}.
func (h *InteractionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateInteractionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	i, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req.ToPatch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, i)
}

// Delete handles DELETE /api/v1/contact-interactions/{id}.
func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
