package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
)

// RelationshipHandler handles HTTP requests for contact relationships.
type RelationshipHandler struct {
	svc    *service.RelationshipService
	logger *slog.Logger
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(svc *service.RelationshipService, logger *slog.Logger) *RelationshipHandler {
	return &RelationshipHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/contact-relationships.
func (h *RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
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

	rels, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), contactID, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, rels, params, total)
}

// Get handles GET /api/v1/contact-relationships/{id}.
func (h *RelationshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rel, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, rel)
}

// Create handles POST /api/v1/contact-relationships.
func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRelationshipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rel, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToInput())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, rel)
}

// Update handles PATCH /api/v1/contact-relationships/{id}.
func (h *RelationshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateRelationshipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rel, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req.ToPatch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, rel)
}

// Delete handles DELETE /api/v1/contact-relationships/{id}.
func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
