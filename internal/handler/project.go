package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
	"github.com/wisedom/wisedom/internal/validation"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	svc    *service.ProjectService
	logger *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		if err := validation.Var("status", status, "oneof=active completed archived"); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	projects, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), status, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, projects, params, total)
}

// Get handles GET /api/v1/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

// Update handles PATCH /api/v1/projects/{id}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/projects/{id}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), id, requestMeta(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /api/v1/projects/{id}/analytics.
func (h *ProjectHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	a, err := h.svc.Analytics(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, a)
}
