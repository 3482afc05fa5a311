package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
)

// MemberHandler handles HTTP requests for project memberships.
type MemberHandler struct {
	svc    *service.MemberService
	logger *slog.Logger
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(svc *service.MemberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/project-members?project_id=.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	projectID, err := optionalUUID(r, "project_id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	members, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), projectID, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, members, params, total)
}

// Add handles POST /api/v1/project-members.
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	m, err := h.svc.Add(r.Context(), auth.UserIDFromContext(r.Context()), service.MemberInput{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Role:      req.Role,
	}, requestMeta(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

// Update handles PATCH /api/v1/project-members/{id}.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	m, err := h.svc.UpdateRole(r.Context(), auth.UserIDFromContext(r.Context()), id, req.Role, requestMeta(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

// Remove handles DELETE /api/v1/project-members/{id}.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Remove(r.Context(), auth.UserIDFromContext(r.Context()), id, requestMeta(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
