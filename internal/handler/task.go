package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
	"github.com/wisedom/wisedom/internal/validation"
)

// TaskHandler handles HTTP requests for project tasks.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// taskQuery is the set of optional list filters.
type taskQuery struct {
	ProjectID  string `json:"project_id" validate:"omitempty,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo string `json:"assigned_to" validate:"omitempty,uuid"`
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := taskQuery{
		ProjectID:  q.Get("project_id"),
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssignedTo: q.Get("assigned_to"),
	}
	if err := validation.Struct(filter); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tasks, total, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), service.TaskQuery{
		ProjectID:  filter.ProjectID,
		Status:     filter.Status,
		Priority:   filter.Priority,
		AssignedTo: filter.AssignedTo,
	}, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, tasks, params, total)
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.svc.Get(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToInput())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

// Update handles PATCH /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req dto.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	t, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), id, req.ToPatch())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
