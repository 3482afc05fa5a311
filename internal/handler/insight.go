package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/service"
)

// InsightHandler serves the derived insight endpoints.
type InsightHandler struct {
	svc    *service.InsightService
	logger *slog.Logger
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(svc *service.InsightService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{svc: svc, logger: logger}
}

// FollowUps handles GET /api/v1/insights/follow-ups.
func (h *InsightHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FollowUps(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(items))
}

// Birthdays handles GET /api/v1/insights/birthdays?days=30.
func (h *InsightHandler) Birthdays(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", service.DefaultBirthdayDays)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.Birthdays(r.Context(), auth.UserIDFromContext(r.Context()), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(items))
}

// ActionItems handles GET /api/v1/insights/action-items.
func (h *InsightHandler) ActionItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ActionItems(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(items))
}

// Priorities handles GET /api/v1/insights/priorities?limit=10.
func (h *InsightHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", service.DefaultPriorityLimit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.Priorities(r.Context(), auth.UserIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(items))
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
