package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
)

// IntegrationHandler handles the OAuth provider routes.
type IntegrationHandler struct {
	svc    *service.IntegrationService
	logger *slog.Logger
}

// NewIntegrationHandler creates a new IntegrationHandler.
func NewIntegrationHandler(svc *service.IntegrationService, logger *slog.Logger) *IntegrationHandler {
	return &IntegrationHandler{svc: svc, logger: logger}
}

// AuthURL handles GET /api/v1/integrations/{provider}/auth.
func (h *IntegrationHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.AuthURL(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, dto.AuthURLResponse{URL: url})
}

// Callback handles GET /api/v1/integrations/{provider}/callback. It runs
// without a session and always answers with a redirect to the frontend.
func (h *IntegrationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := h.svc.Callback(r.Context(), chi.URLParam(r, "provider"), q.Get("code"), q.Get("state"))
	http.Redirect(w, r, target, http.StatusFound)
}

// Status handles GET /api/v1/integrations/{provider}/status.
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

// Disconnect handles DELETE /api/v1/integrations/{provider}.
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "provider")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/v1/integrations/{provider}/sync.
func (h *IntegrationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sync(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// CalendarEvents handles GET /api/v1/integrations/google_calendar/events.
func (h *IntegrationHandler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	maxResults, err := queryInt(r, "max_results", service.DefaultCalendarResults)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	events, err := h.svc.CalendarEvents(r.Context(), auth.UserIDFromContext(r.Context()), maxResults)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(events))
}

// CreateCalendarEvent handles POST /api/v1/integrations/google_calendar/events.
func (h *IntegrationHandler) CreateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCalendarEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ev, err := h.svc.CreateCalendarEvent(r.Context(), auth.UserIDFromContext(r.Context()), req.ToEvent())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, ev)
}
