package handler

import (
	"log/slog"
	"net/http"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/handler/dto"
	"github.com/wisedom/wisedom/internal/service"
	"github.com/wisedom/wisedom/internal/validation"
)

// SecurityEventHandler serves the audit log.
type SecurityEventHandler struct {
	svc    *service.SecurityEventService
	logger *slog.Logger
}

// NewSecurityEventHandler creates a new SecurityEventHandler.
func NewSecurityEventHandler(svc *service.SecurityEventService, logger *slog.Logger) *SecurityEventHandler {
	return &SecurityEventHandler{svc: svc, logger: logger}
}

type securityEventQuery struct {
	UserID    string `json:"user_id" validate:"omitempty,uuid"`
	EventType string `json:"event_type" validate:"omitempty,oneof=login logout password_change permission_change data_access data_modification security_setting_change"`
	Severity  string `json:"severity" validate:"omitempty,oneof=low medium high critical"`
}

// List handles GET /api/v1/security-events.
func (h *SecurityEventHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := securityEventQuery{
		UserID:    q.Get("user_id"),
		EventType: q.Get("event_type"),
		Severity:  q.Get("severity"),
	}
	if err := validation.Struct(filter); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	events, total, err := h.svc.List(r.Context(), auth.MustAuthFromContext(r.Context()), service.SecurityEventQuery{
		UserID:    filter.UserID,
		EventType: filter.EventType,
		Severity:  filter.Severity,
	}, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, events, params, total)
}

// Create handles POST /api/v1/security-events.
func (h *SecurityEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSecurityEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.svc.Create(r.Context(), auth.UserIDFromContext(r.Context()), req.ToInput(), requestMeta(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, e)
}
