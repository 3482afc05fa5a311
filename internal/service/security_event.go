package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/wisedom/wisedom/internal/model"
)

// SecurityEventStore persists audit events.
type SecurityEventStore interface {
	CreateSecurityEvent(ctx context.Context, e *model.SecurityEvent) error
	ListSecurityEvents(ctx context.Context, filter model.SecurityEventFilter, params model.ListParams) ([]*model.SecurityEvent, int, error)
}

// SecurityEventService records and lists security events.
type SecurityEventService struct {
	store  SecurityEventStore
	logger *slog.Logger
	now    Clock
}

// NewSecurityEventService creates a SecurityEventService.
func NewSecurityEventService(store SecurityEventStore, logger *slog.Logger) *SecurityEventService {
	return &SecurityEventService{
		store:  store,
		logger: logger.With("component", "service.security_events"),
		now:    utcNow,
	}
}

// SecurityEventInput is the body of a client-submitted event.
type SecurityEventInput struct {
	EventType string
	Severity  string
	Details   map[string]any
}

// Create stores an event for the caller.
func (s *SecurityEventService) Create(ctx context.Context, userID string, in SecurityEventInput, meta RequestMeta) (*model.SecurityEvent, error) {
	severity := in.Severity
	if severity == "" {
		severity = model.SeverityMedium
	}

	e := &model.SecurityEvent{
		ID:        ulid.Make().String(),
		UserID:    userID,
		EventType: in.EventType,
		Severity:  severity,
		Details:   in.Details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSecurityEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create security event: %w", err)
	}
	return e, nil
}

// Record stores an internally generated event. Failures are logged and
// never interrupt the calling operation.
func (s *SecurityEventService) Record(ctx context.Context, userID, eventType, severity string, details map[string]any, meta RequestMeta) {
	_, err := s.Create(ctx, userID, SecurityEventInput{
		EventType: eventType,
		Severity:  severity,
		Details:   details,
	}, meta)
	if err != nil {
		s.logger.Error("security_event_record_failed",
			"event_type", eventType,
			"user_id", userID,
			"error", err,
		)
	}
}

// SecurityEventQuery filters a listing. UserID is honoured for admins only.
type SecurityEventQuery struct {
	UserID    string
	EventType string
	Severity  string
}

// List returns events visible to the caller. Non-admins only ever see their
// own events. Admins see everything unless they pass a user_id.
func (s *SecurityEventService) List(ctx context.Context, ac *model.AuthContext, q SecurityEventQuery, params model.ListParams) ([]*model.SecurityEvent, int, error) {
	if err := checkSort(params, model.SecurityEventSortFields); err != nil {
		return nil, 0, err
	}

	filter := model.SecurityEventFilter{
		UserID:    ac.UserID,
		EventType: q.EventType,
		Severity:  q.Severity,
	}
	if ac.IsAdmin() {
		filter.UserID = q.UserID
	}

	return s.store.ListSecurityEvents(ctx, filter, params)
}
