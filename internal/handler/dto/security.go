package dto

import "github.com/wisedom/wisedom/internal/service"

// CreateSecurityEventRequest is the body of POST /security-events.
type CreateSecurityEventRequest struct {
	EventType string         `json:"event_type" validate:"required,oneof=login logout password_change permission_change data_access data_modification security_setting_change"`
	Severity  string         `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Details   map[string]any `json:"details"`
}

// ToInput converts the request to a service input.
func (r CreateSecurityEventRequest) ToInput() service.SecurityEventInput {
	return service.SecurityEventInput{
		EventType: r.EventType,
		Severity:  r.Severity,
		Details:   r.Details,
	}
}
