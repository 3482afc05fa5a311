package model

import "time"

// Security event types.
const (
	EventLogin                 = "login"
	EventLogout                = "logout"
	EventPasswordChange        = "password_change"
	EventPermissionChange      = "permission_change"
	EventDataAccess            = "data_access"
	EventDataModification      = "data_modification"
	EventSecuritySettingChange = "security_setting_change"
)

// Severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEventSortFields are the allowed sort_by values for security events.
var SecurityEventSortFields = []string{"created_at", "severity", "event_type"}

// SecurityEvent is an append-only audit record.
type SecurityEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Severity  string         `json:"severity"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SecurityEventFilter narrows a security event listing.
// An empty UserID means all users (admin only).
type SecurityEventFilter struct {
	UserID    string
	EventType string
	Severity  string
}
