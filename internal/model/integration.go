package model

import (
	"slices"
	"time"
)

// Integration providers.
const (
	ProviderGoogleCalendar = "google_calendar"
	ProviderGmail          = "gmail"
	ProviderLinkedIn       = "linkedin"
)

// Providers lists every supported integration.
var Providers = []string{ProviderGoogleCalendar, ProviderGmail, ProviderLinkedIn}

// IsValidProvider reports whether p is a supported provider.
func IsValidProvider(p string) bool {
	return slices.Contains(Providers, p)
}

// ImportsContacts reports whether the provider can import contacts.
func ImportsContacts(p string) bool {
	return p == ProviderGmail || p == ProviderLinkedIn
}

// IntegrationToken is a stored OAuth token for one user and provider.
// Token material is never serialized.
type IntegrationToken struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"token_type"`
	Scope        string     `json:"scope,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired reports whether the access token has expired.
// Tokens without an expiry never expire.
func (t *IntegrationToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// IntegrationStatus is returned by the status endpoint.
type IntegrationStatus struct {
	Provider      string     `json:"provider"`
	Connected     bool       `json:"connected"`
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ImportResult summarises a contact import run.
type ImportResult struct {
	Provider string `json:"provider"`
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
}
