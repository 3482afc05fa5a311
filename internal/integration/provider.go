// Package integration talks to third-party OAuth providers: Google Calendar,
// Google contacts (gmail) and LinkedIn.
package integration

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/wisedom/wisedom/internal/model"
)

// Sentinel errors for provider lookups.
var (
	ErrUnknownProvider = errors.New("unknown integration provider")
	ErrNotConfigured   = errors.New("integration provider not configured")
)

var providerScopes = map[string][]string{
	model.ProviderGoogleCalendar: {
		"https://www.googleapis.com/auth/calendar",
		"https://www.googleapis.com/auth/calendar.events",
		"https://www.googleapis.com/auth/calendar.settings.readonly",
	},
	model.ProviderGmail: {
		"https://www.googleapis.com/auth/contacts.readonly",
		"https://www.googleapis.com/auth/userinfo.email",
	},
	model.ProviderLinkedIn: {
		"r_liteprofile",
		"r_emailaddress",
		"w_member_social",
	},
}

// Credentials is an OAuth client ID and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) set() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RegistryConfig configures the provider registry.
type RegistryConfig struct {
	// BaseURL is the public API origin used to build redirect URIs.
	BaseURL  string
	Google   Credentials
	LinkedIn Credentials
}

// Registry holds one oauth2.Config per configured provider.
type Registry struct {
	configs map[string]*oauth2.Config
}

// NewRegistry builds configs for every provider with credentials.
// Google Calendar and gmail share the Google client.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{configs: make(map[string]*oauth2.Config)}

	if cfg.Google.set() {
		for _, p := range []string{model.ProviderGoogleCalendar, model.ProviderGmail} {
			r.configs[p] = newConfig(cfg.BaseURL, p, cfg.Google, endpoints.Google)
		}
	}
	if cfg.LinkedIn.set() {
		r.configs[model.ProviderLinkedIn] = newConfig(cfg.BaseURL, model.ProviderLinkedIn, cfg.LinkedIn, endpoints.LinkedIn)
	}
	return r
}

func newConfig(baseURL, provider string, creds Credentials, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  RedirectURL(baseURL, provider),
		Scopes:       providerScopes[provider],
	}
}

// Config returns the OAuth config for provider.
func (r *Registry) Config(provider string) (*oauth2.Config, error) {
	if !model.IsValidProvider(provider) {
		return nil, ErrUnknownProvider
	}
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, ErrNotConfigured
	}
	return cfg, nil
}

// SetEndpoint overrides a provider's token and auth endpoints.
func (r *Registry) SetEndpoint(provider string, endpoint oauth2.Endpoint) {
	if cfg, ok := r.configs[provider]; ok {
		cfg.Endpoint = endpoint
	}
}

// RedirectURL is the callback URL registered with a provider.
func RedirectURL(baseURL, provider string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/integrations/" + provider + "/callback"
}

// Scopes returns the scopes requested for provider.
func Scopes(provider string) []string {
	return append([]string(nil), providerScopes[provider]...)
}
