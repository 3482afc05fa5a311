package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/cache"
	"github.com/wisedom/wisedom/internal/integration"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

// Calendar listing bounds.
const (
	DefaultCalendarResults = 10
	MaxCalendarResults     = 250
)

// IntegrationStore persists OAuth tokens and imported contacts.
type IntegrationStore interface {
	UpsertIntegrationToken(ctx context.Context, t *model.IntegrationToken) error
	GetIntegrationToken(ctx context.Context, userID, provider string) (*model.IntegrationToken, error)
	DeleteIntegrationToken(ctx context.Context, userID, provider string) error
	UpsertImportedContact(ctx context.Context, c *model.Contact) (bool, error)
}

// OAuthStateStore keeps pending authorization states.
type OAuthStateStore interface {
	SaveOAuthState(ctx context.Context, state string, st cache.OAuthState, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (*cache.OAuthState, error)
}

// ProviderAPI calls provider APIs with a user's token.
type ProviderAPI interface {
	Context(ctx context.Context) context.Context
	ListEvents(ctx context.Context, ts oauth2.TokenSource, maxResults int, now time.Time) ([]integration.CalendarEvent, error)
	CreateEvent(ctx context.Context, ts oauth2.TokenSource, ev integration.NewCalendarEvent) (*integration.CalendarEvent, error)
	GoogleContacts(ctx context.Context, ts oauth2.TokenSource) ([]integration.ImportedContact, error)
	LinkedInConnections(ctx context.Context, ts oauth2.TokenSource) ([]integration.ImportedContact, error)
}

// IntegrationConfig configures the OAuth flows.
type IntegrationConfig struct {
	StateTTL    time.Duration
	FrontendURL string
}

// IntegrationService connects users to Google and LinkedIn.
type IntegrationService struct {
	store     IntegrationStore
	states    OAuthStateStore
	providers *integration.Registry
	api       ProviderAPI
	publisher ActivityPublisher
	cfg       IntegrationConfig
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       Clock
}

// NewIntegrationService creates an IntegrationService. publisher may be nil.
func NewIntegrationService(
	store IntegrationStore,
	states OAuthStateStore,
	providers *integration.Registry,
	api ProviderAPI,
	publisher ActivityPublisher,
	cfg IntegrationConfig,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *IntegrationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IntegrationService{
		store:     store,
		states:    states,
		providers: providers,
		api:       api,
		publisher: publisher,
		cfg:       cfg,
		metrics:   recorder,
		logger:    logger.With("component", "service.integrations"),
		now:       utcNow,
	}
}

var errNotConnected = apperr.BadRequest(CodeNotConnected, "Integration is not connected")

// config resolves a provider's OAuth config.
func (s *IntegrationService) config(provider string) (*oauth2.Config, error) {
	cfg, err := s.providers.Config(provider)
	switch {
	case errors.Is(err, integration.ErrUnknownProvider):
		return nil, apperr.NotFound(CodeUnsupportedProvider, "Unknown integration provider")
	case errors.Is(err, integration.ErrNotConfigured):
		return nil, apperr.BadRequest(CodeProviderNotConfigured, "Integration provider is not configured")
	case err != nil:
		return nil, err
	}
	return cfg, nil
}

// AuthURL starts an authorization flow and returns the provider consent URL.
func (s *IntegrationService) AuthURL(ctx context.Context, userID, provider string) (string, error) {
	cfg, err := s.config(provider)
	if err != nil {
		return "", err
	}

	state, err := auth.RandomState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := s.states.SaveOAuthState(ctx, state, cache.OAuthState{UserID: userID, Provider: provider}, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// settingsURL is the frontend page the callback redirects to.
func (s *IntegrationService) settingsURL(q url.Values) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/settings/integrations?" + q.Encode()
}

// Callback completes an authorization flow and returns where to redirect the
// browser. It never fails: problems are reported through the redirect.
func (s *IntegrationService) Callback(ctx context.Context, provider, code, state string) string {
	fail := func(reason string) string {
		s.metrics.IncOAuthCallback(provider, "failure")
		return s.settingsURL(url.Values{"error": {reason}})
	}

	if state == "" {
		return fail("invalid_state")
	}
	st, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Error("oauth_state_lookup_failed", "provider", provider, "error", err)
		}
		return fail("invalid_state")
	}
	if st.Provider != provider {
		s.logger.Warn("oauth_state_provider_mismatch", "provider", provider, "state_provider", st.Provider)
		return fail("invalid_state")
	}

	cfg, err := s.config(provider)
	if err != nil || code == "" {
		return fail("auth_failed")
	}

	tok, err := cfg.Exchange(s.api.Context(ctx), code)
	if err != nil {
		s.logger.Warn("oauth_exchange_failed", "provider", provider, "user_id", st.UserID, "error", err)
		return fail("auth_failed")
	}

	previous, err := s.store.GetIntegrationToken(ctx, st.UserID, provider)
	if err != nil && !errors.Is(err, repository.ErrIntegrationNotFound) {
		s.logger.Error("integration_token_lookup_failed", "provider", provider, "user_id", st.UserID, "error", err)
		return fail("auth_failed")
	}
	stored := integration.FromOAuth2(st.UserID, provider, tok, previous)
	if err := s.store.UpsertIntegrationToken(ctx, stored); err != nil {
		s.logger.Error("integration_token_save_failed", "provider", provider, "user_id", st.UserID, "error", err)
		return fail("auth_failed")
	}

	if model.ImportsContacts(provider) {
		if _, err := s.importContacts(ctx, cfg, stored); err != nil {
			s.logger.Warn("contact_import_failed", "provider", provider, "user_id", st.UserID, "error", err)
			return fail("auth_failed")
		}
	}

	s.metrics.IncOAuthCallback(provider, "success")
	s.logger.Info("integration_connected", "provider", provider, "user_id", st.UserID)
	return s.settingsURL(url.Values{"provider": {provider}, "success": {"true"}})
}

// Status reports whether the user is connected to provider.
func (s *IntegrationService) Status(ctx context.Context, userID, provider string) (*model.IntegrationStatus, error) {
	if !model.IsValidProvider(provider) {
		return nil, apperr.NotFound(CodeUnsupportedProvider, "Unknown integration provider")
	}

	status := &model.IntegrationStatus{Provider: provider}
	tok, err := s.store.GetIntegrationToken(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, repository.ErrIntegrationNotFound) {
			return status, nil
		}
		return nil, err
	}

	status.Connected = true
	status.ExpiresAt = tok.ExpiresAt
	status.Authenticated = !tok.IsExpired(s.now())
	return status, nil
}

// Disconnect forgets the user's token for provider.
func (s *IntegrationService) Disconnect(ctx context.Context, userID, provider string) error {
	if !model.IsValidProvider(provider) {
		return apperr.NotFound(CodeUnsupportedProvider, "Unknown integration provider")
	}
	if err := s.store.DeleteIntegrationToken(ctx, userID, provider); err != nil {
		return notFound(err, repository.ErrIntegrationNotFound, CodeNotConnected, "Integration is not connected")
	}
	s.logger.Info("integration_disconnected", "provider", provider, "user_id", userID)
	return nil
}

// tokenSource loads the user's token and wraps it for refresh.
func (s *IntegrationService) tokenSource(ctx context.Context, userID, provider string) (oauth2.TokenSource, error) {
	cfg, err := s.config(provider)
	if err != nil {
		return nil, err
	}
	tok, err := s.store.GetIntegrationToken(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, repository.ErrIntegrationNotFound) {
			return nil, errNotConnected
		}
		return nil, err
	}
	return integration.NewTokenSource(s.api.Context(ctx), cfg, s.store, tok, s.logger), nil
}

// Sync re-imports contacts from gmail or LinkedIn.
func (s *IntegrationService) Sync(ctx context.Context, userID, provider string) (*model.ImportResult, error) {
	if !model.IsValidProvider(provider) {
		return nil, apperr.NotFound(CodeUnsupportedProvider, "Unknown integration provider")
	}
	if !model.ImportsContacts(provider) {
		return nil, apperr.BadRequest(CodeUnsupportedProvider, "This provider does not import contacts")
	}

	cfg, err := s.config(provider)
	if err != nil {
		return nil, err
	}
	tok, err := s.store.GetIntegrationToken(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, repository.ErrIntegrationNotFound) {
			return nil, errNotConnected
		}
		return nil, err
	}

	res, err := s.importContacts(ctx, cfg, tok)
	if err != nil {
		return nil, providerFailure(provider, err)
	}
	return res, nil
}

// importContacts fetches contacts from the provider and upserts them.
func (s *IntegrationService) importContacts(ctx context.Context, cfg *oauth2.Config, tok *model.IntegrationToken) (*model.ImportResult, error) {
	ts := integration.NewTokenSource(s.api.Context(ctx), cfg, s.store, tok, s.logger)

	var (
		imported []integration.ImportedContact
		source   string
		err      error
	)
	switch tok.Provider {
	case model.ProviderGmail:
		source = model.SourceGoogle
		imported, err = s.api.GoogleContacts(ctx, ts)
	case model.ProviderLinkedIn:
		source = model.SourceLinkedIn
		imported, err = s.api.LinkedInConnections(ctx, ts)
	default:
		return nil, fmt.Errorf("provider %s does not import contacts", tok.Provider)
	}
	if err != nil {
		return nil, err
	}

	res := &model.ImportResult{Provider: tok.Provider}
	now := s.now()
	for _, ic := range imported {
		externalID := ic.ExternalID
		c := &model.Contact{
			ID:         newID(),
			UserID:     tok.UserID,
			FirstName:  strings.TrimSpace(ic.FirstName),
			LastName:   strings.TrimSpace(ic.LastName),
			Email:      trimmed(&ic.Email),
			Phone:      trimmed(&ic.Phone),
			Company:    trimmed(&ic.Company),
			Title:      trimmed(&ic.Title),
			Birthday:   ic.Birthday,
			Source:     source,
			ExternalID: &externalID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		inserted, err := s.store.UpsertImportedContact(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("upsert imported contact: %w", err)
		}
		if inserted {
			res.Imported++
		} else {
			res.Updated++
		}
		if s.publisher != nil {
			s.publisher.PublishAsync(activity.NewEvent(c.ID, c.UserID, activity.KindContactImported, now))
		}
	}

	s.metrics.IncEntity("contact", "imported")
	s.logger.Info("contacts_imported",
		"provider", tok.Provider,
		"user_id", tok.UserID,
		"imported", res.Imported,
		"updated", res.Updated,
	)
	return res, nil
}

// CalendarEvents lists upcoming events on the user's primary calendar.
func (s *IntegrationService) CalendarEvents(ctx context.Context, userID string, maxResults int) ([]integration.CalendarEvent, error) {
	if maxResults < 1 || maxResults > MaxCalendarResults {
		return nil, apperr.BadRequest(CodeInvalidRange, fmt.Sprintf("max_results must be between 1 and %d", MaxCalendarResults))
	}
	ts, err := s.tokenSource(ctx, userID, model.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}
	events, err := s.api.ListEvents(ctx, ts, maxResults, s.now())
	if err != nil {
		return nil, providerFailure(model.ProviderGoogleCalendar, err)
	}
	return events, nil
}

// CreateCalendarEvent adds an event to the user's primary calendar.
func (s *IntegrationService) CreateCalendarEvent(ctx context.Context, userID string, ev integration.NewCalendarEvent) (*integration.CalendarEvent, error) {
	if !ev.End.After(ev.Start) {
		return nil, fieldError("end", "must be after start")
	}
	ts, err := s.tokenSource(ctx, userID, model.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}
	created, err := s.api.CreateEvent(ctx, ts, ev)
	if err != nil {
		return nil, providerFailure(model.ProviderGoogleCalendar, err)
	}
	s.metrics.IncEntity("calendar_event", metrics.ActionCreated)
	return created, nil
}

// providerFailure maps a rejected token to NOT_CONNECTED and passes other
// errors through as internal failures.
func providerFailure(provider string, err error) error {
	var apiErr *integration.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return apperr.BadRequest(CodeNotConnected, "The "+provider+" connection is no longer authorized").WithCause(err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return apperr.BadRequest(CodeNotConnected, "The "+provider+" connection is no longer authorized").WithCause(err)
	}
	return err
}
