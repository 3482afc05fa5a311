package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/integration"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
)

// fakeProviderAPI returns canned provider data and records the access
// tokens it was called with.
type fakeProviderAPI struct {
	contacts []integration.ImportedContact
	events   []integration.CalendarEvent
	err      error
	tokens   []string
}

func (f *fakeProviderAPI) Context(ctx context.Context) context.Context { return ctx }

func (f *fakeProviderAPI) record(ts oauth2.TokenSource) error {
	tok, err := ts.Token()
	if err != nil {
		return err
	}
	f.tokens = append(f.tokens, tok.AccessToken)
	return f.err
}

func (f *fakeProviderAPI) ListEvents(_ context.Context, ts oauth2.TokenSource, _ int, _ time.Time) ([]integration.CalendarEvent, error) {
	if err := f.record(ts); err != nil {
		return nil, err
	}
	return f.events, nil
}

func (f *fakeProviderAPI) CreateEvent(_ context.Context, ts oauth2.TokenSource, ev integration.NewCalendarEvent) (*integration.CalendarEvent, error) {
	if err := f.record(ts); err != nil {
		return nil, err
	}
	return &integration.CalendarEvent{ID: "evt1", Summary: ev.Summary}, nil
}

func (f *fakeProviderAPI) GoogleContacts(_ context.Context, ts oauth2.TokenSource) ([]integration.ImportedContact, error) {
	if err := f.record(ts); err != nil {
		return nil, err
	}
	return f.contacts, nil
}

func (f *fakeProviderAPI) LinkedInConnections(ctx context.Context, ts oauth2.TokenSource) ([]integration.ImportedContact, error) {
	return f.GoogleContacts(ctx, ts)
}

type integrationFixture struct {
	svc    *IntegrationService
	store  *memStore
	states *fakeStates
	api    *fakeProviderAPI
	pub    *fakePublisher
	rec    *metrics.InMemoryRecorder
}

func newIntegrationFixture(t *testing.T) *integrationFixture {
	t.Helper()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	registry := integration.NewRegistry(integration.RegistryConfig{
		BaseURL:  "https://api.example.com",
		Google:   integration.Credentials{ClientID: "gid", ClientSecret: "gsecret"},
		LinkedIn: integration.Credentials{ClientID: "lid", ClientSecret: "lsecret"},
	})
	endpoint := oauth2.Endpoint{AuthURL: tokenServer.URL + "/auth", TokenURL: tokenServer.URL + "/token"}
	for _, p := range model.Providers {
		registry.SetEndpoint(p, endpoint)
	}

	f := &integrationFixture{
		store:  newMemStore(),
		states: newFakeStates(),
		api: &fakeProviderAPI{contacts: []integration.ImportedContact{
			{ExternalID: "c1", FirstName: "Ada", Email: "ada@example.com"},
			{ExternalID: "c2", FirstName: "Charles", Company: " Engines "},
		}},
		pub: &fakePublisher{},
		rec: metrics.NewInMemory(),
	}
	f.svc = NewIntegrationService(f.store, f.states, registry, f.api, f.pub, IntegrationConfig{
		StateTTL:    10 * time.Minute,
		FrontendURL: "https://app.example.com/",
	}, f.rec, discardLogger())
	return f
}

func TestIntegrationService_AuthURL(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)

	raw, err := f.svc.AuthURL(context.Background(), "u1", model.ProviderGoogleCalendar)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, f.states.only(), q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://api.example.com/api/v1/integrations/google_calendar/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "calendar.settings.readonly")

	_, err = f.svc.AuthURL(context.Background(), "u1", "myspace")
	requireAppErr(t, err, http.StatusNotFound, CodeUnsupportedProvider)
}

func TestIntegrationService_AuthURLUnconfigured(t *testing.T) {
	t.Parallel()
	svc := NewIntegrationService(newMemStore(), newFakeStates(),
		integration.NewRegistry(integration.RegistryConfig{BaseURL: "https://api.example.com"}),
		&fakeProviderAPI{}, nil, IntegrationConfig{}, nil, discardLogger())

	_, err := svc.AuthURL(context.Background(), "u1", model.ProviderLinkedIn)
	requireAppErr(t, err, http.StatusBadRequest, CodeProviderNotConfigured)
}

func TestIntegrationService_CallbackImportsContacts(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()

	_, err := f.svc.AuthURL(ctx, "u1", model.ProviderGmail)
	require.NoError(t, err)
	state := f.states.only()

	redirect := f.svc.Callback(ctx, model.ProviderGmail, "good", state)
	assert.Equal(t, "https://app.example.com/settings/integrations?provider=gmail&success=true", redirect)

	tok, err := f.store.GetIntegrationToken(ctx, "u1", model.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	require.NotNil(t, tok.ExpiresAt)

	contacts, err := f.store.ListAllContacts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.Equal(t, model.SourceGoogle, c.Source)
		if c.FirstName == "Charles" {
			assert.Equal(t, "Engines", *c.Company)
		}
	}
	assert.Equal(t, []string{activity.KindContactImported, activity.KindContactImported}, f.pub.kinds())
	assert.Equal(t, uint64(1), f.rec.Snapshot().OAuthCallbacks["gmail:success"])

	// States are single use.
	redirect = f.svc.Callback(ctx, model.ProviderGmail, "good", state)
	assert.Equal(t, "https://app.example.com/settings/integrations?error=invalid_state", redirect)
}

func TestIntegrationService_CallbackFailures(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()

	assert.Contains(t, f.svc.Callback(ctx, model.ProviderGmail, "good", ""), "error=invalid_state")
	assert.Contains(t, f.svc.Callback(ctx, model.ProviderGmail, "good", "unknown"), "error=invalid_state")

	_, err := f.svc.AuthURL(ctx, "u1", model.ProviderGmail)
	require.NoError(t, err)
	assert.Contains(t, f.svc.Callback(ctx, model.ProviderLinkedIn, "good", f.states.only()), "error=invalid_state",
		"a state is bound to its provider")

	_, err = f.svc.AuthURL(ctx, "u1", model.ProviderGoogleCalendar)
	require.NoError(t, err)
	assert.Contains(t, f.svc.Callback(ctx, model.ProviderGoogleCalendar, "bad", f.states.only()), "error=auth_failed")

	_, err = f.store.GetIntegrationToken(ctx, "u1", model.ProviderGoogleCalendar)
	assert.Error(t, err, "no token is stored on failure")
}

func TestIntegrationService_StatusAndDisconnect(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = fixedClock(now)

	status, err := f.svc.Status(ctx, "u1", model.ProviderLinkedIn)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.False(t, status.Authenticated)

	expired := now.Add(-time.Minute)
	require.NoError(t, f.store.UpsertIntegrationToken(ctx, &model.IntegrationToken{
		UserID: "u1", Provider: model.ProviderLinkedIn, AccessToken: "old", ExpiresAt: &expired,
	}))
	status, err = f.svc.Status(ctx, "u1", model.ProviderLinkedIn)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.False(t, status.Authenticated)

	require.NoError(t, f.svc.Disconnect(ctx, "u1", model.ProviderLinkedIn))
	err = f.svc.Disconnect(ctx, "u1", model.ProviderLinkedIn)
	requireAppErr(t, err, http.StatusNotFound, CodeNotConnected)

	_, err = f.svc.Status(ctx, "u1", "myspace")
	requireAppErr(t, err, http.StatusNotFound, CodeUnsupportedProvider)
}

func TestIntegrationService_Sync(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, "u1", model.ProviderLinkedIn)
	requireAppErr(t, err, http.StatusBadRequest, CodeNotConnected)

	_, err = f.svc.Sync(ctx, "u1", model.ProviderGoogleCalendar)
	requireAppErr(t, err, http.StatusBadRequest, CodeUnsupportedProvider)

	future := time.Now().Add(time.Hour)
	require.NoError(t, f.store.UpsertIntegrationToken(ctx, &model.IntegrationToken{
		UserID: "u1", Provider: model.ProviderLinkedIn, AccessToken: "live", TokenType: "Bearer", ExpiresAt: &future,
	}))

	res, err := f.svc.Sync(ctx, "u1", model.ProviderLinkedIn)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, res.Updated)

	res, err = f.svc.Sync(ctx, "u1", model.ProviderLinkedIn)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, "live", f.api.tokens[0])
}

func TestIntegrationService_RefreshedTokenIsPersisted(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, f.store.UpsertIntegrationToken(ctx, &model.IntegrationToken{
		UserID: "u1", Provider: model.ProviderGoogleCalendar, AccessToken: "stale", RefreshToken: "rt-0",
		TokenType: "Bearer", ExpiresAt: &expired,
	}))

	_, err := f.svc.CalendarEvents(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"at-1"}, f.api.tokens)

	tok, err := f.store.GetIntegrationToken(ctx, "u1", model.ProviderGoogleCalendar)
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
}

func TestIntegrationService_CalendarEvents(t *testing.T) {
	t.Parallel()
	f := newIntegrationFixture(t)
	ctx := context.Background()

	_, err := f.svc.CalendarEvents(ctx, "u1", 10)
	requireAppErr(t, err, http.StatusBadRequest, CodeNotConnected)

	_, err = f.svc.CalendarEvents(ctx, "u1", 0)
	requireAppErr(t, err, http.StatusBadRequest, CodeInvalidRange)

	future := time.Now().Add(time.Hour)
	require.NoError(t, f.store.UpsertIntegrationToken(ctx, &model.IntegrationToken{
		UserID: "u1", Provider: model.ProviderGoogleCalendar, AccessToken: "live", TokenType: "Bearer", ExpiresAt: &future,
	}))

	start := time.Now().Add(24 * time.Hour)
	_, err = f.svc.CreateCalendarEvent(ctx, "u1", integration.NewCalendarEvent{Summary: "Sync", Start: start, End: start})
	requireAppErr(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	ev, err := f.svc.CreateCalendarEvent(ctx, "u1", integration.NewCalendarEvent{Summary: "Sync", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Sync", ev.Summary)

	f.api.err = &integration.APIError{Provider: "google", StatusCode: http.StatusUnauthorized, Body: "revoked"}
	_, err = f.svc.CalendarEvents(ctx, "u1", 10)
	appErr := requireAppErr(t, err, http.StatusBadRequest, CodeNotConnected)
	assert.True(t, strings.Contains(appErr.Message, model.ProviderGoogleCalendar))
}
