package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
)

// requireAppErr asserts err is an *apperr.Error with status and code.
func requireAppErr(t *testing.T, err error, status int, code string) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func newAuthFixture(t *testing.T) (*AuthService, *memStore, *fakeEvictor, *metrics.InMemoryRecorder) {
	t.Helper()
	store := newMemStore()
	evictor := &fakeEvictor{}
	rec := metrics.NewInMemory()
	events := NewSecurityEventService(store, discardLogger())
	svc := NewAuthService(store, evictor, events, AuthConfig{
		SessionTTL:       time.Hour,
		ResetTTL:         time.Hour,
		ExposeResetToken: true,
	}, rec, discardLogger())
	return svc, store, evictor, rec
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	t.Parallel()
	svc, store, _, rec := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "  Ada@Example.com ", Password: "correct horse", FullName: "Ada"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "another one"}, RequestMeta{})
	requireAppErr(t, err, http.StatusConflict, CodeEmailTaken)

	login, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEqual(t, res.Token, login.Token)
	assert.Equal(t, []string{model.EventLogin}, store.eventTypes())
	assert.Equal(t, uint64(1), rec.Snapshot().AuthAttempts["login_succeeded"])
}

func TestAuthService_LoginFailuresAreUniform(t *testing.T) {
	t.Parallel()
	svc, _, _, rec := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"}, RequestMeta{})
	_, unknownUser := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "wrong"}, RequestMeta{})

	a := requireAppErr(t, wrongPassword, http.StatusUnauthorized, CodeInvalidCredentials)
	b := requireAppErr(t, unknownUser, http.StatusUnauthorized, CodeInvalidCredentials)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, uint64(2), rec.Snapshot().AuthAttempts["login_failed"])
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()
	svc, store, evictor, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	require.NoError(t, err)

	var sessionID, hash string
	for id, s := range store.sessions {
		sessionID, hash = id, s.TokenHash
	}

	ac := &model.AuthContext{SessionID: sessionID, UserID: res.User.ID}
	require.NoError(t, svc.Logout(ctx, ac, RequestMeta{}))
	assert.Equal(t, []string{hash}, evictor.evicted)
	assert.NotNil(t, store.sessions[sessionID].RevokedAt)
	assert.Contains(t, store.eventTypes(), model.EventLogout)

	// A second logout of the same session is harmless.
	require.NoError(t, svc.Logout(ctx, ac, RequestMeta{}))
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Parallel()
	svc, store, evictor, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token, "battery staple", RequestMeta{}))
	assert.Len(t, evictor.evicted, 2, "both sessions should be evicted")
	assert.Contains(t, store.eventTypes(), model.EventPasswordChange)

	err = svc.ConfirmPasswordReset(ctx, token, "third password", RequestMeta{})
	requireAppErr(t, err, http.StatusBadRequest, CodeInvalidResetToken)

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	requireAppErr(t, err, http.StatusUnauthorized, CodeInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "battery staple"}, RequestMeta{})
	require.NoError(t, err)
}

func TestAuthService_PasswordResetEdgeCases(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	token, err := svc.RequestPasswordReset(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, token, "unknown emails succeed silently")

	err = svc.ConfirmPasswordReset(ctx, "not-a-token", "whatever pass", RequestMeta{})
	requireAppErr(t, err, http.StatusBadRequest, CodeInvalidResetToken)
}

func TestAuthService_ExpiredResetToken(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "ada@example.com", Password: "correct horse"}, RequestMeta{})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)

	svc.now = fixedClock(time.Now().Add(2 * time.Hour))
	err = svc.ConfirmPasswordReset(ctx, token, "battery staple", RequestMeta{})
	requireAppErr(t, err, http.StatusBadRequest, CodeInvalidResetToken)
}

func TestAuthService_Me(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.Me(context.Background(), newID())
	requireAppErr(t, err, http.StatusNotFound, CodeUserNotFound)
}

func TestSecurityEventService_Visibility(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := NewSecurityEventService(store, discardLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", SecurityEventInput{EventType: model.EventDataAccess}, RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", SecurityEventInput{EventType: model.EventDataAccess, Severity: model.SeverityHigh}, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, model.SeverityMedium, store.events[0].Severity, "severity defaults to medium")
	assert.Len(t, store.events[0].ID, 26, "event IDs are ULIDs")

	user := &model.AuthContext{UserID: "u1", Role: model.RoleUser}
	events, total, err := svc.List(ctx, user, SecurityEventQuery{UserID: "u2"}, model.DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "u1", events[0].UserID)

	admin := &model.AuthContext{UserID: "admin", Role: model.RoleAdmin}
	_, total, err = svc.List(ctx, admin, SecurityEventQuery{}, model.DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = svc.List(ctx, admin, SecurityEventQuery{UserID: "u2"}, model.DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	params := model.DefaultListParams()
	params.SortBy = "ip_address"
	_, _, err = svc.List(ctx, admin, SecurityEventQuery{}, params)
	requireAppErr(t, err, http.StatusBadRequest, CodeInvalidSort)
}

func TestSecurityEventService_RecordSwallowsErrors(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.failCreateEvent = errors.New("db down")
	svc := NewSecurityEventService(store, discardLogger())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), "u1", model.EventLogin, model.SeverityLow, nil, RequestMeta{})
	})
}
