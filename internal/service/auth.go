package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

// AuthStore persists users, sessions and password resets.
type AuthStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateSession(ctx context.Context, s *model.Session) error
	RevokeSession(ctx context.Context, id string) (string, error)
	CreatePasswordReset(ctx context.Context, pr *model.PasswordReset) error
	GetPasswordReset(ctx context.Context, tokenHash string) (*model.PasswordReset, error)
	CompletePasswordReset(ctx context.Context, resetID, userID, passwordHash string) ([]string, error)
}

// SessionEvictor removes cached sessions.
type SessionEvictor interface {
	DeleteSessions(ctx context.Context, tokenHashes ...string) error
}

// AuthConfig tunes session and reset lifetimes.
type AuthConfig struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	// ExposeResetToken returns the reset token in the API response.
	// Only enabled in development, where no email is sent.
	ExposeResetToken bool
}

// AuthService handles signup, login and password resets.
type AuthService struct {
	store   AuthStore
	cache   SessionEvictor
	events  *SecurityEventService
	cfg     AuthConfig
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewAuthService creates an AuthService.
func NewAuthService(store AuthStore, cache SessionEvictor, events *SecurityEventService, cfg AuthConfig, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		store:   store,
		cache:   cache,
		events:  events,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger.With("component", "service.auth"),
		now:     utcNow,
	}
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// SignupInput defines input for creating an account.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// Signup creates a user and opens a first session.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta RequestMeta) (*AuthResult, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           newID(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.Conflict(CodeEmailTaken, "An account with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user_signed_up", "user_id", user.ID)
	s.metrics.IncEntity("user", metrics.ActionCreated)

	return s.openSession(ctx, user, meta)
}

// LoginInput defines login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta RequestMeta) (*AuthResult, error) {
	invalid := apperr.New(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnVerify(in.Password)
			s.metrics.IncAuthAttempt("login_failed")
			return nil, invalid
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil || !ok {
		s.metrics.IncAuthAttempt("login_failed")
		s.logger.Warn("login_failed", "user_id", user.ID, "ip", meta.IPAddress)
		return nil, invalid
	}

	res, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuthAttempt("login_succeeded")
	s.events.Record(ctx, user.ID, model.EventLogin, model.SeverityLow, nil, meta)
	s.logger.Info("user_logged_in", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) openSession(ctx context.Context, user *model.User, meta RequestMeta) (*AuthResult, error) {
	tok, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	sess := &model.Session{
		ID:          newID(),
		UserID:      user.ID,
		TokenHash:   tok.Hash,
		TokenPrefix: tok.Prefix,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
		CreatedAt:   now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &AuthResult{User: user, Token: tok.Plaintext, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout revokes the caller's session and evicts it from the cache.
func (s *AuthService) Logout(ctx context.Context, ac *model.AuthContext, meta RequestMeta) error {
	hash, err := s.store.RevokeSession(ctx, ac.SessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	if hash != "" {
		s.evict(ctx, hash)
	}

	s.events.Record(ctx, ac.UserID, model.EventLogout, model.SeverityLow, nil, meta)
	s.logger.Info("user_logged_out", "user_id", ac.UserID)
	return nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, repository.ErrUserNotFound, CodeUserNotFound, "User not found")
	}
	return user, nil
}

// RequestPasswordReset stores a reset token when the email is known. The
// plaintext token is only returned when ExposeResetToken is set. Unknown
// emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	tok, err := auth.GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	pr := &model.PasswordReset{
		ID:        newID(),
		UserID:    user.ID,
		TokenHash: tok.Hash,
		ExpiresAt: now.Add(s.cfg.ResetTTL),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordReset(ctx, pr); err != nil {
		return "", fmt.Errorf("create password reset: %w", err)
	}

	s.logger.Info("password_reset_requested", "user_id", user.ID)
	if s.cfg.ExposeResetToken {
		return tok.Plaintext, nil
	}
	return "", nil
}

// ConfirmPasswordReset sets a new password, consumes the token and revokes
// every session of the user.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string, meta RequestMeta) error {
	invalid := apperr.BadRequest(CodeInvalidResetToken, "Reset token is invalid or expired")
	if !auth.ValidResetToken(token) {
		return invalid
	}

	pr, err := s.store.GetPasswordReset(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrPasswordResetNotFound) {
			return invalid
		}
		return fmt.Errorf("get password reset: %w", err)
	}
	if !pr.IsUsable(s.now()) {
		return invalid
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	revoked, err := s.store.CompletePasswordReset(ctx, pr.ID, pr.UserID, hash)
	if err != nil {
		if errors.Is(err, repository.ErrPasswordResetNotFound) {
			return invalid
		}
		return fmt.Errorf("complete password reset: %w", err)
	}
	s.evict(ctx, revoked...)

	s.events.Record(ctx, pr.UserID, model.EventPasswordChange, model.SeverityHigh,
		map[string]any{"sessions_revoked": len(revoked)}, meta)
	s.logger.Info("password_reset_completed", "user_id", pr.UserID, "sessions_revoked", len(revoked))
	return nil
}

func (s *AuthService) evict(ctx context.Context, hashes ...string) {
	if s.cache == nil || len(hashes) == 0 {
		return
	}
	if err := s.cache.DeleteSessions(ctx, hashes...); err != nil {
		s.logger.Warn("session_cache_evict_failed", "error", err)
	}
}
