package middleware

import (
	"context"
	"errors"
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

// SessionCookieName is the cookie checked when no Bearer token is sent.
const SessionCookieName = "session"

const unauthorizedMessage = "Invalid or missing session"

// SessionStore resolves session token hashes from the database.
type SessionStore interface {
	GetAuthByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.AuthContext, error)
	TouchSession(ctx context.Context, id string) error
}

// SessionCache caches resolved sessions.
type SessionCache interface {
	GetSession(ctx context.Context, tokenHash string) (*model.AuthContext, error)
	SetSession(ctx context.Context, tokenHash string, ac *model.AuthContext, ttl time.Duration) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Sessions SessionStore
	Cache    SessionCache
	CacheTTL time.Duration
	Metrics  metrics.Recorder
	Now      func() time.Time
}

// Auth authenticates requests by session token. Every failure produces the
// same 401 body so callers cannot tell why a token was rejected.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			fail := func(reason string) {
				cfg.Metrics.IncAuthAttempt(metrics.StatusFailed)
				cfg.Logger.Warn("authentication_failed",
					slog.String("reason", reason),
					slog.String("ip", ClientIP(r)),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(ctx)),
				)
				WriteError(w, apperr.Unauthorized(unauthorizedMessage))
			}

			token := extractSessionToken(r)
			if token == "" {
				fail("missing_token")
				return
			}
			if _, err := auth.ParseSessionToken(token); err != nil {
				fail("invalid_format")
				return
			}

			hash := auth.HashToken(token)
			now := cfg.Now()

			var ac *model.AuthContext
			if cfg.Cache != nil {
				cached, err := cfg.Cache.GetSession(ctx, hash)
				if err != nil {
					cfg.Logger.Warn("session_cache_error", slog.String("error", err.Error()))
				}
				if cached != nil && now.Before(cached.ExpiresAt) {
					ac = cached
				}
			}

			if ac == nil {
				resolved, err := cfg.Sessions.GetAuthByTokenHash(ctx, hash, now)
				if err != nil {
					if errors.Is(err, repository.ErrSessionNotFound) {
						fail("unknown_session")
						return
					}
					cfg.Logger.Error("session_lookup_failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(ctx)),
					)
					fail("lookup_error")
					return
				}
				ac = resolved

				if err := cfg.Sessions.TouchSession(ctx, ac.SessionID); err != nil {
					cfg.Logger.Warn("session_touch_failed", slog.String("error", err.Error()))
				}
				if cfg.Cache != nil {
					if err := cfg.Cache.SetSession(ctx, hash, ac, cfg.CacheTTL); err != nil {
						cfg.Logger.Warn("session_cache_error", slog.String("error", err.Error()))
					}
				}
			}

			cfg.Metrics.IncAuthAttempt(metrics.StatusSuccess)
			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(ctx, ac)))
		})
	}
}

// extractSessionToken reads "Authorization: Bearer <token>" and falls back
// to the session cookie.
func extractSessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
