package integration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/wisedom/wisedom/internal/model"
)

const persistTimeout = 5 * time.Second

// TokenStore persists refreshed tokens.
type TokenStore interface {
	UpsertIntegrationToken(ctx context.Context, t *model.IntegrationToken) error
}

// ToOAuth2 converts a stored token.
func ToOAuth2(t *model.IntegrationToken) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresAt != nil {
		tok.Expiry = *t.ExpiresAt
	}
	return tok
}

// FromOAuth2 builds a stored token for userID and provider. A missing
// refresh token keeps previous, since providers only send it once.
func FromOAuth2(userID, provider string, tok *oauth2.Token, previous *model.IntegrationToken) *model.IntegrationToken {
	t := &model.IntegrationToken{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if t.RefreshToken == "" && previous != nil {
		t.RefreshToken = previous.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		t.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	return t
}

// persistingSource writes every newly issued access token back to the store.
type persistingSource struct {
	base   oauth2.TokenSource
	store  TokenStore
	logger *slog.Logger

	mu      sync.Mutex
	current *model.IntegrationToken
}

// NewTokenSource returns a token source for a stored token that refreshes
// through cfg and persists refreshed tokens.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, store TokenStore, stored *model.IntegrationToken, logger *slog.Logger) oauth2.TokenSource {
	return &persistingSource{
		base:    cfg.TokenSource(ctx, ToOAuth2(stored)),
		store:   store,
		logger:  logger,
		current: stored,
	}
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.current.AccessToken {
		return tok, nil
	}

	next := FromOAuth2(s.current.UserID, s.current.Provider, tok, s.current)
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.UpsertIntegrationToken(ctx, next); err != nil {
		// The refreshed token is still usable for this request.
		s.logger.Error("integration_token_persist_failed",
			"user_id", next.UserID,
			"provider", next.Provider,
			"error", err,
		)
		return tok, nil
	}

	s.logger.Info("integration_token_refreshed", "user_id", next.UserID, "provider", next.Provider)
	s.current = next
	return tok, nil
}
