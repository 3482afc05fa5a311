package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for integration repository operations.
var (
	ErrIntegrationNotFound = errors.New("integration not found")
)

// UpsertIntegrationToken stores the token for (user, provider), replacing any
// previous one. An empty refresh token keeps the stored refresh token.
func (r *Repository) UpsertIntegrationToken(ctx context.Context, t *model.IntegrationToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO integration_tokens (id, user_id, provider, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), integration_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			scope = CASE WHEN EXCLUDED.scope = '' THEN integration_tokens.scope ELSE EXCLUDED.scope END,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`,
		t.ID,
		t.UserID,
		t.Provider,
		t.AccessToken,
		t.RefreshToken,
		t.TokenType,
		t.Scope,
		t.ExpiresAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert integration token: %w", err)
	}
	return nil
}

// GetIntegrationToken retrieves the token of a user for a provider.
func (r *Repository) GetIntegrationToken(ctx context.Context, userID, provider string) (*model.IntegrationToken, error) {
	var t model.IntegrationToken
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, provider, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at
		FROM integration_tokens
		WHERE user_id = $1 AND provider = $2
	`, userID, provider).Scan(
		&t.ID,
		&t.UserID,
		&t.Provider,
		&t.AccessToken,
		&t.RefreshToken,
		&t.TokenType,
		&t.Scope,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to get integration token: %w", err)
	}
	return &t, nil
}

// DeleteIntegrationToken removes the token of a user for a provider.
func (r *Repository) DeleteIntegrationToken(ctx context.Context, userID, provider string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM integration_tokens WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete integration token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrIntegrationNotFound
	}
	return nil
}
