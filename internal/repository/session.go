package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for session repository operations.
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrPasswordResetNotFound = errors.New("password reset not found")
)

// CreateSession stores a new login session.
func (r *Repository) CreateSession(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, token_prefix, ip_address, user_agent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.TokenPrefix,
		s.IPAddress,
		s.UserAgent,
		s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetAuthByTokenHash resolves an active session and its user in one query.
// Revoked and expired sessions are reported as ErrSessionNotFound.
func (r *Repository) GetAuthByTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.AuthContext, error) {
	query := `
		SELECT s.id, s.user_id, u.email, u.role, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > $2
	`

	var ac model.AuthContext
	err := r.pool.QueryRow(ctx, query, tokenHash, now).Scan(
		&ac.SessionID,
		&ac.UserID,
		&ac.Email,
		&ac.Role,
		&ac.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &ac, nil
}

// TouchSession records the last time a session authenticated a request.
func (r *Repository) TouchSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_used_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// RevokeSession revokes a single session and returns its token hash.
func (r *Repository) RevokeSession(ctx context.Context, id string) (string, error) {
	query := `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING token_hash
	`

	var hash string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to revoke session: %w", err)
	}
	return hash, nil
}

func revokeUserSessions(ctx context.Context, q querier, userID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		UPDATE sessions
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL
		RETURNING token_hash
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	hashes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect revoked sessions: %w", err)
	}
	return hashes, nil
}

// CreatePasswordReset stores a reset token hash.
func (r *Repository) CreatePasswordReset(ctx context.Context, pr *model.PasswordReset) error {
	query := `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, pr.ID, pr.UserID, pr.TokenHash, pr.ExpiresAt, pr.CreatedAt); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

// GetPasswordReset looks up a reset by token hash, regardless of state.
func (r *Repository) GetPasswordReset(ctx context.Context, tokenHash string) (*model.PasswordReset, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`

	var pr model.PasswordReset
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&pr.ID,
		&pr.UserID,
		&pr.TokenHash,
		&pr.ExpiresAt,
		&pr.UsedAt,
		&pr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPasswordResetNotFound
		}
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	return &pr, nil
}

// CompletePasswordReset sets the new password hash, marks the reset used and
// revokes every session of the user in one transaction. It returns the token
// hashes of revoked sessions so callers can evict cached copies.
func (r *Repository) CompletePasswordReset(ctx context.Context, resetID, userID, passwordHash string) ([]string, error) {
	var revoked []string
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE password_resets
			SET used_at = NOW()
			WHERE id = $1 AND used_at IS NULL AND expires_at > NOW()
		`, resetID)
		if err != nil {
			return fmt.Errorf("failed to mark reset used: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPasswordResetNotFound
		}

		tag, err = tx.Exec(ctx, `
			UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
		`, userID, passwordHash)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		revoked, err = revokeUserSessions(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}
