package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for interaction repository operations.
var (
	ErrInteractionNotFound = errors.New("interaction not found")
)

const interactionColumns = `i.id, i.contact_id, i.user_id, i.interaction_type, i.notes, i.interaction_date,
	i.response_time_hours, i.sentiment, i.topics, i.created_at, i.updated_at`

// statsSelect aggregates interactions for scoring. $1 is the cutoff for
// "recent" interactions. Meetings count as high-importance, calls as medium.
// A missing sentiment averages as 0.
const statsSelect = `
	SELECT
		i.contact_id,
		COUNT(*),
		COALESCE(AVG(i.response_time_hours), 0),
		MAX(i.interaction_date),
		COUNT(*) FILTER (WHERE i.interaction_date > $1),
		AVG(COALESCE(i.sentiment, 0)),
		COUNT(*) FILTER (WHERE i.interaction_type = 'meeting'),
		COUNT(*) FILTER (WHERE i.interaction_type = 'call')
	FROM contact_interactions i
`

// raiseLastContact moves contacts.last_contact_date forward, never back.
const raiseLastContact = `
	UPDATE contacts
	SET last_contact_date = GREATEST(COALESCE(last_contact_date, $2), $2), updated_at = NOW()
	WHERE id = $1
`

// CreateInteraction inserts an interaction and raises the contact's
// last_contact_date in the same transaction.
func (r *Repository) CreateInteraction(ctx context.Context, i *model.Interaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO contact_interactions (id, contact_id, user_id, interaction_type, notes, interaction_date,
				response_time_hours, sentiment, topics, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			i.ID,
			i.ContactID,
			i.UserID,
			i.InteractionType,
			i.Notes,
			i.InteractionDate,
			i.ResponseTimeHours,
			i.Sentiment,
			pq.Array(nonNilStrings(i.Topics)),
			i.CreatedAt,
			i.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrContactNotFound
			}
			return fmt.Errorf("failed to create interaction: %w", err)
		}

		if _, err := tx.Exec(ctx, raiseLastContact, i.ContactID, i.InteractionDate); err != nil {
			return fmt.Errorf("failed to update last contact date: %w", err)
		}
		return nil
	})
}

// GetInteraction retrieves an interaction by ID.
func (r *Repository) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM contact_interactions i WHERE i.id = $1`

	i, err := scanInteraction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInteractionNotFound
		}
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return i, nil
}

// ListInteractions returns one page of interactions on contacts the user owns.
func (r *Repository) ListInteractions(ctx context.Context, filter model.InteractionFilter, params model.ListParams) ([]*model.Interaction, int, error) {
	var w whereClause
	w.add("c.user_id = $%d", filter.UserID)
	if filter.ContactID != "" {
		w.add("i.contact_id = $%d", filter.ContactID)
	}

	from := "FROM contact_interactions i JOIN contacts c ON c.id = i.contact_id"
	total, err := countRows(ctx, r.pool, from, &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count interactions: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + interactionColumns + ` ` + from + w.String() + orderBy(params, "i.", nil) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]*model.Interaction, 0)
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating interactions: %w", err)
	}
	return interactions, total, nil
}

// UpdateInteraction writes the mutable fields of an interaction and raises the
// contact's last_contact_date if the date moved forward.
func (r *Repository) UpdateInteraction(ctx context.Context, i *model.Interaction) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE contact_interactions
			SET interaction_type = $2, notes = $3, interaction_date = $4, response_time_hours = $5,
				sentiment = $6, topics = $7, updated_at = $8
			WHERE id = $1
		`,
			i.ID,
			i.InteractionType,
			i.Notes,
			i.InteractionDate,
			i.ResponseTimeHours,
			i.Sentiment,
			pq.Array(nonNilStrings(i.Topics)),
			i.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update interaction: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrInteractionNotFound
		}

		if _, err := tx.Exec(ctx, raiseLastContact, i.ContactID, i.InteractionDate); err != nil {
			return fmt.Errorf("failed to update last contact date: %w", err)
		}
		return nil
	})
}

// DeleteInteraction removes an interaction.
func (r *Repository) DeleteInteraction(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM contact_interactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete interaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInteractionNotFound
	}
	return nil
}

// GetInteractionStats aggregates one contact's interactions.
// recentSince bounds the RecentCount window.
func (r *Repository) GetInteractionStats(ctx context.Context, contactID string, recentSince time.Time) (*model.InteractionStats, error) {
	query := statsSelect + ` WHERE i.contact_id = $2 GROUP BY i.contact_id`

	stats, err := scanStats(r.pool.QueryRow(ctx, query, recentSince, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.InteractionStats{ContactID: contactID}, nil
		}
		return nil, fmt.Errorf("failed to get interaction stats: %w", err)
	}
	return stats, nil
}

// ListInteractionStats aggregates interactions for every contact of a user.
// Contacts without interactions are absent from the map.
func (r *Repository) ListInteractionStats(ctx context.Context, userID string, recentSince time.Time) (map[string]*model.InteractionStats, error) {
	query := statsSelect + `
		JOIN contacts c ON c.id = i.contact_id
		WHERE c.user_id = $2
		GROUP BY i.contact_id
	`

	rows, err := r.pool.Query(ctx, query, recentSince, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interaction stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*model.InteractionStats)
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction stats: %w", err)
		}
		out[stats.ContactID] = stats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction stats: %w", err)
	}
	return out, nil
}

func scanStats(row pgx.Row) (*model.InteractionStats, error) {
	var s model.InteractionStats
	err := row.Scan(
		&s.ContactID,
		&s.Count,
		&s.AvgResponseHours,
		&s.LastInteraction,
		&s.RecentCount,
		&s.AvgSentiment,
		&s.HighImportanceCount,
		&s.MediumImportanceCount,
	)
	return &s, err
}

func scanInteraction(row pgx.Row) (*model.Interaction, error) {
	var i model.Interaction
	err := row.Scan(
		&i.ID,
		&i.ContactID,
		&i.UserID,
		&i.InteractionType,
		&i.Notes,
		&i.InteractionDate,
		&i.ResponseTimeHours,
		&i.Sentiment,
		&i.Topics,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if i.Topics == nil {
		i.Topics = []string{}
	}
	return &i, err
}
