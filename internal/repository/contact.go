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

// Common errors for contact repository operations.
var (
	ErrContactNotFound = errors.New("contact not found")
)

const contactColumns = `id, user_id, first_name, last_name, email, phone, company, title, notes,
	birthday, source, external_id, tags, relationship_strength, last_contact_date, created_at, updated_at`

// CreateContact inserts a new contact.
func (r *Repository) CreateContact(ctx context.Context, c *model.Contact) error {
	query := `
		INSERT INTO contacts (id, user_id, first_name, last_name, email, phone, company, title, notes,
			birthday, source, external_id, tags, relationship_strength, last_contact_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Company,
		c.Title,
		c.Notes,
		c.Birthday,
		c.Source,
		c.ExternalID,
		pq.Array(nonNilStrings(c.Tags)),
		c.RelationshipStrength,
		c.LastContactDate,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact owned by userID.
func (r *Repository) GetContact(ctx context.Context, userID, id string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND user_id = $2`

	c, err := scanContact(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

// GetContactByID retrieves a contact without an ownership check.
// Used by background workers.
func (r *Repository) GetContactByID(ctx context.Context, id string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	c, err := scanContact(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact by ID: %w", err)
	}
	return c, nil
}

// ListContacts returns one page of the user's contacts and the total count.
func (r *Repository) ListContacts(ctx context.Context, filter model.ContactFilter, params model.ListParams) ([]*model.Contact, int, error) {
	var w whereClause
	w.add("user_id = $%d", filter.UserID)
	if filter.Search != "" {
		w.add(`(first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d OR email ILIKE $%[1]d OR company ILIKE $%[1]d)`,
			"%"+escapeLike(filter.Search)+"%")
	}
	if filter.Tag != "" {
		w.add("$%d = ANY(tags)", filter.Tag)
	}

	total, err := countRows(ctx, r.pool, "FROM contacts", &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + contactColumns + ` FROM contacts` + w.String() + orderBy(params, "", nil) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts, err := collectContacts(rows)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

// ListAllContacts returns every contact of a user, ordered by name.
// Used by insight computations which need the full set.
func (r *Repository) ListAllContacts(ctx context.Context, userID string) ([]*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1 ORDER BY first_name, last_name, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list all contacts: %w", err)
	}
	defer rows.Close()

	return collectContacts(rows)
}

// UpdateContact writes the mutable fields of a contact owned by c.UserID.
func (r *Repository) UpdateContact(ctx context.Context, c *model.Contact) error {
	query := `
		UPDATE contacts
		SET first_name = $3, last_name = $4, email = $5, phone = $6, company = $7, title = $8,
			notes = $9, birthday = $10, tags = $11, relationship_strength = $12,
			last_contact_date = $13, updated_at = $14
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Company,
		c.Title,
		c.Notes,
		c.Birthday,
		pq.Array(nonNilStrings(c.Tags)),
		c.RelationshipStrength,
		c.LastContactDate,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// DeleteContact removes a contact. Interactions and relationships cascade.
func (r *Repository) DeleteContact(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// UpdateContactStrength stores a recomputed relationship strength.
func (r *Repository) UpdateContactStrength(ctx context.Context, id string, strength int) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE contacts SET relationship_strength = $2, updated_at = NOW() WHERE id = $1
	`, id, strength)
	if err != nil {
		return fmt.Errorf("failed to update contact strength: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// ListStaleContactIDs returns contacts not updated since before.
func (r *Repository) ListStaleContactIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM contacts
		WHERE updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale contacts: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale contacts: %w", err)
	}
	return ids, nil
}

// UpsertImportedContact inserts or refreshes a contact keyed by
// (user_id, source, external_id). It reports whether a new row was created
// and sets c.ID to the stored row's ID. Local fields such as notes, tags and
// strength are left untouched on update.
func (r *Repository) UpsertImportedContact(ctx context.Context, c *model.Contact) (bool, error) {
	query := `
		INSERT INTO contacts (id, user_id, first_name, last_name, email, phone, company, title,
			birthday, source, external_id, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '{}', $12, $12)
		ON CONFLICT (user_id, source, external_id) WHERE external_id IS NOT NULL
		DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = COALESCE(EXCLUDED.email, contacts.email),
			phone = COALESCE(EXCLUDED.phone, contacts.phone),
			company = COALESCE(EXCLUDED.company, contacts.company),
			title = COALESCE(EXCLUDED.title, contacts.title),
			birthday = COALESCE(EXCLUDED.birthday, contacts.birthday),
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0)
	`

	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		c.ID,
		c.UserID,
		c.FirstName,
		c.LastName,
		c.Email,
		c.Phone,
		c.Company,
		c.Title,
		c.Birthday,
		c.Source,
		c.ExternalID,
		c.CreatedAt,
	).Scan(&c.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert imported contact: %w", err)
	}
	return inserted, nil
}

func collectContacts(rows pgx.Rows) ([]*model.Contact, error) {
	contacts := make([]*model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

func scanContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Company,
		&c.Title,
		&c.Notes,
		&c.Birthday,
		&c.Source,
		&c.ExternalID,
		&c.Tags,
		&c.RelationshipStrength,
		&c.LastContactDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, err
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
