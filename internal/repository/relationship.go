package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for relationship repository operations.
var (
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrRelationshipExists   = errors.New("relationship already exists")
	ErrSelfRelationship     = errors.New("contact cannot relate to itself")
)

const relationshipColumns = `id, user_id, contact_id, related_contact_id, relationship_type, notes, created_at, updated_at`

// CreateRelationship inserts a relationship between two contacts.
func (r *Repository) CreateRelationship(ctx context.Context, rel *model.Relationship) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contact_relationships (id, user_id, contact_id, related_contact_id, relationship_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rel.ID,
		rel.UserID,
		rel.ContactID,
		rel.RelatedContactID,
		rel.RelationshipType,
		rel.Notes,
		rel.CreatedAt,
		rel.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrRelationshipExists
		case isCheckViolation(err):
			return ErrSelfRelationship
		case isForeignKeyViolation(err):
			return ErrContactNotFound
		}
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// GetRelationship retrieves a relationship by ID.
func (r *Repository) GetRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM contact_relationships WHERE id = $1`

	rel, err := scanRelationship(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRelationshipNotFound
		}
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return rel, nil
}

// ListRelationships returns one page of the user's relationships.
func (r *Repository) ListRelationships(ctx context.Context, filter model.RelationshipFilter, params model.ListParams) ([]*model.Relationship, int, error) {
	var w whereClause
	w.add("user_id = $%d", filter.UserID)
	if filter.ContactID != "" {
		w.add("(contact_id = $%[1]d OR related_contact_id = $%[1]d)", filter.ContactID)
	}

	total, err := countRows(ctx, r.pool, "FROM contact_relationships", &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count relationships: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + relationshipColumns + ` FROM contact_relationships` + w.String() + orderBy(params, "", nil) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]*model.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating relationships: %w", err)
	}
	return rels, total, nil
}

// UpdateRelationship writes the mutable fields of a relationship.
func (r *Repository) UpdateRelationship(ctx context.Context, rel *model.Relationship) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE contact_relationships
		SET relationship_type = $2, notes = $3, updated_at = $4
		WHERE id = $1
	`, rel.ID, rel.RelationshipType, rel.Notes, rel.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRelationshipExists
		}
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRelationshipNotFound
	}
	return nil
}

// DeleteRelationship removes a relationship.
func (r *Repository) DeleteRelationship(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM contact_relationships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRelationshipNotFound
	}
	return nil
}

func scanRelationship(row pgx.Row) (*model.Relationship, error) {
	var rel model.Relationship
	err := row.Scan(
		&rel.ID,
		&rel.UserID,
		&rel.ContactID,
		&rel.RelatedContactID,
		&rel.RelationshipType,
		&rel.Notes,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	return &rel, err
}
