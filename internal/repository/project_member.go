package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for project member repository operations.
var (
	ErrMemberNotFound = errors.New("project member not found")
	ErrMemberExists   = errors.New("user is already a project member")
)

const memberColumns = `id, project_id, user_id, role, created_at`

// AddMember inserts a project membership.
func (r *Repository) AddMember(ctx context.Context, m *model.ProjectMember) error {
	return insertMember(ctx, r.pool, m)
}

func insertMember(ctx context.Context, q querier, m *model.ProjectMember) error {
	_, err := q.Exec(ctx, `
		INSERT INTO project_members (id, project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ProjectID, m.UserID, m.Role, m.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrMemberExists
		case isForeignKeyViolation(err):
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to add project member: %w", err)
	}
	return nil
}

// GetMember retrieves a membership row by its ID.
func (r *Repository) GetMember(ctx context.Context, id string) (*model.ProjectMember, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM project_members WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get project member: %w", err)
	}
	return m, nil
}

// GetMembership retrieves the membership of userID in projectID.
func (r *Repository) GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	query := `SELECT ` + memberColumns + ` FROM project_members WHERE project_id = $1 AND user_id = $2`

	m, err := scanMember(r.pool.QueryRow(ctx, query, projectID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMembers returns one page of a project's members.
func (r *Repository) ListMembers(ctx context.Context, projectID string, params model.ListParams) ([]*model.ProjectMember, int, error) {
	var w whereClause
	w.add("project_id = $%d", projectID)

	total, err := countRows(ctx, r.pool, "FROM project_members", &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count project members: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + memberColumns + ` FROM project_members` + w.String() + orderBy(params, "", nil) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	members := make([]*model.ProjectMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating project members: %w", err)
	}
	return members, total, nil
}

// ListAllMembers returns every member of a project, oldest first.
func (r *Repository) ListAllMembers(ctx context.Context, projectID string) ([]*model.ProjectMember, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM project_members WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list all project members: %w", err)
	}
	defer rows.Close()

	members := make([]*model.ProjectMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project members: %w", err)
	}
	return members, nil
}

// UpdateMemberRole changes the role of a membership.
func (r *Repository) UpdateMemberRole(ctx context.Context, id, role string) error {
	result, err := r.pool.Exec(ctx, `UPDATE project_members SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to update project member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// DeleteMember removes a membership.
func (r *Repository) DeleteMember(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM project_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func scanMember(row pgx.Row) (*model.ProjectMember, error) {
	var m model.ProjectMember
	err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt)
	return &m, err
}
