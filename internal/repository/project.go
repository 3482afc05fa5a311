package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for project repository operations.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidDates    = errors.New("end date before start date")
)

const projectColumns = `p.id, p.name, p.description, p.start_date, p.end_date, p.status, p.created_by, p.created_at, p.updated_at`

// CreateProject inserts a project and its owner membership in one transaction.
func (r *Repository) CreateProject(ctx context.Context, p *model.Project, owner *model.ProjectMember) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO projects (id, name, description, start_date, end_date, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			p.ID,
			p.Name,
			p.Description,
			p.StartDate,
			p.EndDate,
			p.Status,
			p.CreatedBy,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			if isCheckViolation(err) {
				return ErrInvalidDates
			}
			return fmt.Errorf("failed to create project: %w", err)
		}

		if err := insertMember(ctx, tx, owner); err != nil {
			return err
		}
		return nil
	})
}

// GetProject retrieves a project by ID without a membership check.
func (r *Repository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns one page of projects the member belongs to.
func (r *Repository) ListProjects(ctx context.Context, filter model.ProjectFilter, params model.ListParams) ([]*model.Project, int, error) {
	var w whereClause
	w.add("pm.user_id = $%d", filter.MemberID)
	if filter.Status != "" {
		w.add("p.status = $%d", filter.Status)
	}

	from := "FROM projects p JOIN project_members pm ON pm.project_id = p.id"
	total, err := countRows(ctx, r.pool, from, &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + projectColumns + ` ` + from + w.String() + orderBy(params, "p.", nil) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProject writes the mutable fields of a project.
func (r *Repository) UpdateProject(ctx context.Context, p *model.Project) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET name = $2, description = $3, start_date = $4, end_date = $5, status = $6, updated_at = $7
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Description,
		p.StartDate,
		p.EndDate,
		p.Status,
		p.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return ErrInvalidDates
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes a project. Members and tasks cascade.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return &p, err
}
