package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

// Common errors for task repository operations.
var (
	ErrTaskNotFound = errors.New("task not found")
)

const taskColumns = `id, project_id, title, description, due_date, priority, status, assigned_to, created_by, created_at, updated_at`

// taskSortColumns ranks priority so that descending order puts high first.
var taskSortColumns = map[string]string{
	"priority": "CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END",
}

// CreateTask inserts a new task.
func (r *Repository) CreateTask(ctx context.Context, t *model.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, project_id, title, description, due_date, priority, status, assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		t.ID,
		t.ProjectID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Priority,
		t.Status,
		t.AssignedTo,
		t.CreatedBy,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns one page of tasks in projects the member belongs to.
func (r *Repository) ListTasks(ctx context.Context, filter model.TaskFilter, params model.ListParams) ([]*model.Task, int, error) {
	var w whereClause
	w.add("project_id IN (SELECT project_id FROM project_members WHERE user_id = $%d)", filter.MemberID)
	if filter.ProjectID != "" {
		w.add("project_id = $%d", filter.ProjectID)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		w.add("priority = $%d", filter.Priority)
	}
	if filter.AssignedTo != "" {
		w.add("assigned_to = $%d", filter.AssignedTo)
	}

	total, err := countRows(ctx, r.pool, "FROM tasks", &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + taskColumns + ` FROM tasks` + w.String() + orderBy(params, "", taskSortColumns) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, total, nil
}

// ListProjectTasks returns every task of a project, oldest first.
func (r *Repository) ListProjectTasks(ctx context.Context, projectID string) ([]*model.Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask writes the mutable fields of a task.
func (r *Repository) UpdateTask(ctx context.Context, t *model.Task) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, priority = $5, status = $6, assigned_to = $7, updated_at = $8
		WHERE id = $1
	`,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Priority,
		t.Status,
		t.AssignedTo,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Priority,
		&t.Status,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return &t, err
}
