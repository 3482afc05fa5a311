package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wisedom/wisedom/internal/model"
)

const securityEventColumns = `id, user_id, event_type, severity, details, ip_address, user_agent, created_at`

var securityEventSortColumns = map[string]string{
	"severity": "CASE severity WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END",
}

// CreateSecurityEvent appends an audit record.
func (r *Repository) CreateSecurityEvent(ctx context.Context, e *model.SecurityEvent) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO security_events (id, user_id, event_type, severity, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		e.ID,
		e.UserID,
		e.EventType,
		e.Severity,
		details,
		e.IPAddress,
		e.UserAgent,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create security event: %w", err)
	}
	return nil
}

// ListSecurityEvents returns one page of security events.
// An empty filter.UserID lists events of every user.
func (r *Repository) ListSecurityEvents(ctx context.Context, filter model.SecurityEventFilter, params model.ListParams) ([]*model.SecurityEvent, int, error) {
	var w whereClause
	if filter.UserID != "" {
		w.add("user_id = $%d", filter.UserID)
	}
	if filter.EventType != "" {
		w.add("event_type = $%d", filter.EventType)
	}
	if filter.Severity != "" {
		w.add("severity = $%d", filter.Severity)
	}

	total, err := countRows(ctx, r.pool, "FROM security_events", &w)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count security events: %w", err)
	}

	limit, args := pageClause(&w, params)
	query := `SELECT ` + securityEventColumns + ` FROM security_events` + w.String() +
		orderBy(params, "", securityEventSortColumns) + limit

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.SecurityEvent, 0)
	for rows.Next() {
		e, err := scanSecurityEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating security events: %w", err)
	}
	return events, total, nil
}

func scanSecurityEvent(row pgx.Row) (*model.SecurityEvent, error) {
	var e model.SecurityEvent
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.EventType,
		&e.Severity,
		&e.Details,
		&e.IPAddress,
		&e.UserAgent,
		&e.CreatedAt,
	)
	return &e, err
}
