package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/wisedom/wisedom/internal/model"
)

// whereClause accumulates AND-ed conditions with positional arguments.
// Each condition is a format string with one %d per argument.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(format string, args ...any) {
	idx := make([]any, len(args))
	for i := range args {
		idx[i] = len(w.args) + i + 1
	}
	w.conds = append(w.conds, fmt.Sprintf(format, idx...))
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// nextArg returns the placeholder index for the next appended argument.
func (w *whereClause) nextArg() int {
	return len(w.args) + 1
}

// orderBy renders ORDER BY for a whitelisted sort field. Unknown fields fall
// back to created_at. columns overrides the SQL expression for a field.
func orderBy(params model.ListParams, prefix string, columns map[string]string) string {
	expr, ok := columns[params.SortBy]
	if !ok {
		expr = prefix + model.DefaultSortBy
		if params.SortBy != "" && isIdentifier(params.SortBy) {
			expr = prefix + params.SortBy
		}
	}

	dir := "DESC"
	if !params.Descending() {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, %sid %s", expr, dir, prefix, dir)
}

// pageClause appends LIMIT/OFFSET placeholders and their arguments.
func pageClause(w *whereClause, params model.ListParams) (string, []any) {
	n := w.nextArg()
	args := append(append([]any{}, w.args...), params.Limit, params.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1), args
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return s != ""
}

// nullableString maps "" to NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// countRows returns the number of rows matched by from + where.
func countRows(ctx context.Context, q querier, from string, w *whereClause) (int, error) {
	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+from+w.String(), w.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
