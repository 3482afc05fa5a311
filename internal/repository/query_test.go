package repository

import (
	"testing"

	"github.com/wisedom/wisedom/internal/model"
)

func TestWhereClause_Placeholders(t *testing.T) {
	t.Parallel()

	var w whereClause
	w.add("user_id = $%d", "u1")
	w.add("(contact_id = $%[1]d OR related_contact_id = $%[1]d)", "c1")
	w.add("status = $%d", "active")

	want := " WHERE user_id = $1 AND (contact_id = $2 OR related_contact_id = $2) AND status = $3"
	if got := w.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if len(w.args) != 3 {
		t.Errorf("expected 3 args, got %d", len(w.args))
	}
}

func TestWhereClause_Empty(t *testing.T) {
	t.Parallel()

	var w whereClause
	if w.String() != "" {
		t.Errorf("expected empty clause, got %q", w.String())
	}
}

func TestPageClause(t *testing.T) {
	t.Parallel()

	var w whereClause
	w.add("user_id = $%d", "u1")

	clause, args := pageClause(&w, model.ListParams{Page: 3, Limit: 20})
	if clause != " LIMIT $2 OFFSET $3" {
		t.Errorf("unexpected clause %q", clause)
	}
	if len(args) != 3 || args[1] != 20 || args[2] != 40 {
		t.Errorf("unexpected args %v", args)
	}
	if len(w.args) != 1 {
		t.Error("pageClause must not mutate the where arguments")
	}
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  model.ListParams
		prefix  string
		columns map[string]string
		want    string
	}{
		{
			name:   "default desc",
			params: model.DefaultListParams(),
			want:   " ORDER BY created_at DESC NULLS LAST, id DESC",
		},
		{
			name:   "asc with prefix",
			params: model.ListParams{SortBy: "name", SortOrder: model.SortOrderAsc},
			prefix: "p.",
			want:   " ORDER BY p.name ASC NULLS LAST, p.id ASC",
		},
		{
			name:    "column override",
			params:  model.ListParams{SortBy: "priority", SortOrder: model.SortOrderDesc},
			columns: taskSortColumns,
			want:    " ORDER BY " + taskSortColumns["priority"] + " DESC NULLS LAST, id DESC",
		},
		{
			name:   "injection falls back to default",
			params: model.ListParams{SortBy: "name; DROP TABLE users", SortOrder: model.SortOrderAsc},
			want:   " ORDER BY created_at ASC NULLS LAST, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := orderBy(tt.params, tt.prefix, tt.columns); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("unexpected escape %q", got)
	}
}
