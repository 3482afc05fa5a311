//go:build integration

package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisedom/wisedom/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := testutil.NewDB(t)

	tables := []string{
		"users",
		"sessions",
		"password_resets",
		"contacts",
		"projects",
		"project_members",
		"tasks",
		"contact_interactions",
		"contact_relationships",
		"security_events",
		"integration_tokens",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_ContactsTableSchema(t *testing.T) {
	ctx, pool := testutil.NewDB(t)

	expectedColumns := []string{
		"id",
		"user_id",
		"first_name",
		"last_name",
		"email",
		"phone",
		"company",
		"title",
		"notes",
		"birthday",
		"source",
		"external_id",
		"tags",
		"relationship_strength",
		"last_contact_date",
		"created_at",
		"updated_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "contacts", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in contacts table", col)
			}
		})
	}
}

func TestIntegrationMigration_Constraints(t *testing.T) {
	ctx, pool := testutil.NewDB(t)
	repo := NewFromPool(pool)

	user := testutil.NewTestUser(t)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	contact := testutil.NewTestContact(t, user.ID, "Ada")
	if err := repo.CreateContact(ctx, contact); err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	tests := []struct {
		name  string
		query string
		args  []any
	}{
		{
			name: "strength above 100",
			query: `INSERT INTO contacts (id, user_id, first_name, last_name, relationship_strength)
				VALUES ($1, $2, 'A', 'B', 101)`,
			args: []any{uuid.NewString(), user.ID},
		},
		{
			name: "unknown contact source",
			query: `INSERT INTO contacts (id, user_id, first_name, last_name, source)
				VALUES ($1, $2, 'A', 'B', 'myspace')`,
			args: []any{uuid.NewString(), user.ID},
		},
		{
			name: "project ends before it starts",
			query: `INSERT INTO projects (id, name, start_date, end_date, created_by)
				VALUES ($1, 'P', '2024-02-01', '2024-01-01', $2)`,
			args: []any{uuid.NewString(), user.ID},
		},
		{
			name: "self relationship",
			query: `INSERT INTO contact_relationships (id, user_id, contact_id, related_contact_id, relationship_type)
				VALUES ($1, $2, $3, $3, 'colleague')`,
			args: []any{uuid.NewString(), user.ID, contact.ID},
		},
		{
			name: "sentiment out of range",
			query: `INSERT INTO contact_interactions (id, contact_id, user_id, interaction_type, interaction_date, sentiment)
				VALUES ($1, $2, $3, 'email', NOW(), 1.5)`,
			args: []any{uuid.NewString(), contact.ID, user.ID},
		},
		{
			name: "duplicate email ignoring case",
			query: `INSERT INTO users (id, email, password_hash, full_name)
				VALUES ($1, upper($2), 'x', 'Dup')`,
			args: []any{uuid.NewString(), user.Email},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pool.Exec(ctx, tt.query, tt.args...); err == nil {
				t.Error("expected constraint violation")
			}
		})
	}
}

func TestIntegrationMigration_RollbackContacts(t *testing.T) {
	ctx, pool := testutil.NewDB(t)

	// Dependants first so the contacts down migration can drop its table.
	for _, name := range []string{
		"000004_interactions_relationships.down.sql",
		"000002_contacts.down.sql",
	} {
		if err := testutil.ExecMigration(ctx, pool, name); err != nil {
			t.Fatalf("apply %s: %v", name, err)
		}
	}

	exists, err := tableExists(ctx, pool, "contacts")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("contacts table should not exist after rollback")
	}

	for _, name := range []string{
		"000002_contacts.up.sql",
		"000004_interactions_relationships.up.sql",
	} {
		if err := testutil.ExecMigration(ctx, pool, name); err != nil {
			t.Fatalf("reapply %s: %v", name, err)
		}
	}

	exists, err = tableExists(ctx, pool, "contact_interactions")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if !exists {
		t.Error("contact_interactions should exist after reapply")
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := testutil.NewDB(t)

	up, _, err := testutil.Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	// Every up migration uses IF NOT EXISTS, so a second pass is a no-op.
	for _, path := range up {
		name := filepath.Base(path)
		if err := testutil.ExecMigration(ctx, pool, name); err != nil {
			t.Fatalf("second apply of %s should not fail: %v", name, err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}
