// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wisedom/wisedom/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations returns the up and down migration files in apply order.
func Migrations() (up, down []string, err error) {
	root, err := ProjectRoot()
	if err != nil {
		return nil, nil, err
	}
	dir := filepath.Join(root, "migrations")

	up, err = filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, nil, err
	}
	down, err = filepath.Glob(filepath.Join(dir, "*.down.sql"))
	if err != nil {
		return nil, nil, err
	}
	slices.Sort(up)
	slices.Sort(down)
	slices.Reverse(down)
	return up, down, nil
}

// ResetSchema rolls every migration back and applies them again.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	up, down, err := Migrations()
	if err != nil {
		return err
	}
	for _, path := range down {
		if err := execFile(ctx, pool, path); err != nil {
			return err
		}
	}
	for _, path := range up {
		if err := execFile(ctx, pool, path); err != nil {
			return err
		}
	}
	return nil
}

// ExecMigration applies a single migration file by name, e.g.
// "000002_contacts.down.sql".
func ExecMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}
	return execFile(ctx, pool, filepath.Join(root, "migrations", name))
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s: %w", filepath.Base(path), err)
	}
	return nil
}

// NewDB connects to DATABASE_URL, serializes on the advisory lock and resets
// the schema. Cleanup is registered on t.
func NewDB(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := ResetSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return ctx, pool
}

// NewRedis connects to REDIS_URL and flushes the database.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	opts, err := redis.ParseURL(RequireEnv(t, "REDIS_URL"))
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	if err := FlushRedis(context.Background(), client); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return client
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a user with a unique email.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	return &model.User{
		ID:           id,
		Email:        "user-" + id[:8] + "@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		FullName:     "Test User",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestContact creates a manual contact owned by userID.
func NewTestContact(t testing.TB, userID, firstName string) *model.Contact {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Contact{
		ID:        uuid.NewString(),
		UserID:    userID,
		FirstName: firstName,
		LastName:  "Tester",
		Source:    model.SourceManual,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestProject creates an active project created by userID.
func NewTestProject(t testing.TB, userID, name string) *model.Project {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    model.ProjectStatusActive,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestInteraction creates an interaction with a contact at the given time.
func NewTestInteraction(t testing.TB, c *model.Contact, kind string, at time.Time) *model.Interaction {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Interaction{
		ID:              uuid.NewString(),
		ContactID:       c.ID,
		UserID:          c.UserID,
		InteractionType: kind,
		InteractionDate: at.UTC().Truncate(time.Microsecond),
		Topics:          []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
