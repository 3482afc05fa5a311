package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Created  bool   `json:"created"`
	Password string `json:"password,omitempty"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@wisedom.local", "Admin email")
		fullName    = flag.String("full-name", "Administrator", "Admin display name")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password for a new admin; generated when empty")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *password != "" && len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "password must be at least 8 characters")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	out, err := ensureAdmin(ctx, repo, strings.ToLower(strings.TrimSpace(*email)), *fullName, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.Password != "" {
			fmt.Println(out.Password)
		} else {
			fmt.Println(out.UserID)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureAdmin promotes an existing user or creates a new admin. A generated
// password is only reported for newly created users.
func ensureAdmin(ctx context.Context, repo *repository.Repository, email, fullName, password string) (*output, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			if err := repo.SetUserRole(ctx, existing.ID, model.RoleAdmin); err != nil {
				return nil, fmt.Errorf("promote user: %w", err)
			}
		}
		return &output{UserID: existing.ID, Email: existing.Email}, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	generated := ""
	if password == "" {
		if password, err = auth.RandomState(); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		generated = password
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &output{UserID: user.ID, Email: user.Email, Created: true, Password: generated}, nil
}
