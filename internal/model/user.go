// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Role constants for users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account holder. Every owned row references a user.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // Never serialize
	FullName         string    `json:"full_name,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole reports whether role is a known user role.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles, role)
}
