package model

import (
	"slices"
	"time"
)

// Project statuses.
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Member roles within a project.
const (
	MemberRoleMember = "member"
	MemberRoleAdmin  = "admin"
	MemberRoleOwner  = "owner"
)

// ProjectStatuses lists valid project statuses.
var ProjectStatuses = []string{ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived}

// MemberRoles lists valid member roles.
var MemberRoles = []string{MemberRoleMember, MemberRoleAdmin, MemberRoleOwner}

// ProjectSortFields are the allowed sort_by values for projects.
var ProjectSortFields = []string{"created_at", "updated_at", "name", "start_date", "end_date", "status"}

// ProjectMemberSortFields are the allowed sort_by values for project members.
var ProjectMemberSortFields = []string{"created_at", "role"}

// Project groups tasks and members.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOwner reports whether the member owns the project.
func (m *ProjectMember) IsOwner() bool {
	return m.Role == MemberRoleOwner
}

// CanManage reports whether the member may edit the project or delete its tasks.
func (m *ProjectMember) CanManage() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	MemberID string
	Status   string
}

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	return slices.Contains(ProjectStatuses, s)
}
