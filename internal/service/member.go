package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

// MemberStore persists project memberships.
type MemberStore interface {
	GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	AddMember(ctx context.Context, m *model.ProjectMember) error
	GetMember(ctx context.Context, id string) (*model.ProjectMember, error)
	ListMembers(ctx context.Context, projectID string, params model.ListParams) ([]*model.ProjectMember, int, error)
	UpdateMemberRole(ctx context.Context, id, role string) error
	DeleteMember(ctx context.Context, id string) error
	UserExists(ctx context.Context, id string) (bool, error)
}

// MemberService manages project membership. Only owners may change it and
// the owner row itself is immutable.
type MemberService struct {
	store   MemberStore
	events  *SecurityEventService
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewMemberService creates a MemberService.
func NewMemberService(store MemberStore, events *SecurityEventService, recorder metrics.Recorder, logger *slog.Logger) *MemberService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &MemberService{
		store:   store,
		events:  events,
		metrics: recorder,
		logger:  logger.With("component", "service.members"),
		now:     utcNow,
	}
}

var (
	errMemberNotFound  = apperr.NotFound(apperr.CodeNotFound, "Project member not found")
	errOwnerImmutable  = apperr.Conflict(CodeOwnerImmutable, "The project owner cannot be changed or removed")
	errOwnerRoleDenied = fieldError("role", "must be one of: member, admin")
)

// requireOwner fails with 403 unless userID owns projectID.
func (s *MemberService) requireOwner(ctx context.Context, projectID, userID string) error {
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return apperr.Forbidden("Only the project owner can manage members")
		}
		return err
	}
	if !m.IsOwner() {
		return apperr.Forbidden("Only the project owner can manage members")
	}
	return nil
}

// List returns the members of a project. Owner only.
func (s *MemberService) List(ctx context.Context, userID, projectID string, params model.ListParams) ([]*model.ProjectMember, int, error) {
	if projectID == "" {
		return nil, 0, apperr.BadRequest(CodeMissingProjectID, "project_id is required")
	}
	if err := checkSort(params, model.ProjectMemberSortFields); err != nil {
		return nil, 0, err
	}
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return nil, 0, err
	}
	return s.store.ListMembers(ctx, projectID, params)
}

// MemberInput adds a user to a project.
type MemberInput struct {
	ProjectID string
	UserID    string
	Role      string
}

// Add makes a user a member of the project.
func (s *MemberService) Add(ctx context.Context, callerID string, in MemberInput, meta RequestMeta) (*model.ProjectMember, error) {
	role := in.Role
	if role == "" {
		role = model.MemberRoleMember
	}
	if role == model.MemberRoleOwner {
		return nil, errOwnerRoleDenied
	}
	if err := s.requireOwner(ctx, in.ProjectID, callerID); err != nil {
		return nil, err
	}

	exists, err := s.store.UserExists(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound(CodeUserNotFound, "User not found")
	}

	m := &model.ProjectMember{
		ID:        newID(),
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberExists):
			return nil, apperr.Conflict(CodeAlreadyMember, "User is already a member of this project")
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, apperr.NotFound(CodeUserNotFound, "User not found")
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	s.metrics.IncEntity("project_member", metrics.ActionCreated)
	s.events.Record(ctx, callerID, model.EventPermissionChange, model.SeverityMedium,
		map[string]any{"action": "member_added", "project_id": in.ProjectID, "member_user_id": in.UserID, "role": role}, meta)
	return m, nil
}

// loadForChange returns the member row after checking caller ownership and
// that the row is not the owner.
func (s *MemberService) loadForChange(ctx context.Context, callerID, id string) (*model.ProjectMember, error) {
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, errMemberNotFound
		}
		return nil, err
	}
	if err := s.requireOwner(ctx, m.ProjectID, callerID); err != nil {
		return nil, err
	}
	if m.IsOwner() {
		return nil, errOwnerImmutable
	}
	return m, nil
}

// UpdateRole changes a member's role.
func (s *MemberService) UpdateRole(ctx context.Context, callerID, id, role string, meta RequestMeta) (*model.ProjectMember, error) {
	if role == model.MemberRoleOwner {
		return nil, errOwnerRoleDenied
	}
	m, err := s.loadForChange(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateMemberRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, errMemberNotFound
		}
		return nil, fmt.Errorf("update member role: %w", err)
	}

	previous := m.Role
	m.Role = role
	s.metrics.IncEntity("project_member", metrics.ActionUpdated)
	s.events.Record(ctx, callerID, model.EventPermissionChange, model.SeverityMedium,
		map[string]any{"action": "member_role_changed", "project_id": m.ProjectID, "member_user_id": m.UserID, "from": previous, "to": role}, meta)
	return m, nil
}

// Remove deletes a membership.
func (s *MemberService) Remove(ctx context.Context, callerID, id string, meta RequestMeta) error {
	m, err := s.loadForChange(ctx, callerID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMember(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return errMemberNotFound
		}
		return fmt.Errorf("delete member: %w", err)
	}

	s.metrics.IncEntity("project_member", metrics.ActionDeleted)
	s.events.Record(ctx, callerID, model.EventPermissionChange, model.SeverityMedium,
		map[string]any{"action": "member_removed", "project_id": m.ProjectID, "member_user_id": m.UserID}, meta)
	return nil
}
