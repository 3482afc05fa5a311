package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
	"github.com/wisedom/wisedom/internal/scoring"
)

// ProjectStore persists projects and memberships.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project, owner *model.ProjectMember) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, filter model.ProjectFilter, params model.ListParams) ([]*model.Project, int, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error
	GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	ListAllMembers(ctx context.Context, projectID string) ([]*model.ProjectMember, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]*model.Task, error)
}

// ProjectService manages projects. Visibility follows membership.
type ProjectService struct {
	store   ProjectStore
	events  *SecurityEventService
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewProjectService creates a ProjectService.
func NewProjectService(store ProjectStore, events *SecurityEventService, recorder metrics.Recorder, logger *slog.Logger) *ProjectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProjectService{
		store:   store,
		events:  events,
		metrics: recorder,
		logger:  logger.With("component", "service.projects"),
		now:     utcNow,
	}
}

// ProjectInput defines a new project.
type ProjectInput struct {
	Name        string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      string
}

// ProjectPatch holds the fields to change.
type ProjectPatch struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *string
}

var errProjectNotFound = apperr.NotFound(apperr.CodeNotFound, "Project not found")

// Create stores a project and makes userID its owner.
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*model.Project, error) {
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.ProjectStatusActive
	}

	now := s.now()
	p := &model.Project{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: trimmed(in.Description),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      status,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &model.ProjectMember{
		ID:        newID(),
		ProjectID: p.ID,
		UserID:    userID,
		Role:      model.MemberRoleOwner,
		CreatedAt: now,
	}

	if err := s.store.CreateProject(ctx, p, owner); err != nil {
		if errors.Is(err, repository.ErrInvalidDates) {
			return nil, fieldError("end_date", "must not be before start_date")
		}
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.metrics.IncEntity("project", metrics.ActionCreated)
	s.logger.Info("project_created", "project_id", p.ID, "user_id", userID)
	return p, nil
}

// membership returns the caller's membership, or 404 when the caller is
// not a member so the project's existence is not disclosed.
func (s *ProjectService) membership(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, errProjectNotFound
		}
		return nil, err
	}
	return m, nil
}

// Get returns a project the caller belongs to.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	if _, err := s.membership(ctx, id, userID); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrProjectNotFound, apperr.CodeNotFound, "Project not found")
	}
	return p, nil
}

// List returns projects where userID is a member.
func (s *ProjectService) List(ctx context.Context, userID, status string, params model.ListParams) ([]*model.Project, int, error) {
	if err := checkSort(params, model.ProjectSortFields); err != nil {
		return nil, 0, err
	}
	return s.store.ListProjects(ctx, model.ProjectFilter{MemberID: userID, Status: status}, params)
}

// Update changes a project. Owners and admins only.
func (s *ProjectService) Update(ctx context.Context, userID, id string, patch ProjectPatch) (*model.Project, error) {
	m, err := s.membership(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !m.CanManage() {
		return nil, apperr.Forbidden("Only project owners and admins can update the project")
	}

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, notFound(err, repository.ErrProjectNotFound, apperr.CodeNotFound, "Project not found")
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	applyOptional(&p.Description, patch.Description)
	if patch.StartDate != nil {
		p.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = patch.EndDate
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if err := checkDates(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProject(ctx, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidDates):
			return nil, fieldError("end_date", "must not be before start_date")
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, errProjectNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.metrics.IncEntity("project", metrics.ActionUpdated)
	return p, nil
}

// Delete removes a project with its members and tasks. Owner only.
func (s *ProjectService) Delete(ctx context.Context, userID, id string, meta RequestMeta) error {
	m, err := s.membership(ctx, id, userID)
	if err != nil {
		return err
	}
	if !m.IsOwner() {
		return apperr.Forbidden("Only the project owner can delete the project")
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		return notFound(err, repository.ErrProjectNotFound, apperr.CodeNotFound, "Project not found")
	}

	s.metrics.IncEntity("project", metrics.ActionDeleted)
	s.events.Record(ctx, userID, model.EventDataModification, model.SeverityLow,
		map[string]any{"action": "project_deleted", "project_id": id}, meta)
	s.logger.Info("project_deleted", "project_id", id, "user_id", userID)
	return nil
}

// Analytics summarizes the tasks and member workload of a project the
// caller belongs to.
func (s *ProjectService) Analytics(ctx context.Context, userID, id string) (*scoring.ProjectAnalytics, error) {
	if _, err := s.membership(ctx, id, userID); err != nil {
		return nil, err
	}

	tasks, err := s.store.ListProjectTasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	members, err := s.store.ListAllMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}

	a := scoring.AnalyzeProject(id, tasks, members, s.now())
	return &a, nil
}
