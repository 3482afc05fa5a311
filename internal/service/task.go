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
)

// TaskStore persists tasks and answers membership questions.
type TaskStore interface {
	GetMembership(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter model.TaskFilter, params model.ListParams) ([]*model.Task, int, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// TaskService manages tasks inside projects.
type TaskService struct {
	store   TaskStore
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewTaskService creates a TaskService.
func NewTaskService(store TaskStore, recorder metrics.Recorder, logger *slog.Logger) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		store:   store,
		metrics: recorder,
		logger:  logger.With("component", "service.tasks"),
		now:     utcNow,
	}
}

var errTaskNotFound = apperr.NotFound(apperr.CodeNotFound, "Task not found")

// TaskInput defines a new task.
type TaskInput struct {
	ProjectID   string
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    string
	Status      string
	AssignedTo  *string
}

// TaskPatch holds the fields to change. An empty AssignedTo unassigns.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	Status      *string
	AssignedTo  *string
}

// TaskQuery holds optional list filters.
type TaskQuery struct {
	ProjectID  string
	Status     string
	Priority   string
	AssignedTo string
}

// member returns the caller's membership or 403.
func (s *TaskService) member(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, apperr.Forbidden("You are not a member of this project")
		}
		return nil, err
	}
	return m, nil
}

// checkAssignee requires the assignee to be a member of the project.
func (s *TaskService) checkAssignee(ctx context.Context, projectID string, assignee *string) error {
	if assignee == nil {
		return nil
	}
	if _, err := s.store.GetMembership(ctx, projectID, *assignee); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return apperr.BadRequest(CodeInvalidAssignee, "assigned_to must be a member of the project")
		}
		return err
	}
	return nil
}

// Create adds a task to a project the caller belongs to.
func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*model.Task, error) {
	if _, err := s.member(ctx, in.ProjectID, userID); err != nil {
		return nil, err
	}
	assignee := trimmed(in.AssignedTo)
	if err := s.checkAssignee(ctx, in.ProjectID, assignee); err != nil {
		return nil, err
	}

	now := s.now()
	t := &model.Task{
		ID:          newID(),
		ProjectID:   in.ProjectID,
		Title:       strings.TrimSpace(in.Title),
		Description: trimmed(in.Description),
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Status:      in.Status,
		AssignedTo:  assignee,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.TaskStatusPending
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperr.Forbidden("You are not a member of this project")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.metrics.IncEntity("task", metrics.ActionCreated)
	s.logger.Info("task_created", "task_id", t.ID, "project_id", t.ProjectID, "user_id", userID)
	return t, nil
}

// Get returns a task in a project the caller belongs to.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, errTaskNotFound
		}
		return nil, err
	}
	if _, err := s.member(ctx, t.ProjectID, userID); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tasks across the caller's projects.
func (s *TaskService) List(ctx context.Context, userID string, q TaskQuery, params model.ListParams) ([]*model.Task, int, error) {
	if err := checkSort(params, model.TaskSortFields); err != nil {
		return nil, 0, err
	}
	return s.store.ListTasks(ctx, model.TaskFilter{
		MemberID:   userID,
		ProjectID:  q.ProjectID,
		Status:     q.Status,
		Priority:   q.Priority,
		AssignedTo: q.AssignedTo,
	}, params)
}

// Update changes a task. Any project member may update.
func (s *TaskService) Update(ctx context.Context, userID, id string, p TaskPatch) (*model.Task, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.AssignedTo != nil {
		assignee := trimmed(p.AssignedTo)
		if err := s.checkAssignee(ctx, t.ProjectID, assignee); err != nil {
			return nil, err
		}
		t.AssignedTo = assignee
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	applyOptional(&t.Description, p.Description)
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = s.now()

	if err := s.store.UpdateTask(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, errTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.metrics.IncEntity("task", metrics.ActionUpdated)
	return t, nil
}

// Delete removes a task. Project owners and admins only.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return errTaskNotFound
		}
		return err
	}
	m, err := s.member(ctx, t.ProjectID, userID)
	if err != nil {
		return err
	}
	if !m.CanManage() {
		return apperr.Forbidden("Only project owners and admins can delete tasks")
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return errTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.metrics.IncEntity("task", metrics.ActionDeleted)
	s.logger.Info("task_deleted", "task_id", id, "user_id", userID)
	return nil
}
