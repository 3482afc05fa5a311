package dto

import (
	"time"

	"github.com/wisedom/wisedom/internal/service"
)

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	StartDate   *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string  `json:"status" validate:"omitempty,oneof=active completed archived"`
}

// ToInput converts the request to a service input.
func (r CreateProjectRequest) ToInput() (service.ProjectInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return service.ProjectInput{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return service.ProjectInput{}, err
	}
	return service.ProjectInput{
		Name:        r.Name,
		Description: r.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      r.Status,
	}, nil
}

// UpdateProjectRequest is the body of PATCH /projects/{id}.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	StartDate   *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Status      *string `json:"status" validate:"omitnil,oneof=active completed archived"`
}

// ToPatch converts the request to a service patch.
func (r UpdateProjectRequest) ToPatch() (service.ProjectPatch, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return service.ProjectPatch{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return service.ProjectPatch{}, err
	}
	return service.ProjectPatch{
		Name:        r.Name,
		Description: r.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      r.Status,
	}, nil
}

// AddMemberRequest is the body of POST /project-members.
type AddMemberRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required,uuid"`
	Role      string `json:"role" validate:"omitempty,oneof=member admin owner"`
}

// UpdateMemberRequest is the body of PATCH /project-members/{id}.
type UpdateMemberRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin owner"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required,notblank,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid"`
}

// ToInput converts the request to a service input.
func (r CreateTaskRequest) ToInput() service.TaskInput {
	return service.TaskInput{
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Priority:    r.Priority,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
	}
}

// UpdateTaskRequest is the body of PATCH /tasks/{id}. An empty assigned_to
// unassigns the task.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitnil,notblank,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *string    `json:"priority" validate:"omitnil,oneof=low medium high"`
	Status      *string    `json:"status" validate:"omitnil,oneof=pending in_progress completed cancelled"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid|len=0"`
}

// ToPatch converts the request to a service patch.
func (r UpdateTaskRequest) ToPatch() service.TaskPatch {
	return service.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Priority:    r.Priority,
		Status:      r.Status,
		AssignedTo:  r.AssignedTo,
	}
}
