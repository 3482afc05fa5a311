package scoring

import (
	"slices"
	"time"

	"github.com/wisedom/wisedom/internal/model"
)

// MemberActivity summarizes the tasks assigned to one project member.
type MemberActivity struct {
	UserID         string     `json:"user_id"`
	Role           string     `json:"role"`
	CompletedTasks int        `json:"completed_tasks"`
	ActiveTasks    int        `json:"active_tasks"`
	LastActive     *time.Time `json:"last_active,omitempty"`
}

// ProjectAnalytics is a task breakdown for one project.
type ProjectAnalytics struct {
	ProjectID            string           `json:"project_id"`
	TotalTasks           int              `json:"total_tasks"`
	CompletionRate       float64          `json:"completion_rate"`
	OverdueTasks         int              `json:"overdue_tasks"`
	TaskDistribution     map[string]int   `json:"task_distribution"`
	PriorityDistribution map[string]int   `json:"priority_distribution"`
	UnassignedTasks      int              `json:"unassigned_tasks"`
	MemberActivity       []MemberActivity `json:"member_activity"`
}

// isOpen reports whether a task still needs work.
func isOpen(t *model.Task) bool {
	return t.Status == model.TaskStatusPending || t.Status == model.TaskStatusInProgress
}

// AnalyzeProject computes completion and workload figures from a project's
// tasks and members. CompletionRate is a percentage of all tasks, cancelled
// ones included. Every status and priority appears in the distributions,
// zero or not.
func AnalyzeProject(projectID string, tasks []*model.Task, members []*model.ProjectMember, now time.Time) ProjectAnalytics {
	a := ProjectAnalytics{
		ProjectID:  projectID,
		TotalTasks: len(tasks),
		TaskDistribution: map[string]int{
			model.TaskStatusPending:    0,
			model.TaskStatusInProgress: 0,
			model.TaskStatusCompleted:  0,
			model.TaskStatusCancelled:  0,
		},
		PriorityDistribution: map[string]int{
			model.PriorityHigh:   0,
			model.PriorityMedium: 0,
			model.PriorityLow:    0,
		},
		MemberActivity: make([]MemberActivity, 0, len(members)),
	}

	byUser := make(map[string]*MemberActivity, len(members))
	for _, m := range members {
		a.MemberActivity = append(a.MemberActivity, MemberActivity{UserID: m.UserID, Role: m.Role})
	}
	for i := range a.MemberActivity {
		byUser[a.MemberActivity[i].UserID] = &a.MemberActivity[i]
	}

	for _, t := range tasks {
		a.TaskDistribution[t.Status]++
		a.PriorityDistribution[t.Priority]++
		if isOpen(t) && t.DueDate != nil && t.DueDate.Before(now) {
			a.OverdueTasks++
		}

		if t.AssignedTo == nil {
			a.UnassignedTasks++
			continue
		}
		ma, ok := byUser[*t.AssignedTo]
		if !ok {
			// Assignee has since left the project.
			continue
		}
		switch {
		case t.Status == model.TaskStatusCompleted:
			ma.CompletedTasks++
		case isOpen(t):
			ma.ActiveTasks++
		}
		if ma.LastActive == nil || t.UpdatedAt.After(*ma.LastActive) {
			updated := t.UpdatedAt
			ma.LastActive = &updated
		}
	}

	if a.TotalTasks > 0 {
		a.CompletionRate = float64(a.TaskDistribution[model.TaskStatusCompleted]) / float64(a.TotalTasks) * 100
	}

	slices.SortStableFunc(a.MemberActivity, func(x, y MemberActivity) int {
		if x.CompletedTasks != y.CompletedTasks {
			return y.CompletedTasks - x.CompletedTasks
		}
		return y.ActiveTasks - x.ActiveTasks
	})
	return a
}
