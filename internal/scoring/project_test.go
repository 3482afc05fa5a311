package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisedom/wisedom/internal/model"
)

func TestAnalyzeProject(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	members := []*model.ProjectMember{
		{UserID: "owner", Role: model.MemberRoleOwner},
		{UserID: "dev", Role: model.MemberRoleMember},
		{UserID: "idle", Role: model.MemberRoleMember},
	}
	task := func(status, priority string, assignee *string, due *time.Time, updated time.Time) *model.Task {
		return &model.Task{Status: status, Priority: priority, AssignedTo: assignee, DueDate: due, UpdatedAt: updated}
	}
	tasks := []*model.Task{
		task(model.TaskStatusCompleted, model.PriorityHigh, sp("dev"), &yesterday, now.Add(-2*time.Hour)),
		task(model.TaskStatusCompleted, model.PriorityMedium, sp("dev"), nil, now.Add(-time.Hour)),
		task(model.TaskStatusInProgress, model.PriorityHigh, sp("owner"), &yesterday, now.Add(-3*time.Hour)),
		task(model.TaskStatusPending, model.PriorityLow, nil, &tomorrow, now),
		task(model.TaskStatusCancelled, model.PriorityLow, sp("owner"), &yesterday, now.Add(-4*time.Hour)),
		task(model.TaskStatusPending, model.PriorityMedium, sp("departed"), nil, now),
	}

	a := AnalyzeProject("p1", tasks, members, now)

	assert.Equal(t, "p1", a.ProjectID)
	assert.Equal(t, 6, a.TotalTasks)
	assert.InDelta(t, 100.0/3, a.CompletionRate, 1e-9)
	assert.Equal(t, 1, a.OverdueTasks, "only open tasks count as overdue")
	assert.Equal(t, 1, a.UnassignedTasks)
	assert.Equal(t, map[string]int{
		model.TaskStatusPending:    2,
		model.TaskStatusInProgress: 1,
		model.TaskStatusCompleted:  2,
		model.TaskStatusCancelled:  1,
	}, a.TaskDistribution)
	assert.Equal(t, map[string]int{model.PriorityHigh: 2, model.PriorityMedium: 2, model.PriorityLow: 2}, a.PriorityDistribution)

	require.Len(t, a.MemberActivity, 3)
	dev, owner, idle := a.MemberActivity[0], a.MemberActivity[1], a.MemberActivity[2]

	assert.Equal(t, "dev", dev.UserID)
	assert.Equal(t, 2, dev.CompletedTasks)
	assert.Zero(t, dev.ActiveTasks)
	require.NotNil(t, dev.LastActive)
	assert.Equal(t, now.Add(-time.Hour), *dev.LastActive)

	assert.Equal(t, "owner", owner.UserID)
	assert.Equal(t, 1, owner.ActiveTasks, "cancelled tasks are neither active nor completed")
	require.NotNil(t, owner.LastActive)
	assert.Equal(t, now.Add(-3*time.Hour), *owner.LastActive)

	assert.Equal(t, "idle", idle.UserID)
	assert.Nil(t, idle.LastActive)
}

func TestAnalyzeProject_Empty(t *testing.T) {
	t.Parallel()

	a := AnalyzeProject("p1", nil, nil, time.Now())
	assert.Zero(t, a.CompletionRate)
	assert.NotNil(t, a.MemberActivity)
	assert.Equal(t, 0, a.TaskDistribution[model.TaskStatusCompleted])
	assert.Len(t, a.PriorityDistribution, 3)
}
