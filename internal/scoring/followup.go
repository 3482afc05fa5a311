package scoring

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/wisedom/wisedom/internal/model"
)

// Action item types.
const (
	ItemFollowUp = "follow-up"
	ItemBirthday = "birthday"
)

const (
	followUpAfterDays   = 30
	followUpDueIn       = 7 * day
	birthdayActionDays  = 7
	birthdayUrgentDays  = 3
	followUpActionLabel = "Schedule a catch-up call"
)

// ActionItem is a suggested next step for one contact.
type ActionItem struct {
	Type        string    `json:"type"`
	ContactID   string    `json:"contact_id"`
	ContactName string    `json:"contact_name"`
	Title       string    `json:"title"`
	Priority    string    `json:"priority"`
	Reason      string    `json:"reason"`
	Action      string    `json:"action"`
	DueDate     time.Time `json:"due_date"`
}

// FollowUp returns a follow-up item when the contact has gone quiet for more
// than 30 days. Contacts that were never contacted produce no item.
func FollowUp(c *model.Contact, last *time.Time, now time.Time) (ActionItem, bool) {
	if last == nil {
		return ActionItem{}, false
	}

	days := int(daysSince(*last, now))
	if days <= followUpAfterDays {
		return ActionItem{}, false
	}

	return ActionItem{
		Type:        ItemFollowUp,
		ContactID:   c.ID,
		ContactName: c.FullName(),
		Title:       "Follow up with " + c.FullName(),
		Priority:    model.PriorityHigh,
		Reason:      fmt.Sprintf("No interaction in %d days", days),
		Action:      followUpActionLabel,
		DueDate:     now.Add(followUpDueIn),
	}, true
}

// BirthdayItem returns an action item for a birthday within the next week.
// Birthdays within three days are high priority.
func BirthdayItem(b UpcomingBirthday) (ActionItem, bool) {
	if b.DaysUntil > birthdayActionDays {
		return ActionItem{}, false
	}

	priority := model.PriorityMedium
	if b.DaysUntil <= birthdayUrgentDays {
		priority = model.PriorityHigh
	}

	return ActionItem{
		Type:        ItemBirthday,
		ContactID:   b.ContactID,
		ContactName: b.ContactName,
		Title:       b.ContactName + "'s Birthday",
		Priority:    priority,
		Reason:      fmt.Sprintf("Birthday in %d days", b.DaysUntil),
		Action:      "Send birthday wishes",
		DueDate:     b.NextBirthday,
	}, true
}

// SortActionItems orders by priority rank, then by due date.
func SortActionItems(items []ActionItem) {
	slices.SortStableFunc(items, func(a, b ActionItem) int {
		if c := cmp.Compare(model.PriorityRank(a.Priority), model.PriorityRank(b.Priority)); c != 0 {
			return c
		}
		return a.DueDate.Compare(b.DueDate)
	})
}
