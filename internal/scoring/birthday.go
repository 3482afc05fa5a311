package scoring

import (
	"cmp"
	"slices"
	"time"

	"github.com/wisedom/wisedom/internal/model"
)

// UpcomingBirthday is one entry of the birthdays insight.
type UpcomingBirthday struct {
	ContactID    string    `json:"contact_id"`
	ContactName  string    `json:"contact_name"`
	Birthday     time.Time `json:"birthday"`
	NextBirthday time.Time `json:"next_birthday"`
	DaysUntil    int       `json:"days_until"`
}

// NextBirthday returns the next occurrence of birthday on or after the
// calendar day of now, and the number of whole days until it.
// Feb 29 birthdays fall on Feb 28 in non-leap years.
func NextBirthday(birthday, now time.Time) (time.Time, int) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	next := anniversary(birthday, today.Year())
	if next.Before(today) {
		next = anniversary(birthday, today.Year()+1)
	}

	return next, int(next.Sub(today) / day)
}

func anniversary(birthday time.Time, year int) time.Time {
	month, d := birthday.Month(), birthday.Day()
	if month == time.February && d == 29 && !isLeap(year) {
		d = 28
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// UpcomingBirthdays lists contacts whose birthday falls within the next
// withinDays days, soonest first.
func UpcomingBirthdays(contacts []*model.Contact, withinDays int, now time.Time) []UpcomingBirthday {
	out := make([]UpcomingBirthday, 0)
	for _, c := range contacts {
		if c.Birthday == nil {
			continue
		}
		next, days := NextBirthday(*c.Birthday, now)
		if days > withinDays {
			continue
		}
		out = append(out, UpcomingBirthday{
			ContactID:    c.ID,
			ContactName:  c.FullName(),
			Birthday:     *c.Birthday,
			NextBirthday: next,
			DaysUntil:    days,
		})
	}

	slices.SortStableFunc(out, func(a, b UpcomingBirthday) int {
		return cmp.Compare(a.DaysUntil, b.DaysUntil)
	})
	return out
}
