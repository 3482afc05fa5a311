package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
	"github.com/wisedom/wisedom/internal/scoring"
)

// Insight defaults and bounds.
const (
	DefaultBirthdayDays   = 30
	MaxBirthdayDays       = 366
	DefaultPriorityLimit  = 10
	MaxPriorityLimit      = 100
	actionBirthdayWindow  = 7
	recentInteractionSpan = 24 * time.Hour
)

// InsightStore reads contacts with their aggregated interaction stats and
// writes back recomputed strengths.
type InsightStore interface {
	ListAllContacts(ctx context.Context, userID string) ([]*model.Contact, error)
	ListInteractionStats(ctx context.Context, userID string, recentSince time.Time) (map[string]*model.InteractionStats, error)
	GetContactByID(ctx context.Context, id string) (*model.Contact, error)
	GetInteractionStats(ctx context.Context, contactID string, recentSince time.Time) (*model.InteractionStats, error)
	UpdateContactStrength(ctx context.Context, id string, strength int) error
}

// InsightService derives follow-ups, birthdays and priorities from contacts.
type InsightService struct {
	store  InsightStore
	logger *slog.Logger
	now    Clock
}

// NewInsightService creates an InsightService.
func NewInsightService(store InsightStore, logger *slog.Logger) *InsightService {
	return &InsightService{
		store:  store,
		logger: logger.With("component", "service.insights"),
		now:    utcNow,
	}
}

// ContactPriority is one entry of the priorities insight.
type ContactPriority struct {
	ContactID   string  `json:"contact_id"`
	ContactName string  `json:"contact_name"`
	Score       float64 `json:"score"`
}

// snapshot loads every contact of the user with its stats.
func (s *InsightService) snapshot(ctx context.Context, userID string, now time.Time) ([]*model.Contact, map[string]*model.InteractionStats, error) {
	contacts, err := s.store.ListAllContacts(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list contacts: %w", err)
	}
	stats, err := s.store.ListInteractionStats(ctx, userID, now.Add(-recentInteractionSpan))
	if err != nil {
		return nil, nil, fmt.Errorf("interaction stats: %w", err)
	}
	return contacts, stats, nil
}

func followUps(contacts []*model.Contact, stats map[string]*model.InteractionStats, now time.Time) []scoring.ActionItem {
	items := make([]scoring.ActionItem, 0)
	for _, c := range contacts {
		var last *time.Time
		if st, ok := stats[c.ID]; ok {
			last = st.LastInteraction
		}
		if item, ok := scoring.FollowUp(c, last, now); ok {
			items = append(items, item)
		}
	}
	return items
}

// FollowUps lists contacts that have gone quiet for more than 30 days.
func (s *InsightService) FollowUps(ctx context.Context, userID string) ([]scoring.ActionItem, error) {
	now := s.now()
	contacts, stats, err := s.snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	items := followUps(contacts, stats, now)
	scoring.SortActionItems(items)
	return items, nil
}

// Birthdays lists birthdays within the next days, soonest first.
func (s *InsightService) Birthdays(ctx context.Context, userID string, days int) ([]scoring.UpcomingBirthday, error) {
	if days < 1 || days > MaxBirthdayDays {
		return nil, apperr.BadRequest(CodeInvalidRange, fmt.Sprintf("days must be between 1 and %d", MaxBirthdayDays))
	}
	contacts, err := s.store.ListAllContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return scoring.UpcomingBirthdays(contacts, days, s.now()), nil
}

// ActionItems merges imminent birthdays with follow-ups.
func (s *InsightService) ActionItems(ctx context.Context, userID string) ([]scoring.ActionItem, error) {
	now := s.now()
	contacts, stats, err := s.snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	items := followUps(contacts, stats, now)
	for _, b := range scoring.UpcomingBirthdays(contacts, actionBirthdayWindow, now) {
		if item, ok := scoring.BirthdayItem(b); ok {
			items = append(items, item)
		}
	}
	scoring.SortActionItems(items)
	return items, nil
}

// Priorities returns the highest-priority contacts, at most limit.
func (s *InsightService) Priorities(ctx context.Context, userID string, limit int) ([]ContactPriority, error) {
	if limit < 1 || limit > MaxPriorityLimit {
		return nil, apperr.BadRequest(CodeInvalidRange, fmt.Sprintf("limit must be between 1 and %d", MaxPriorityLimit))
	}

	now := s.now()
	contacts, stats, err := s.snapshot(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	out := make([]ContactPriority, 0, len(contacts))
	for _, c := range contacts {
		in := scoring.PriorityInputFor(c, stats[c.ID])
		out = append(out, ContactPriority{
			ContactID:   c.ID,
			ContactName: c.FullName(),
			Score:       scoring.PriorityScore(in, now),
		})
	}
	slices.SortStableFunc(out, func(a, b ContactPriority) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecomputeStrength stores the current strength of one contact. It returns
// activity.ErrContactGone when the contact no longer exists.
func (s *InsightService) RecomputeStrength(ctx context.Context, contactID string) error {
	if _, err := s.store.GetContactByID(ctx, contactID); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return activity.ErrContactGone
		}
		return err
	}

	now := s.now()
	stats, err := s.store.GetInteractionStats(ctx, contactID, now.Add(-recentInteractionSpan))
	if err != nil {
		return fmt.Errorf("interaction stats: %w", err)
	}

	strength := scoring.StoredStrength(*stats, now)
	if err := s.store.UpdateContactStrength(ctx, contactID, strength); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return activity.ErrContactGone
		}
		return fmt.Errorf("update strength: %w", err)
	}

	s.logger.Debug("strength_recomputed", "contact_id", contactID, "strength", strength)
	return nil
}

var _ activity.StrengthUpdater = (*InsightService)(nil)
