package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
	"github.com/wisedom/wisedom/internal/scoring"
)

// InteractionStore persists interactions.
type InteractionStore interface {
	GetContact(ctx context.Context, userID, id string) (*model.Contact, error)
	CreateInteraction(ctx context.Context, i *model.Interaction) error
	GetInteraction(ctx context.Context, id string) (*model.Interaction, error)
	ListInteractions(ctx context.Context, filter model.InteractionFilter, params model.ListParams) ([]*model.Interaction, int, error)
	UpdateInteraction(ctx context.Context, i *model.Interaction) error
	DeleteInteraction(ctx context.Context, id string) error
}

// ActivityPublisher announces contact activity to the strength worker.
type ActivityPublisher interface {
	PublishAsync(event activity.Event)
}

// InteractionService logs touchpoints with contacts.
type InteractionService struct {
	store     InteractionStore
	publisher ActivityPublisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	now       Clock
}

// NewInteractionService creates an InteractionService. publisher may be nil.
func NewInteractionService(store InteractionStore, publisher ActivityPublisher, recorder metrics.Recorder, logger *slog.Logger) *InteractionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &InteractionService{
		store:     store,
		publisher: publisher,
		metrics:   recorder,
		logger:    logger.With("component", "service.interactions"),
		now:       utcNow,
	}
}

var errInteractionNotFound = apperr.NotFound(apperr.CodeNotFound, "Interaction not found")

// InteractionInput defines a new interaction.
type InteractionInput struct {
	ContactID         string
	InteractionType   string
	Notes             *string
	InteractionDate   *time.Time
	ResponseTimeHours *float64
	Sentiment         *float64
	Topics            []string
}

// InteractionPatch holds the fields to change.
type InteractionPatch struct {
	InteractionType   *string
	Notes             *string
	InteractionDate   *time.Time
	ResponseTimeHours *float64
	Sentiment         *float64
	Topics            []string
}

// Create logs an interaction with one of the caller's contacts.
func (s *InteractionService) Create(ctx context.Context, userID string, in InteractionInput) (*model.Interaction, error) {
	if _, err := ownedContact(ctx, s.store.GetContact, userID, in.ContactID); err != nil {
		return nil, err
	}

	now := s.now()
	i := &model.Interaction{
		ID:                newID(),
		ContactID:         in.ContactID,
		UserID:            userID,
		InteractionType:   in.InteractionType,
		Notes:             trimmed(in.Notes),
		InteractionDate:   now,
		ResponseTimeHours: in.ResponseTimeHours,
		Sentiment:         in.Sentiment,
		Topics:            normalizeTags(in.Topics),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.InteractionDate != nil {
		i.InteractionDate = in.InteractionDate.UTC()
	}
	if i.Sentiment == nil {
		i.Sentiment = deriveSentiment(i.Notes)
	}

	if err := s.store.CreateInteraction(ctx, i); err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, apperr.Forbidden("You do not have access to this contact")
		}
		return nil, fmt.Errorf("create interaction: %w", err)
	}

	s.metrics.IncEntity("interaction", metrics.ActionCreated)
	s.publish(i, activity.KindInteractionLogged)
	s.logger.Info("interaction_logged", "interaction_id", i.ID, "contact_id", i.ContactID, "user_id", userID)
	return i, nil
}

// load fetches an interaction and checks the caller owns its contact.
func (s *InteractionService) load(ctx context.Context, userID, id string) (*model.Interaction, error) {
	i, err := s.store.GetInteraction(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInteractionNotFound) {
			return nil, errInteractionNotFound
		}
		return nil, err
	}
	if _, err := ownedContact(ctx, s.store.GetContact, userID, i.ContactID); err != nil {
		return nil, err
	}
	return i, nil
}

// Get returns one interaction.
func (s *InteractionService) Get(ctx context.Context, userID, id string) (*model.Interaction, error) {
	return s.load(ctx, userID, id)
}

// List returns interactions on the caller's contacts.
func (s *InteractionService) List(ctx context.Context, userID, contactID string, params model.ListParams) ([]*model.Interaction, int, error) {
	if err := checkSort(params, model.InteractionSortFields); err != nil {
		return nil, 0, err
	}
	return s.store.ListInteractions(ctx, model.InteractionFilter{UserID: userID, ContactID: contactID}, params)
}

// Update changes an interaction. Editing the notes without a sentiment
// re-derives the sentiment from the new notes.
func (s *InteractionService) Update(ctx context.Context, userID, id string, p InteractionPatch) (*model.Interaction, error) {
	i, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.InteractionType != nil {
		i.InteractionType = *p.InteractionType
	}
	if p.Notes != nil {
		i.Notes = trimmed(p.Notes)
		if p.Sentiment == nil {
			i.Sentiment = deriveSentiment(i.Notes)
		}
	}
	if p.InteractionDate != nil {
		i.InteractionDate = p.InteractionDate.UTC()
	}
	if p.ResponseTimeHours != nil {
		i.ResponseTimeHours = p.ResponseTimeHours
	}
	if p.Sentiment != nil {
		i.Sentiment = p.Sentiment
	}
	if p.Topics != nil {
		i.Topics = normalizeTags(p.Topics)
	}
	i.UpdatedAt = s.now()

	if err := s.store.UpdateInteraction(ctx, i); err != nil {
		if errors.Is(err, repository.ErrInteractionNotFound) {
			return nil, errInteractionNotFound
		}
		return nil, fmt.Errorf("update interaction: %w", err)
	}

	s.metrics.IncEntity("interaction", metrics.ActionUpdated)
	s.publish(i, activity.KindInteractionUpdated)
	return i, nil
}

// Delete removes an interaction.
func (s *InteractionService) Delete(ctx context.Context, userID, id string) error {
	i, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteInteraction(ctx, id); err != nil {
		if errors.Is(err, repository.ErrInteractionNotFound) {
			return errInteractionNotFound
		}
		return fmt.Errorf("delete interaction: %w", err)
	}

	s.metrics.IncEntity("interaction", metrics.ActionDeleted)
	s.publish(i, activity.KindInteractionDeleted)
	return nil
}

func (s *InteractionService) publish(i *model.Interaction, kind string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsync(activity.NewEvent(i.ContactID, i.UserID, kind, s.now()))
}

// deriveSentiment scores notes, or returns nil when there are none.
func deriveSentiment(notes *string) *float64 {
	if notes == nil {
		return nil
	}
	v := scoring.Sentiment(*notes)
	return &v
}
