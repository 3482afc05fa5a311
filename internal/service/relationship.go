package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/metrics"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

// RelationshipStore persists contact relationships.
type RelationshipStore interface {
	GetContact(ctx context.Context, userID, id string) (*model.Contact, error)
	CreateRelationship(ctx context.Context, rel *model.Relationship) error
	GetRelationship(ctx context.Context, id string) (*model.Relationship, error)
	ListRelationships(ctx context.Context, filter model.RelationshipFilter, params model.ListParams) ([]*model.Relationship, int, error)
	UpdateRelationship(ctx context.Context, rel *model.Relationship) error
	DeleteRelationship(ctx context.Context, id string) error
}

// RelationshipService links pairs of the caller's contacts.
type RelationshipService struct {
	store   RelationshipStore
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewRelationshipService creates a RelationshipService.
func NewRelationshipService(store RelationshipStore, recorder metrics.Recorder, logger *slog.Logger) *RelationshipService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RelationshipService{
		store:   store,
		metrics: recorder,
		logger:  logger.With("component", "service.relationships"),
		now:     utcNow,
	}
}

var (
	errRelationshipNotFound = apperr.NotFound(apperr.CodeNotFound, "Relationship not found")
	errRelationshipExists   = apperr.Conflict(CodeRelationshipExists, "This relationship already exists")
	errSelfRelationship     = apperr.BadRequest(CodeSelfRelationship, "A contact cannot have a relationship with itself")
)

// RelationshipInput defines a new relationship.
type RelationshipInput struct {
	ContactID        string
	RelatedContactID string
	RelationshipType string
	Notes            *string
}

// RelationshipPatch holds the fields to change.
type RelationshipPatch struct {
	RelationshipType *string
	Notes            *string
}

// Create links two contacts owned by the caller.
func (s *RelationshipService) Create(ctx context.Context, userID string, in RelationshipInput) (*model.Relationship, error) {
	if in.ContactID == in.RelatedContactID {
		return nil, errSelfRelationship
	}
	for _, id := range []string{in.ContactID, in.RelatedContactID} {
		if _, err := ownedContact(ctx, s.store.GetContact, userID, id); err != nil {
			return nil, err
		}
	}

	now := s.now()
	rel := &model.Relationship{
		ID:               newID(),
		UserID:           userID,
		ContactID:        in.ContactID,
		RelatedContactID: in.RelatedContactID,
		RelationshipType: strings.TrimSpace(in.RelationshipType),
		Notes:            trimmed(in.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreateRelationship(ctx, rel); err != nil {
		switch {
		case errors.Is(err, repository.ErrRelationshipExists):
			return nil, errRelationshipExists
		case errors.Is(err, repository.ErrSelfRelationship):
			return nil, errSelfRelationship
		case errors.Is(err, repository.ErrContactNotFound):
			return nil, apperr.Forbidden("You do not have access to this contact")
		}
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	s.metrics.IncEntity("relationship", metrics.ActionCreated)
	return rel, nil
}

// load fetches a relationship and checks ownership.
func (s *RelationshipService) load(ctx context.Context, userID, id string) (*model.Relationship, error) {
	rel, err := s.store.GetRelationship(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return nil, errRelationshipNotFound
		}
		return nil, err
	}
	if rel.UserID != userID {
		return nil, apperr.Forbidden("You do not have access to this relationship")
	}
	return rel, nil
}

// Get returns one relationship.
func (s *RelationshipService) Get(ctx context.Context, userID, id string) (*model.Relationship, error) {
	return s.load(ctx, userID, id)
}

// List returns the caller's relationships, optionally those touching one contact.
func (s *RelationshipService) List(ctx context.Context, userID, contactID string, params model.ListParams) ([]*model.Relationship, int, error) {
	if err := checkSort(params, model.RelationshipSortFields); err != nil {
		return nil, 0, err
	}
	return s.store.ListRelationships(ctx, model.RelationshipFilter{UserID: userID, ContactID: contactID}, params)
}

// Update changes the type or notes.
func (s *RelationshipService) Update(ctx context.Context, userID, id string, p RelationshipPatch) (*model.Relationship, error) {
	rel, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.RelationshipType != nil {
		rel.RelationshipType = strings.TrimSpace(*p.RelationshipType)
	}
	applyOptional(&rel.Notes, p.Notes)
	rel.UpdatedAt = s.now()

	if err := s.store.UpdateRelationship(ctx, rel); err != nil {
		switch {
		case errors.Is(err, repository.ErrRelationshipNotFound):
			return nil, errRelationshipNotFound
		case errors.Is(err, repository.ErrRelationshipExists):
			return nil, errRelationshipExists
		}
		return nil, fmt.Errorf("update relationship: %w", err)
	}

	s.metrics.IncEntity("relationship", metrics.ActionUpdated)
	return rel, nil
}

// Delete removes a relationship.
func (s *RelationshipService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteRelationship(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRelationshipNotFound) {
			return errRelationshipNotFound
		}
		return fmt.Errorf("delete relationship: %w", err)
	}

	s.metrics.IncEntity("relationship", metrics.ActionDeleted)
	return nil
}
