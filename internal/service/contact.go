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

// ContactStore persists contacts and reads their interaction stats.
type ContactStore interface {
	CreateContact(ctx context.Context, c *model.Contact) error
	GetContact(ctx context.Context, userID, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, filter model.ContactFilter, params model.ListParams) ([]*model.Contact, int, error)
	ListAllContacts(ctx context.Context, userID string) ([]*model.Contact, error)
	UpdateContact(ctx context.Context, c *model.Contact) error
	DeleteContact(ctx context.Context, userID, id string) error
	GetInteractionStats(ctx context.Context, contactID string, recentSince time.Time) (*model.InteractionStats, error)
}

// ContactService manages a user's contacts.
type ContactService struct {
	store   ContactStore
	metrics metrics.Recorder
	logger  *slog.Logger
	now     Clock
}

// NewContactService creates a ContactService.
func NewContactService(store ContactStore, recorder metrics.Recorder, logger *slog.Logger) *ContactService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ContactService{
		store:   store,
		metrics: recorder,
		logger:  logger.With("component", "service.contacts"),
		now:     utcNow,
	}
}

// ContactInput defines the fields of a new contact.
type ContactInput struct {
	FirstName            string
	LastName             string
	Email                *string
	Phone                *string
	Company              *string
	Title                *string
	Notes                *string
	Birthday             *time.Time
	Tags                 []string
	RelationshipStrength *int
}

// ContactPatch holds the fields to change. Nil leaves a field untouched and
// an empty string clears an optional field.
type ContactPatch struct {
	FirstName            *string
	LastName             *string
	Email                *string
	Phone                *string
	Company              *string
	Title                *string
	Notes                *string
	Birthday             *time.Time
	ClearBirthday        bool
	Tags                 []string
	RelationshipStrength *int
}

// Create stores a manual contact for userID.
func (s *ContactService) Create(ctx context.Context, userID string, in ContactInput) (*model.Contact, error) {
	now := s.now()
	c := &model.Contact{
		ID:        newID(),
		UserID:    userID,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     trimmed(in.Email),
		Phone:     trimmed(in.Phone),
		Company:   trimmed(in.Company),
		Title:     trimmed(in.Title),
		Notes:     trimmed(in.Notes),
		Birthday:  in.Birthday,
		Source:    model.SourceManual,
		Tags:      normalizeTags(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.RelationshipStrength != nil {
		c.RelationshipStrength = *in.RelationshipStrength
	}

	if err := s.store.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.metrics.IncEntity("contact", metrics.ActionCreated)
	s.logger.Info("contact_created", "contact_id", c.ID, "user_id", userID)
	return c, nil
}

// Get returns a contact owned by userID.
func (s *ContactService) Get(ctx context.Context, userID, id string) (*model.Contact, error) {
	c, err := s.store.GetContact(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, repository.ErrContactNotFound, apperr.CodeNotFound, "Contact not found")
	}
	return c, nil
}

// ContactQuery holds optional list filters.
type ContactQuery struct {
	Search string
	Tag    string
}

// List returns one page of the user's contacts.
func (s *ContactService) List(ctx context.Context, userID string, q ContactQuery, params model.ListParams) ([]*model.Contact, int, error) {
	if err := checkSort(params, model.ContactSortFields); err != nil {
		return nil, 0, err
	}
	return s.store.ListContacts(ctx, model.ContactFilter{
		UserID: userID,
		Search: strings.TrimSpace(q.Search),
		Tag:    strings.TrimSpace(q.Tag),
	}, params)
}

// Update applies a partial update.
func (s *ContactService) Update(ctx context.Context, userID, id string, p ContactPatch) (*model.Contact, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if p.FirstName != nil {
		c.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		c.LastName = strings.TrimSpace(*p.LastName)
	}
	applyOptional(&c.Email, p.Email)
	applyOptional(&c.Phone, p.Phone)
	applyOptional(&c.Company, p.Company)
	applyOptional(&c.Title, p.Title)
	applyOptional(&c.Notes, p.Notes)
	if p.ClearBirthday {
		c.Birthday = nil
	} else if p.Birthday != nil {
		c.Birthday = p.Birthday
	}
	if p.Tags != nil {
		c.Tags = normalizeTags(p.Tags)
	}
	if p.RelationshipStrength != nil {
		c.RelationshipStrength = *p.RelationshipStrength
	}
	c.UpdatedAt = s.now()

	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, notFound(err, repository.ErrContactNotFound, apperr.CodeNotFound, "Contact not found")
	}

	s.metrics.IncEntity("contact", metrics.ActionUpdated)
	return c, nil
}

// Delete removes a contact with its interactions and relationships.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteContact(ctx, userID, id); err != nil {
		return notFound(err, repository.ErrContactNotFound, apperr.CodeNotFound, "Contact not found")
	}

	s.metrics.IncEntity("contact", metrics.ActionDeleted)
	s.logger.Info("contact_deleted", "contact_id", id, "user_id", userID)
	return nil
}

// Strength returns the connection-strength breakdown for one contact.
func (s *ContactService) Strength(ctx context.Context, userID, id string) (*scoring.Strength, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	now := s.now()
	stats, err := s.store.GetInteractionStats(ctx, id, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("interaction stats: %w", err)
	}

	st := scoring.ConnectionStrength(*stats, now)
	st.ContactID = id
	return &st, nil
}

// DuplicateReport lists likely duplicate pairs and the groups they form.
type DuplicateReport struct {
	Threshold float64                 `json:"threshold"`
	Pairs     []scoring.DuplicatePair `json:"pairs"`
	Groups    [][]*model.Contact      `json:"groups"`
}

// Duplicates compares all of the user's contacts pairwise. threshold is in
// (0, 1].
func (s *ContactService) Duplicates(ctx context.Context, userID string, threshold float64) (*DuplicateReport, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fieldError("threshold", "must be greater than 0 and at most 1")
	}

	contacts, err := s.store.ListAllContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return &DuplicateReport{
		Threshold: threshold,
		Pairs:     scoring.DetectDuplicates(contacts, threshold),
		Groups:    scoring.GroupSimilar(contacts, threshold),
	}, nil
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported []*model.Contact `json:"imported"`
	Skipped  []ImportSkip     `json:"skipped"`
}

// ImportSkip names a source row that was not imported and why.
type ImportSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Import creates a manual contact for each input. Rows are independent: a
// failing row is reported and the rest still go in.
func (s *ContactService) Import(ctx context.Context, userID string, rows []ImportRow) (*ImportResult, error) {
	res := &ImportResult{
		Imported: make([]*model.Contact, 0, len(rows)),
		Skipped:  make([]ImportSkip, 0),
	}
	for _, row := range rows {
		if row.Err != "" {
			res.Skipped = append(res.Skipped, ImportSkip{Row: row.Row, Reason: row.Err})
			continue
		}
		c, err := s.Create(ctx, userID, row.Input)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("contact_import_row_failed", "row", row.Row, "user_id", userID, "error", err)
			res.Skipped = append(res.Skipped, ImportSkip{Row: row.Row, Reason: "could not be saved"})
			continue
		}
		res.Imported = append(res.Imported, c)
	}

	s.logger.Info("contacts_imported", "user_id", userID, "imported", len(res.Imported), "skipped", len(res.Skipped))
	return res, nil
}

// ImportRow is one parsed source row. Err is set when the row was rejected
// before reaching the service.
type ImportRow struct {
	Row   int
	Input ContactInput
	Err   string
}

func applyOptional(dst **string, v *string) {
	if v != nil {
		*dst = trimmed(v)
	}
}

// normalizeTags trims, drops blanks and de-duplicates case-insensitively.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

var errContactNotOwned = errors.New("contact not owned")

// ownedContact loads a contact of userID and turns a miss into 403, used
// where the contact is referenced rather than addressed.
func ownedContact(ctx context.Context, get func(context.Context, string, string) (*model.Contact, error), userID, contactID string) (*model.Contact, error) {
	c, err := get(ctx, userID, contactID)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return nil, apperr.Forbidden("You do not have access to this contact").WithCause(errContactNotOwned)
		}
		return nil, err
	}
	return c, nil
}
