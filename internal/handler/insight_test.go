package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
	"github.com/wisedom/wisedom/internal/service"
)

// insightStore serves a fixed set of contacts with no interactions.
type insightStore struct {
	contacts []*model.Contact
}

func newInsightStore(n int) *insightStore {
	s := &insightStore{}
	for i := 0; i < n; i++ {
		s.contacts = append(s.contacts, &model.Contact{
			ID:        uuid.NewString(),
			UserID:    testUserID,
			FirstName: fmt.Sprintf("Contact%02d", i),
			LastName:  "Test",
			Tags:      []string{},
		})
	}
	return s
}

func (s *insightStore) ListAllContacts(_ context.Context, userID string) ([]*model.Contact, error) {
	var out []*model.Contact
	for _, c := range s.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *insightStore) ListInteractionStats(context.Context, string, time.Time) (map[string]*model.InteractionStats, error) {
	return map[string]*model.InteractionStats{}, nil
}

func (s *insightStore) GetContactByID(_ context.Context, id string) (*model.Contact, error) {
	for _, c := range s.contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrContactNotFound
}

func (s *insightStore) GetInteractionStats(_ context.Context, contactID string, _ time.Time) (*model.InteractionStats, error) {
	return &model.InteractionStats{ContactID: contactID}, nil
}

func (s *insightStore) UpdateContactStrength(context.Context, string, int) error {
	return nil
}

func newInsightRouter(store *insightStore) http.Handler {
	h := NewInsightHandler(service.NewInsightService(store, discardLogger()), discardLogger())
	r := chi.NewRouter()
	r.Use(withUser(testUserID))
	r.Get("/api/v1/insights/priorities", h.Priorities)
	return r
}

func TestInsightHandler_PrioritiesLimit(t *testing.T) {
	router := newInsightRouter(newInsightStore(service.DefaultPriorityLimit + 5))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLen    int
	}{
		{"default limit", "", http.StatusOK, 10},
		{"explicit limit", "?limit=3", http.StatusOK, 3},
		{"limit above contacts", "?limit=100", http.StatusOK, 15},
		{"limit zero", "?limit=0", http.StatusBadRequest, 0},
		{"limit too large", "?limit=101", http.StatusBadRequest, 0},
		{"limit not a number", "?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/api/v1/insights/priorities"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Data []service.ContactPriority `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(body.Data) != tt.wantLen {
				t.Errorf("expected %d priorities, got %d", tt.wantLen, len(body.Data))
			}
		})
	}
}
