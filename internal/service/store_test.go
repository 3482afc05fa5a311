package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/cache"
	"github.com/wisedom/wisedom/internal/model"
	"github.com/wisedom/wisedom/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

// memStore is an in-memory implementation of every store interface the
// services depend on. It mirrors the repository's sentinel errors.
type memStore struct {
	mu sync.Mutex

	users         map[string]*model.User
	sessions      map[string]*model.Session
	resets        map[string]*model.PasswordReset
	contacts      map[string]*model.Contact
	interactions  map[string]*model.Interaction
	relationships map[string]*model.Relationship
	projects      map[string]*model.Project
	members       map[string]*model.ProjectMember
	tasks         map[string]*model.Task
	events        []*model.SecurityEvent
	tokens        map[string]*model.IntegrationToken
	stats         map[string]*model.InteractionStats
	strengths     map[string]int

	failCreateEvent error
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*model.User),
		sessions:      make(map[string]*model.Session),
		resets:        make(map[string]*model.PasswordReset),
		contacts:      make(map[string]*model.Contact),
		interactions:  make(map[string]*model.Interaction),
		relationships: make(map[string]*model.Relationship),
		projects:      make(map[string]*model.Project),
		members:       make(map[string]*model.ProjectMember),
		tasks:         make(map[string]*model.Task),
		tokens:        make(map[string]*model.IntegrationToken),
		stats:         make(map[string]*model.InteractionStats),
		strengths:     make(map[string]int),
	}
}

// Users

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) UserExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

// Sessions and password resets

func (m *memStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) RevokeSession(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return "", repository.ErrSessionNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return s.TokenHash, nil
}

func (m *memStore) CreatePasswordReset(_ context.Context, pr *model.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pr
	m.resets[pr.TokenHash] = &cp
	return nil
}

func (m *memStore) GetPasswordReset(_ context.Context, hash string) (*model.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.resets[hash]
	if !ok {
		return nil, repository.ErrPasswordResetNotFound
	}
	cp := *pr
	return &cp, nil
}

func (m *memStore) CompletePasswordReset(_ context.Context, resetID, userID, passwordHash string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reset *model.PasswordReset
	for _, pr := range m.resets {
		if pr.ID == resetID && pr.UsedAt == nil {
			reset = pr
		}
	}
	if reset == nil {
		return nil, repository.ErrPasswordResetNotFound
	}
	now := time.Now()
	reset.UsedAt = &now
	m.users[userID].PasswordHash = passwordHash

	var hashes []string
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			hashes = append(hashes, s.TokenHash)
		}
	}
	return hashes, nil
}

// Contacts

func (m *memStore) addContact(userID, first string) *model.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &model.Contact{
		ID:        newID(),
		UserID:    userID,
		FirstName: first,
		Source:    model.SourceManual,
		Tags:      []string{},
	}
	m.contacts[c.ID] = c
	return c
}

func (m *memStore) CreateContact(_ context.Context, c *model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *memStore) GetContact(_ context.Context, userID, id string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrContactNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetContactByID(_ context.Context, id string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, repository.ErrContactNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListContacts(_ context.Context, filter model.ContactFilter, _ model.ListParams) ([]*model.Contact, int, error) {
	all, _ := m.ListAllContacts(context.Background(), filter.UserID)
	return all, len(all), nil
}

func (m *memStore) ListAllContacts(_ context.Context, userID string) ([]*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Contact, 0)
	for _, c := range m.contacts {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateContact(_ context.Context, c *model.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.contacts[c.ID]
	if !ok || existing.UserID != c.UserID {
		return repository.ErrContactNotFound
	}
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteContact(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return repository.ErrContactNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *memStore) UpdateContactStrength(_ context.Context, id string, strength int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return repository.ErrContactNotFound
	}
	c.RelationshipStrength = strength
	m.strengths[id] = strength
	return nil
}

func (m *memStore) UpsertImportedContact(_ context.Context, c *model.Contact) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contacts {
		if existing.UserID == c.UserID && existing.Source == c.Source &&
			existing.ExternalID != nil && c.ExternalID != nil && *existing.ExternalID == *c.ExternalID {
			existing.FirstName = c.FirstName
			existing.LastName = c.LastName
			c.ID = existing.ID
			return false, nil
		}
	}
	cp := *c
	m.contacts[c.ID] = &cp
	return true, nil
}

// Interactions

func (m *memStore) CreateInteraction(_ context.Context, i *model.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[i.ContactID]; !ok {
		return repository.ErrContactNotFound
	}
	cp := *i
	m.interactions[i.ID] = &cp
	return nil
}

func (m *memStore) GetInteraction(_ context.Context, id string) (*model.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.interactions[id]
	if !ok {
		return nil, repository.ErrInteractionNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memStore) ListInteractions(_ context.Context, filter model.InteractionFilter, _ model.ListParams) ([]*model.Interaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Interaction, 0)
	for _, i := range m.interactions {
		if i.UserID == filter.UserID && (filter.ContactID == "" || i.ContactID == filter.ContactID) {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memStore) UpdateInteraction(_ context.Context, i *model.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interactions[i.ID]; !ok {
		return repository.ErrInteractionNotFound
	}
	cp := *i
	m.interactions[i.ID] = &cp
	return nil
}

func (m *memStore) DeleteInteraction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.interactions[id]; !ok {
		return repository.ErrInteractionNotFound
	}
	delete(m.interactions, id)
	return nil
}

func (m *memStore) GetInteractionStats(_ context.Context, contactID string, _ time.Time) (*model.InteractionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.stats[contactID]; ok {
		cp := *st
		return &cp, nil
	}
	return &model.InteractionStats{ContactID: contactID}, nil
}

func (m *memStore) ListInteractionStats(_ context.Context, userID string, _ time.Time) (map[string]*model.InteractionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.InteractionStats)
	for id, st := range m.stats {
		if c, ok := m.contacts[id]; ok && c.UserID == userID {
			cp := *st
			out[id] = &cp
		}
	}
	return out, nil
}

// Relationships

func (m *memStore) CreateRelationship(_ context.Context, rel *model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.relationships {
		if r.ContactID == rel.ContactID && r.RelatedContactID == rel.RelatedContactID && r.RelationshipType == rel.RelationshipType {
			return repository.ErrRelationshipExists
		}
	}
	cp := *rel
	m.relationships[rel.ID] = &cp
	return nil
}

func (m *memStore) GetRelationship(_ context.Context, id string) (*model.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.relationships[id]
	if !ok {
		return nil, repository.ErrRelationshipNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) ListRelationships(_ context.Context, filter model.RelationshipFilter, _ model.ListParams) ([]*model.Relationship, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Relationship, 0)
	for _, r := range m.relationships {
		if r.UserID != filter.UserID {
			continue
		}
		if filter.ContactID != "" && r.ContactID != filter.ContactID && r.RelatedContactID != filter.ContactID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) UpdateRelationship(_ context.Context, rel *model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relationships[rel.ID]; !ok {
		return repository.ErrRelationshipNotFound
	}
	cp := *rel
	m.relationships[rel.ID] = &cp
	return nil
}

func (m *memStore) DeleteRelationship(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relationships[id]; !ok {
		return repository.ErrRelationshipNotFound
	}
	delete(m.relationships, id)
	return nil
}

// Projects and members

func (m *memStore) CreateProject(_ context.Context, p *model.Project, owner *model.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	om := *owner
	m.members[owner.ID] = &om
	return nil
}

func (m *memStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProjects(_ context.Context, filter model.ProjectFilter, _ model.ListParams) ([]*model.Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Project, 0)
	for _, mem := range m.members {
		if mem.UserID != filter.MemberID {
			continue
		}
		p := m.projects[mem.ProjectID]
		if p == nil || (filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return repository.ErrProjectNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(m.projects, id)
	for mid, mem := range m.members {
		if mem.ProjectID == id {
			delete(m.members, mid)
		}
	}
	for tid, t := range m.tasks {
		if t.ProjectID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *memStore) GetMembership(_ context.Context, projectID, userID string) (*model.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.ProjectID == projectID && mem.UserID == userID {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (m *memStore) AddMember(_ context.Context, mem *model.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.ProjectID == mem.ProjectID && existing.UserID == mem.UserID {
			return repository.ErrMemberExists
		}
	}
	cp := *mem
	m.members[mem.ID] = &cp
	return nil
}

func (m *memStore) GetMember(_ context.Context, id string) (*model.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memStore) ListMembers(_ context.Context, projectID string, _ model.ListParams) ([]*model.ProjectMember, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ProjectMember, 0)
	for _, mem := range m.members {
		if mem.ProjectID == projectID {
			cp := *mem
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memStore) ListAllMembers(ctx context.Context, projectID string) ([]*model.ProjectMember, error) {
	out, _, err := m.ListMembers(ctx, projectID, model.ListParams{})
	return out, err
}

func (m *memStore) UpdateMemberRole(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[id]
	if !ok {
		return repository.ErrMemberNotFound
	}
	mem.Role = role
	return nil
}

func (m *memStore) DeleteMember(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[id]; !ok {
		return repository.ErrMemberNotFound
	}
	delete(m.members, id)
	return nil
}

// Tasks

func (m *memStore) CreateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[t.ProjectID]; !ok {
		return repository.ErrProjectNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) GetTask(_ context.Context, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTasks(_ context.Context, filter model.TaskFilter, _ model.ListParams) ([]*model.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Task, 0)
	for _, t := range m.tasks {
		member := false
		for _, mem := range m.members {
			if mem.ProjectID == t.ProjectID && mem.UserID == filter.MemberID {
				member = true
			}
		}
		if !member || (filter.ProjectID != "" && t.ProjectID != filter.ProjectID) ||
			(filter.Status != "" && t.Status != filter.Status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) ListProjectTasks(_ context.Context, projectID string) ([]*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Task, 0)
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTask(_ context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

// Security events

func (m *memStore) CreateSecurityEvent(_ context.Context, e *model.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateEvent != nil {
		return m.failCreateEvent
	}
	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *memStore) ListSecurityEvents(_ context.Context, filter model.SecurityEventFilter, _ model.ListParams) ([]*model.SecurityEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SecurityEvent, 0)
	for _, e := range m.events {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *memStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// Integration tokens

func tokenKey(userID, provider string) string { return userID + "/" + provider }

func (m *memStore) UpsertIntegrationToken(_ context.Context, t *model.IntegrationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[tokenKey(t.UserID, t.Provider)] = &cp
	return nil
}

func (m *memStore) GetIntegrationToken(_ context.Context, userID, provider string) (*model.IntegrationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenKey(userID, provider)]
	if !ok {
		return nil, repository.ErrIntegrationNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) DeleteIntegrationToken(_ context.Context, userID, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tokenKey(userID, provider)
	if _, ok := m.tokens[key]; !ok {
		return repository.ErrIntegrationNotFound
	}
	delete(m.tokens, key)
	return nil
}

// fakeEvictor records evicted session hashes.
type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (f *fakeEvictor) DeleteSessions(_ context.Context, hashes ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, hashes...)
	return nil
}

// fakePublisher records published activity events.
type fakePublisher struct {
	mu     sync.Mutex
	events []activity.Event
}

func (f *fakePublisher) PublishAsync(e activity.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakePublisher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

// fakeStates is an in-memory OAuthStateStore.
type fakeStates struct {
	mu     sync.Mutex
	states map[string]cache.OAuthState
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[string]cache.OAuthState)}
}

func (f *fakeStates) SaveOAuthState(_ context.Context, state string, st cache.OAuthState, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = st
	return nil
}

func (f *fakeStates) ConsumeOAuthState(_ context.Context, state string) (*cache.OAuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[state]
	if !ok {
		return nil, cache.ErrNotFound
	}
	delete(f.states, state)
	return &st, nil
}

func (f *fakeStates) only() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.states {
		return k
	}
	return ""
}
