package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisedom/wisedom/internal/activity"
	"github.com/wisedom/wisedom/internal/model"
)

func TestInteractionService_CreateDerivesSentiment(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	pub := &fakePublisher{}
	svc := NewInteractionService(store, pub, nil, discardLogger())
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	c := store.addContact("u1", "Ada")

	i, err := svc.Create(context.Background(), "u1", InteractionInput{
		ContactID:       c.ID,
		InteractionType: model.InteractionMeeting,
		Notes:           strPtr("Great meeting, thanks for the excellent notes"),
	})
	require.NoError(t, err)
	require.NotNil(t, i.Sentiment)
	assert.InDelta(t, 0.6, *i.Sentiment, 1e-9)
	assert.Equal(t, now, i.InteractionDate, "date defaults to now")
	assert.Equal(t, []string{}, i.Topics)
	assert.Equal(t, []string{activity.KindInteractionLogged}, pub.kinds())
	assert.Equal(t, c.ID, pub.events[0].ContactID)
}

func TestInteractionService_ExplicitSentimentWins(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := NewInteractionService(store, nil, nil, discardLogger())
	c := store.addContact("u1", "Ada")

	sentiment := -0.5
	i, err := svc.Create(context.Background(), "u1", InteractionInput{
		ContactID:       c.ID,
		InteractionType: model.InteractionCall,
		Notes:           strPtr("great great great"),
		Sentiment:       &sentiment,
	})
	require.NoError(t, err)
	assert.Equal(t, -0.5, *i.Sentiment)

	noNotes, err := svc.Create(context.Background(), "u1", InteractionInput{ContactID: c.ID, InteractionType: model.InteractionCall})
	require.NoError(t, err)
	assert.Nil(t, noNotes.Sentiment)
}

func TestInteractionService_ForeignContact(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := NewInteractionService(store, nil, nil, discardLogger())
	ctx := context.Background()

	c := store.addContact("owner", "Ada")
	_, err := svc.Create(ctx, "intruder", InteractionInput{ContactID: c.ID, InteractionType: model.InteractionEmail})
	requireAppErr(t, err, http.StatusForbidden, "FORBIDDEN")

	i, err := svc.Create(ctx, "owner", InteractionInput{ContactID: c.ID, InteractionType: model.InteractionEmail})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", i.ID)
	requireAppErr(t, err, http.StatusForbidden, "FORBIDDEN")

	_, err = svc.Get(ctx, "owner", newID())
	requireAppErr(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestInteractionService_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	pub := &fakePublisher{}
	svc := NewInteractionService(store, pub, nil, discardLogger())
	ctx := context.Background()
	c := store.addContact("u1", "Ada")

	i, err := svc.Create(ctx, "u1", InteractionInput{ContactID: c.ID, InteractionType: model.InteractionEmail, Notes: strPtr("good")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", i.ID, InteractionPatch{Notes: strPtr("terrible problem")})
	require.NoError(t, err)
	assert.InDelta(t, -0.4, *updated.Sentiment, 1e-9, "sentiment follows edited notes")

	require.NoError(t, svc.Delete(ctx, "u1", i.ID))
	assert.Equal(t, []string{
		activity.KindInteractionLogged,
		activity.KindInteractionUpdated,
		activity.KindInteractionDeleted,
	}, pub.kinds())

	err = svc.Delete(ctx, "u1", i.ID)
	requireAppErr(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestRelationshipService(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := NewRelationshipService(store, nil, discardLogger())
	ctx := context.Background()

	a := store.addContact("u1", "Ada")
	b := store.addContact("u1", "Charles")
	foreign := store.addContact("u2", "Eve")

	_, err := svc.Create(ctx, "u1", RelationshipInput{ContactID: a.ID, RelatedContactID: a.ID, RelationshipType: "colleague"})
	requireAppErr(t, err, http.StatusBadRequest, CodeSelfRelationship)

	_, err = svc.Create(ctx, "u1", RelationshipInput{ContactID: a.ID, RelatedContactID: foreign.ID, RelationshipType: "colleague"})
	requireAppErr(t, err, http.StatusForbidden, "FORBIDDEN")

	rel, err := svc.Create(ctx, "u1", RelationshipInput{ContactID: a.ID, RelatedContactID: b.ID, RelationshipType: " colleague "})
	require.NoError(t, err)
	assert.Equal(t, "colleague", rel.RelationshipType)

	_, err = svc.Create(ctx, "u1", RelationshipInput{ContactID: a.ID, RelatedContactID: b.ID, RelationshipType: "colleague"})
	requireAppErr(t, err, http.StatusConflict, CodeRelationshipExists)

	_, err = svc.Get(ctx, "u2", rel.ID)
	requireAppErr(t, err, http.StatusForbidden, "FORBIDDEN")

	updated, err := svc.Update(ctx, "u1", rel.ID, RelationshipPatch{Notes: strPtr("met at the society")})
	require.NoError(t, err)
	assert.Equal(t, "met at the society", *updated.Notes)

	list, total, err := svc.List(ctx, "u1", b.ID, model.DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, rel.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, "u1", rel.ID))
	_, err = svc.Get(ctx, "u1", rel.ID)
	requireAppErr(t, err, http.StatusNotFound, "NOT_FOUND")
}
