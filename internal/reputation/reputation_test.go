package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
	"github.com/starford/quorum/internal/testutil"
)

func TestFor_Table(t *testing.T) {
	cases := []struct {
		action models.Action
		target models.TargetType
		want   Points
	}{
		{models.ActionUpvote, models.TargetQuestion, Points{2, 10}},
		{models.ActionUpvote, models.TargetAnswer, Points{2, 10}},
		{models.ActionDownvote, models.TargetAnswer, Points{-1, -2}},
		{models.ActionRetractUpvote, models.TargetQuestion, Points{-2, -10}},
		{models.ActionRetractDownvote, models.TargetAnswer, Points{1, 2}},
		{models.ActionPost, models.TargetQuestion, Points{0, 5}},
		{models.ActionPost, models.TargetAnswer, Points{0, 10}},
		{models.ActionDelete, models.TargetQuestion, Points{0, -5}},
		{models.ActionDelete, models.TargetAnswer, Points{0, -10}},
		{models.ActionView, models.TargetQuestion, Points{}},
		{models.ActionBookmark, models.TargetQuestion, Points{}},
		{models.ActionEdit, models.TargetQuestion, Points{}},
		{models.ActionSearch, models.TargetQuestion, Points{}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, For(c.action, c.target), "%s/%s", c.action, c.target)
	}
}

func TestDeltas_SelfActionAppliesAuthorPointsOnce(t *testing.T) {
	got := Deltas(models.ActionPost, models.TargetQuestion, "alice", "alice")
	assert.Equal(t, []store.ReputationDelta{{UserID: "alice", Points: 5}}, got)

	got = Deltas(models.ActionUpvote, models.TargetQuestion, "alice", "alice")
	assert.Equal(t, []store.ReputationDelta{{UserID: "alice", Points: 10}}, got)
}

func TestApply_UpvoteByOtherUser(t *testing.T) {
	s := testutil.StoreWithUsers(t, "performer", "author")
	e := New(nil)
	ctx := context.Background()
	in := &models.Interaction{Action: models.ActionUpvote, TargetType: models.TargetQuestion}

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		return e.Apply(ctx, tx, in, "performer", "author")
	})
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.Reputation(t, s, "performer"))
	assert.Equal(t, 10, testutil.Reputation(t, s, "author"))
}

func TestApply_SelfUpvote(t *testing.T) {
	s := testutil.StoreWithUsers(t, "alice")
	e := New(nil)
	ctx := context.Background()
	in := &models.Interaction{Action: models.ActionUpvote, TargetType: models.TargetAnswer}

	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return e.Apply(ctx, tx, in, "alice", "alice")
	}))
	assert.Equal(t, 10, testutil.Reputation(t, s, "alice"))
}

func TestApply_MissingAuthorRollsBackPerformer(t *testing.T) {
	s := testutil.StoreWithUsers(t, "performer")
	e := New(nil)
	ctx := context.Background()
	in := &models.Interaction{Action: models.ActionUpvote, TargetType: models.TargetQuestion}

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		return e.Apply(ctx, tx, in, "performer", "deleted-user")
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, testutil.Reputation(t, s, "performer"))
}

func TestApply_ZeroPointActionTouchesNobody(t *testing.T) {
	s := testutil.StoreWithUsers(t)
	e := New(nil)
	ctx := context.Background()
	in := &models.Interaction{Action: models.ActionView, TargetType: models.TargetQuestion}

	// Neither user exists, but a view carries no points so nothing is updated.
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		return e.Apply(ctx, tx, in, "ghost-a", "ghost-b")
	})
	assert.NoError(t, err)
}

func TestAudit(t *testing.T) {
	now := time.Now()
	history := []*models.Interaction{
		{UserID: "alice", AuthorID: "alice", Action: models.ActionPost, TargetType: models.TargetQuestion, CreatedAt: now},
		{UserID: "bob", AuthorID: "alice", Action: models.ActionUpvote, TargetType: models.TargetQuestion, CreatedAt: now},
		{UserID: "alice", AuthorID: "bob", Action: models.ActionDownvote, TargetType: models.TargetAnswer, CreatedAt: now},
		{UserID: "admin", AuthorID: "alice", Action: models.ActionDelete, TargetType: models.TargetQuestion, CreatedAt: now},
		{UserID: "alice", Action: models.ActionSearch, TargetType: models.TargetQuestion, CreatedAt: now},
	}
	assert.Equal(t, 5+10-1-5, Audit("alice", history))
	assert.Equal(t, 2-2, Audit("bob", history))
	assert.Equal(t, 0, Audit("admin", history))
}

func TestAudit_RetractionsCancelVotes(t *testing.T) {
	now := time.Now()
	vote := func(a models.Action) *models.Interaction {
		return &models.Interaction{UserID: "bob", AuthorID: "alice", Action: a, TargetType: models.TargetQuestion, CreatedAt: now}
	}
	history := []*models.Interaction{
		vote(models.ActionUpvote),
		vote(models.ActionRetractUpvote),
		vote(models.ActionUpvote),
		vote(models.ActionRetractUpvote),
		vote(models.ActionDownvote),
	}
	assert.Equal(t, -2, Audit("alice", history))
	assert.Equal(t, -1, Audit("bob", history))
}
