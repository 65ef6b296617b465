package announcements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/testutil"
)

var (
	adminP = &auth.Principal{UserID: "admin", IsAdmin: true}
	userP  = &auth.Principal{UserID: "alice"}
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func setup(t *testing.T) (*Service, *clock, *testutil.Revalidations) {
	t.Helper()
	s := testutil.StoreWithUsers(t, "alice")
	testutil.Admin(t, s, "admin")
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	reval := &testutil.Revalidations{}
	return NewService(s, reval, testutil.Logger(), WithClock(c.Now)), c, reval
}

func TestCreateAndActive(t *testing.T) {
	svc, c, reval := setup(t)
	ctx := context.Background()

	none, err := svc.Active(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	a, err := svc.Create(ctx, adminP, CreateInput{
		Title: "  Maintenance  ", Body: "Read-only on Friday.", ExpiresAt: c.t.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Maintenance", a.Title)
	assert.Equal(t, "admin", a.AuthorID)
	assert.Equal(t, []string{"/"}, reval.Paths())

	got, err := svc.Active(ctx, userP)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	c.t = c.t.Add(49 * time.Hour)
	got, err = svc.Active(ctx, userP)
	require.NoError(t, err)
	assert.Nil(t, got, "expired")
}

func TestCreate_Rules(t *testing.T) {
	svc, c, _ := setup(t)
	ctx := context.Background()
	valid := CreateInput{Title: "Hello", Body: "World", ExpiresAt: c.t.Add(time.Hour)}

	_, err := svc.Create(ctx, userP, valid)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	past := valid
	past.ExpiresAt = c.t.Add(-time.Minute)
	_, err = svc.Create(ctx, adminP, past)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	blank := valid
	blank.Title = "   "
	_, err = svc.Create(ctx, adminP, blank)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDismiss_HidesUntilNextAnnouncement(t *testing.T) {
	svc, c, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, adminP, CreateInput{Title: "First", Body: "one", ExpiresAt: c.t.Add(72 * time.Hour)})
	require.NoError(t, err)

	c.t = c.t.Add(time.Minute)
	require.NoError(t, svc.Dismiss(ctx, userP))
	got, err := svc.Active(ctx, userP)
	require.NoError(t, err)
	assert.Nil(t, got)

	other, err := svc.Active(ctx, adminP)
	require.NoError(t, err)
	assert.NotNil(t, other, "dismissal is per user")

	c.t = c.t.Add(time.Minute)
	second, err := svc.Create(ctx, adminP, CreateInput{Title: "Second", Body: "two", ExpiresAt: c.t.Add(time.Hour)})
	require.NoError(t, err)
	got, err = svc.Active(ctx, userP)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	assert.ErrorIs(t, svc.Dismiss(ctx, nil), apperr.ErrUnauthorized)
}
