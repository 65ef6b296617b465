package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
	"github.com/starford/quorum/internal/testutil"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *store.Store, *testutil.Revalidations) {
	t.Helper()
	s := testutil.TestStore(t)
	testutil.Admin(t, s, "admin")
	testutil.User(t, s, "x")
	reval := &testutil.Revalidations{}
	svc := NewService(s, reval, testutil.Logger(), WithClock(func() time.Time { return fixedNow }))
	return svc, s, reval
}

var adminP = &auth.Principal{UserID: "admin", IsAdmin: true}

func days(n int) *int { return &n }

func TestStateOf(t *testing.T) {
	until := fixedNow.Add(time.Hour)
	u := &models.User{BannedUntil: &until}

	assert.Equal(t, State{Kind: Banned, Until: until}, StateOf(u, fixedNow))
	assert.Equal(t, Active, StateOf(u, until).Kind, "expiry is inclusive")
	assert.Equal(t, Active, StateOf(&models.User{}, fixedNow).Kind)
}

func TestBan_SevenDays(t *testing.T) {
	svc, _, reval := setup(t)
	u, err := svc.Ban(context.Background(), adminP, "x", days(7))
	require.NoError(t, err)
	require.NotNil(t, u.BannedUntil)
	assert.True(t, u.BannedUntil.Equal(fixedNow.Add(7*24*time.Hour)))
	assert.Equal(t, []string{"/dashboard", "/profile/x"}, reval.Paths())
}

func TestBan_ZeroDaysIsEffectivelyPermanent(t *testing.T) {
	svc, _, _ := setup(t)
	u, err := svc.Ban(context.Background(), adminP, "x", days(0))
	require.NoError(t, err)
	require.NotNil(t, u.BannedUntil)
	assert.True(t, u.BannedUntil.After(fixedNow.Add(99_000*24*time.Hour)))
	assert.True(t, StateOf(u, fixedNow.Add(99_000*24*time.Hour)).IsBanned())
}

func TestBan_DefaultAndNegative(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	u, err := svc.Ban(ctx, adminP, "x", nil)
	require.NoError(t, err)
	assert.True(t, u.BannedUntil.Equal(fixedNow.Add(DefaultBanDays*24*time.Hour)))

	_, err = svc.Ban(ctx, adminP, "x", days(-1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBan_LongestAllowedDuration(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	u, err := svc.Ban(ctx, adminP, "x", days(PermanentBanDays))
	require.NoError(t, err)
	assert.True(t, u.BannedUntil.Equal(fixedNow.AddDate(0, 0, PermanentBanDays)))
	assert.True(t, StateOf(u, fixedNow).IsBanned())

	_, err = svc.Ban(ctx, adminP, "x", days(200_000))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	prof, err := svc.GetUser(ctx, "x")
	require.NoError(t, err)
	assert.True(t, prof.BannedUntil.Equal(fixedNow.AddDate(0, 0, PermanentBanDays)), "rejected ban leaves the state unchanged")
}

func TestBanUntil_CalendarDays(t *testing.T) {
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), BanUntil(fixedNow, 7))
	assert.True(t, BanUntil(fixedNow, 0).After(fixedNow.AddDate(273, 0, 0)))
}

func TestSelfTargetRejected(t *testing.T) {
	svc, s, reval := setup(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"ban":    func() error { _, err := svc.Ban(ctx, adminP, "admin", days(1)); return err },
		"unban":  func() error { _, err := svc.Unban(ctx, adminP, "admin"); return err },
		"promo":  func() error { _, err := svc.Promote(ctx, adminP, "admin"); return err },
		"revoke": func() error { _, err := svc.RevokeAdmin(ctx, adminP, "admin"); return err },
	}
	for name, op := range ops {
		assert.ErrorIs(t, op(), apperr.ErrForbidden, name)
	}

	u, err := s.GetUser(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin, "no mutation on rejected self-revoke")
	assert.Nil(t, u.BannedUntil)
	assert.Empty(t, reval.Paths())
}

func TestNonAdminRejected(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Ban(ctx, &auth.Principal{UserID: "x"}, "admin", days(1))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Promote(ctx, nil, "x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Promote(ctx, &auth.Principal{UserID: "admin", IsAdmin: true, Banned: true}, "x")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMissingTarget(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Ban(context.Background(), adminP, "nobody", days(1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPromoteRevokeUnban(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	u, err := svc.Promote(ctx, adminP, "x")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	u, err = svc.RevokeAdmin(ctx, adminP, "x")
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	_, err = svc.Ban(ctx, adminP, "x", days(3))
	require.NoError(t, err)
	u, err = svc.Unban(ctx, adminP, "x")
	require.NoError(t, err)
	assert.Nil(t, u.BannedUntil)
}

func TestResolve_LazyExpiry(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Ban(ctx, adminP, "x", days(1))
	require.NoError(t, err)

	p, err := svc.Resolve(ctx, "x")
	require.NoError(t, err)
	assert.True(t, p.Banned)

	later := NewService(s, nil, testutil.Logger(), WithClock(func() time.Time { return fixedNow.Add(48 * time.Hour) }))
	p, err = later.Resolve(ctx, "x")
	require.NoError(t, err)
	assert.False(t, p.Banned)

	u, err := s.GetUser(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, u.BannedUntil, "expired ban cleared on resolve")
}

func TestGetUser_ReportsStatus(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	prof, err := svc.GetUser(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "active", prof.Status)

	_, err = svc.Ban(ctx, adminP, "x", days(3))
	require.NoError(t, err)
	prof, err = svc.GetUser(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "banned", prof.Status)

	_, err = svc.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListUsers_PagesAndRejectsUnknownSort(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	page, err := svc.ListUsers(ctx, "", "popular", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Users, 1)
	assert.True(t, page.HasMore)

	page, err = svc.ListUsers(ctx, "adm", "", 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "admin", page.Users[0].ID)
	assert.False(t, page.HasMore)

	_, err = svc.ListUsers(ctx, "", "loudest", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStats_AdminOnly(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	testutil.Question(t, s, "x", "First question", "go")

	st, err := svc.Stats(ctx, adminP)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Users)
	assert.Equal(t, 1, st.Questions)

	_, err = svc.Stats(ctx, &auth.Principal{UserID: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func seedAnswer(t *testing.T, s *store.Store, questionID, authorID, content string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx *store.Tx) error {
		return tx.CreateAnswer(ctx, &models.Answer{
			ID: "ans-" + content, QuestionID: questionID, AuthorID: authorID, Content: content, CreatedAt: fixedNow,
		})
	}))
}

func TestUserAnswers(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	q := testutil.Question(t, s, "admin", "Why is the sky blue?", "physics")
	seedAnswer(t, s, q.ID, "x", "one")
	seedAnswer(t, s, q.ID, "x", "two")
	seedAnswer(t, s, q.ID, "admin", "three")

	page, err := svc.UserAnswers(ctx, "x", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Answers, 1)
	assert.Equal(t, "x", page.Answers[0].AuthorID)

	_, err = svc.UserAnswers(ctx, "nobody", 1, 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserTopTags(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	testutil.Question(t, s, "x", "First question", "go", "sql")
	testutil.Question(t, s, "x", "Second question", "Go")
	testutil.Question(t, s, "admin", "Not counted", "sql", "rust")

	tags, err := svc.UserTopTags(ctx, "x")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, "sql", tags[1].Name)
	assert.Equal(t, 1, tags[1].Count)
}

func TestUserStats_Badges(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	q := testutil.Question(t, s, "x", "Popular question", "go")
	testutil.SetCounters(t, s, q.ID, 60, 12_000)
	seedAnswer(t, s, q.ID, "x", "self")

	st, err := svc.UserStats(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalQuestions)
	assert.Equal(t, 1, st.TotalAnswers)
	// 60 upvotes: bronze and silver. 12,000 views: bronze and silver.
	assert.Equal(t, Badges{Bronze: 2, Silver: 2}, st.Badges)
}

func TestAssignBadges_Thresholds(t *testing.T) {
	assert.Equal(t, Badges{}, AssignBadges(&models.UserActivity{Questions: 9}))
	assert.Equal(t, Badges{Bronze: 1, Silver: 1, Gold: 1}, AssignBadges(&models.UserActivity{Answers: 100}))
	assert.Equal(t, Badges{Bronze: 1}, AssignBadges(&models.UserActivity{QuestionUpvotes: 6, AnswerUpvotes: 4}))
}

func TestMonthlyStats_AdminOnly(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	testutil.Question(t, s, "x", "A question", "go")

	_, err := svc.MonthlyStats(ctx, &auth.Principal{UserID: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	months, err := svc.MonthlyStats(ctx, adminP)
	require.NoError(t, err)
	users, qs := 0, 0
	for _, m := range months {
		assert.Len(t, m.Month, 7)
		users += m.Users
		qs += m.Questions
	}
	assert.Equal(t, 2, users)
	assert.Equal(t, 1, qs)
}
