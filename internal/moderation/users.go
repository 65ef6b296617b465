package moderation

import (
	"context"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/models"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// Profile is a user together with their derived moderation state.
type Profile struct {
	*models.User
	Status string `json:"status"`
}

// UserPage is one page of ListUsers.
type UserPage struct {
	Users   []*Profile `json:"users"`
	Total   int        `json:"total"`
	HasMore bool       `json:"has_more"`
}

// pageBounds turns a 1-based page into a limit and offset.
func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultUserPageSize
	}
	if pageSize > maxUserPageSize {
		pageSize = maxUserPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func (s *Service) profile(u *models.User) *Profile {
	return &Profile{User: u, Status: StateOf(u, s.now().UTC()).Kind.String()}
}

// GetUser returns the public profile of userID.
func (s *Service) GetUser(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(u), nil
}

// ListUsers pages through users. sort is one of newest, oldest or popular.
func (s *Service) ListUsers(ctx context.Context, query, sort string, page, pageSize int) (*UserPage, error) {
	switch sort {
	case "", "newest", "oldest", "popular":
	default:
		return nil, apperr.Validationf("unknown sort %q", sort)
	}
	limit, offset := pageBounds(page, pageSize)

	users, total, err := s.store.ListUsers(ctx, query, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	out := &UserPage{Users: make([]*Profile, len(users)), Total: total, HasMore: offset+len(users) < total}
	for i, u := range users {
		out.Users[i] = s.profile(u)
	}
	return out, nil
}

// Stats returns the admin dashboard counters.
func (s *Service) Stats(ctx context.Context, p *auth.Principal) (*models.Stats, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Stats(ctx)
}

// TopTagsLimit bounds UserTopTags.
const TopTagsLimit = 10

// AnswerPage is one page of a user's answers.
type AnswerPage struct {
	Answers []*models.Answer `json:"answers"`
	Total   int              `json:"total"`
	HasMore bool             `json:"has_more"`
}

// UserAnswers pages through the answers userID wrote.
func (s *Service) UserAnswers(ctx context.Context, userID string, page, pageSize int) (*AnswerPage, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	limit, offset := pageBounds(page, pageSize)
	answers, total, err := s.store.ListAnswersByAuthor(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &AnswerPage{Answers: answers, Total: total, HasMore: offset+len(answers) < total}, nil
}

// UserTopTags returns the tags userID applies most often.
func (s *Service) UserTopTags(ctx context.Context, userID string) ([]models.TagCount, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.UserTopTags(ctx, userID, TopTagsLimit)
}

// UserStats summarises a user's content and the badges it earns.
type UserStats struct {
	TotalQuestions int    `json:"total_questions"`
	TotalAnswers   int    `json:"total_answers"`
	Badges         Badges `json:"badges"`
}

// UserStats returns the activity totals and badges of userID.
func (s *Service) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	a, err := s.store.UserActivity(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{TotalQuestions: a.Questions, TotalAnswers: a.Answers, Badges: AssignBadges(a)}, nil
}

// MonthlyStats returns new users and questions per month. Admin only.
func (s *Service) MonthlyStats(ctx context.Context, p *auth.Principal) ([]models.MonthlyStat, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.MonthlyStats(ctx)
}
