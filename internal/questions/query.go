package questions

import (
	"context"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	hotLimit        = 5
)

// ListInput selects one page of a listing. Page is 1-based.
type ListInput struct {
	Query    string `json:"query"`
	Filter   string `json:"filter"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Bounds returns the limit and offset for the page.
func (in ListInput) Bounds() (limit, offset int) {
	limit = in.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// Get returns a question with its tags.
func (s *Service) Get(ctx context.Context, questionID string) (*models.Question, error) {
	if questionID == "" {
		return nil, apperr.Validation("question id is required")
	}
	return s.store.GetQuestion(ctx, questionID)
}

// List returns questions filtered by "newest" (default), "unanswered" or
// "popular", optionally narrowed by a case-insensitive substring query.
func (s *Service) List(ctx context.Context, in ListInput) (*Page, error) {
	var sort store.QuestionSort
	switch in.Filter {
	case "", "newest":
		sort = store.SortNewest
	case "unanswered":
		sort = store.SortUnanswered
	case "popular":
		sort = store.SortPopular
	default:
		return nil, apperr.Validationf("unknown filter %q", in.Filter)
	}
	limit, offset := in.Bounds()
	qs, total, err := s.store.ListQuestions(ctx, store.QuestionFilter{
		Query: in.Query, Sort: sort, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return newPage(qs, total, offset), nil
}

// ListByAuthor returns the questions authored by userID, newest first.
func (s *Service) ListByAuthor(ctx context.Context, userID string, in ListInput) (*Page, error) {
	limit, offset := in.Bounds()
	qs, total, err := s.store.ListQuestions(ctx, store.QuestionFilter{
		AuthorID: userID, Sort: store.SortNewest, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return newPage(qs, total, offset), nil
}

// Hot returns the most viewed questions.
func (s *Service) Hot(ctx context.Context) ([]*models.Question, error) {
	qs, _, err := s.store.ListQuestions(ctx, store.QuestionFilter{Sort: store.SortHot, Limit: hotLimit})
	return qs, err
}

// ListReported returns questions with at least one report, most reported
// first. Admin only.
func (s *Service) ListReported(ctx context.Context, p *auth.Principal, in ListInput) (*Page, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	limit, offset := in.Bounds()
	qs, total, err := s.store.ListQuestions(ctx, store.QuestionFilter{
		Query: in.Query, ReportedOnly: true, Sort: store.SortReported, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return newPage(qs, total, offset), nil
}

// ListSaved returns the caller's bookmarked questions.
func (s *Service) ListSaved(ctx context.Context, p *auth.Principal, in ListInput) (*Page, error) {
	if err := auth.RequireUser(p); err != nil {
		return nil, err
	}
	limit, offset := in.Bounds()
	qs, total, err := s.store.ListSaved(ctx, p.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	return newPage(qs, total, offset), nil
}

// TagPage is one page of tags.
type TagPage struct {
	Tags    []*models.Tag `json:"tags"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

// ListTags returns tags sorted by "popular" (default), "name" or "recent".
func (s *Service) ListTags(ctx context.Context, in ListInput) (*TagPage, error) {
	switch in.Filter {
	case "", "popular", "name", "recent":
	default:
		return nil, apperr.Validationf("unknown filter %q", in.Filter)
	}
	limit, offset := in.Bounds()
	tags, total, err := s.store.ListTags(ctx, in.Query, in.Filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &TagPage{Tags: tags, Total: total, HasMore: total > offset+len(tags)}, nil
}

// GetTag returns one tag.
func (s *Service) GetTag(ctx context.Context, tagID string) (*models.Tag, error) {
	return s.store.GetTag(ctx, tagID)
}

// ListByTag returns the questions carrying tagID, newest first.
func (s *Service) ListByTag(ctx context.Context, tagID string, in ListInput) (*Page, error) {
	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return nil, err
	}
	limit, offset := in.Bounds()
	qs, total, err := s.store.ListQuestions(ctx, store.QuestionFilter{
		Query: in.Query, AnyTagIDs: []string{tagID}, Sort: store.SortNewest, Limit: limit, Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return newPage(qs, total, offset), nil
}
