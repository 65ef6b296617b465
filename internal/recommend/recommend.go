// Package recommend ranks unseen questions for a user from the tags of the
// questions they recently engaged with.
package recommend

import (
	"context"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// interestActions are the interactions that signal interest in a question.
var interestActions = []models.Action{
	models.ActionView,
	models.ActionUpvote,
	models.ActionBookmark,
	models.ActionPost,
}

// Result is one page of recommendations.
type Result struct {
	Questions []*models.Question `json:"questions"`
	HasMore   bool               `json:"has_more"`
}

// Engine computes recommendations at query time.
type Engine struct {
	store        *store.Store
	ledger       *ledger.Recorder
	historyLimit int
	pageSize     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryLimit sets how many recent interactions form the interest set.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithPageSize sets the page size used when the caller passes no limit.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// New returns an Engine.
func New(s *store.Store, rec *ledger.Recorder, opts ...Option) *Engine {
	e := &Engine{store: s, ledger: rec, historyLimit: ledger.DefaultRecentLimit, pageSize: 10}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Recommend returns questions sharing a tag with the user's interest set
// that the user neither authored nor already interacted with, ordered by
// upvotes then views. A user with no history gets an empty result, never a
// global fallback.
func (e *Engine) Recommend(ctx context.Context, userID, query string, skip, limit int) (*Result, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if skip < 0 {
		return nil, apperr.Validation("skip cannot be negative")
	}
	if limit <= 0 {
		limit = e.pageSize
	}

	recent, err := e.ledger.RecentByUser(ctx, userID, interestActions, models.TargetQuestion, e.historyLimit)
	if err != nil {
		return nil, err
	}
	seen := make([]string, 0, len(recent))
	dup := make(map[string]bool, len(recent))
	for _, in := range recent {
		if !dup[in.TargetID] {
			dup[in.TargetID] = true
			seen = append(seen, in.TargetID)
		}
	}

	interests, err := e.store.TagIDsForQuestions(ctx, seen)
	if err != nil {
		return nil, err
	}
	if len(interests) == 0 {
		return &Result{Questions: []*models.Question{}}, nil
	}

	qs, total, err := e.store.ListQuestions(ctx, store.QuestionFilter{
		Query:           query,
		ExcludeAuthorID: userID,
		ExcludeIDs:      seen,
		AnyTagIDs:       interests,
		Sort:            store.SortRecommended,
		Limit:           limit,
		Offset:          skip,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Questions: qs, HasMore: total > skip+len(qs)}, nil
}
