package questions

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// VoteInput is the payload of Vote.
type VoteInput struct {
	TargetID   string               `json:"target_id"`
	TargetType models.TargetType    `json:"target_type"`
	Direction  models.VoteDirection `json:"direction"`
}

// Validate checks the input fields.
func (in VoteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.TargetID, validation.Required),
		validation.Field(&in.TargetType, validation.Required, validation.In(models.TargetQuestion, models.TargetAnswer)),
		validation.Field(&in.Direction, validation.Required, validation.In(models.VoteUp, models.VoteDown)),
	)
}

// VoteResult is the target's tally after a vote. Direction is empty when
// the caller no longer has a vote on the target.
type VoteResult struct {
	Upvotes   int                  `json:"upvotes"`
	Downvotes int                  `json:"downvotes"`
	Direction models.VoteDirection `json:"direction,omitempty"`
}

// Vote casts, flips or withdraws the caller's vote. A cast records an upvote
// or downvote interaction. Withdrawing records a retraction that reverses the
// earlier credit, and a flip records the retraction followed by the new vote.
func (s *Service) Vote(ctx context.Context, p *auth.Principal, in VoteInput) (*VoteResult, error) {
	if err := auth.RequireActive(p); err != nil {
		return nil, err
	}
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	var (
		res        VoteResult
		authorID   string
		questionID string
		actions    []models.Action
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		target, err := loadVoteTarget(ctx, tx, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}
		authorID, questionID = target.authorID, target.questionID

		prev, err := tx.GetVote(ctx, p.UserID, in.TargetID, in.TargetType)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		switch {
		case prev == nil:
			actions = []models.Action{in.Direction.Action()}
			if err := tx.PutVote(ctx, &models.Vote{
				UserID: p.UserID, TargetID: in.TargetID, TargetType: in.TargetType,
				Direction: in.Direction, CreatedAt: s.now().UTC(),
			}); err != nil {
				return err
			}
			if err := target.add(ctx, tx, in.Direction, 1); err != nil {
				return err
			}
			res.Direction = in.Direction
		case prev.Direction == in.Direction:
			actions = []models.Action{prev.Direction.RetractAction()}
			if err := tx.DeleteVote(ctx, p.UserID, in.TargetID, in.TargetType); err != nil {
				return err
			}
			if err := target.add(ctx, tx, in.Direction, -1); err != nil {
				return err
			}
		default:
			actions = []models.Action{prev.Direction.RetractAction(), in.Direction.Action()}
			if err := tx.PutVote(ctx, &models.Vote{
				UserID: p.UserID, TargetID: in.TargetID, TargetType: in.TargetType,
				Direction: in.Direction, CreatedAt: s.now().UTC(),
			}); err != nil {
				return err
			}
			if err := target.add(ctx, tx, prev.Direction, -1); err != nil {
				return err
			}
			if err := target.add(ctx, tx, in.Direction, 1); err != nil {
				return err
			}
			res.Direction = in.Direction
		}

		res.Upvotes, res.Downvotes, err = target.tally(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	ref := id.MustGenerate(id.PrefixVote)
	for _, a := range actions {
		s.record(ctx, ledger.Event{
			UserID: p.UserID, AuthorID: authorID, Action: a,
			TargetID: in.TargetID, TargetType: in.TargetType, Ref: ref,
		})
	}
	s.revalidate(questionPath(questionID))
	return &res, nil
}

// voteTarget abstracts the counters of a question or answer.
type voteTarget struct {
	kind       models.TargetType
	id         string
	authorID   string
	questionID string
}

func loadVoteTarget(ctx context.Context, tx *store.Tx, kind models.TargetType, targetID string) (*voteTarget, error) {
	if kind == models.TargetAnswer {
		a, err := tx.GetAnswer(ctx, targetID)
		if err != nil {
			return nil, err
		}
		return &voteTarget{kind: kind, id: a.ID, authorID: a.AuthorID, questionID: a.QuestionID}, nil
	}
	q, err := tx.GetQuestion(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &voteTarget{kind: kind, id: q.ID, authorID: q.AuthorID, questionID: q.ID}, nil
}

func (t *voteTarget) add(ctx context.Context, tx *store.Tx, dir models.VoteDirection, delta int) error {
	if t.kind == models.TargetAnswer {
		return tx.AddToAnswerVotes(ctx, t.id, dir, delta)
	}
	c := store.CounterUpvotes
	if dir == models.VoteDown {
		c = store.CounterDownvotes
	}
	_, err := tx.AddToQuestionCounter(ctx, t.id, c, delta)
	return err
}

func (t *voteTarget) tally(ctx context.Context, tx *store.Tx) (int, int, error) {
	if t.kind == models.TargetAnswer {
		a, err := tx.GetAnswer(ctx, t.id)
		if err != nil {
			return 0, 0, err
		}
		return a.Upvotes, a.Downvotes, nil
	}
	q, err := tx.GetQuestion(ctx, t.id)
	if err != nil {
		return 0, 0, err
	}
	return q.Upvotes, q.Downvotes, nil
}

// ToggleSave bookmarks the question for the caller, or removes the bookmark
// if it exists. It reports whether the question is now saved.
func (s *Service) ToggleSave(ctx context.Context, p *auth.Principal, questionID string) (bool, error) {
	if err := auth.RequireActive(p); err != nil {
		return false, err
	}
	if questionID == "" {
		return false, apperr.Validation("question id is required")
	}

	var (
		saved    bool
		authorID string
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		authorID = q.AuthorID
		was, err := tx.IsSaved(ctx, p.UserID, questionID)
		if err != nil {
			return err
		}
		if was {
			return tx.UnsaveQuestion(ctx, p.UserID, questionID)
		}
		saved = true
		return tx.SaveQuestion(ctx, p.UserID, questionID, s.now().UTC())
	})
	if err != nil {
		return false, err
	}

	if saved {
		s.record(ctx, ledger.Event{
			UserID: p.UserID, AuthorID: authorID, Action: models.ActionBookmark,
			TargetID: questionID, TargetType: models.TargetQuestion,
		})
	}
	s.revalidate(questionPath(questionID))
	return saved, nil
}

// IncrementViews counts one view and returns the new total. Views by an
// authenticated caller are also recorded in the ledger.
func (s *Service) IncrementViews(ctx context.Context, p *auth.Principal, questionID string) (int, error) {
	if questionID == "" {
		return 0, apperr.Validation("question id is required")
	}
	var (
		views    int
		authorID string
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		authorID = q.AuthorID
		views, err = tx.AddToQuestionCounter(ctx, questionID, store.CounterViews, 1)
		return err
	})
	if err != nil {
		return 0, err
	}

	if p != nil && p.UserID != "" {
		s.record(ctx, ledger.Event{
			UserID: p.UserID, AuthorID: authorID, Action: models.ActionView,
			TargetID: questionID, TargetType: models.TargetQuestion,
		})
	}
	s.revalidate(questionPath(questionID))
	return views, nil
}

// ReportInput is the payload of Report.
type ReportInput struct {
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// Validate checks the input fields.
func (in ReportInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.QuestionID, validation.Required),
		validation.Field(&in.Reason, validation.RuneLength(0, 500)),
	)
}

// Report flags a question. Each user counts at most once; reporting again
// succeeds and leaves the count unchanged. It returns the report count.
func (s *Service) Report(ctx context.Context, p *auth.Principal, in ReportInput) (int, error) {
	if err := auth.RequireActive(p); err != nil {
		return 0, err
	}
	if err := validationError(in.Validate()); err != nil {
		return 0, err
	}

	var count int
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		q, err := tx.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			return err
		}
		added, err := tx.AddQuestionReport(ctx, q.ID, p.UserID, in.Reason, s.now().UTC())
		if err != nil {
			return err
		}
		if !added {
			count = q.ReportCount
			return nil
		}
		count, err = tx.AddToQuestionCounter(ctx, q.ID, store.CounterReports, 1)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.revalidate("/dashboard/reports")
	return count, nil
}

// RevokeReport clears every report on the question, taking it out of the
// reported set. Admin only.
func (s *Service) RevokeReport(ctx context.Context, p *auth.Principal, questionID string) error {
	if err := auth.RequireAdmin(p); err != nil {
		return err
	}
	if questionID == "" {
		return apperr.Validation("question id is required")
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.ResetReports(ctx, questionID)
	})
	if err != nil {
		return err
	}
	s.revalidate("/dashboard/reports", questionPath(questionID))
	return nil
}
