package questions

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// AnswerInput is the payload of CreateAnswer.
type AnswerInput struct {
	QuestionID string `json:"question_id"`
	Content    string `json:"content"`
}

// Validate checks the input fields.
func (in AnswerInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.QuestionID, validation.Required),
		validation.Field(&in.Content, validation.Required),
	)
}

// CreateAnswer posts an answer and bumps the question's answer count.
func (s *Service) CreateAnswer(ctx context.Context, p *auth.Principal, in AnswerInput) (*models.Answer, error) {
	if err := auth.RequireActive(p); err != nil {
		return nil, err
	}
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	a := &models.Answer{
		ID:         id.MustGenerate(id.PrefixAnswer),
		QuestionID: in.QuestionID,
		AuthorID:   p.UserID,
		Content:    in.Content,
		CreatedAt:  s.now().UTC(),
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetQuestion(ctx, in.QuestionID); err != nil {
			return err
		}
		if err := tx.CreateAnswer(ctx, a); err != nil {
			return err
		}
		_, err := tx.AddToQuestionCounter(ctx, in.QuestionID, store.CounterAnswers, 1)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ledger.Event{
		UserID: p.UserID, AuthorID: p.UserID, Action: models.ActionPost,
		TargetID: a.ID, TargetType: models.TargetAnswer,
	})
	s.revalidate(questionPath(in.QuestionID))
	return a, nil
}

// DeleteAnswer removes an answer and the votes on it. The author or any
// admin may delete.
func (s *Service) DeleteAnswer(ctx context.Context, p *auth.Principal, answerID string) error {
	if err := auth.RequireActive(p); err != nil {
		return err
	}
	if answerID == "" {
		return apperr.Validation("answer id is required")
	}

	var a *models.Answer
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if a, err = tx.GetAnswer(ctx, answerID); err != nil {
			return err
		}
		if a.AuthorID != p.UserID && !p.IsAdmin {
			return apperr.Forbidden("you are not allowed to delete this answer")
		}
		if _, err := tx.DeleteVotesForTargets(ctx, models.TargetAnswer, a.ID); err != nil {
			return err
		}
		if err := tx.DeleteAnswer(ctx, a.ID); err != nil {
			return err
		}
		_, err = tx.AddToQuestionCounter(ctx, a.QuestionID, store.CounterAnswers, -1)
		return err
	})
	if err != nil {
		return err
	}

	s.record(ctx, ledger.Event{
		UserID: p.UserID, AuthorID: a.AuthorID, Action: models.ActionDelete,
		TargetID: a.ID, TargetType: models.TargetAnswer,
	})
	s.revalidate(questionPath(a.QuestionID), profilePath(a.AuthorID))
	return nil
}

// ListAnswers returns the answers of a question, most upvoted first.
func (s *Service) ListAnswers(ctx context.Context, questionID string) ([]*models.Answer, error) {
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.store.ListAnswers(ctx, questionID)
}
