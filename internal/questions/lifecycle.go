package questions

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// CreateInput is the payload of Create.
type CreateInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Validate checks the input fields.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(5, 130)),
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.Tags, validation.Required, validation.Length(1, maxTags), tagNameRule),
	)
}

// EditInput is the payload of Edit.
type EditInput struct {
	QuestionID string   `json:"question_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
}

// Validate checks the input fields.
func (in EditInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.QuestionID, validation.Required),
		validation.Field(&in.Title, validation.Required, validation.RuneLength(5, 130)),
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.Tags, validation.Required, validation.Length(1, maxTags), tagNameRule),
	)
}

// attachTag upserts name and associates it with the question at position,
// incrementing the tag's usage in the same transaction.
func attachTag(ctx context.Context, tx *store.Tx, questionID, name string, position int) error {
	tag, err := tx.UpsertTagByName(ctx, name)
	if err != nil {
		return err
	}
	if err := tx.AddQuestionTag(ctx, questionID, tag.ID, position); err != nil {
		return err
	}
	return tx.IncrementTagUsage(ctx, tag.ID, 1)
}

// detachTags decrements each tag and deletes its association.
func detachTags(ctx context.Context, tx *store.Tx, questionID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		if err := tx.IncrementTagUsage(ctx, tagID, -1); err != nil {
			return err
		}
	}
	return tx.RemoveQuestionTags(ctx, questionID, tagIDs...)
}

// Create stores a new question with its tags in one transaction and then
// records the post interaction.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in CreateInput) (*models.Question, error) {
	if err := auth.RequireActive(p); err != nil {
		return nil, err
	}
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	q := &models.Question{
		ID:        id.MustGenerate(id.PrefixQuestion),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		AuthorID:  p.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created *models.Question
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateQuestion(ctx, q); err != nil {
			return err
		}
		for i, name := range normalizeTags(in.Tags) {
			if err := attachTag(ctx, tx, q.ID, name, i); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.GetQuestion(ctx, q.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ledger.Event{
		UserID: p.UserID, AuthorID: p.UserID, Action: models.ActionPost,
		TargetID: created.ID, TargetType: models.TargetQuestion,
	})
	s.revalidate("/", profilePath(p.UserID))
	s.log.Info("question created", slog.String("question_id", created.ID), slog.String("author_id", p.UserID))
	return created, nil
}

// Edit updates the text and tag set of the caller's own question. Tag
// changes are the case-insensitive set difference between the stored and
// the requested names.
func (s *Service) Edit(ctx context.Context, p *auth.Principal, in EditInput) (*models.Question, error) {
	if err := auth.RequireActive(p); err != nil {
		return nil, err
	}
	if err := validationError(in.Validate()); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	var (
		updated *models.Question
		changed bool
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		q, err := tx.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			return err
		}
		if q.AuthorID != p.UserID {
			return apperr.Forbidden("only the author can edit this question")
		}

		current := make(map[string]models.Tag, len(q.Tags))
		for _, t := range q.Tags {
			current[strings.ToLower(t.Name)] = t
		}
		desired := normalizeTags(in.Tags)
		wanted := make(map[string]bool, len(desired))

		var toAdd []string
		for _, name := range desired {
			key := strings.ToLower(name)
			wanted[key] = true
			if _, ok := current[key]; !ok {
				toAdd = append(toAdd, name)
			}
		}
		var toRemove []string
		for _, t := range q.Tags {
			if !wanted[strings.ToLower(t.Name)] {
				toRemove = append(toRemove, t.ID)
			}
		}

		now := s.now().UTC()
		textChanged := title != q.Title || in.Content != q.Content
		changed = textChanged || len(toAdd) > 0 || len(toRemove) > 0
		switch {
		case textChanged:
			if err := tx.UpdateQuestionText(ctx, q.ID, title, in.Content, now); err != nil {
				return err
			}
		case changed:
			if err := tx.TouchQuestion(ctx, q.ID, now); err != nil {
				return err
			}
		}

		if err := detachTags(ctx, tx, q.ID, toRemove); err != nil {
			return err
		}
		if len(toAdd) > 0 {
			pos, err := tx.NextTagPosition(ctx, q.ID)
			if err != nil {
				return err
			}
			for i, name := range toAdd {
				if err := attachTag(ctx, tx, q.ID, name, pos+i); err != nil {
					return err
				}
			}
		}

		updated, err = tx.GetQuestion(ctx, q.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	s.record(ctx, ledger.Event{
		UserID: p.UserID, AuthorID: updated.AuthorID, Action: models.ActionEdit,
		TargetID: updated.ID, TargetType: models.TargetQuestion,
	})
	s.revalidate(questionPath(updated.ID))
	return updated, nil
}

// Delete removes a question and everything that depends on it in one
// transaction. The author or any admin may delete.
func (s *Service) Delete(ctx context.Context, p *auth.Principal, questionID string) error {
	if err := auth.RequireActive(p); err != nil {
		return err
	}
	if questionID == "" {
		return apperr.Validation("question id is required")
	}

	var (
		authorID string
		answers  int64
	)
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		q, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.AuthorID != p.UserID && !p.IsAdmin {
			return apperr.Forbidden("you are not allowed to delete this question")
		}
		authorID = q.AuthorID

		if _, err := tx.DeleteCollectionsForQuestion(ctx, q.ID); err != nil {
			return err
		}
		if err := detachTags(ctx, tx, q.ID, q.TagIDs()); err != nil {
			return err
		}
		if _, err := tx.DeleteVotesForTargets(ctx, models.TargetQuestion, q.ID); err != nil {
			return err
		}
		answerIDs, err := tx.AnswerIDsForQuestion(ctx, q.ID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteVotesForTargets(ctx, models.TargetAnswer, answerIDs...); err != nil {
			return err
		}
		if answers, err = tx.DeleteAnswersForQuestion(ctx, q.ID); err != nil {
			return err
		}
		if err := tx.ResetReports(ctx, q.ID); err != nil {
			return err
		}
		return tx.DeleteQuestion(ctx, q.ID)
	})
	if err != nil {
		return err
	}

	s.record(ctx, ledger.Event{
		UserID: p.UserID, AuthorID: authorID, Action: models.ActionDelete,
		TargetID: questionID, TargetType: models.TargetQuestion,
	})
	s.revalidate(profilePath(authorID))
	s.log.Info("question deleted",
		slog.String("question_id", questionID),
		slog.String("deleted_by", p.UserID),
		slog.Int64("answers", answers))
	return nil
}
