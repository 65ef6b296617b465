package store

import (
	"context"
	"fmt"

	"github.com/starford/quorum/internal/models"
)

const answerColumns = `id, question_id, author_id, content, upvotes, downvotes, created_at`

func scanAnswer(sc scanner) (*models.Answer, error) {
	var (
		a         models.Answer
		createdAt string
	)
	if err := sc.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Content, &a.Upvotes, &a.Downvotes, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnswer inserts an answer row.
func (tx *Tx) CreateAnswer(ctx context.Context, a *models.Answer) error {
	_, err := tx.db.ExecContext(ctx, `
		INSERT INTO answers (id, question_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.QuestionID, a.AuthorID, a.Content, formatTime(a.CreatedAt))
	if err != nil {
		return mapErr(fmt.Errorf("store: create answer: %w", err))
	}
	return nil
}

// GetAnswer returns the answer with id.
func (q queries) GetAnswer(ctx context.Context, answerID string) (*models.Answer, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = ?`, answerID)
	a, err := scanAnswer(row)
	if err != nil {
		return nil, notFound(err, "answer not found")
	}
	return a, nil
}

// ListAnswers returns a question's answers, most upvoted first.
func (q queries) ListAnswers(ctx context.Context, questionID string) ([]*models.Answer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE question_id = ? ORDER BY upvotes DESC, created_at ASC`,
		questionID)
	if err != nil {
		return nil, fmt.Errorf("store: list answers: %w", err)
	}
	defer rows.Close()

	out := []*models.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AnswerIDsForQuestion returns the ids of every answer on the question.
func (q queries) AnswerIDsForQuestion(ctx context.Context, questionID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM answers WHERE question_id = ?`, questionID)
	if err != nil {
		return nil, fmt.Errorf("store: answer ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, rows.Err()
}

// DeleteAnswer removes one answer row.
func (tx *Tx) DeleteAnswer(ctx context.Context, answerID string) error {
	res, err := tx.db.ExecContext(ctx, `DELETE FROM answers WHERE id = ?`, answerID)
	if err != nil {
		return mapErr(fmt.Errorf("store: delete answer: %w", err))
	}
	return expectOne(res, "answer not found")
}

// DeleteAnswersForQuestion removes every answer on the question and returns
// how many were deleted.
func (tx *Tx) DeleteAnswersForQuestion(ctx context.Context, questionID string) (int64, error) {
	res, err := tx.db.ExecContext(ctx, `DELETE FROM answers WHERE question_id = ?`, questionID)
	if err != nil {
		return 0, mapErr(fmt.Errorf("store: delete answers: %w", err))
	}
	return res.RowsAffected()
}

// AddToAnswerVotes adds delta to the answer's upvotes or downvotes.
func (tx *Tx) AddToAnswerVotes(ctx context.Context, answerID string, dir models.VoteDirection, delta int) error {
	col := "upvotes"
	if dir == models.VoteDown {
		col = "downvotes"
	}
	res, err := tx.db.ExecContext(ctx,
		`UPDATE answers SET `+col+` = `+col+` + ? WHERE id = ?`, delta, answerID)
	if err != nil {
		return mapErr(fmt.Errorf("store: update answer votes: %w", err))
	}
	return expectOne(res, "answer not found")
}

// ListAnswersByAuthor returns one page of authorID's answers, most upvoted
// first, and the author's total answer count.
func (q queries) ListAnswersByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*models.Answer, int, error) {
	var total int
	if err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM answers WHERE author_id = ?`, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count author answers: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE author_id = ?
		ORDER BY upvotes DESC, created_at DESC LIMIT ? OFFSET ?`,
		authorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list author answers: %w", err)
	}
	defer rows.Close()

	out := []*models.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
