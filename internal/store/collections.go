package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/quorum/internal/models"
)

// IsSaved reports whether userID has bookmarked the question.
func (q queries) IsSaved(ctx context.Context, userID, questionID string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM collections WHERE user_id = ? AND question_id = ?`,
		userID, questionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: is saved: %w", err)
	}
	return n > 0, nil
}

// SaveQuestion bookmarks the question for userID.
func (tx *Tx) SaveQuestion(ctx context.Context, userID, questionID string, at time.Time) error {
	_, err := tx.db.ExecContext(ctx,
		`INSERT INTO collections (user_id, question_id, created_at) VALUES (?, ?, ?)`,
		userID, questionID, formatTime(at))
	if err != nil {
		return mapErr(fmt.Errorf("store: save question: %w", err))
	}
	return nil
}

// UnsaveQuestion removes userID's bookmark.
func (tx *Tx) UnsaveQuestion(ctx context.Context, userID, questionID string) error {
	res, err := tx.db.ExecContext(ctx,
		`DELETE FROM collections WHERE user_id = ? AND question_id = ?`, userID, questionID)
	if err != nil {
		return mapErr(fmt.Errorf("store: unsave question: %w", err))
	}
	return expectOne(res, "bookmark not found")
}

// DeleteCollectionsForQuestion removes every bookmark of the question.
func (tx *Tx) DeleteCollectionsForQuestion(ctx context.Context, questionID string) (int64, error) {
	res, err := tx.db.ExecContext(ctx, `DELETE FROM collections WHERE question_id = ?`, questionID)
	if err != nil {
		return 0, mapErr(fmt.Errorf("store: delete collections: %w", err))
	}
	return res.RowsAffected()
}

// ListSaved returns userID's bookmarked questions, most recently saved first.
func (q queries) ListSaved(ctx context.Context, userID string, limit, offset int) ([]*models.Question, int, error) {
	var total int
	if err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM collections WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count saved: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM collections c
		JOIN questions q ON q.id = c.question_id
		WHERE c.user_id = ?
		ORDER BY c.created_at DESC, q.id
		LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list saved: %w", err)
	}
	defer rows.Close()

	out := []*models.Question{}
	for rows.Next() {
		m, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := q.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
