package store

import (
	"context"
	"fmt"

	"github.com/starford/quorum/internal/models"
)

const interactionColumns = `id, user_id, action, target_id, target_type, author_id, idempotency_key, created_at`

func scanInteraction(sc scanner) (*models.Interaction, error) {
	var (
		in                 models.Interaction
		action, targetType string
		createdAt          string
	)
	err := sc.Scan(&in.ID, &in.UserID, &action, &in.TargetID, &targetType,
		&in.AuthorID, &in.IdempotencyKey, &createdAt)
	if err != nil {
		return nil, err
	}
	in.Action = models.Action(action)
	in.TargetType = models.TargetType(targetType)
	if in.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &in, nil
}

// AppendInteraction adds in to the ledger. It returns false without error
// when an entry with the same idempotency key already exists, in which case
// nothing is written.
func (tx *Tx) AppendInteraction(ctx context.Context, in *models.Interaction) (bool, error) {
	res, err := tx.db.ExecContext(ctx, `
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING`,
		in.ID, in.UserID, string(in.Action), in.TargetID, string(in.TargetType),
		in.AuthorID, in.IdempotencyKey, formatTime(in.CreatedAt))
	if err != nil {
		return false, mapErr(fmt.Errorf("store: append interaction: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InteractionByKey returns the ledger entry stored under idempotency key.
func (q queries) InteractionByKey(ctx context.Context, key string) (*models.Interaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE idempotency_key = ?`, key)
	in, err := scanInteraction(row)
	if err != nil {
		return nil, notFound(err, "interaction not found")
	}
	return in, nil
}

// RecentInteractions returns userID's newest interactions on targetType
// whose action is in actions, newest first.
func (q queries) RecentInteractions(ctx context.Context, userID string, actions []models.Action, targetType models.TargetType, limit int) ([]*models.Interaction, error) {
	args := []any{userID, string(targetType)}
	filter := ""
	if len(actions) > 0 {
		filter = ` AND action IN (` + placeholders(len(actions)) + `)`
		for _, a := range actions {
			args = append(args, string(a))
		}
	}
	args = append(args, limit)

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE user_id = ? AND target_type = ?`+filter+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: recent interactions: %w", err)
	}
	defer rows.Close()
	return collectInteractions(rows)
}

// InteractionsInvolving returns every entry performed by or authored for
// userID, oldest first.
func (q queries) InteractionsInvolving(ctx context.Context, userID string) ([]*models.Interaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+interactionColumns+`
		FROM interactions
		WHERE user_id = ? OR author_id = ?
		ORDER BY created_at ASC, rowid ASC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("store: interactions involving: %w", err)
	}
	defer rows.Close()
	return collectInteractions(rows)
}

type rowsScanner interface {
	scanner
	Next() bool
	Err() error
}

func collectInteractions(rows rowsScanner) ([]*models.Interaction, error) {
	out := []*models.Interaction{}
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
