package store

import (
	"context"
	"fmt"

	"github.com/starford/quorum/internal/models"
)

// GetVote returns userID's vote on the target, or NOT_FOUND.
func (q queries) GetVote(ctx context.Context, userID, targetID string, targetType models.TargetType) (*models.Vote, error) {
	var (
		v         models.Vote
		dir, tt   string
		createdAt string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT user_id, target_id, target_type, direction, created_at
		FROM votes WHERE user_id = ? AND target_id = ? AND target_type = ?`,
		userID, targetID, string(targetType)).Scan(&v.UserID, &v.TargetID, &tt, &dir, &createdAt)
	if err != nil {
		return nil, notFound(err, "vote not found")
	}
	v.TargetType = models.TargetType(tt)
	v.Direction = models.VoteDirection(dir)
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// PutVote inserts the vote or changes the direction of an existing one.
func (tx *Tx) PutVote(ctx context.Context, v *models.Vote) error {
	_, err := tx.db.ExecContext(ctx, `
		INSERT INTO votes (user_id, target_id, target_type, direction, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, target_id, target_type) DO UPDATE SET
			direction  = excluded.direction,
			created_at = excluded.created_at`,
		v.UserID, v.TargetID, string(v.TargetType), string(v.Direction), formatTime(v.CreatedAt))
	if err != nil {
		return mapErr(fmt.Errorf("store: put vote: %w", err))
	}
	return nil
}

// DeleteVote removes userID's vote on the target.
func (tx *Tx) DeleteVote(ctx context.Context, userID, targetID string, targetType models.TargetType) error {
	res, err := tx.db.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = ? AND target_id = ? AND target_type = ?`,
		userID, targetID, string(targetType))
	if err != nil {
		return mapErr(fmt.Errorf("store: delete vote: %w", err))
	}
	return expectOne(res, "vote not found")
}

// DeleteVotesForTargets removes every vote on the given targets.
func (tx *Tx) DeleteVotesForTargets(ctx context.Context, targetType models.TargetType, targetIDs ...string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	args := append([]any{string(targetType)}, stringArgs(targetIDs)...)
	res, err := tx.db.ExecContext(ctx,
		`DELETE FROM votes WHERE target_type = ? AND target_id IN (`+placeholders(len(targetIDs))+`)`,
		args...)
	if err != nil {
		return 0, mapErr(fmt.Errorf("store: delete votes: %w", err))
	}
	return res.RowsAffected()
}

// CountVotes returns the number of votes on the given targets.
func (q queries) CountVotes(ctx context.Context, targetType models.TargetType, targetIDs ...string) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	args := append([]any{string(targetType)}, stringArgs(targetIDs)...)
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM votes WHERE target_type = ? AND target_id IN (`+placeholders(len(targetIDs))+`)`,
		args...).Scan(&n)
	return n, err
}
