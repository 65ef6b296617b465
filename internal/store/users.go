package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/quorum/internal/models"
)

const userColumns = `id, name, reputation, is_admin, banned_until, created_at`

func scanUser(sc scanner) (*models.User, error) {
	var (
		u         models.User
		banned    sql.NullString
		createdAt string
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Reputation, &u.IsAdmin, &banned, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if u.BannedUntil, err = parseNullTime(banned); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user. Account provisioning belongs to the identity
// provider; this exists for seeding and tests.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, reputation, is_admin, banned_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Reputation, u.IsAdmin, nullTime(u.BannedUntil), formatTime(u.CreatedAt))
	if err != nil {
		return mapErr(fmt.Errorf("store: create user: %w", err))
	}
	return nil
}

// GetUser returns the user with id or a NOT_FOUND error.
func (q queries) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return u, nil
}

// ListUsers returns users ordered by reputation (popular), creation date
// (newest/oldest), with an optional case-insensitive name filter.
func (q queries) ListUsers(ctx context.Context, query, sort string, limit, offset int) ([]*models.User, int, error) {
	where, args := "", []any{}
	if query != "" {
		where = ` WHERE instr(fold(name), ?) > 0`
		args = append(args, Fold(query))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count users: %w", err)
	}

	order := "created_at DESC"
	switch sort {
	case "oldest":
		order = "created_at ASC"
	case "popular":
		order = "reputation DESC, created_at DESC"
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// ReputationDelta is one user's share of a reputation batch.
type ReputationDelta struct {
	UserID string
	Points int
}

// AddReputation applies every delta in order. Each update must touch exactly
// one row; a missing user fails the batch with NOT_FOUND and the caller's
// transaction is expected to roll back the updates already applied.
func (tx *Tx) AddReputation(ctx context.Context, deltas ...ReputationDelta) error {
	for _, d := range deltas {
		res, err := tx.db.ExecContext(ctx,
			`UPDATE users SET reputation = reputation + ? WHERE id = ?`, d.Points, d.UserID)
		if err != nil {
			return mapErr(fmt.Errorf("store: add reputation: %w", err))
		}
		if err := expectOne(res, fmt.Sprintf("user %s not found", d.UserID)); err != nil {
			return err
		}
	}
	return nil
}

// SetBannedUntil sets or clears (until == nil) a user's ban.
func (tx *Tx) SetBannedUntil(ctx context.Context, userID string, until *time.Time) error {
	res, err := tx.db.ExecContext(ctx, `UPDATE users SET banned_until = ? WHERE id = ?`, nullTime(until), userID)
	if err != nil {
		return mapErr(fmt.Errorf("store: set banned_until: %w", err))
	}
	return expectOne(res, "user not found")
}

// SetAdmin sets the admin flag.
func (tx *Tx) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	res, err := tx.db.ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, userID)
	if err != nil {
		return mapErr(fmt.Errorf("store: set is_admin: %w", err))
	}
	return expectOne(res, "user not found")
}

// ClearExpiredBan clears banned_until when it is at or before now. It reports
// whether a ban was cleared.
func (s *Store) ClearExpiredBan(ctx context.Context, userID string, now time.Time) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET banned_until = NULL WHERE id = ? AND banned_until IS NOT NULL AND banned_until <= ?`,
		userID, formatTime(now))
	if err != nil {
		return false, mapErr(fmt.Errorf("store: clear expired ban: %w", err))
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
