package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quorum/internal/models"
)

const announcementColumns = `id, title, body, author_id, expires_at, created_at`

func scanAnnouncement(sc scanner) (*models.Announcement, error) {
	var (
		a                    models.Announcement
		expiresAt, createdAt string
	)
	if err := sc.Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &expiresAt, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if a.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnnouncement inserts a.
func (s *Store) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (`+announcementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Body, a.AuthorID, formatTime(a.ExpiresAt), formatTime(a.CreatedAt))
	if err != nil {
		return mapErr(fmt.Errorf("store: create announcement: %w", err))
	}
	return nil
}

// LatestAnnouncement returns the newest announcement still live at now, or
// NOT_FOUND.
func (q queries) LatestAnnouncement(ctx context.Context, now time.Time) (*models.Announcement, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+announcementColumns+` FROM announcements
		WHERE expires_at > ?
		ORDER BY created_at DESC LIMIT 1`, formatTime(now))
	a, err := scanAnnouncement(row)
	if err != nil {
		return nil, notFound(err, "no active announcement")
	}
	return a, nil
}

// DismissedAt returns when userID last dismissed announcements, or nil.
func (q queries) DismissedAt(ctx context.Context, userID string) (*time.Time, error) {
	var at string
	err := q.db.QueryRowContext(ctx,
		`SELECT dismissed_at FROM announcement_dismissals WHERE user_id = ?`, userID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: dismissed at: %w", err)
	}
	t, err := parseTime(at)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DismissAnnouncements records that userID dismissed everything shown up to at.
func (s *Store) DismissAnnouncements(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcement_dismissals (user_id, dismissed_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET dismissed_at = excluded.dismissed_at`,
		userID, formatTime(at))
	if err != nil {
		return mapErr(fmt.Errorf("store: dismiss announcements: %w", err))
	}
	return nil
}
