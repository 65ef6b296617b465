// Package announcements manages the site-wide notice admins publish and
// users dismiss.
package announcements

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// Revalidator is notified with a logical resource path after a change.
type Revalidator interface {
	Revalidate(path string)
}

// Service implements the announcement operations.
type Service struct {
	store *store.Store
	reval Revalidator
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service. reval may be nil.
func NewService(st *store.Store, reval Revalidator, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{store: st, reval: reval, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create publishes an announcement. Admin only.
func (s *Service) Create(ctx context.Context, p *auth.Principal, in CreateInput) (*models.Announcement, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	now := s.now().UTC()
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 120)),
		validation.Field(&in.Body, validation.Required),
		validation.Field(&in.ExpiresAt, validation.Required, validation.Min(now).Error("must be in the future")),
	)
	if err != nil {
		var details map[string]string
		if errs, ok := err.(validation.Errors); ok {
			details = make(map[string]string, len(errs))
			for field, e := range errs {
				details[field] = e.Error()
			}
		}
		return nil, apperr.Validation(err.Error()).WithDetails(details)
	}

	a := &models.Announcement{
		ID:        id.MustGenerate(id.PrefixAnnouncement),
		Title:     in.Title,
		Body:      in.Body,
		AuthorID:  p.UserID,
		ExpiresAt: in.ExpiresAt.UTC(),
		CreatedAt: now,
	}
	if err := s.store.CreateAnnouncement(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("announcement published",
		slog.String("admin_id", p.UserID),
		slog.String("announcement_id", a.ID),
		slog.Time("expires_at", a.ExpiresAt))
	if s.reval != nil {
		s.reval.Revalidate("/")
	}
	return a, nil
}

// Active returns the newest unexpired announcement, or nil when there is
// none or the caller dismissed it.
func (s *Service) Active(ctx context.Context, p *auth.Principal) (*models.Announcement, error) {
	a, err := s.store.LatestAnnouncement(ctx, s.now().UTC())
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p == nil || p.UserID == "" {
		return a, nil
	}
	dismissed, err := s.store.DismissedAt(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if dismissed != nil && !dismissed.Before(a.CreatedAt) {
		return nil, nil
	}
	return a, nil
}

// Dismiss hides every announcement published so far from the caller.
func (s *Service) Dismiss(ctx context.Context, p *auth.Principal) error {
	if err := auth.RequireUser(p); err != nil {
		return err
	}
	return s.store.DismissAnnouncements(ctx, p.UserID, s.now().UTC())
}
