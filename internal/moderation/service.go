package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// Revalidator is notified with a logical resource path after a committed
// change.
type Revalidator interface {
	Revalidate(path string)
}

// Service applies admin transitions to users.
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

// checkTarget enforces the rules shared by every transition: the caller is
// an active admin and never the target.
func checkTarget(p *auth.Principal, targetID string) error {
	if err := auth.RequireAdmin(p); err != nil {
		return err
	}
	if targetID == "" {
		return apperr.Validation("user id is required")
	}
	if targetID == p.UserID {
		return apperr.Forbidden("you cannot change your own moderation state")
	}
	return nil
}

// transition loads the target and runs fn in one transaction, then
// revalidates the dashboard and the target's profile.
func (s *Service) transition(ctx context.Context, p *auth.Principal, targetID string, fn func(tx *store.Tx, u *models.User) error) (*models.User, error) {
	if err := checkTarget(p, targetID); err != nil {
		return nil, err
	}
	var out *models.User
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		u, err := tx.GetUser(ctx, targetID)
		if err != nil {
			return err
		}
		if err := fn(tx, u); err != nil {
			return err
		}
		out, err = tx.GetUser(ctx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.revalidate("/dashboard", "/profile/"+targetID)
	return out, nil
}

// Ban bans targetID for days. A nil days means DefaultBanDays, zero is
// effectively permanent. Negative values and durations past
// PermanentBanDays are rejected.
func (s *Service) Ban(ctx context.Context, p *auth.Principal, targetID string, days *int) (*models.User, error) {
	d := DefaultBanDays
	if days != nil {
		d = *days
	}
	if d < 0 {
		return nil, apperr.Validation("ban duration cannot be negative")
	}
	if d > PermanentBanDays {
		return nil, apperr.Validationf("ban duration is at most %d days", PermanentBanDays)
	}
	until := BanUntil(s.now().UTC(), d)

	u, err := s.transition(ctx, p, targetID, func(tx *store.Tx, _ *models.User) error {
		return tx.SetBannedUntil(ctx, targetID, &until)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user banned",
		slog.String("admin_id", p.UserID),
		slog.String("user_id", targetID),
		slog.Int("days", d))
	return u, nil
}

// Unban returns targetID to Active.
func (s *Service) Unban(ctx context.Context, p *auth.Principal, targetID string) (*models.User, error) {
	return s.transition(ctx, p, targetID, func(tx *store.Tx, _ *models.User) error {
		return tx.SetBannedUntil(ctx, targetID, nil)
	})
}

// Promote grants the admin role.
func (s *Service) Promote(ctx context.Context, p *auth.Principal, targetID string) (*models.User, error) {
	return s.transition(ctx, p, targetID, func(tx *store.Tx, u *models.User) error {
		if u.IsAdmin {
			return nil
		}
		return tx.SetAdmin(ctx, targetID, true)
	})
}

// RevokeAdmin removes the admin role.
func (s *Service) RevokeAdmin(ctx context.Context, p *auth.Principal, targetID string) (*models.User, error) {
	return s.transition(ctx, p, targetID, func(tx *store.Tx, u *models.User) error {
		if !u.IsAdmin {
			return nil
		}
		return tx.SetAdmin(ctx, targetID, false)
	})
}

// Resolve loads userID and returns its principal, applying the implicit
// expiry transition when its ban has lapsed.
func (s *Service) Resolve(ctx context.Context, userID string) (*auth.Principal, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	st := StateOf(u, now)
	if !st.IsBanned() && u.BannedUntil != nil {
		if _, err := s.store.ClearExpiredBan(ctx, userID, now); err != nil {
			// The derived state is already Active.
			s.log.Warn("clear expired ban", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}
	return &auth.Principal{UserID: u.ID, IsAdmin: u.IsAdmin, Banned: st.IsBanned()}, nil
}

func (s *Service) revalidate(paths ...string) {
	if s.reval == nil {
		return
	}
	for _, p := range paths {
		s.reval.Revalidate(p)
	}
}
