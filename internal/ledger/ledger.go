// Package ledger records user interactions in the append-only ledger and
// applies the reputation they carry in the same transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/checksum"
	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/metrics"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/reputation"
	"github.com/starford/quorum/internal/store"
)

// DefaultRecentLimit bounds RecentByUser when the caller passes no limit.
const DefaultRecentLimit = 50

// DefaultWindow is the idempotency bucket used when none is configured.
const DefaultWindow = time.Minute

// Event is an interaction captured after its content mutation committed.
// UserID performs the action; AuthorID owns the target and receives the
// author share of the reputation.
type Event struct {
	UserID     string
	Action     models.Action
	TargetID   string
	TargetType models.TargetType
	AuthorID   string
	At         time.Time
	// Ref distinguishes separate mutations of the same kind on the same
	// target inside one window. Redeliveries of one event share it.
	Ref string
}

// Validate checks that the event is well formed.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
		validation.Field(&e.TargetID, validation.Required),
		validation.Field(&e.Action, validation.Required, validation.By(func(any) error {
			if !e.Action.Valid() {
				return fmt.Errorf("unknown action %q", e.Action)
			}
			return nil
		})),
		validation.Field(&e.TargetType, validation.Required, validation.By(func(any) error {
			if !e.TargetType.Valid() {
				return fmt.Errorf("unknown target type %q", e.TargetType)
			}
			return nil
		})),
	)
}

// Recorder appends interactions and applies their reputation.
type Recorder struct {
	store      *store.Store
	reputation *reputation.Engine
	window     time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithWindow sets the idempotency bucket width.
func WithWindow(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.window = d }
}

// WithClock overrides the time source used for events without a capture time.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithMetrics attaches collectors.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder returns a Recorder backed by s.
func NewRecorder(s *store.Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: s, window: DefaultWindow, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	r.reputation = reputation.New(r.metrics)
	return r
}

// Key returns the idempotency key for ev.
func (r *Recorder) Key(ev Event) string {
	parts := []string{ev.UserID, string(ev.Action), string(ev.TargetType), ev.TargetID}
	if ev.Ref != "" {
		parts = append(parts, ev.Ref)
	}
	return checksum.IdempotencyKey(ev.At, r.window, parts...)
}

// Record appends ev and applies its reputation in one transaction. A
// redelivery of an already recorded event writes nothing and returns the
// stored entry.
func (r *Recorder) Record(ctx context.Context, ev Event) (*models.Interaction, error) {
	if err := ev.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if ev.At.IsZero() {
		ev.At = r.now()
	}
	in := &models.Interaction{
		ID:             id.MustGenerate(id.PrefixInteraction),
		UserID:         ev.UserID,
		Action:         ev.Action,
		TargetID:       ev.TargetID,
		TargetType:     ev.TargetType,
		AuthorID:       ev.AuthorID,
		IdempotencyKey: r.Key(ev),
		CreatedAt:      ev.At.UTC(),
	}

	var added bool
	err := r.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if added, err = tx.AppendInteraction(ctx, in); err != nil || !added {
			return err
		}
		return r.reputation.Apply(ctx, tx, in, ev.UserID, ev.AuthorID)
	})
	if err != nil {
		return nil, err
	}
	if !added {
		r.metrics.LedgerOutcome(string(ev.Action), metrics.OutcomeDuplicate)
		return r.store.InteractionByKey(ctx, in.IdempotencyKey)
	}
	r.metrics.LedgerOutcome(string(ev.Action), metrics.OutcomeRecorded)
	return in, nil
}

// RecentByUser returns userID's newest interactions on targetType whose
// action is in actions, newest first. limit <= 0 means DefaultRecentLimit.
func (r *Recorder) RecentByUser(ctx context.Context, userID string, actions []models.Action, targetType models.TargetType, limit int) ([]*models.Interaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return r.store.RecentInteractions(ctx, userID, actions, targetType, limit)
}

// AuditResult compares a user's stored reputation with the ledger.
type AuditResult struct {
	UserID     string `json:"user_id"`
	Reputation int    `json:"reputation"`
	Derived    int    `json:"derived"`
	Consistent bool   `json:"consistent"`
}

// Audit recomputes userID's reputation from the ledger. Users start at zero.
func (r *Recorder) Audit(ctx context.Context, userID string) (*AuditResult, error) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := r.store.InteractionsInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}
	derived := reputation.Audit(userID, history)
	return &AuditResult{
		UserID:     userID,
		Reputation: u.Reputation,
		Derived:    derived,
		Consistent: derived == u.Reputation,
	}, nil
}

// retryable reports whether a failed delivery may succeed later.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeConflict, apperr.CodeUnknown:
		return true
	}
	return false
}
