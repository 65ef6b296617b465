// Package reputation turns ledger interactions into reputation deltas.
package reputation

import (
	"context"

	"github.com/starford/quorum/internal/metrics"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// Points is the pair of deltas an interaction awards.
type Points struct {
	Performer int
	Author    int
}

func (p Points) negate() Points {
	return Points{Performer: -p.Performer, Author: -p.Author}
}

// For returns the fixed point table entry for action on targetType.
func For(action models.Action, targetType models.TargetType) Points {
	switch action {
	case models.ActionUpvote:
		return Points{Performer: 2, Author: 10}
	case models.ActionDownvote:
		return Points{Performer: -1, Author: -2}
	case models.ActionRetractUpvote:
		return For(models.ActionUpvote, targetType).negate()
	case models.ActionRetractDownvote:
		return For(models.ActionDownvote, targetType).negate()
	case models.ActionPost:
		if targetType == models.TargetAnswer {
			return Points{Author: 10}
		}
		return Points{Author: 5}
	case models.ActionDelete:
		if targetType == models.TargetAnswer {
			return Points{Author: -10}
		}
		return Points{Author: -5}
	default:
		return Points{}
	}
}

// Deltas returns the per-user updates for one interaction. A self-action
// yields only the author delta. Zero deltas are omitted, as is the author
// side when there is no author.
func Deltas(action models.Action, targetType models.TargetType, performerID, authorID string) []store.ReputationDelta {
	p := For(action, targetType)
	if performerID == authorID {
		if p.Author == 0 {
			return nil
		}
		return []store.ReputationDelta{{UserID: authorID, Points: p.Author}}
	}

	var out []store.ReputationDelta
	if p.Performer != 0 && performerID != "" {
		out = append(out, store.ReputationDelta{UserID: performerID, Points: p.Performer})
	}
	if p.Author != 0 && authorID != "" {
		out = append(out, store.ReputationDelta{UserID: authorID, Points: p.Author})
	}
	return out
}

// Engine applies deltas inside the caller's transaction.
type Engine struct {
	metrics *metrics.Metrics
}

// New returns an Engine. m may be nil.
func New(m *metrics.Metrics) *Engine {
	return &Engine{metrics: m}
}

// Apply applies the deltas for in as one batch. If either user no longer
// exists the batch fails with NOT_FOUND and the caller's transaction must be
// rolled back; no partial credit is ever committed.
func (e *Engine) Apply(ctx context.Context, tx *store.Tx, in *models.Interaction, performerID, authorID string) error {
	deltas := Deltas(in.Action, in.TargetType, performerID, authorID)
	if len(deltas) == 0 {
		return nil
	}
	if err := tx.AddReputation(ctx, deltas...); err != nil {
		return err
	}
	for _, d := range deltas {
		e.metrics.ReputationApplied(string(in.Action), d.Points)
	}
	return nil
}

// Audit sums the deltas userID should have received from history, which
// must be ordered oldest first. The result equals the user's reputation
// minus its initial value.
func Audit(userID string, history []*models.Interaction) int {
	total := 0
	for _, in := range history {
		for _, d := range Deltas(in.Action, in.TargetType, in.UserID, in.AuthorID) {
			if d.UserID == userID {
				total += d.Points
			}
		}
	}
	return total
}
