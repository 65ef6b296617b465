// Package moderation implements the admin ban and role transitions.
package moderation

import (
	"time"

	"github.com/starford/quorum/internal/models"
)

// Kind is the moderation state of an account.
type Kind int

const (
	Active Kind = iota
	Banned
)

func (k Kind) String() string {
	if k == Banned {
		return "banned"
	}
	return "active"
}

// State is the tagged moderation state. Until is set only for Banned.
type State struct {
	Kind  Kind
	Until time.Time
}

// StateOf derives u's state at now. A ban whose end is at or before now has
// expired and yields Active.
func StateOf(u *models.User, now time.Time) State {
	if u.BannedUntil == nil || !u.BannedUntil.After(now) {
		return State{Kind: Active}
	}
	return State{Kind: Banned, Until: *u.BannedUntil}
}

// IsBanned reports whether s is Banned.
func (s State) IsBanned() bool {
	return s.Kind == Banned
}

const (
	// DefaultBanDays applies when a ban request omits the duration.
	DefaultBanDays = 30
	// PermanentBanDays is the horizon used for a zero-day ban.
	PermanentBanDays = 99_999
)

// BanUntil returns the end of a ban of days starting at now. Zero days is an
// effectively permanent ban.
func BanUntil(now time.Time, days int) time.Time {
	if days == 0 {
		days = PermanentBanDays
	}
	return now.AddDate(0, 0, days)
}
