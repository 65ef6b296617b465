package models

import "time"

// Action is the kind of user activity recorded in the interaction ledger.
type Action string

const (
	ActionView     Action = "view"
	ActionUpvote   Action = "upvote"
	ActionDownvote Action = "downvote"
	ActionBookmark Action = "bookmark"
	ActionPost     Action = "post"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionSearch   Action = "search"

	// Retractions compensate an earlier upvote or downvote that was
	// withdrawn or flipped.
	ActionRetractUpvote   Action = "retract_upvote"
	ActionRetractDownvote Action = "retract_downvote"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionUpvote, ActionDownvote, ActionBookmark,
		ActionPost, ActionEdit, ActionDelete, ActionSearch,
		ActionRetractUpvote, ActionRetractDownvote:
		return true
	}
	return false
}

// TargetType is the kind of content an interaction or vote refers to.
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetQuestion || t == TargetAnswer
}

// Interaction is an immutable ledger entry.
type Interaction struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Action         Action     `json:"action"`
	TargetID       string     `json:"target_id"`
	TargetType     TargetType `json:"target_type"`
	AuthorID       string     `json:"author_id"`
	IdempotencyKey string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// VoteDirection is the sign of a vote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Valid reports whether d is up or down.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Action returns the ledger action recorded when a vote in direction d is cast.
func (d VoteDirection) Action() Action {
	if d == VoteDown {
		return ActionDownvote
	}
	return ActionUpvote
}

// RetractAction returns the ledger action that compensates a vote in
// direction d.
func (d VoteDirection) RetractAction() Action {
	if d == VoteDown {
		return ActionRetractDownvote
	}
	return ActionRetractUpvote
}

// Vote is one user's vote on a question or answer.
type Vote struct {
	UserID     string        `json:"user_id"`
	TargetID   string        `json:"target_id"`
	TargetType TargetType    `json:"target_type"`
	Direction  VoteDirection `json:"direction"`
	CreatedAt  time.Time     `json:"created_at"`
}
