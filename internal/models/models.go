// Package models defines the domain types shared by the store and services.
package models

import "time"

// Tag is a case-insensitively unique label attached to questions.
type Tag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Question is a post owned by its author. Tags mirrors the question's rows
// in the association table, in attachment order.
type Question struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"author_id"`
	Tags        []Tag     `json:"tags"`
	Upvotes     int       `json:"upvotes"`
	Downvotes   int       `json:"downvotes"`
	Views       int       `json:"views"`
	AnswerCount int       `json:"answer_count"`
	ReportCount int       `json:"report_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TagIDs returns the ids of the attached tags in order.
func (q *Question) TagIDs() []string {
	ids := make([]string, len(q.Tags))
	for i, t := range q.Tags {
		ids[i] = t.ID
	}
	return ids
}

// Answer belongs to exactly one question.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	CreatedAt  time.Time `json:"created_at"`
}

// User holds the reputation and moderation fields of an account.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Reputation  int        `json:"reputation"`
	IsAdmin     bool       `json:"is_admin"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Stats are the admin dashboard counters.
type Stats struct {
	Users     int `json:"users"`
	Questions int `json:"questions"`
	Answers   int `json:"answers"`
	Reported  int `json:"reported"`
}

// TagCount is a tag with the number of times one user applied it.
type TagCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UserActivity aggregates a user's content.
type UserActivity struct {
	Questions       int `json:"questions"`
	QuestionUpvotes int `json:"question_upvotes"`
	Views           int `json:"views"`
	Answers         int `json:"answers"`
	AnswerUpvotes   int `json:"answer_upvotes"`
}

// MonthlyStat counts the users and questions created in one month, given
// as YYYY-MM.
type MonthlyStat struct {
	Month     string `json:"month"`
	Users     int    `json:"users"`
	Questions int    `json:"questions"`
}

// Announcement is a site-wide notice shown until it expires or the user
// dismisses it.
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
