package api

import (
	"time"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/recommend"
)

// QuestionRequest is the request body for creating or editing a question.
type QuestionRequest struct {
	Title   string   `json:"title" example:"How do I cancel a context?" validate:"required"`
	Content string   `json:"content" example:"I start a goroutine and..." validate:"required"`
	Tags    []string `json:"tags" example:"go,context" validate:"required"`
}

// VoteRequest is the request body for voting.
type VoteRequest struct {
	Direction models.VoteDirection `json:"direction" example:"up" validate:"required"`
}

// ReportRequest is the request body for reporting a question.
type ReportRequest struct {
	Reason string `json:"reason" example:"spam"`
}

// AnswerRequest is the request body for posting an answer.
type AnswerRequest struct {
	Content string `json:"content" example:"Call cancel() when done." validate:"required"`
}

// BanRequest is the request body for banning a user. Days defaults to 30;
// zero bans effectively permanently.
type BanRequest struct {
	Days *int `json:"days,omitempty" example:"7"`
}

// AnnouncementRequest is the request body for publishing an announcement.
type AnnouncementRequest struct {
	Title     string    `json:"title" example:"Scheduled maintenance" validate:"required"`
	Body      string    `json:"body" example:"The site is read-only on Friday." validate:"required"`
	ExpiresAt time.Time `json:"expires_at" example:"2026-12-01T00:00:00Z" validate:"required"`
}

// SaveResponse reports whether the question is now saved.
type SaveResponse struct {
	Saved bool `json:"saved" example:"true"`
}

// CountResponse carries a single updated counter.
type CountResponse struct {
	Count int `json:"count" example:"3"`
}

// Envelope types for swag.
type (
	ErrorEnvelope     = apperr.Result[any]
	QuestionEnvelope  = apperr.Result[*models.Question]
	PageEnvelope      = apperr.Result[*questions.Page]
	TagPageEnvelope   = apperr.Result[*questions.TagPage]
	RecommendEnvelope = apperr.Result[*recommend.Result]
	ProfileEnvelope   = apperr.Result[*moderation.Profile]
	AuditEnvelope     = apperr.Result[*ledger.AuditResult]
	UserStatsEnvelope = apperr.Result[*moderation.UserStats]

	AnnouncementEnvelope = apperr.Result[*models.Announcement]
)
