package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quorum/internal/announcements"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/ratelimit"
	"github.com/starford/quorum/internal/recommend"
)

// Deps are the services behind the API.
type Deps struct {
	Questions  *questions.Service
	Moderation *moderation.Service
	Recommend  *recommend.Engine
	Ledger     *ledger.Recorder
	// Announcements, if non-nil, serves the announcement routes.
	Announcements *announcements.Service
	// ReportLimiter, if non-nil, throttles question reports per user.
	ReportLimiter *ratelimit.KeyedRateLimiter
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(PrincipalMiddleware(d.Moderation))

	// Questions.
	r.Get("/questions", h.ListQuestions)
	r.Post("/questions", h.CreateQuestion)
	r.Get("/questions/hot", h.HotQuestions)
	r.Get("/questions/{id}", h.GetQuestion)
	r.Put("/questions/{id}", h.EditQuestion)
	r.Delete("/questions/{id}", h.DeleteQuestion)
	r.Post("/questions/{id}/views", h.ViewQuestion)
	r.Post("/questions/{id}/vote", h.VoteQuestion)
	r.Post("/questions/{id}/save", h.ToggleSave)
	r.With(RateLimit(d.ReportLimiter)).Post("/questions/{id}/report", h.ReportQuestion)

	// Answers.
	r.Get("/questions/{id}/answers", h.ListAnswers)
	r.Post("/questions/{id}/answers", h.CreateAnswer)
	r.Delete("/answers/{id}", h.DeleteAnswer)
	r.Post("/answers/{id}/vote", h.VoteAnswer)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{id}", h.GetTag)
	r.Get("/tags/{id}/questions", h.TagQuestions)

	// Users.
	r.Get("/users", h.ListUsers)
	r.Get("/users/{id}", h.GetUser)
	r.Get("/users/{id}/questions", h.UserQuestions)
	r.Get("/users/{id}/answers", h.UserAnswers)
	r.Get("/users/{id}/tags", h.UserTopTags)
	r.Get("/users/{id}/stats", h.UserStats)
	r.Get("/me/saved", h.SavedQuestions)

	// Admin.
	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/stats/monthly", h.MonthlyStats)
		r.Get("/reports", h.ReportedQuestions)
		r.Delete("/reports/{id}", h.RevokeReport)
		r.Post("/users/{id}/ban", h.BanUser)
		r.Post("/users/{id}/unban", h.UnbanUser)
		r.Post("/users/{id}/promote", h.PromoteUser)
		r.Post("/users/{id}/revoke-admin", h.RevokeAdmin)
		r.Get("/users/{id}/audit", h.AuditUser)
	})

	if d.Announcements != nil {
		r.Get("/announcements/active", h.ActiveAnnouncement)
		r.Post("/announcements/dismiss", h.DismissAnnouncement)
		r.Post("/admin/announcements", h.CreateAnnouncement)
	}

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
