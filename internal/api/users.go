package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quorum/internal/auth"
)

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	in := listInput(r)
	page, err := h.moderation.ListUsers(r.Context(), in.Query, in.Filter, in.Page, in.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// GetUser handles GET /api/users/{id}.
//
//	@Summary		Get a user profile with reputation and moderation status
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	ProfileEnvelope
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	prof, err := h.moderation.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, prof)
}

// UserQuestions handles GET /api/users/{id}/questions.
func (h *Handler) UserQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := h.questions.ListByAuthor(r.Context(), chi.URLParam(r, "id"), listInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// UserAnswers handles GET /api/users/{id}/answers.
func (h *Handler) UserAnswers(w http.ResponseWriter, r *http.Request) {
	in := listInput(r)
	page, err := h.moderation.UserAnswers(r.Context(), chi.URLParam(r, "id"), in.Page, in.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// UserTopTags handles GET /api/users/{id}/tags.
func (h *Handler) UserTopTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.moderation.UserTopTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, tags)
}

// UserStats handles GET /api/users/{id}/stats.
//
//	@Summary		Get a user's question and answer totals with badges
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	UserStatsEnvelope
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/users/{id}/stats [get]
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.moderation.UserStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

// SavedQuestions handles GET /api/me/saved.
func (h *Handler) SavedQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := h.questions.ListSaved(r.Context(), principal(r), listInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// Stats handles GET /api/admin/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.moderation.Stats(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, st)
}

// MonthlyStats handles GET /api/admin/stats/monthly.
func (h *Handler) MonthlyStats(w http.ResponseWriter, r *http.Request) {
	months, err := h.moderation.MonthlyStats(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, months)
}

// ReportedQuestions handles GET /api/admin/reports.
func (h *Handler) ReportedQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := h.questions.ListReported(r.Context(), principal(r), listInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// RevokeReport handles DELETE /api/admin/reports/{id}.
func (h *Handler) RevokeReport(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.RevokeReport(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

// BanUser handles POST /api/admin/users/{id}/ban.
//
//	@Summary		Ban a user
//	@Description	Days defaults to 30. Zero bans effectively permanently.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"User ID"
//	@Param			body	body		BanRequest	false	"Duration"
//	@Success		200		{object}	apperr.Result[models.User]
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		403		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/admin/users/{id}/ban [post]
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	var req BanRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	u, err := h.moderation.Ban(r.Context(), principal(r), chi.URLParam(r, "id"), req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, u)
}

// UnbanUser handles POST /api/admin/users/{id}/unban.
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.moderation.Unban(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, u)
}

// PromoteUser handles POST /api/admin/users/{id}/promote.
func (h *Handler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.moderation.Promote(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, u)
}

// RevokeAdmin handles POST /api/admin/users/{id}/revoke-admin.
func (h *Handler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	u, err := h.moderation.RevokeAdmin(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, u)
}

// AuditUser handles GET /api/admin/users/{id}/audit. It recomputes the
// user's reputation from the interaction ledger.
func (h *Handler) AuditUser(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireAdmin(principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.ledger.Audit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}
