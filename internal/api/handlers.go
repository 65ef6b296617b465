package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quorum/internal/announcements"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/recommend"
)

// FilterRecommended selects the per-user recommendation feed in ListQuestions.
const FilterRecommended = "recommended"

// Handler holds API route handlers.
type Handler struct {
	questions  *questions.Service
	moderation *moderation.Service
	recommend  *recommend.Engine
	ledger     *ledger.Recorder
	notices    *announcements.Service
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		questions:  d.Questions,
		moderation: d.Moderation,
		recommend:  d.Recommend,
		ledger:     d.Ledger,
		notices:    d.Announcements,
	}
}

func principal(r *http.Request) *auth.Principal {
	return auth.FromContext(r.Context())
}

// listInput reads q, filter, page and page_size from the query string.
// Malformed numbers fall back to the defaults.
func listInput(r *http.Request) questions.ListInput {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return questions.ListInput{
		Query:    q.Get("q"),
		Filter:   q.Get("filter"),
		Page:     page,
		PageSize: size,
	}
}

// ListQuestions handles GET /api/questions.
//
//	@Summary		List questions
//	@Tags			questions
//	@Produce		json
//	@Param			q			query		string	false	"Title or content search"
//	@Param			filter		query		string	false	"Listing filter"	Enums(newest, unanswered, popular, recommended)
//	@Param			page		query		int		false	"Page number, from 1"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	PageEnvelope
//	@Failure		400			{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions [get]
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	in := listInput(r)
	if in.Filter == FilterRecommended {
		p := principal(r)
		if err := auth.RequireUser(p); err != nil {
			writeError(w, r, err)
			return
		}
		limit, skip := in.Bounds()
		res, err := h.recommend.Recommend(r.Context(), p.UserID, in.Query, skip, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, res)
		return
	}
	page, err := h.questions.List(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// HotQuestions handles GET /api/questions/hot.
func (h *Handler) HotQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questions.Hot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, qs)
}

// GetQuestion handles GET /api/questions/{id}.
//
//	@Summary		Get a question with its tags
//	@Tags			questions
//	@Produce		json
//	@Param			id	path		string	true	"Question ID"
//	@Success		200	{object}	QuestionEnvelope
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions/{id} [get]
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, q)
}

// CreateQuestion handles POST /api/questions.
//
//	@Summary		Ask a question
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			X-User-ID	header		string			true	"Acting user"
//	@Param			body		body		QuestionRequest	true	"Question to create"
//	@Success		201			{object}	QuestionEnvelope
//	@Failure		400			{object}	ErrorEnvelope
//	@Failure		401			{object}	ErrorEnvelope
//	@Failure		403			{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions [post]
func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.questions.Create(r.Context(), principal(r), questions.CreateInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, q)
}

// EditQuestion handles PUT /api/questions/{id}.
//
//	@Summary		Edit a question and reconcile its tags
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Question ID"
//	@Param			body	body		QuestionRequest	true	"New title, content and tags"
//	@Success		200		{object}	QuestionEnvelope
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		403		{object}	ErrorEnvelope
//	@Failure		404		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions/{id} [put]
func (h *Handler) EditQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.questions.Edit(r.Context(), principal(r), questions.EditInput{
		QuestionID: chi.URLParam(r, "id"),
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, q)
}

// DeleteQuestion handles DELETE /api/questions/{id}.
//
//	@Summary		Delete a question and everything attached to it
//	@Tags			questions
//	@Param			id	path		string	true	"Question ID"
//	@Success		200	{object}	ErrorEnvelope
//	@Failure		403	{object}	ErrorEnvelope
//	@Failure		404	{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions/{id} [delete]
func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

// ViewQuestion handles POST /api/questions/{id}/views.
func (h *Handler) ViewQuestion(w http.ResponseWriter, r *http.Request) {
	n, err := h.questions.IncrementViews(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, CountResponse{Count: n})
}

// VoteQuestion handles POST /api/questions/{id}/vote.
func (h *Handler) VoteQuestion(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.TargetQuestion)
}

// VoteAnswer handles POST /api/answers/{id}/vote.
func (h *Handler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.TargetAnswer)
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request, kind models.TargetType) {
	var req VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.questions.Vote(r.Context(), principal(r), questions.VoteInput{
		TargetID:   chi.URLParam(r, "id"),
		TargetType: kind,
		Direction:  req.Direction,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

// ToggleSave handles POST /api/questions/{id}/save.
func (h *Handler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	saved, err := h.questions.ToggleSave(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, SaveResponse{Saved: saved})
}

// ReportQuestion handles POST /api/questions/{id}/report.
//
//	@Summary		Report a question for moderation
//	@Tags			questions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Question ID"
//	@Param			body	body		ReportRequest	false	"Reason"
//	@Success		200		{object}	apperr.Result[CountResponse]
//	@Failure		429		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/questions/{id}/report [post]
func (h *Handler) ReportQuestion(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	n, err := h.questions.Report(r.Context(), principal(r), questions.ReportInput{
		QuestionID: chi.URLParam(r, "id"),
		Reason:     req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, CountResponse{Count: n})
}

// ListAnswers handles GET /api/questions/{id}/answers.
func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	as, err := h.questions.ListAnswers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, as)
}

// CreateAnswer handles POST /api/questions/{id}/answers.
func (h *Handler) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.questions.CreateAnswer(r.Context(), principal(r), questions.AnswerInput{
		QuestionID: chi.URLParam(r, "id"),
		Content:    req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, a)
}

// DeleteAnswer handles DELETE /api/answers/{id}.
func (h *Handler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.DeleteAnswer(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags
//	@Tags			tags
//	@Produce		json
//	@Param			q		query		string	false	"Name search"
//	@Param			filter	query		string	false	"Sort order"	Enums(popular, name, recent)
//	@Success		200		{object}	TagPageEnvelope
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	page, err := h.questions.ListTags(r.Context(), listInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}

// GetTag handles GET /api/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	t, err := h.questions.GetTag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, t)
}

// TagQuestions handles GET /api/tags/{id}/questions.
func (h *Handler) TagQuestions(w http.ResponseWriter, r *http.Request) {
	page, err := h.questions.ListByTag(r.Context(), chi.URLParam(r, "id"), listInput(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, page)
}
