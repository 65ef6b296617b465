package api

import (
	"net/http"

	"github.com/starford/quorum/internal/announcements"
	"github.com/starford/quorum/internal/models"
)

// ActiveAnnouncement handles GET /api/announcements/active. Data is omitted
// when nothing is live for the caller.
func (h *Handler) ActiveAnnouncement(w http.ResponseWriter, r *http.Request) {
	a, err := h.notices.Active(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK[*models.Announcement](w, http.StatusOK, a)
}

// DismissAnnouncement handles POST /api/announcements/dismiss.
func (h *Handler) DismissAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := h.notices.Dismiss(r.Context(), principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

// CreateAnnouncement handles POST /api/admin/announcements.
//
//	@Summary		Publish a site-wide announcement
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AnnouncementRequest	true	"Announcement"
//	@Success		201		{object}	AnnouncementEnvelope
//	@Failure		400		{object}	ErrorEnvelope
//	@Failure		403		{object}	ErrorEnvelope
//	@Security		BearerAuth
//	@Router			/admin/announcements [post]
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req AnnouncementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.notices.Create(r.Context(), principal(r), announcements.CreateInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, a)
}
