// Package questions orchestrates the question lifecycle: create, edit and
// delete with their tag bookkeeping, plus votes, bookmarks, views, answers
// and reports.
package questions

import (
	"context"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// Revalidator is notified with a logical resource path after a committed
// change.
type Revalidator interface {
	Revalidate(path string)
}

// Service implements the question operations. Every operation takes the
// acting principal explicitly.
type Service struct {
	store  *store.Store
	ledger ledger.Dispatcher
	reval  Revalidator
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service. reval may be nil.
func NewService(st *store.Store, d ledger.Dispatcher, reval Revalidator, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{store: st, ledger: d, reval: reval, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// record hands ev to the ledger after the content mutation committed. The
// dispatch outlives the request so a disconnecting client cannot drop it.
func (s *Service) record(ctx context.Context, ev ledger.Event) {
	if s.ledger == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if err := s.ledger.Dispatch(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error("dispatch interaction",
			slog.String("action", string(ev.Action)),
			slog.String("target_id", ev.TargetID),
			slog.String("error", err.Error()))
	}
}

func (s *Service) revalidate(paths ...string) {
	if s.reval == nil {
		return
	}
	for _, p := range paths {
		s.reval.Revalidate(p)
	}
}

func questionPath(id string) string { return "/questions/" + id }
func profilePath(id string) string  { return "/profile/" + id }

const (
	maxTags      = 5
	maxTagLength = 30
)

// normalizeTags trims names and drops case-insensitive duplicates, keeping
// the first spelling and order.
func normalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

var tagNameRule = validation.By(func(v any) error {
	for _, n := range v.([]string) {
		if strings.TrimSpace(n) == "" {
			return validation.NewError("validation_tag_blank", "tag names cannot be blank")
		}
		if len([]rune(strings.TrimSpace(n))) > maxTagLength {
			return validation.NewError("validation_tag_length", "tag names are at most 30 characters")
		}
	}
	return nil
})

// validationError converts ozzo field errors into a VALIDATION error whose
// details map fields to messages.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validation.Errors); ok {
		details := make(map[string]string, len(errs))
		for field, e := range errs {
			details[field] = e.Error()
		}
		return apperr.Validation(err.Error()).WithDetails(details)
	}
	return apperr.Validation(err.Error())
}

// Page is one page of questions.
type Page struct {
	Questions []*models.Question `json:"questions"`
	Total     int                `json:"total"`
	HasMore   bool               `json:"has_more"`
}

func newPage(qs []*models.Question, total, skip int) *Page {
	return &Page{Questions: qs, Total: total, HasMore: total > skip+len(qs)}
}
