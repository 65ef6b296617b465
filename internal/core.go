package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/quorum/internal/announcements"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/metrics"
	"github.com/starford/quorum/internal/moderation"
	"github.com/starford/quorum/internal/questions"
	"github.com/starford/quorum/internal/recommend"
	"github.com/starford/quorum/internal/store"
)

// core holds the domain services shared by the HTTP and MCP entry points.
type core struct {
	store      *store.Store
	recorder   *ledger.Recorder
	questions  *questions.Service
	moderation *moderation.Service
	recommend  *recommend.Engine
	notices    *announcements.Service
}

// dispatchFunc builds the dispatcher questions record through.
type dispatchFunc func(rec *ledger.Recorder) ledger.Dispatcher

func inlineDispatch(rec *ledger.Recorder) ledger.Dispatcher {
	return ledger.Inline{Recorder: rec}
}

// openCore opens the database and wires the services. reval may be nil.
func openCore(cfg *Config, logger *slog.Logger, m *metrics.Metrics, dispatch dispatchFunc, reval questions.Revalidator) (*core, error) {
	st, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rec := ledger.NewRecorder(st,
		ledger.WithWindow(cfg.Ledger.Window),
		ledger.WithMetrics(m),
	)

	c := &core{
		store:    st,
		recorder: rec,
		recommend: recommend.New(st, rec,
			recommend.WithHistoryLimit(cfg.Recommend.HistoryLimit),
			recommend.WithPageSize(cfg.Recommend.PageSize),
		),
	}
	c.questions = questions.NewService(st, dispatch(rec), reval, logger)
	c.moderation = moderation.NewService(st, reval, logger)
	c.notices = announcements.NewService(st, reval, logger)
	return c, nil
}

func (c *core) Close() error {
	return c.store.Close()
}
