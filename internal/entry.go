// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quorum/internal/api"
	"github.com/starford/quorum/internal/ledger"
	"github.com/starford/quorum/internal/mcpserver"
	"github.com/starford/quorum/internal/metrics"
	"github.com/starford/quorum/internal/ratelimit"
	"github.com/starford/quorum/internal/sse"
	pkgconfig "github.com/starford/quorum/pkg/config"
)

const poolStatsInterval = 15 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger. The level can change at runtime.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stdout, level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Coalesce)
	defer broker.Close()

	var queue *ledger.Queue
	c, err := openCore(cfg, logger, m, func(rec *ledger.Recorder) ledger.Dispatcher {
		queue = ledger.NewQueue(rec, ledger.QueueConfig{
			Workers:     cfg.Ledger.Workers,
			Size:        cfg.Ledger.QueueSize,
			MaxAttempts: cfg.Ledger.MaxAttempts,
			Backoff:     cfg.Ledger.Backoff,
		}, logger, m)
		return queue
	}, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	var limiter *ratelimit.KeyedRateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = ratelimit.New(ratelimit.PerMinute(cfg.RateLimit.ReportsPerMinute), cfg.RateLimit.Burst, 10*time.Minute)
		defer limiter.Stop()
	}

	apiRouter := api.NewRouter(api.Deps{
		Questions:     c.questions,
		Moderation:    c.moderation,
		Recommend:     c.recommend,
		Ledger:        c.recorder,
		Announcements: c.notices,
		ReportLimiter: limiter,
		Events:        broker,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.store.Ping(req.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// runCtx stops the background workers once the HTTP server is down, so
	// the ledger queue drains after the last request has dispatched.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Deliver ledger events.
	g.Go(func() error {
		return queue.Run(gCtx)
	})

	// Re-apply the log level when the config file changes.
	if app.configFile != "" {
		g.Go(func() error {
			err := pkgconfig.Watch(gCtx, app.configFile, NewDefaultConfig, logger, func(next *Config) {
				if next.App.LogLevel != level.Level() {
					logger.Info("log level changed",
						slog.String("from", level.Level().String()),
						slog.String("to", next.App.LogLevel.String()))
					level.Set(next.App.LogLevel)
				}
			})
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Export connection pool gauges.
	if m != nil {
		g.Go(func() error {
			t := time.NewTicker(poolStatsInterval)
			defer t.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-t.C:
					m.RecordDBPoolStats(c.store.DBStats())
				}
			}
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the read-only MCP tools on stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	c, err := openCore(cfg, logger, nil, inlineDispatch, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(mcpserver.Deps{
		Questions:  c.questions,
		Moderation: c.moderation,
		Recommend:  c.recommend,
		Ledger:     c.recorder,
	}, app.version)

	logger.Info("MCP server starting on stdio", slog.String("sqlite_path", cfg.SQLite.Path))
	return srv.ServeStdio()
}
