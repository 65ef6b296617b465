package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/quorum/internal/metrics"
)

// ErrStopped is returned by Dispatch once the queue has shut down.
var ErrStopped = errors.New("ledger: queue stopped")

// Dispatcher hands an event to the ledger after its content mutation
// committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Inline records events synchronously on the caller's goroutine.
type Inline struct {
	Recorder *Recorder
}

// Dispatch records ev and returns the recording error, if any.
func (d Inline) Dispatch(ctx context.Context, ev Event) error {
	_, err := d.Recorder.Record(ctx, ev)
	return err
}

// QueueConfig sizes a Queue.
type QueueConfig struct {
	Workers     int
	Size        int
	MaxAttempts int
	Backoff     time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Size <= 0 {
		c.Size = 256
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	return c
}

// Queue delivers events to a Recorder at least once from a bounded buffer.
// Transient failures are retried with exponential backoff; duplicate
// deliveries are absorbed by the idempotency key.
type Queue struct {
	rec     *Recorder
	cfg     QueueConfig
	ch      chan Event
	log     *slog.Logger
	metrics *metrics.Metrics

	// mu orders Dispatch against shutdown: closed flips under the write
	// lock, so no event is enqueued after the workers start draining.
	mu     sync.RWMutex
	closed bool
	quit   chan struct{}
}

// NewQueue returns a Queue. Call Run to start its workers.
func NewQueue(rec *Recorder, cfg QueueConfig, log *slog.Logger, m *metrics.Metrics) *Queue {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		rec:     rec,
		cfg:     cfg,
		ch:      make(chan Event, cfg.Size),
		quit:    make(chan struct{}),
		log:     log,
		metrics: m,
	}
}

// Dispatch enqueues ev, blocking while the buffer is full.
func (q *Queue) Dispatch(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = q.rec.now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrStopped
	}
	select {
	case q.ch <- ev:
		q.metrics.SetQueueDepth(len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is cancelled. Events already
// buffered at that point are drained before Run returns.
func (q *Queue) Run(ctx context.Context) error {
	var g errgroup.Group
	for i := 0; i < q.cfg.Workers; i++ {
		g.Go(func() error {
			q.work()
			return nil
		})
	}
	<-ctx.Done()
	q.shutdown()
	return g.Wait()
}

// shutdown refuses further dispatches, then releases the workers to drain.
func (q *Queue) shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.quit)
	}
}

func (q *Queue) work() {
	for {
		select {
		case ev := <-q.ch:
			q.deliver(ev)
		case <-q.quit:
			q.drain()
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case ev := <-q.ch:
			q.deliver(ev)
		default:
			return
		}
	}
}

// deliver runs detached from the request and server lifecycles so a
// shutdown does not abort an event mid-transaction.
func (q *Queue) deliver(ev Event) {
	q.metrics.SetQueueDepth(len(q.ch))
	ctx := context.Background()
	backoff := q.cfg.Backoff

	for attempt := 1; ; attempt++ {
		_, err := q.rec.Record(ctx, ev)
		if err == nil {
			return
		}
		if !retryable(err) || attempt >= q.cfg.MaxAttempts {
			q.metrics.LedgerOutcome(string(ev.Action), metrics.OutcomeDropped)
			q.log.Error("ledger: dropping interaction",
				slog.String("action", string(ev.Action)),
				slog.String("user_id", ev.UserID),
				slog.String("target_id", ev.TargetID),
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()))
			return
		}
		q.metrics.LedgerOutcome(string(ev.Action), metrics.OutcomeRetried)
		q.log.Warn("ledger: retrying interaction",
			slog.String("action", string(ev.Action)),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))
		time.Sleep(backoff)
		backoff *= 2
	}
}
