// Package sse implements a Server-Sent Events broker that pushes
// revalidation notices to connected clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// EventRevalidate tells clients that the resource at a path changed.
const EventRevalidate = "revalidate"

const (
	// pruneAt bounds the per-path coalescing table.
	pruneAt = 1024
	// clientBuffer is the per-client backlog before notices are dropped.
	clientBuffer         = 64
	defaultHeartbeat     = 25 * time.Second
	revalidateQueueDepth = 256
)

// Notice is the payload of a revalidate event.
type Notice struct {
	Path string `json:"path"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets the interval of the comment lines ServeHTTP writes to
// keep idle connections open. Zero disables them.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// Broker fans revalidation notices out to SSE clients.
//
// A single loop goroutine owns the client set, the per-path coalescing
// state and the event counter. Public methods talk to it over channels.
type Broker struct {
	coalesce  time.Duration
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	revalidateCh  chan string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that coalesces revalidations of the same path.
// The first notice goes out at once; further notices inside the coalesce
// window collapse into one sent when the window closes.
func NewBroker(coalesce time.Duration, opts ...Option) *Broker {
	if coalesce < 0 {
		coalesce = 0
	}
	b := &Broker{
		coalesce:      coalesce,
		heartbeat:     defaultHeartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		revalidateCh:  make(chan string, revalidateQueueDepth),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.run()
	return b
}

// frame renders one SSE message.
func frame(id uint64, path string) []byte {
	payload, _ := json.Marshal(Notice{Path: path})
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, EventRevalidate, payload))
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	lastSent := make(map[string]time.Time)
	pending := make(map[string]struct{})
	var seq uint64

	flush := time.NewTimer(time.Hour)
	flush.Stop()
	defer flush.Stop()
	var flushC <-chan time.Time

	send := func(path string, now time.Time) {
		lastSent[path] = now
		seq++
		raw := frame(seq, path)
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; it will catch up on the next notice.
			}
		}
	}

	// schedule arms the timer for the earliest pending window end.
	schedule := func() {
		flushC = nil
		var next time.Time
		for p := range pending {
			if due := lastSent[p].Add(b.coalesce); next.IsZero() || due.Before(next) {
				next = due
			}
		}
		if next.IsZero() {
			return
		}
		flush.Reset(time.Until(next))
		flushC = flush.C
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case path := <-b.revalidateCh:
			now := time.Now()
			if last, ok := lastSent[path]; ok && now.Sub(last) < b.coalesce {
				// Announced once more when the window closes.
				if _, ok := pending[path]; !ok {
					pending[path] = struct{}{}
					schedule()
				}
				continue
			}
			if len(lastSent) >= pruneAt {
				for p, t := range lastSent {
					if _, waiting := pending[p]; !waiting && now.Sub(t) >= b.coalesce {
						delete(lastSent, p)
					}
				}
			}
			send(path, now)

		case <-flushC:
			now := time.Now()
			for p := range pending {
				if now.Sub(lastSent[p]) >= b.coalesce {
					delete(pending, p)
					send(p, now)
				}
			}
			schedule()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Revalidate announces that the resource at path changed. It never blocks
// on clients; after Close it is a no-op.
func (b *Broker) Revalidate(path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.revalidateCh <- path:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
