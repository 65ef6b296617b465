package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestRevalidateFrame(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Revalidate("/questions/q-1")
	b.Revalidate("/profile/u-1")

	want := []string{
		"id: 1\nevent: revalidate\ndata: {\"path\":\"/questions/q-1\"}\n\n",
		"id: 2\nevent: revalidate\ndata: {\"path\":\"/profile/u-1\"}\n\n",
	}
	for i, w := range want {
		select {
		case msg := <-ch:
			if string(msg) != w {
				t.Errorf("frame %d = %q, want %q", i, msg, w)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

// drainPaths counts the revalidate notices per path until quiet elapses
// without a new message.
func drainPaths(t *testing.T, ch chan []byte, quiet time.Duration) map[string]int {
	t.Helper()
	paths := map[string]int{}
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if !strings.Contains(s, "event: revalidate") {
				t.Errorf("unexpected event %q", s)
			}
			for _, p := range []string{"/questions/q-1", "/profile/u-1"} {
				if strings.Contains(s, `"path":"`+p+`"`) {
					paths[p]++
				}
			}
		case <-time.After(quiet):
			return paths
		}
	}
}

func TestRevalidate_CoalescesPerPath(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Revalidate("/questions/q-1")
	// Repeats inside the window collapse into one trailing notice.
	b.Revalidate("/questions/q-1")
	b.Revalidate("/questions/q-1")
	b.Revalidate("/profile/u-1")

	paths := drainPaths(t, ch, 500*time.Millisecond)
	if paths["/questions/q-1"] != 2 {
		t.Errorf("question revalidations = %d, want 2 (leading and trailing)", paths["/questions/q-1"])
	}
	if paths["/profile/u-1"] != 1 {
		t.Errorf("profile revalidations = %d, want 1", paths["/profile/u-1"])
	}
}

func TestRevalidate_LateMutationIsAnnounced(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Revalidate("/questions/q-1")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for first notice")
	}

	time.Sleep(100 * time.Millisecond)
	b.Revalidate("/questions/q-1")

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), `"path":"/questions/q-1"`) {
			t.Errorf("unexpected notice %q", msg)
		}
		if !strings.HasPrefix(string(msg), "id: 2\n") {
			t.Errorf("trailing notice = %q, want id 2", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("second mutation inside the window was never announced")
	}
}

func TestRevalidate_ZeroWindowSendsEvery(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Revalidate("/")
	b.Revalidate("/")

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for revalidation %d", i+1)
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Revalidate("/questions/q-2")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"path":"/questions/q-2"`) {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestRevalidateDropsForSlowClient(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// More notices than the client buffer must not block the loop.
	for i := 0; i < clientBuffer+10; i++ {
		b.Revalidate(fmt.Sprintf("/questions/q-%d", i))
	}
	if b.ClientCount() != 1 {
		t.Fatal("broker loop stalled")
	}
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	b := NewBroker(0, WithHeartbeat(10*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": ping") {
		t.Errorf("no heartbeat in %q", w.Body.String())
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Revalidate("/questions/q-2")
}
