package checksum

import (
	"testing"
	"time"
)

func TestSum(t *testing.T) {
	// sha256("") is well known.
	if got := Sum(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestIdempotencyKey_SameWindow(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	a := IdempotencyKey(at, time.Minute, "usr-1", "upvote", "question", "q-1")
	b := IdempotencyKey(at.Add(40*time.Second), time.Minute, "usr-1", "upvote", "question", "q-1")
	if a != b {
		t.Error("deliveries within one window should share a key")
	}
}

func TestIdempotencyKey_Differs(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	base := IdempotencyKey(at, time.Minute, "usr-1", "upvote", "question", "q-1")

	cases := map[string]string{
		"next window": IdempotencyKey(at.Add(time.Minute), time.Minute, "usr-1", "upvote", "question", "q-1"),
		"other user":  IdempotencyKey(at, time.Minute, "usr-2", "upvote", "question", "q-1"),
		"other act":   IdempotencyKey(at, time.Minute, "usr-1", "downvote", "question", "q-1"),
		"other type":  IdempotencyKey(at, time.Minute, "usr-1", "upvote", "answer", "q-1"),
		"shifted":     IdempotencyKey(at, time.Minute, "usr-1", "upvotequestion", "", "q-1"),
	}
	for name, k := range cases {
		if k == base {
			t.Errorf("%s: key collided with base", name)
		}
	}
}

func TestBucket_ZeroWindow(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 123, time.UTC)
	if Bucket(at, 0) != at.UnixNano() {
		t.Error("zero window should keep full precision")
	}
}
