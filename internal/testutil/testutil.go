// Package testutil provides shared test helpers for setting up databases and
// seeding users and questions.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/quorum/internal/id"
	"github.com/starford/quorum/internal/models"
	"github.com/starford/quorum/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	s, _ := StoreAt(t)
	return s
}

// StoreAt is TestStore that also returns the database file path.
func StoreAt(t *testing.T) (*store.Store, string) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quorum-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dbFile.Name()
}

// Exec runs stmt on its own connection to the database at path. Tests use
// it to install triggers that fail a statement partway through a
// transaction.
func Exec(t *testing.T, path, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(stmt); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

// StoreWithUsers is TestStore seeded with one user per id.
func StoreWithUsers(t *testing.T, userIDs ...string) *store.Store {
	t.Helper()
	s := TestStore(t)
	for _, u := range userIDs {
		User(t, s, u)
	}
	return s
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// User inserts a user with the given id.
func User(t *testing.T, s *store.Store, userID string) *models.User {
	t.Helper()
	u := &models.User{ID: userID, Name: userID}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", userID, err)
	}
	return u
}

// Admin inserts a user with the admin role.
func Admin(t *testing.T, s *store.Store, userID string) *models.User {
	t.Helper()
	u := &models.User{ID: userID, Name: userID, IsAdmin: true}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create admin %s: %v", userID, err)
	}
	return u
}

// Reputation returns the stored reputation of userID.
func Reputation(t *testing.T, s *store.Store, userID string) int {
	t.Helper()
	u, err := s.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	return u.Reputation
}

// Question inserts a question with tags directly through the store, keeping
// the tag counters consistent. It does not touch the ledger.
func Question(t *testing.T, s *store.Store, authorID, title string, tags ...string) *models.Question {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	q := &models.Question{
		ID: id.MustGenerate(id.PrefixQuestion), Title: title, Content: title + " body",
		AuthorID: authorID, CreatedAt: now, UpdatedAt: now,
	}
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateQuestion(ctx, q); err != nil {
			return err
		}
		for i, name := range tags {
			tag, err := tx.UpsertTagByName(ctx, name)
			if err != nil {
				return err
			}
			if err := tx.AddQuestionTag(ctx, q.ID, tag.ID, i); err != nil {
				return err
			}
			if err := tx.IncrementTagUsage(ctx, tag.ID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	got, err := s.GetQuestion(ctx, q.ID)
	if err != nil {
		t.Fatalf("reload question: %v", err)
	}
	return got
}

// SetCounters overwrites a question's vote and view counters.
func SetCounters(t *testing.T, s *store.Store, questionID string, upvotes, views int) {
	t.Helper()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.AddToQuestionCounter(ctx, questionID, store.CounterUpvotes, upvotes); err != nil {
			return err
		}
		_, err := tx.AddToQuestionCounter(ctx, questionID, store.CounterViews, views)
		return err
	})
	if err != nil {
		t.Fatalf("set counters: %v", err)
	}
}

// Revalidations records revalidated paths.
type Revalidations struct {
	mu    sync.Mutex
	paths []string
}

// Revalidate records path.
func (r *Revalidations) Revalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns the recorded paths in order.
func (r *Revalidations) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}
