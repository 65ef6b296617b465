// Package store provides the SQLite persistence layer: schema, transactions,
// and the row-level operations the services compose into atomic groups.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// driverName is the sqlite3 driver with a fold(text) function registered on
// every connection. SQLite's own lower() and LIKE only fold ASCII.
const driverName = "sqlite3_quorum"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", Fold, true)
		},
	})
}

// Fold is the case folding used for tag keys and text search.
func Fold(s string) string {
	return strings.ToLower(s)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	reputation   INTEGER NOT NULL DEFAULT 0,
	is_admin     INTEGER NOT NULL DEFAULT 0,
	banned_until TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	name_key    TEXT NOT NULL UNIQUE,
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	author_id    TEXT NOT NULL REFERENCES users(id),
	upvotes      INTEGER NOT NULL DEFAULT 0,
	downvotes    INTEGER NOT NULL DEFAULT 0,
	views        INTEGER NOT NULL DEFAULT 0,
	answer_count INTEGER NOT NULL DEFAULT 0,
	report_count INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_author ON questions(author_id);
CREATE INDEX IF NOT EXISTS idx_questions_rank ON questions(upvotes DESC, views DESC);

CREATE TABLE IF NOT EXISTS question_tags (
	question_id TEXT NOT NULL REFERENCES questions(id),
	tag_id      TEXT NOT NULL REFERENCES tags(id),
	position    INTEGER NOT NULL,
	PRIMARY KEY (question_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag_id);

CREATE TABLE IF NOT EXISTS answers (
	id          TEXT PRIMARY KEY,
	question_id TEXT NOT NULL REFERENCES questions(id),
	author_id   TEXT NOT NULL REFERENCES users(id),
	content     TEXT NOT NULL,
	upvotes     INTEGER NOT NULL DEFAULT 0,
	downvotes   INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);

CREATE TABLE IF NOT EXISTS votes (
	user_id     TEXT NOT NULL REFERENCES users(id),
	target_id   TEXT NOT NULL,
	target_type TEXT NOT NULL,
	direction   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, target_id, target_type)
);

CREATE INDEX IF NOT EXISTS idx_votes_target ON votes(target_id, target_type);

CREATE TABLE IF NOT EXISTS collections (
	user_id     TEXT NOT NULL REFERENCES users(id),
	question_id TEXT NOT NULL REFERENCES questions(id),
	created_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_collections_question ON collections(question_id);

CREATE TABLE IF NOT EXISTS question_reports (
	question_id TEXT NOT NULL REFERENCES questions(id),
	reporter_id TEXT NOT NULL REFERENCES users(id),
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	PRIMARY KEY (question_id, reporter_id)
);

CREATE TABLE IF NOT EXISTS interactions (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	action          TEXT NOT NULL,
	target_id       TEXT NOT NULL,
	target_type     TEXT NOT NULL,
	author_id       TEXT NOT NULL DEFAULT '',
	idempotency_key TEXT NOT NULL UNIQUE,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS announcements (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	author_id  TEXT NOT NULL REFERENCES users(id),
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_announcements_expiry ON announcements(expires_at);

CREATE TABLE IF NOT EXISTS announcement_dismissals (
	user_id      TEXT PRIMARY KEY REFERENCES users(id),
	dismissed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, target_type, created_at DESC);
`

// Store wraps a sql.DB. Read operations are available on both Store and Tx;
// mutations that must share an atomicity group are only defined on Tx.
type Store struct {
	queries
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
// Transactions take the write lock up front (_txlock=immediate) so two
// concurrent read-then-write groups cannot deadlock on lock upgrade.
func Open(path string) (*Store, error) {
	conn, err := sql.Open(driverName, path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{queries: queries{db: conn}, conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// DBStats returns connection pool statistics.
func (s *Store) DBStats() sql.DBStats {
	return s.conn.Stats()
}

// Tx is one atomicity group.
type Tx struct {
	queries
	tx *sql.Tx
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error, panics, or ctx is cancelled before commit; otherwise it is
// committed. Errors from fn are returned unchanged.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(fmt.Errorf("store: begin tx: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{queries: queries{db: sqlTx}, tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapErr(fmt.Errorf("store: commit: %w", err))
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds the read operations shared by Store and Tx.
type queries struct {
	db querier
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...any) error
}
