// Package store persists conversation threads in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/trivium-ai/bot-platform/internal/model"
)

// ErrNotFound is returned when a thread does not exist.
var ErrNotFound = errors.New("thread not found")

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	thread_id  TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_user_updated ON threads (user_id, updated_at DESC);
`

// ThreadStore is a SQLite-backed document store for threads. The full
// thread is kept as a JSON document; user and update time are lifted
// into columns for listing queries.
type ThreadStore struct {
	db *sql.DB
}

// Open opens, and if needed creates, the thread database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*ThreadStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &ThreadStore{db: db}, nil
}

// Save inserts or updates a thread document.
func (s *ThreadStore) Save(ctx context.Context, t *model.Thread) error {
	if t.ThreadID == "" {
		return errors.New("thread id is required")
	}

	var userID string
	if t.Metadata != nil {
		userID = t.Metadata.UserID
	}

	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (thread_id, user_id, created_at, updated_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			doc        = excluded.doc`,
		t.ThreadID, userID, t.TimeCreated.UnixNano(), t.TimeUpdated.UnixNano(), string(doc),
	)
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}

// Get loads a thread by id. Returns ErrNotFound when absent.
func (s *ThreadStore) Get(ctx context.Context, threadID string) (*model.Thread, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM threads WHERE thread_id = ?`, threadID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}

	var t model.Thread
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("unmarshal thread: %w", err)
	}
	return &t, nil
}

// List returns one page of a user's threads ordered by most recent
// update, plus the user's total thread count.
func (s *ThreadStore) List(ctx context.Context, userID string, limit, skip int) ([]*model.Thread, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM threads WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count threads: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM threads
		WHERE user_id = ?
		ORDER BY updated_at DESC, thread_id
		LIMIT ? OFFSET ?`,
		userID, limit, skip,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []*model.Thread
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, 0, fmt.Errorf("scan thread: %w", err)
		}
		var t model.Thread
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, 0, fmt.Errorf("unmarshal thread: %w", err)
		}
		threads = append(threads, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list threads: %w", err)
	}
	return threads, total, nil
}

// Count returns the total number of stored threads.
func (s *ThreadStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *ThreadStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *ThreadStore) Close() error {
	return s.db.Close()
}
