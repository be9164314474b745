// Package analytics records search and click events. Recording is
// fire-and-forget: failures are logged and swallowed, never surfaced to the
// searcher.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SearchEvent is one recorded search submission.
type SearchEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id,omitempty"`
	Text      string    `json:"text"`
	QueryType string    `json:"query_type"`
	Profile   string    `json:"profile"`
	Hits      int       `json:"hits"`
	CreatedAt time.Time `json:"created_at"`
}

// ClickEvent is one recorded result click.
type ClickEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	ResultID  string    `json:"result_id"`
	Position  int       `json:"position"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// EventStore persists analytics events.
type EventStore interface {
	RecordSearch(ctx context.Context, ev *SearchEvent) error
	RecordClick(ctx context.Context, ev *ClickEvent) error
	CountSearches(ctx context.Context) (int64, error)
	CountClicks(ctx context.Context) (int64, error)
	TopQueries(ctx context.Context, limit int) ([]QueryCount, error)
	Close() error
}

// QueryCount is one query text with its submission count.
type QueryCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// SQLiteStore implements EventStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT,
		text TEXT NOT NULL,
		query_type TEXT,
		profile TEXT,
		hits INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_search_events_text ON search_events(text);
	CREATE INDEX IF NOT EXISTS idx_search_events_created_at ON search_events(created_at);

	CREATE TABLE IF NOT EXISTS click_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		text TEXT NOT NULL,
		result_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		score REAL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_click_events_result_id ON click_events(result_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordSearch inserts a search event.
func (s *SQLiteStore) RecordSearch(ctx context.Context, ev *SearchEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_events (id, session_id, user_id, text, query_type, profile, hits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.UserID, ev.Text, ev.QueryType, ev.Profile, ev.Hits, ev.CreatedAt,
	)
	return err
}

// RecordClick inserts a click event.
func (s *SQLiteStore) RecordClick(ctx context.Context, ev *ClickEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO click_events (id, session_id, text, result_id, position, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Text, ev.ResultID, ev.Position, ev.Score, ev.CreatedAt,
	)
	return err
}

// CountSearches returns the total number of recorded searches.
func (s *SQLiteStore) CountSearches(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_events`).Scan(&n)
	return n, err
}

// CountClicks returns the total number of recorded clicks.
func (s *SQLiteStore) CountClicks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM click_events`).Scan(&n)
	return n, err
}

// TopQueries returns the most frequent query texts, most frequent first.
func (s *SQLiteStore) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, COUNT(*) AS n FROM search_events GROUP BY text ORDER BY n DESC, text ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Text, &qc.Count); err != nil {
			return nil, err
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
