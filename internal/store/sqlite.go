package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type Subscriber struct {
	ID        string `json:"id"`
	TS        int64  `json:"ts"`
	Email     string `json:"email"`
	UserAgent string `json:"user_agent"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/tickrx.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			user_agent TEXT,
			source TEXT,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_subscribers_ts ON subscribers(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_subscribers_source ON subscribers(source);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertSubscriber stores sub unless the email is already present. created
// reports whether a new row was written.
func (s *Store) InsertSubscriber(ctx context.Context, sub Subscriber) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("store not initialized")
	}
	sub.Email = strings.TrimSpace(sub.Email)
	if sub.Email == "" {
		return false, fmt.Errorf("insert subscriber: empty email")
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now()
	if sub.TS == 0 {
		sub.TS = now.Unix()
	}
	if sub.CreatedAt == "" {
		sub.CreatedAt = now.UTC().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (id, ts, email, user_agent, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		sub.ID, sub.TS, sub.Email, sub.UserAgent, sub.Source, sub.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListSubscribers(ctx context.Context, limit int, offset int) ([]Subscriber, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, email, user_agent, source, created_at
		FROM subscribers ORDER BY ts ASC, created_at ASC, id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	out := []Subscriber{}
	for rows.Next() {
		var sub Subscriber
		var ua, source, created sql.NullString
		if err := rows.Scan(&sub.ID, &sub.TS, &sub.Email, &ua, &source, &created); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.UserAgent = ua.String
		sub.Source = source.String
		sub.CreatedAt = created.String
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows subscriber: %w", err)
	}
	return out, nil
}

func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}
