package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stellarlinkco/remindme/internal/skill"
	_ "modernc.org/sqlite"
)

// Store keeps phone numbers and reminder records in a sqlite database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS phone_numbers (
			user_id TEXT PRIMARY KEY,
			phone_number TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			request_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_expires ON reminders(expires_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) GetPhoneNumber(ctx context.Context, userID string) (string, bool, error) {
	var number string
	err := s.db.QueryRowContext(ctx,
		`SELECT phone_number FROM phone_numbers WHERE user_id = ?`, userID).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query phone number: %w", err)
	}
	return number, true, nil
}

func (s *Store) PutPhoneNumber(ctx context.Context, userID, number string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phone_numbers(user_id, phone_number, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET phone_number = excluded.phone_number, updated_at = excluded.updated_at`,
		userID, number)
	if err != nil {
		return fmt.Errorf("upsert phone number: %w", err)
	}
	return nil
}

// PutReminder inserts a reminder. Records are never updated; a repeated
// request id is an error.
func (s *Store) PutReminder(ctx context.Context, r skill.Reminder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(request_id, user_id, text, expires_at) VALUES (?, ?, ?, ?)`,
		r.RequestID, r.UserID, r.Text, r.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// TakeDueReminders removes and returns every reminder that expires at or
// before now, oldest first.
func (s *Store) TakeDueReminders(ctx context.Context, now time.Time) ([]skill.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := now.UnixMilli()
	rows, err := tx.QueryContext(ctx,
		`SELECT request_id, user_id, text, expires_at FROM reminders WHERE expires_at <= ? ORDER BY expires_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	var due []skill.Reminder
	for rows.Next() {
		var r skill.Reminder
		var expiresMs int64
		if err := rows.Scan(&r.RequestID, &r.UserID, &r.Text, &expiresMs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.ExpiresAt = time.UnixMilli(expiresMs)
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	rows.Close()

	if len(due) == 0 {
		return nil, nil
	}
	for _, r := range due {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE request_id = ?`, r.RequestID); err != nil {
			return nil, fmt.Errorf("delete reminder %s: %w", r.RequestID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return due, nil
}

// PendingReminders counts reminders not yet handed out.
func (s *Store) PendingReminders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reminders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reminders: %w", err)
	}
	return n, nil
}
