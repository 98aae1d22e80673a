// Package store remembers which event instances have already been
// announced, so that watch mode does not re-post the same event on
// every tick.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"icalmasto/internal/model"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the sqlite database at dbPath.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS announced (
			uid TEXT NOT NULL,
			start_utc TEXT NOT NULL,
			posted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (uid, start_utc)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// instanceKey identifies one event instance. The UID alone is not
// enough (feeds reuse or omit it), so the start instant in UTC is part
// of the key.
func instanceKey(ev model.Event) (uid, start string, ok bool) {
	if ev.Start == nil {
		return "", "", false
	}
	return ev.UID, ev.Start.UTC().Format(time.RFC3339), true
}

// FilterNew returns the subset of events not yet announced, preserving
// order. Events without a start are dropped; they are never selectable
// anyway.
func (s *Store) FilterNew(events []model.Event) ([]model.Event, error) {
	out := make([]model.Event, 0, len(events))

	for _, ev := range events {
		uid, start, ok := instanceKey(ev)
		if !ok {
			continue
		}

		var n int
		err := s.db.QueryRow(
			`SELECT COUNT(1) FROM announced WHERE uid = ? AND start_utc = ?`,
			uid, start,
		).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("query announced: %w", err)
		}
		if n == 0 {
			out = append(out, ev)
		}
	}

	return out, nil
}

// MarkAnnounced records the given events as posted.
func (s *Store) MarkAnnounced(events []model.Event, postedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		uid, start, ok := instanceKey(ev)
		if !ok {
			continue
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO announced (uid, start_utc, posted_at) VALUES (?, ?, ?)`,
			uid, start, postedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert announced: %w", err)
		}
	}

	return tx.Commit()
}
