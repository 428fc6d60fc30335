// Package archive keeps sealed reports in a local SQLite database so past runs
// can be listed and reopened.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/resume-matcher/internal/report"
)

var ErrNotFound = errors.New("archived run not found")

// Fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is the listing view of an archived run.
type Entry struct {
	RunID       string
	JobTitle    string
	Overall     int
	GeneratedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reports (
		run_id       TEXT PRIMARY KEY,
		job_title    TEXT NOT NULL,
		overall      INTEGER NOT NULL,
		generated_at TEXT NOT NULL,
		body         BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores the encoded report under runID. Reports are write-once.
func (s *Store) Save(ctx context.Context, runID string, r *report.Report) error {
	if runID == "" {
		return errors.New("archive: run id is required")
	}
	body, err := r.Encode()
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, job_title, overall, generated_at, body) VALUES (?, ?, ?, ?, ?)`,
		runID, r.Job().Title, r.Score().Overall, r.GeneratedAt().UTC().Format(timeLayout), body,
	)
	if err != nil {
		return fmt.Errorf("archive: save %s: %w", runID, err)
	}
	return nil
}

// List returns the most recent runs first. A non-positive limit lists everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, job_title, overall, generated_at FROM reports ORDER BY generated_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.RunID, &e.JobTitle, &e.Overall, &ts); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		if e.GeneratedAt, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("archive: run %s has bad timestamp: %w", e.RunID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get reopens an archived report. The stored body is validated again.
func (s *Store) Get(ctx context.Context, runID string) (*report.Report, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM reports WHERE run_id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archive: %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", runID, err)
	}
	return report.Decode(body)
}
