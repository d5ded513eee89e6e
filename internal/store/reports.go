// Package store persists generated reports in SQLite so the
// report-history intent has something to list. Session history itself
// stays in memory; only finished documents land here.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"wardroom/internal/logging"
)

// ErrNotFound is returned when no report has the requested ID.
var ErrNotFound = errors.New("report not found")

// Report is one generated document.
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject,omitempty"`
	Format    string    `json:"format"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReportStore is the SQLite-backed report history.
type ReportStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewReportStore opens (creating if needed) the report database at path.
func NewReportStore(path string) (*ReportStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &ReportStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("report store ready at %s", path)
	return s, nil
}

// initialize creates the required tables.
func (s *ReportStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT,
		format TEXT NOT NULL DEFAULT 'markdown',
		body TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save writes a report, assigning an ID and timestamp when absent.
func (s *ReportStore) Save(r *Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Format == "" {
		r.Format = "markdown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO reports (id, title, subject, format, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Subject, r.Format, r.Body,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	logging.Store("saved report %s (%q)", r.ID, r.Title)
	return nil
}

// Get fetches one report by ID.
func (s *ReportStore) Get(id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT id, title, subject, format, body, created_at FROM reports WHERE id = ?`, id)

	r, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return r, nil
}

// List returns the newest reports first, up to limit (50 when <= 0).
func (s *ReportStore) List(limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, title, subject, format, body, created_at
		 FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return out, nil
}

// Count returns the number of stored reports.
func (s *ReportStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(sc scanner) (*Report, error) {
	var r Report
	var created string
	if err := sc.Scan(&r.ID, &r.Title, &r.Subject, &r.Format, &r.Body, &created); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	r.CreatedAt = ts
	return &r, nil
}
