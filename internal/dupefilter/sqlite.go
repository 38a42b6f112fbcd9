package dupefilter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/stats"
)

// DBFileName is the SQLite database file created inside the job
// directory by the SQLite filter.
const DBFileName = "fingerprints.db"

// SQLite is a duplicate filter backed by a fingerprint table on disk.
// It trades per-request latency for a memory footprint that stays flat
// no matter how many URLs the crawl discovers, and it is resumable for
// free: the table simply persists between runs.
type SQLite struct {
	// dir is the directory holding the database file.
	dir string

	db     *sql.DB
	logger *slog.Logger
	stats  stats.Collector

	debug       bool
	loggedFirst bool
}

// SQLiteOption configures a SQLite filter.
type SQLiteOption func(*SQLite)

// WithSQLiteLogger sets the logger used by the Log hook.
func WithSQLiteLogger(logger *slog.Logger) SQLiteOption {
	return func(s *SQLite) {
		s.logger = logger
	}
}

// WithSQLiteStats sets the counter collector for dupefilter/filtered.
func WithSQLiteStats(collector stats.Collector) SQLiteOption {
	return func(s *SQLite) {
		s.stats = collector
	}
}

// WithSQLiteDebug makes the Log hook report every duplicate.
func WithSQLiteDebug(debug bool) SQLiteOption {
	return func(s *SQLite) {
		s.debug = debug
	}
}

// NewSQLite creates a SQLite-backed duplicate filter storing its
// database in dir (normally the job directory).
func NewSQLite(dir string, opts ...SQLiteOption) *SQLite {
	s := &SQLite{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.stats == nil {
		s.stats = stats.Discard{}
	}
	return s
}

// Open opens the database and creates the fingerprint table.
func (s *SQLite) Open(ctx context.Context) error {
	dbPath := filepath.Join(s.dir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return fmt.Errorf("failed to open fingerprint database: %w", err)
	}

	// SQLite supports a single writer; more connections only add lock
	// contention for this access pattern.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		fingerprint TEXT PRIMARY KEY,
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create fingerprint table: %w", err)
	}

	s.db = db
	return nil
}

// Seen records req's fingerprint and reports whether it was already
// present, in a single statement: the insert is ignored on conflict and
// the affected-row count tells us which case we hit.
func (s *SQLite) Seen(ctx context.Context, req *request.Request) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO fingerprints (fingerprint) VALUES (?) ON CONFLICT(fingerprint) DO NOTHING`,
		req.Fingerprint(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return inserted == 0, nil
}

// Log reports a dropped duplicate, with the same once-then-silent
// behavior as the memory filter.
func (s *SQLite) Log(req *request.Request) {
	if s.debug {
		s.logger.Debug("filtered duplicate request", "url", req.URL)
	} else if !s.loggedFirst {
		s.logger.Debug("filtered duplicate request (no more duplicates will be shown, enable dupefilter debug to see all)",
			"url", req.URL,
		)
		s.loggedFirst = true
	}
	s.stats.Inc(stats.Filtered)
}

// Close closes the database.
func (s *SQLite) Close(_ context.Context, _ string) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close fingerprint database: %w", err)
	}
	s.db = nil
	return nil
}
