package dupefilter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/stats"
)

// SeenFileName is the fingerprint log kept in the job directory by the
// memory filter: one hex fingerprint per line, append-only.
const SeenFileName = "requests.seen"

// Filter tracks which request fingerprints have already been scheduled.
type Filter interface {
	// Open prepares the filter (loads persisted fingerprints, connects
	// to a backing store).
	Open(ctx context.Context) error

	// Seen reports whether req's fingerprint was recorded before. The
	// first call for a fingerprint returns false and records it; every
	// later call with the same fingerprint returns true.
	Seen(ctx context.Context, req *request.Request) (bool, error)

	// Log is the diagnostic hook invoked when the scheduler drops req
	// as a duplicate. It has no return value contract; implementations
	// log and count as they see fit.
	Log(req *request.Request)

	// Close releases resources. reason describes why the crawl ended
	// ("finished", "shutdown", ...), mirroring the scheduler's close
	// reason.
	Close(ctx context.Context, reason string) error
}

// Memory is an in-process fingerprint set with optional file
// persistence for resumable crawls.
type Memory struct {
	// seen holds every fingerprint recorded so far.
	seen map[string]struct{}

	// seenFile, when non-empty, is the path of the append-only
	// fingerprint log loaded on Open and extended on every new sighting.
	seenFile string

	// file is the open append handle for seenFile.
	file *os.File

	logger *slog.Logger
	stats  stats.Collector

	// debug controls Log verbosity: true logs every duplicate, false
	// logs only the first and then goes silent to avoid flooding.
	debug bool

	// loggedFirst tracks whether the one-time duplicate notice went out.
	loggedFirst bool
}

// MemoryOption configures a Memory filter.
type MemoryOption func(*Memory)

// WithSeenFile persists fingerprints to path (normally
// <jobdir>/requests.seen) so a resumed crawl recognizes earlier work.
func WithSeenFile(path string) MemoryOption {
	return func(m *Memory) {
		m.seenFile = path
	}
}

// WithLogger sets the logger used by the Log hook.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = logger
	}
}

// WithStats sets the counter collector for dupefilter/filtered.
func WithStats(collector stats.Collector) MemoryOption {
	return func(m *Memory) {
		m.stats = collector
	}
}

// WithDebug makes the Log hook report every duplicate instead of only
// the first one.
func WithDebug(debug bool) MemoryOption {
	return func(m *Memory) {
		m.debug = debug
	}
}

// NewMemory creates an in-memory duplicate filter.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		seen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.stats == nil {
		m.stats = stats.Discard{}
	}
	return m
}

// Open loads the persisted fingerprint log, if configured. A missing
// log file is a cold start, not an error.
func (m *Memory) Open(_ context.Context) error {
	if m.seenFile == "" {
		return nil
	}

	file, err := os.OpenFile(m.seenFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec // path is scheduler-owned
	if err != nil {
		return fmt.Errorf("failed to open seen file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		m.seen[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to read seen file: %w", err)
	}

	m.file = file
	return nil
}

// Seen records req's fingerprint and reports whether it was already
// present.
func (m *Memory) Seen(_ context.Context, req *request.Request) (bool, error) {
	fp := req.Fingerprint()
	if _, ok := m.seen[fp]; ok {
		return true, nil
	}

	m.seen[fp] = struct{}{}
	if m.file != nil {
		if _, err := m.file.WriteString(fp + "\n"); err != nil {
			return false, fmt.Errorf("failed to append to seen file: %w", err)
		}
	}
	return false, nil
}

// Log reports a dropped duplicate. Without debug enabled only the first
// duplicate is logged; later ones only increment the counter, so a
// crawl over a densely self-linking site does not flood the log.
func (m *Memory) Log(req *request.Request) {
	if m.debug {
		m.logger.Debug("filtered duplicate request", "url", req.URL)
	} else if !m.loggedFirst {
		m.logger.Debug("filtered duplicate request (no more duplicates will be shown, enable dupefilter debug to see all)",
			"url", req.URL,
		)
		m.loggedFirst = true
	}
	m.stats.Inc(stats.Filtered)
}

// Close flushes and closes the fingerprint log.
func (m *Memory) Close(_ context.Context, _ string) error {
	if m.file == nil {
		return nil
	}
	if err := m.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close seen file: %w", err)
	}
	m.file = nil
	return nil
}
