package inspect

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/spidermesh/frontier/internal/dupefilter"
	"github.com/spidermesh/frontier/internal/scheduler"
)

// Strategy is the queue strategy a job directory was written under,
// inferred from the shape of its persisted state.
type Strategy string

const (
	// StrategyPlain means the state file holds a priority array.
	StrategyPlain Strategy = "plain"

	// StrategySlot means the state file holds a slot-to-priorities map.
	StrategySlot Strategy = "slot"

	// StrategyNone means no state file exists: either a fresh directory
	// or a crawl that was never cleanly closed.
	StrategyNone Strategy = "none"

	// StrategyUnknown means the state file exists but matches neither
	// shape.
	StrategyUnknown Strategy = "unknown"
)

// Summary describes one job directory.
type Summary struct {
	// JobDir is the inspected directory.
	JobDir string

	// Strategy is the inferred queue strategy.
	Strategy Strategy

	// Buckets holds the pending priority keys (plain strategy).
	Buckets []int

	// Slots maps slot names to pending priority keys (slot strategy).
	Slots map[string][]int

	// QueueFiles is the number of record files in requests.queue.
	QueueFiles int

	// QueueBytes is the total size of those record files.
	QueueBytes int64

	// PendingRequests counts live records across all record files.
	// Files left without a sidecar by a crash are counted by scanning,
	// which includes records the dead run had already popped.
	PendingRequests int

	// SeenFingerprints counts fingerprints in the memory filter's seen
	// file, or -1 when the file does not exist.
	SeenFingerprints int

	// SQLiteFilter reports whether a SQLite fingerprint database is
	// present.
	SQLiteFilter bool
}

// Inspect summarizes a single job directory.
func Inspect(jobDir string) (*Summary, error) {
	if _, err := os.Stat(jobDir); err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", jobDir, err)
	}

	s := &Summary{
		JobDir:           jobDir,
		Strategy:         StrategyNone,
		SeenFingerprints: -1,
	}

	if err := s.readState(); err != nil {
		return nil, err
	}
	if err := s.scanQueueDir(); err != nil {
		return nil, err
	}
	if err := s.scanFilterArtifacts(); err != nil {
		return nil, err
	}

	return s, nil
}

// InspectAll summarizes several job directories concurrently, returning
// summaries in input order. limit caps the number of directories
// inspected at once; values below one mean unlimited.
func InspectAll(ctx context.Context, jobDirs []string, limit int) ([]*Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	summaries := make([]*Summary, len(jobDirs))
	for i, dir := range jobDirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := Inspect(dir)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// readState loads the resumption sidecar and infers the strategy from
// its shape.
func (s *Summary) readState() error {
	data, err := os.ReadFile(scheduler.StatePath(s.JobDir)) //nolint:gosec // operator-provided path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read queue state: %w", err)
	}

	var buckets []int
	if err := json.Unmarshal(data, &buckets); err == nil {
		s.Strategy = StrategyPlain
		s.Buckets = buckets
		return nil
	}

	var slots map[string][]int
	if err := json.Unmarshal(data, &slots); err == nil {
		s.Strategy = StrategySlot
		s.Slots = slots
		return nil
	}

	s.Strategy = StrategyUnknown
	return nil
}

// scanQueueDir walks requests.queue and tallies record files.
func (s *Summary) scanQueueDir() error {
	entries, err := os.ReadDir(scheduler.QueueDir(s.JobDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read queue directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == scheduler.StateFileName || strings.HasSuffix(name, ".meta.json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to stat record file %s: %w", name, err)
		}

		s.QueueFiles++
		s.QueueBytes += info.Size()

		path := filepath.Join(scheduler.QueueDir(s.JobDir), name)
		pending, err := countRecords(path)
		if err != nil {
			return err
		}
		s.PendingRequests += pending
	}

	return nil
}

// countRecords returns the live record count of one record file: the
// sidecar's offset count when present, otherwise a full scan of the
// length-prefixed records.
func countRecords(path string) (int, error) {
	meta, err := os.ReadFile(path + ".meta.json") //nolint:gosec // derived from operator-provided path
	if err == nil {
		var doc struct {
			Offsets []int64 `json:"offsets"`
		}
		if err := json.Unmarshal(meta, &doc); err != nil {
			return 0, fmt.Errorf("failed to parse sidecar for %s: %w", path, err)
		}
		return len(doc.Offsets), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("failed to read sidecar for %s: %w", path, err)
	}

	return scanRecords(path)
}

// scanRecords counts records by walking the length prefixes.
func scanRecords(path string) (int, error) {
	f, err := os.Open(path) //nolint:gosec // derived from operator-provided path
	if err != nil {
		return 0, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	count := 0
	var prefix [4]byte
	for {
		if _, err := io.ReadFull(f, prefix[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			// A torn final record from a crash ends the scan; everything
			// before it counted.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return count, nil
			}
			return 0, fmt.Errorf("failed to scan record file %s: %w", path, err)
		}

		length := int64(binary.BigEndian.Uint32(prefix[:]))
		if _, err := f.Seek(length, io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("failed to scan record file %s: %w", path, err)
		}
		count++
	}
}

// scanFilterArtifacts checks for duplicate-filter files.
func (s *Summary) scanFilterArtifacts() error {
	if _, err := os.Stat(filepath.Join(s.JobDir, dupefilter.DBFileName)); err == nil {
		s.SQLiteFilter = true
	}

	data, err := os.ReadFile(filepath.Join(s.JobDir, dupefilter.SeenFileName)) //nolint:gosec // operator-provided path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read seen file: %w", err)
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			count++
		}
	}
	s.SeenFingerprints = count
	return nil
}

// SlotNames returns the slot names in sorted order.
func (s *Summary) SlotNames() []string {
	names := make([]string, 0, len(s.Slots))
	for name := range s.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
