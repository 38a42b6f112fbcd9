package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Job-directory layout.
const (
	// QueueDirName is the subdirectory holding the disk queue's record
	// files.
	QueueDirName = "requests.queue"

	// StateFileName is the sidecar holding the closed queue's
	// resumption state: a JSON array of priority keys for the plain
	// strategy, or an object mapping slot names to such arrays for the
	// slot-partitioned strategy.
	StateFileName = "active.json"
)

// QueueDir returns the disk-queue directory inside jobDir.
func QueueDir(jobDir string) string {
	return filepath.Join(jobDir, QueueDirName)
}

// StatePath returns the resumption sidecar path inside jobDir.
func StatePath(jobDir string) string {
	return filepath.Join(QueueDir(jobDir), StateFileName)
}

// EnsureQueueDir creates the disk-queue directory, reporting failure as
// the fatal ErrJobDirUnavailable.
func EnsureQueueDir(jobDir string) error {
	if err := os.MkdirAll(QueueDir(jobDir), 0750); err != nil {
		return fmt.Errorf("%w: %v", ErrJobDirUnavailable, err)
	}
	return nil
}

// ReadState loads the raw resumption document. A missing sidecar is a
// cold start and returns (nil, nil); the shape of the document is
// interpreted later, once the queue strategy is known.
func ReadState(jobDir string) (json.RawMessage, error) {
	data, err := os.ReadFile(StatePath(jobDir)) //nolint:gosec // path is scheduler-owned
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue state: %w", err)
	}
	return json.RawMessage(data), nil
}

// WriteState persists the resumption document returned by the disk
// queue's Close.
func WriteState(jobDir string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode queue state: %w", err)
	}
	if err := os.WriteFile(StatePath(jobDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write queue state: %w", err)
	}
	return nil
}

// decodePlainState interprets raw as plain-strategy state. A document
// of the wrong shape means the job directory was written by a run with
// a different queue strategy.
func decodePlainState(raw json.RawMessage) ([]int, error) {
	if raw == nil {
		return nil, nil
	}
	var keys []int
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("%w: expected a priority array, got %s", ErrIncompatibleState, truncateForError(raw))
	}
	return keys, nil
}

// decodeSlotState interprets raw as slot-partitioned state.
func decodeSlotState(raw json.RawMessage) (map[string][]int, error) {
	if raw == nil {
		return nil, nil
	}
	var state map[string][]int
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: expected a slot-to-priorities object, got %s", ErrIncompatibleState, truncateForError(raw))
	}
	return state, nil
}

// truncateForError keeps error messages readable for large documents.
func truncateForError(raw json.RawMessage) string {
	const limit = 64
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
