package queue

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskQueue is a ByteQueue backed by a single append-only record file.
//
// Layout: each record is a 4-byte big-endian length prefix followed by
// the payload. Records are never rewritten; a pop only advances the
// in-memory live set. On Close the live record offsets are written to a
// sidecar meta file so a reopened queue resumes exactly where it left
// off, and fully drained queues delete both files.
//
// Design decision: popped records are not erased from the data file.
// Compaction would buy nothing for a queue that is drained and deleted
// within one crawl, and an append-only file keeps every write a single
// sequential operation. If the process dies without Close, reopening
// falls back to scanning the whole file, which replays already-popped
// records; the duplicate filter absorbs most of the replay.
type DiskQueue struct {
	// path is the record file. The sidecar lives at path + ".meta.json".
	path string

	// file is the open record file handle.
	file *os.File

	// offsets holds the file offset of every live record, in push order.
	offsets []int64

	// writeOffset is where the next record will be appended.
	writeOffset int64

	// lifo selects pop order: false pops offsets[0], true pops the last.
	lifo bool
}

// diskMeta is the sidecar document persisted on Close.
type diskMeta struct {
	// Offsets are the live record offsets in push order.
	Offsets []int64 `json:"offsets"`
}

// metaPath returns the sidecar path for a record file.
func metaPath(path string) string {
	return path + ".meta.json"
}

// NewDiskFIFO opens (or creates) a FIFO disk queue at path.
func NewDiskFIFO(path string) (*DiskQueue, error) {
	return openDiskQueue(path, false)
}

// NewDiskLIFO opens (or creates) a LIFO disk queue at path.
func NewDiskLIFO(path string) (*DiskQueue, error) {
	return openDiskQueue(path, true)
}

// NewDiskFactory returns a Factory producing codec-wrapped disk queues
// under dir. Each key maps to one record file named by PathSafe(key).
func NewDiskFactory(dir string, codec Codec, lifo bool) Factory {
	return func(key string) (Queue, error) {
		path := filepath.Join(dir, PathSafe(key))
		var (
			bq  *DiskQueue
			err error
		)
		if lifo {
			bq, err = NewDiskLIFO(path)
		} else {
			bq, err = NewDiskFIFO(path)
		}
		if err != nil {
			return nil, err
		}
		return NewSerializable(bq, codec), nil
	}
}

func openDiskQueue(path string, lifo bool) (*DiskQueue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600) //nolint:gosec // queue file path is scheduler-owned
	if err != nil {
		return nil, fmt.Errorf("failed to open queue file: %w", err)
	}

	q := &DiskQueue{
		path: path,
		file: file,
		lifo: lifo,
	}

	if err := q.loadState(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return q, nil
}

// loadState restores the live record set, preferring the sidecar meta
// file and falling back to a full scan of the record file.
func (q *DiskQueue) loadState() error {
	info, err := q.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat queue file: %w", err)
	}
	q.writeOffset = info.Size()

	data, err := os.ReadFile(metaPath(q.path))
	if err == nil {
		var meta diskMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("corrupt queue meta file %s: %w", metaPath(q.path), err)
		}
		q.offsets = meta.Offsets
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read queue meta file: %w", err)
	}

	// No sidecar: unclean shutdown or fresh file. Scan every record and
	// treat it as live.
	return q.scan()
}

// scan walks the record file and rebuilds the offset list.
func (q *DiskQueue) scan() error {
	q.offsets = q.offsets[:0]

	var header [4]byte
	offset := int64(0)
	for offset < q.writeOffset {
		if _, err := q.file.ReadAt(header[:], offset); err != nil {
			return fmt.Errorf("corrupt queue file %s at offset %d: %w", q.path, offset, err)
		}
		length := int64(binary.BigEndian.Uint32(header[:]))
		if offset+4+length > q.writeOffset {
			return fmt.Errorf("corrupt queue file %s: truncated record at offset %d", q.path, offset)
		}
		q.offsets = append(q.offsets, offset)
		offset += 4 + length
	}

	return nil
}

// Push appends a record to the file and registers it as live.
func (q *DiskQueue) Push(record []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(record))) //nolint:gosec // record sizes are bounded by request size

	buf := make([]byte, 0, 4+len(record))
	buf = append(buf, header[:]...)
	buf = append(buf, record...)

	if _, err := q.file.WriteAt(buf, q.writeOffset); err != nil {
		return fmt.Errorf("failed to append queue record: %w", err)
	}

	q.offsets = append(q.offsets, q.writeOffset)
	q.writeOffset += int64(len(buf))
	return nil
}

// Pop removes and returns the next live record, or (nil, nil) when the
// queue is empty.
func (q *DiskQueue) Pop() ([]byte, error) {
	if len(q.offsets) == 0 {
		return nil, nil
	}

	var offset int64
	if q.lifo {
		last := len(q.offsets) - 1
		offset = q.offsets[last]
		q.offsets = q.offsets[:last]
	} else {
		offset = q.offsets[0]
		q.offsets = q.offsets[1:]
	}

	var header [4]byte
	if _, err := q.file.ReadAt(header[:], offset); err != nil {
		return nil, fmt.Errorf("failed to read queue record header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])

	record := make([]byte, length)
	if _, err := q.file.ReadAt(record, offset+4); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read queue record: %w", err)
	}

	return record, nil
}

// Len returns the number of live records.
func (q *DiskQueue) Len() int {
	return len(q.offsets)
}

// Close persists the live record set and closes the file. A drained
// queue removes both the record file and the sidecar so that resumed
// crawls do not see phantom priority buckets.
func (q *DiskQueue) Close() error {
	if len(q.offsets) == 0 {
		if err := q.file.Close(); err != nil {
			return fmt.Errorf("failed to close queue file: %w", err)
		}
		if err := os.Remove(q.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove drained queue file: %w", err)
		}
		if err := os.Remove(metaPath(q.path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove queue meta file: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(diskMeta{Offsets: q.offsets})
	if err != nil {
		return fmt.Errorf("failed to encode queue meta: %w", err)
	}
	if err := os.WriteFile(metaPath(q.path), data, 0600); err != nil {
		return fmt.Errorf("failed to write queue meta file: %w", err)
	}

	if err := q.file.Close(); err != nil {
		return fmt.Errorf("failed to close queue file: %w", err)
	}
	return nil
}
