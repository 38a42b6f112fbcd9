package queue

import (
	"github.com/spidermesh/frontier/internal/request"
)

// ByteQueue stores opaque byte records in FIFO or LIFO order.
//
// Pop on an empty queue returns (nil, nil): exhaustion is an expected,
// pollable condition on the crawl hot path, not an error.
type ByteQueue interface {
	// Push appends a record.
	Push(record []byte) error

	// Pop removes and returns the next record, or (nil, nil) when empty.
	Pop() ([]byte, error)

	// Len returns the number of stored records.
	Len() int

	// Close releases resources. Disk-backed queues persist whatever
	// they need to resume; empty queues remove their backing files.
	Close() error
}

// Queue stores requests in FIFO or LIFO order. It is the capability the
// priority queues and the scheduler are built against.
type Queue interface {
	// Push stores a request. Disk-backed queues return an error
	// wrapping ErrNotSerializable when the request cannot be encoded.
	Push(req *request.Request) error

	// Pop removes and returns the next request, or (nil, nil) when empty.
	Pop() (*request.Request, error)

	// Len returns the number of stored requests.
	Len() int

	// Close releases resources and persists resumption state.
	Close() error
}

// Factory builds one Queue per priority (or slot/priority) key.
//
// Design decision: sub-queue construction is injected as a function
// rather than selected from string-keyed settings at runtime. The set
// of backings is closed (memory FIFO/LIFO, disk FIFO/LIFO) and the
// compiler checks the wiring.
type Factory func(key string) (Queue, error)

// MemoryQueue holds requests directly in memory, without serialization.
// It therefore accepts every request, including ones that carry
// unserializable callback state.
type MemoryQueue struct {
	requests []*request.Request
	lifo     bool
}

// NewMemoryFIFO creates an in-memory FIFO request queue.
func NewMemoryFIFO() *MemoryQueue {
	return &MemoryQueue{}
}

// NewMemoryLIFO creates an in-memory LIFO request queue (depth-first
// crawl order).
func NewMemoryLIFO() *MemoryQueue {
	return &MemoryQueue{lifo: true}
}

// NewMemoryFactory returns a Factory producing memory queues.
// The key is ignored: memory queues need no backing file.
func NewMemoryFactory(lifo bool) Factory {
	return func(string) (Queue, error) {
		if lifo {
			return NewMemoryLIFO(), nil
		}
		return NewMemoryFIFO(), nil
	}
}

// Push stores a request. It never fails for memory queues.
func (q *MemoryQueue) Push(req *request.Request) error {
	q.requests = append(q.requests, req)
	return nil
}

// Pop removes and returns the next request, or (nil, nil) when empty.
func (q *MemoryQueue) Pop() (*request.Request, error) {
	if len(q.requests) == 0 {
		return nil, nil
	}

	if q.lifo {
		last := len(q.requests) - 1
		req := q.requests[last]
		q.requests[last] = nil // release for GC
		q.requests = q.requests[:last]
		return req, nil
	}

	req := q.requests[0]
	q.requests[0] = nil
	q.requests = q.requests[1:]
	return req, nil
}

// Len returns the number of stored requests.
func (q *MemoryQueue) Len() int {
	return len(q.requests)
}

// Close drops all stored requests.
func (q *MemoryQueue) Close() error {
	q.requests = nil
	return nil
}
