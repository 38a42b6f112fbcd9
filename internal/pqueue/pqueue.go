package pqueue

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spidermesh/frontier/internal/queue"
	"github.com/spidermesh/frontier/internal/request"
)

// PriorityQueue maps integer priority keys to sub-queues. Sub-queues
// are created lazily on first push into a key and removed as soon as a
// pop drains them, so a key is present iff its bucket is non-empty.
//
// Lower keys pop first. Callers that want "higher priority first"
// semantics (the Scheduler does) push with the negated priority.
type PriorityQueue struct {
	// factory builds one sub-queue per priority key.
	factory queue.Factory

	// queues holds the non-empty buckets.
	queues map[int]queue.Queue
}

// New creates a PriorityQueue.
//
// startKeys pre-creates sub-queues for the given keys. This is how a
// disk-backed queue resumes: the factory reopens each key's backing
// file, which still holds the records persisted by the previous run.
// Buckets that come back empty (for example when a memory factory is
// used with resumed keys) are dropped again immediately to keep the
// "present iff non-empty" invariant.
func New(factory queue.Factory, startKeys []int) (*PriorityQueue, error) {
	pq := &PriorityQueue{
		factory: factory,
		queues:  make(map[int]queue.Queue),
	}

	for _, key := range startKeys {
		q, err := factory(strconv.Itoa(key))
		if err != nil {
			return nil, fmt.Errorf("failed to reopen priority bucket %d: %w", key, err)
		}
		if q.Len() == 0 {
			if err := q.Close(); err != nil {
				return nil, fmt.Errorf("failed to close empty priority bucket %d: %w", key, err)
			}
			continue
		}
		pq.queues[key] = q
	}

	return pq, nil
}

// Push stores req in the bucket for key, creating the bucket if needed.
// When the push itself fails (an unserializable request on a disk
// bucket) a just-created empty bucket is removed again so the queue
// never carries empty buckets.
func (pq *PriorityQueue) Push(req *request.Request, key int) error {
	q, ok := pq.queues[key]
	if !ok {
		var err error
		q, err = pq.factory(strconv.Itoa(key))
		if err != nil {
			return fmt.Errorf("failed to create priority bucket %d: %w", key, err)
		}
		pq.queues[key] = q
	}

	if err := pq.push(q, key, req); err != nil {
		return err
	}
	return nil
}

func (pq *PriorityQueue) push(q queue.Queue, key int, req *request.Request) error {
	if err := q.Push(req); err != nil {
		if q.Len() == 0 {
			delete(pq.queues, key)
			_ = q.Close()
		}
		return err
	}
	return nil
}

// Pop removes and returns one request from the lowest extant key, or
// (nil, nil) when no buckets exist. A bucket drained by the pop is
// closed and removed.
func (pq *PriorityQueue) Pop() (*request.Request, error) {
	if len(pq.queues) == 0 {
		return nil, nil
	}

	key := pq.minKey()
	q := pq.queues[key]

	req, err := q.Pop()
	if err != nil {
		return nil, err
	}

	if q.Len() == 0 {
		delete(pq.queues, key)
		if err := q.Close(); err != nil {
			return nil, fmt.Errorf("failed to close drained priority bucket %d: %w", key, err)
		}
	}

	return req, nil
}

// minKey returns the lowest priority key currently present.
// Buckets per crawl number in the single digits, so a linear scan is
// cheaper than maintaining a heap next to the map.
func (pq *PriorityQueue) minKey() int {
	first := true
	minimum := 0
	for key := range pq.queues {
		if first || key < minimum {
			minimum = key
			first = false
		}
	}
	return minimum
}

// Len returns the total number of requests across all buckets.
func (pq *PriorityQueue) Len() int {
	total := 0
	for _, q := range pq.queues {
		total += q.Len()
	}
	return total
}

// Close closes every remaining bucket and returns the keys that still
// held content, in ascending order. Feeding these back as startKeys on
// the next run rebuilds the queue from its persisted files.
func (pq *PriorityQueue) Close() ([]int, error) {
	active := make([]int, 0, len(pq.queues))
	for key, q := range pq.queues {
		active = append(active, key)
		if err := q.Close(); err != nil {
			return nil, fmt.Errorf("failed to close priority bucket %d: %w", key, err)
		}
	}
	pq.queues = make(map[int]queue.Queue)

	sort.Ints(active)
	return active, nil
}
