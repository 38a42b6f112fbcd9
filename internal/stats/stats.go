package stats

import (
	"maps"
	"sync"
)

// Counter keys emitted by the scheduling subsystem.
const (
	// Enqueued counts every successful enqueue, regardless of tier.
	Enqueued = "scheduler/enqueued"

	// EnqueuedDisk counts enqueues that landed in the disk queue.
	EnqueuedDisk = "scheduler/enqueued/disk"

	// EnqueuedMemory counts enqueues that landed in the memory queue.
	EnqueuedMemory = "scheduler/enqueued/memory"

	// Dequeued counts every dequeue, regardless of tier.
	Dequeued = "scheduler/dequeued"

	// DequeuedDisk counts dequeues served from the disk queue.
	DequeuedDisk = "scheduler/dequeued/disk"

	// DequeuedMemory counts dequeues served from the memory queue.
	DequeuedMemory = "scheduler/dequeued/memory"

	// Unserializable counts requests that could not be written to disk
	// and fell back to the memory queue.
	Unserializable = "scheduler/unserializable"

	// Filtered counts requests dropped by the duplicate filter.
	Filtered = "dupefilter/filtered"
)

// Collector receives counter increments. Implementations must tolerate
// keys they have never seen before.
type Collector interface {
	// Inc increments key by one.
	Inc(key string)

	// Add increments key by delta.
	Add(key string, delta int64)

	// Get returns the current value of key (zero if never incremented).
	Get(key string) int64
}

// Memory is an in-process Collector.
//
// The scheduler mutates counters from its single control loop, but
// monitors may read snapshots from other goroutines, so access is
// guarded by a mutex.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemory creates an empty in-memory collector.
func NewMemory() *Memory {
	return &Memory{
		counters: make(map[string]int64),
	}
}

// Inc increments key by one.
func (m *Memory) Inc(key string) {
	m.Add(key, 1)
}

// Add increments key by delta.
func (m *Memory) Add(key string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += delta
}

// Get returns the current value of key.
func (m *Memory) Get(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// Snapshot returns a copy of all counters.
func (m *Memory) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.counters)
}

// Discard is a Collector that drops everything. It is the default when
// no collector is injected.
type Discard struct{}

// Inc implements Collector.
func (Discard) Inc(string) {}

// Add implements Collector.
func (Discard) Add(string, int64) {}

// Get implements Collector.
func (Discard) Get(string) int64 { return 0 }
