package pqueue

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/net/idna"

	"github.com/spidermesh/frontier/internal/queue"
	"github.com/spidermesh/frontier/internal/request"
)

// Meta keys owned by the slot-partitioned queue.
const (
	// MetaDownloadSlot stores the slot a request is assigned to.
	// Callers may pre-set it to override host-based slot derivation.
	MetaDownloadSlot = "download_slot"

	// MetaOwner marks a popped request with the identity of the queue
	// instance that produced it. In-flight accounting events for
	// requests carrying a different (or no) marker are ignored as
	// stale or foreign.
	MetaOwner = "scheduler_queue"
)

// instanceCounter distinguishes queue instances created within one
// process; combined with the PID it gives each instance a unique
// ownership tag.
var instanceCounter atomic.Int64

// DownloaderAwarePriorityQueue partitions a PriorityQueue per download
// slot and weights slot selection by live downloader load.
type DownloaderAwarePriorityQueue struct {
	// factory builds sub-queues; inner priority queues prefix its key
	// with their slot name ("<slot>/<priority>").
	factory queue.Factory

	// slots holds the non-empty per-slot priority queues.
	slots map[string]*PriorityQueue

	// inFlight counts requests currently checked out to the downloader
	// per slot. A counter can outlive its slot queue: a slot with
	// in-flight downloads but no pending requests keeps its counter
	// until the last response arrives.
	inFlight map[string]int

	// tag is this instance's ownership marker.
	tag string
}

// NewDownloaderAware creates a slot-partitioned priority queue.
//
// startState resumes per-slot priority keys persisted by Close on a
// previous run; pass nil for a cold start.
func NewDownloaderAware(factory queue.Factory, startState map[string][]int) (*DownloaderAwarePriorityQueue, error) {
	d := &DownloaderAwarePriorityQueue{
		factory:  factory,
		slots:    make(map[string]*PriorityQueue),
		inFlight: make(map[string]int),
		tag:      fmt.Sprintf("pq-%d-%d", os.Getpid(), instanceCounter.Add(1)),
	}

	for slot, keys := range startState {
		pq, err := New(d.slotFactory(slot), keys)
		if err != nil {
			return nil, fmt.Errorf("failed to resume slot %q: %w", slot, err)
		}
		if pq.Len() == 0 {
			continue
		}
		d.slots[slot] = pq
	}

	return d, nil
}

// slotFactory namespaces the shared factory under one slot.
func (d *DownloaderAwarePriorityQueue) slotFactory(slot string) queue.Factory {
	return func(key string) (queue.Queue, error) {
		return d.factory(slot + "/" + key)
	}
}

// Push stores req under its download slot and priority key. It returns
// the slot name and whether the slot was newly created, so callers can
// register new slots for in-flight tracking.
func (d *DownloaderAwarePriorityQueue) Push(req *request.Request, key int) (slot string, created bool, err error) {
	slot, err = d.assignSlot(req)
	if err != nil {
		return "", false, err
	}

	pq, ok := d.slots[slot]
	if !ok {
		pq, err = New(d.slotFactory(slot), nil)
		if err != nil {
			return "", false, fmt.Errorf("failed to create slot %q: %w", slot, err)
		}
		d.slots[slot] = pq
		created = true
	}

	if err := pq.Push(req, key); err != nil {
		if created {
			delete(d.slots, slot)
		}
		return "", false, err
	}

	return slot, created, nil
}

// Pop removes one request from the least busy slot, or returns
// (nil, nil) when no slots have pending requests.
//
// Selection policy: the slot with the lowest in-flight count wins; ties
// break lexicographically on the slot name so the choice is
// deterministic across runs and platforms. A slot drained by the pop is
// removed from the pending set, but its in-flight counter survives
// until the downloader returns its last response.
func (d *DownloaderAwarePriorityQueue) Pop() (*request.Request, error) {
	slot, ok := d.selectSlot()
	if !ok {
		return nil, nil
	}

	pq := d.slots[slot]
	req, err := pq.Pop()
	if err != nil {
		return nil, err
	}

	if pq.Len() == 0 {
		delete(d.slots, slot)
		if _, err := pq.Close(); err != nil {
			return nil, fmt.Errorf("failed to close drained slot %q: %w", slot, err)
		}
	}

	if req != nil {
		if req.Meta == nil {
			req.Meta = request.NewMeta()
		}
		req.Meta.Set(MetaOwner, d.tag)
	}

	return req, nil
}

// selectSlot picks the pending slot with the lowest in-flight count.
func (d *DownloaderAwarePriorityQueue) selectSlot() (string, bool) {
	best := ""
	bestCount := 0
	found := false
	for slot := range d.slots {
		count := d.inFlight[slot]
		if !found || count < bestCount || (count == bestCount && slot < best) {
			best = slot
			bestCount = count
			found = true
		}
	}
	return best, found
}

// RequestReachedDownloader records that a previously popped request was
// accepted by the downloader, incrementing its slot's in-flight count.
// Events for requests not tagged by this queue instance are ignored.
func (d *DownloaderAwarePriorityQueue) RequestReachedDownloader(req *request.Request) error {
	if !d.owns(req) {
		return nil
	}

	slot, err := d.assignSlot(req)
	if err != nil {
		return err
	}

	d.inFlight[slot]++
	return nil
}

// ResponseDownloaded records that a response for req arrived,
// decrementing its slot's in-flight count. A counter that reaches zero
// with no pending queue entries for its slot is removed entirely.
//
// Returns ErrInFlightUnderflow when the counter is already zero or
// missing: the lifecycle signals are firing out of order or duplicated,
// which the queue cannot safely paper over.
func (d *DownloaderAwarePriorityQueue) ResponseDownloaded(req *request.Request) error {
	if !d.owns(req) {
		return nil
	}

	slot, err := d.assignSlot(req)
	if err != nil {
		return err
	}

	count, ok := d.inFlight[slot]
	if !ok || count <= 0 {
		return fmt.Errorf("slot %q: %w", slot, ErrInFlightUnderflow)
	}

	d.inFlight[slot] = count - 1
	if d.inFlight[slot] == 0 {
		if _, pending := d.slots[slot]; !pending {
			delete(d.inFlight, slot)
		}
	}

	return nil
}

// InFlight returns the current in-flight count for slot.
func (d *DownloaderAwarePriorityQueue) InFlight(slot string) int {
	return d.inFlight[slot]
}

// Len returns the total number of pending requests across all slots.
func (d *DownloaderAwarePriorityQueue) Len() int {
	total := 0
	for _, pq := range d.slots {
		total += pq.Len()
	}
	return total
}

// Close closes every remaining slot queue and returns the per-slot
// priority keys that still held content. In-flight counters are
// cleared: they describe downloader state that does not survive the
// process.
func (d *DownloaderAwarePriorityQueue) Close() (map[string][]int, error) {
	state := make(map[string][]int, len(d.slots))

	// Sorted iteration keeps close-time file operations in a
	// reproducible order.
	names := make([]string, 0, len(d.slots))
	for slot := range d.slots {
		names = append(names, slot)
	}
	sort.Strings(names)

	for _, slot := range names {
		keys, err := d.slots[slot].Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close slot %q: %w", slot, err)
		}
		state[slot] = keys
	}

	d.slots = make(map[string]*PriorityQueue)
	d.inFlight = make(map[string]int)
	return state, nil
}

// owns reports whether req carries this instance's ownership tag.
func (d *DownloaderAwarePriorityQueue) owns(req *request.Request) bool {
	tag, _, err := req.Meta.GetString(MetaOwner)
	return err == nil && tag == d.tag
}

// assignSlot returns the download slot for req: an explicit
// MetaDownloadSlot override if present, otherwise the normalized host
// of the URL. The derived slot is written back to meta so later events
// for the same request resolve to the same slot without re-parsing.
func (d *DownloaderAwarePriorityQueue) assignSlot(req *request.Request) (string, error) {
	if req.Meta == nil {
		req.Meta = request.NewMeta()
	}

	slot, ok, err := req.Meta.GetString(MetaDownloadSlot)
	if err != nil {
		return "", fmt.Errorf("invalid %s meta value: %w", MetaDownloadSlot, err)
	}
	if ok {
		return slot, nil
	}

	slot = DownloadSlot(req.URL)
	req.Meta.Set(MetaDownloadSlot, slot)
	return slot, nil
}

// DownloadSlot derives the default slot name from a URL: the lowercased
// hostname without the port, with internationalized names folded to
// their ASCII (punycode) form so "münchen.example" and its punycode
// spelling land in the same slot.
func DownloadSlot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		// No usable host; fall back to the raw URL so the request is
		// still schedulable, just in a slot of its own.
		return rawURL
	}

	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return host
}
