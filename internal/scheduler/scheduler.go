package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spidermesh/frontier/internal/config"
	"github.com/spidermesh/frontier/internal/dupefilter"
	"github.com/spidermesh/frontier/internal/pqueue"
	"github.com/spidermesh/frontier/internal/queue"
	"github.com/spidermesh/frontier/internal/request"
	"github.com/spidermesh/frontier/internal/stats"
)

// requestQueue is the container shape the scheduler drives: a
// priority-keyed request store whose Close returns the resumption state
// to persist. Both queue strategies fit behind it through thin adapters
// (plainQueue, slotQueue).
type requestQueue interface {
	Push(req *request.Request, key int) error
	Pop() (*request.Request, error)
	Len() int
	Close() (any, error)
}

// plainQueue adapts the priority-only queue.
type plainQueue struct {
	pq *pqueue.PriorityQueue
}

func (q plainQueue) Push(req *request.Request, key int) error { return q.pq.Push(req, key) }
func (q plainQueue) Pop() (*request.Request, error)           { return q.pq.Pop() }
func (q plainQueue) Len() int                                 { return q.pq.Len() }
func (q plainQueue) Close() (any, error)                      { return q.pq.Close() }

// slotQueue adapts the slot-partitioned queue. The slot name and
// created flag from Push are internal bookkeeping the scheduler does
// not act on.
type slotQueue struct {
	pq *pqueue.DownloaderAwarePriorityQueue
}

func (q slotQueue) Push(req *request.Request, key int) error {
	_, _, err := q.pq.Push(req, key)
	return err
}
func (q slotQueue) Pop() (*request.Request, error) { return q.pq.Pop() }
func (q slotQueue) Len() int                       { return q.pq.Len() }
func (q slotQueue) Close() (any, error)            { return q.pq.Close() }

// Scheduler accepts discovered requests, drops duplicates, and hands
// out the next request to fetch. Requests live in a two-tier store: a
// disk-backed queue when a job directory is configured, and a memory
// queue that holds everything else (all requests when running without
// persistence, unserializable ones otherwise).
//
// All methods must be called from a single goroutine; see the package
// documentation.
type Scheduler struct {
	cfg *config.Config

	filter dupefilter.Filter
	logger *slog.Logger
	stats  stats.Collector

	memory requestQueue
	disk   requestQueue

	// memAware and diskAware alias the queues above when the
	// slot-partitioned strategy is active, for forwarding downloader
	// lifecycle events. Ownership tags make the forward a no-op on the
	// instance that did not pop the request.
	memAware  *pqueue.DownloaderAwarePriorityQueue
	diskAware *pqueue.DownloaderAwarePriorityQueue

	// warnedUnserializable tracks the one-time fallback warning.
	warnedUnserializable bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithStats sets the counter collector. Defaults to stats.Discard.
func WithStats(collector stats.Collector) Option {
	return func(s *Scheduler) {
		s.stats = collector
	}
}

// WithFilter injects a duplicate filter, overriding the one the
// configuration selects. Used by embedders that bring their own
// dedup policy.
func WithFilter(filter dupefilter.Filter) Option {
	return func(s *Scheduler) {
		s.filter = filter
	}
}

// New creates a Scheduler from cfg. The configuration must already be
// validated; call Open before use.
func New(cfg *config.Config, opts ...Option) *Scheduler {
	s := &Scheduler{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.stats == nil {
		s.stats = stats.Discard{}
	}
	if s.filter == nil {
		s.filter = s.buildFilter()
	}
	return s
}

// buildFilter constructs the duplicate filter the configuration selects.
func (s *Scheduler) buildFilter() dupefilter.Filter {
	switch s.cfg.Filter {
	case config.FilterSQLite:
		return dupefilter.NewSQLite(s.cfg.JobDir,
			dupefilter.WithSQLiteLogger(s.logger),
			dupefilter.WithSQLiteStats(s.stats),
			dupefilter.WithSQLiteDebug(s.cfg.FilterDebug),
		)
	case config.FilterRedis:
		return dupefilter.NewRedis(s.cfg.RedisAddr, s.cfg.RedisPrefix,
			dupefilter.WithRedisTTL(s.cfg.RedisTTL),
			dupefilter.WithRedisLogger(s.logger),
			dupefilter.WithRedisStats(s.stats),
			dupefilter.WithRedisDebug(s.cfg.FilterDebug),
		)
	default:
		opts := []dupefilter.MemoryOption{
			dupefilter.WithLogger(s.logger),
			dupefilter.WithStats(s.stats),
			dupefilter.WithDebug(s.cfg.FilterDebug),
		}
		if s.cfg.JobDir != "" {
			opts = append(opts, dupefilter.WithSeenFile(filepath.Join(s.cfg.JobDir, dupefilter.SeenFileName)))
		}
		return dupefilter.NewMemory(opts...)
	}
}

// Open prepares the scheduler: it creates the job directory, rebuilds
// the disk queue from persisted state, and opens the duplicate filter.
//
// Returns ErrJobDirUnavailable when the job directory cannot be
// created, and ErrIncompatibleState when the persisted queue state was
// written under a different queue strategy.
func (s *Scheduler) Open(ctx context.Context) error {
	if err := s.openMemoryQueue(); err != nil {
		return err
	}

	if s.cfg.JobDir != "" {
		if err := s.openDiskQueue(); err != nil {
			return err
		}
	}

	if err := s.filter.Open(ctx); err != nil {
		return fmt.Errorf("failed to open duplicate filter: %w", err)
	}

	return nil
}

// openMemoryQueue builds the memory tier. It never carries resumed
// state: memory contents do not survive the process.
func (s *Scheduler) openMemoryQueue() error {
	factory := queue.NewMemoryFactory(s.cfg.MemoryQueue == config.OrderLIFO)

	switch s.cfg.Queue {
	case config.StrategySlotPartitioned:
		aware, err := pqueue.NewDownloaderAware(factory, nil)
		if err != nil {
			return fmt.Errorf("failed to create memory queue: %w", err)
		}
		s.memory = slotQueue{pq: aware}
		s.memAware = aware
	default:
		pq, err := pqueue.New(factory, nil)
		if err != nil {
			return fmt.Errorf("failed to create memory queue: %w", err)
		}
		s.memory = plainQueue{pq: pq}
	}

	return nil
}

// openDiskQueue builds the disk tier, resuming any state persisted by a
// previous run's Close.
func (s *Scheduler) openDiskQueue() error {
	if err := EnsureQueueDir(s.cfg.JobDir); err != nil {
		return err
	}

	raw, err := ReadState(s.cfg.JobDir)
	if err != nil {
		return err
	}

	factory := queue.NewDiskFactory(QueueDir(s.cfg.JobDir), queue.JSONCodec{}, s.cfg.DiskQueue == config.OrderLIFO)

	switch s.cfg.Queue {
	case config.StrategySlotPartitioned:
		state, err := decodeSlotState(raw)
		if err != nil {
			return err
		}
		aware, err := pqueue.NewDownloaderAware(factory, state)
		if err != nil {
			return fmt.Errorf("failed to open disk queue: %w", err)
		}
		s.disk = slotQueue{pq: aware}
		s.diskAware = aware
	default:
		keys, err := decodePlainState(raw)
		if err != nil {
			return err
		}
		pq, err := pqueue.New(factory, keys)
		if err != nil {
			return fmt.Errorf("failed to open disk queue: %w", err)
		}
		s.disk = plainQueue{pq: pq}
	}

	if s.disk.Len() > 0 {
		s.logger.Debug("resumed disk queue", "pending", s.disk.Len())
	}

	return nil
}

// EnqueueRequest stores req for later fetching. It returns false when
// the request was dropped as a duplicate; the request is gone and the
// caller should move on.
//
// Requests go to the disk queue when one is configured. A request the
// codec cannot serialize falls back to the memory queue so it is
// scheduled in this run even though it will not survive a restart.
//
// Priority ordering: higher req.Priority is fetched sooner. The queues
// themselves pop the lowest key first, so the priority is negated on
// the way in.
func (s *Scheduler) EnqueueRequest(ctx context.Context, req *request.Request) (bool, error) {
	if !req.DontFilter {
		seen, err := s.filter.Seen(ctx, req)
		if err != nil {
			// A broken filter backend must not stall the crawl; the
			// request proceeds unfiltered and the operator is told.
			s.logger.Warn("duplicate filter failed, scheduling request unfiltered",
				"url", req.URL,
				"error", err,
			)
		} else if seen {
			s.filter.Log(req)
			return false, nil
		}
	}

	key := -req.Priority

	if s.disk != nil {
		err := s.disk.Push(req, key)
		switch {
		case err == nil:
			s.stats.Inc(stats.Enqueued)
			s.stats.Inc(stats.EnqueuedDisk)
			return true, nil
		case errors.Is(err, queue.ErrNotSerializable):
			s.stats.Inc(stats.Unserializable)
			s.warnUnserializable(req, err)
		default:
			return false, fmt.Errorf("failed to enqueue request: %w", err)
		}
	}

	if err := s.memory.Push(req, key); err != nil {
		return false, fmt.Errorf("failed to enqueue request: %w", err)
	}
	s.stats.Inc(stats.Enqueued)
	s.stats.Inc(stats.EnqueuedMemory)
	return true, nil
}

// warnUnserializable reports the disk-to-memory fallback: once per
// scheduler lifetime normally, per request when filter debug is on.
func (s *Scheduler) warnUnserializable(req *request.Request, err error) {
	if s.cfg.FilterDebug {
		s.logger.Warn("unable to serialize request, using memory queue",
			"url", req.URL,
			"error", err,
		)
		return
	}
	if !s.warnedUnserializable {
		s.logger.Warn("unable to serialize request, using memory queue (no more such warnings will be shown)",
			"url", req.URL,
			"error", err,
		)
		s.warnedUnserializable = true
	}
}

// NextRequest returns the next request to fetch, or (nil, nil) when
// both tiers are empty. The memory queue drains first: it holds the
// most recently discovered requests and serving it avoids disk reads on
// the hot path.
func (s *Scheduler) NextRequest() (*request.Request, error) {
	req, err := s.memory.Pop()
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req != nil {
		s.stats.Inc(stats.Dequeued)
		s.stats.Inc(stats.DequeuedMemory)
		return req, nil
	}

	if s.disk == nil {
		return nil, nil
	}

	req, err = s.disk.Pop()
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req != nil {
		s.stats.Inc(stats.Dequeued)
		s.stats.Inc(stats.DequeuedDisk)
	}
	return req, nil
}

// HasPendingRequests reports whether any request is waiting in either
// tier.
func (s *Scheduler) HasPendingRequests() bool {
	return s.Len() > 0
}

// Len returns the total number of pending requests across both tiers.
func (s *Scheduler) Len() int {
	total := s.memory.Len()
	if s.disk != nil {
		total += s.disk.Len()
	}
	return total
}

// RequestReachedDownloader records that a previously returned request
// was accepted by the downloader. Only meaningful under the
// slot-partitioned strategy; a no-op otherwise.
//
// The event is offered to both tiers; ownership tags on popped requests
// make sure only the queue that produced the request counts it.
func (s *Scheduler) RequestReachedDownloader(req *request.Request) error {
	if s.memAware != nil {
		if err := s.memAware.RequestReachedDownloader(req); err != nil {
			return err
		}
	}
	if s.diskAware != nil {
		if err := s.diskAware.RequestReachedDownloader(req); err != nil {
			return err
		}
	}
	return nil
}

// ResponseDownloaded records that a response for req arrived. Only
// meaningful under the slot-partitioned strategy; a no-op otherwise.
func (s *Scheduler) ResponseDownloaded(req *request.Request) error {
	if s.memAware != nil {
		if err := s.memAware.ResponseDownloaded(req); err != nil {
			return err
		}
	}
	if s.diskAware != nil {
		if err := s.diskAware.ResponseDownloaded(req); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the scheduler down: the disk queue is closed and its
// resumption state written to the job directory, the memory queue is
// dropped, and the duplicate filter is closed. reason describes why the
// crawl ended ("finished", "shutdown", ...) and is passed through to
// the filter.
//
// Every shutdown step runs even when an earlier one fails, so a broken
// queue file does not also leak the filter's resources.
func (s *Scheduler) Close(ctx context.Context, reason string) error {
	var errs []error

	if s.disk != nil {
		state, err := s.disk.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to close disk queue: %w", err))
		} else if err := WriteState(s.cfg.JobDir, state); err != nil {
			errs = append(errs, err)
		}
	}

	if s.memory != nil {
		if dropped := s.memory.Len(); dropped > 0 {
			s.logger.Warn("dropping in-memory requests on close, they will not be resumed",
				"count", dropped,
				"reason", reason,
			)
		}
		if _, err := s.memory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close memory queue: %w", err))
		}
	}

	if err := s.filter.Close(ctx, reason); err != nil {
		errs = append(errs, fmt.Errorf("failed to close duplicate filter: %w", err))
	}

	return errors.Join(errs...)
}
