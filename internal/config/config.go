package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// AppName is the application name used for XDG directory paths.
const AppName = "frontier"

// QueueStrategy selects the priority-queue implementation.
//
// Design decision: the strategy is a closed enum rather than a
// runtime-loaded class name. The scheduler supports exactly two
// container shapes, and an enum keeps an incompatible job directory
// detectable at open time instead of producing silently wrong
// prioritization.
type QueueStrategy string

const (
	// StrategyPlain buckets requests by priority only.
	StrategyPlain QueueStrategy = "plain"

	// StrategySlotPartitioned additionally partitions buckets per
	// download slot and balances pops across slots by downloader load.
	StrategySlotPartitioned QueueStrategy = "slot"
)

// QueueOrder selects pop order within one priority bucket.
type QueueOrder string

const (
	// OrderFIFO pops in push order (breadth-first crawling).
	OrderFIFO QueueOrder = "fifo"

	// OrderLIFO pops most recent first (depth-first crawling).
	OrderLIFO QueueOrder = "lifo"
)

// FilterBackend selects the duplicate-filter implementation.
type FilterBackend string

const (
	// FilterMemory keeps fingerprints in process memory, persisted to
	// the job directory when one is configured.
	FilterMemory FilterBackend = "memory"

	// FilterSQLite keeps fingerprints in a SQLite database inside the
	// job directory.
	FilterSQLite FilterBackend = "sqlite"

	// FilterRedis keeps fingerprints in a shared Redis set.
	FilterRedis FilterBackend = "redis"
)

// Config holds all scheduler configuration.
//
// Design decision: one flat struct instead of nested sub-configs. The
// option count is small, and a flat struct keeps YAML files and flag
// wiring trivial to read.
type Config struct {
	// JobDir is the job directory for persisted crawl state. Empty
	// disables disk persistence entirely: the scheduler runs
	// memory-only and cannot resume after interruption.
	JobDir string `yaml:"job_dir"`

	// Queue selects the priority-queue strategy.
	Queue QueueStrategy `yaml:"queue"`

	// MemoryQueue selects pop order for the in-memory queue.
	MemoryQueue QueueOrder `yaml:"memory_queue"`

	// DiskQueue selects pop order for the disk-backed queue.
	DiskQueue QueueOrder `yaml:"disk_queue"`

	// Filter selects the duplicate-filter backend.
	Filter FilterBackend `yaml:"filter"`

	// FilterDebug logs every filtered duplicate instead of only the
	// first, and makes unserializable-request warnings verbose.
	FilterDebug bool `yaml:"filter_debug"`

	// RedisAddr is the Redis server in "host:port" form. Required when
	// Filter is FilterRedis, ignored otherwise.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPrefix namespaces this crawl's keys in a shared Redis
	// instance.
	RedisPrefix string `yaml:"redis_prefix"`

	// RedisTTL expires the fingerprint set this long after the last
	// insertion. Zero keeps it forever.
	RedisTTL time.Duration `yaml:"redis_ttl"`

	// Verbose enables debug-level log output.
	Verbose bool `yaml:"verbose"`
}

// NewConfig creates a Config with default values: a plain FIFO
// scheduler with an in-memory duplicate filter and no job directory.
//
// Design decision: a constructor rather than zero values, because the
// defaults for the enum fields are non-zero strings and this function
// doubles as their documentation.
func NewConfig() *Config {
	return &Config{
		Queue:       StrategyPlain,
		MemoryQueue: OrderLIFO,
		DiskQueue:   OrderFIFO,
		Filter:      FilterMemory,
		RedisPrefix: AppName + ":",
	}
}

// XDGDataDir returns the XDG data directory for frontier, the default
// parent for job directories created by the CLI.
// On Linux: ~/.local/share/frontier
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks the configuration, returning the first problem found
// as a sentinel error. Called once after flag/file loading, before the
// scheduler opens.
func (c *Config) Validate() error {
	switch c.Queue {
	case StrategyPlain, StrategySlotPartitioned:
	default:
		return ErrUnknownQueueStrategy
	}

	switch c.MemoryQueue {
	case OrderFIFO, OrderLIFO:
	default:
		return ErrUnknownQueueOrder
	}

	switch c.DiskQueue {
	case OrderFIFO, OrderLIFO:
	default:
		return ErrUnknownQueueOrder
	}

	switch c.Filter {
	case FilterMemory, FilterSQLite, FilterRedis:
	default:
		return ErrUnknownFilterBackend
	}

	if c.Filter == FilterRedis && c.RedisAddr == "" {
		return ErrMissingRedisAddr
	}

	if c.Filter == FilterSQLite && c.JobDir == "" {
		return ErrFilterNeedsJobDir
	}

	if c.RedisTTL < 0 {
		return ErrInvalidRedisTTL
	}

	return nil
}
