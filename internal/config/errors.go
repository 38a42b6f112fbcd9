package config

import "errors"

// Configuration validation errors.
//
// Design decision: package-level sentinel errors rather than error
// values created inside Validate(). Callers can branch with errors.Is
// while the messages stay human-readable, and none of them needs
// dynamic values.
var (
	// ErrUnknownQueueStrategy is returned for a queue strategy other
	// than "plain" or "slot".
	ErrUnknownQueueStrategy = errors.New("unknown queue strategy: must be \"plain\" or \"slot\"")

	// ErrUnknownQueueOrder is returned for a queue order other than
	// "fifo" or "lifo".
	ErrUnknownQueueOrder = errors.New("unknown queue order: must be \"fifo\" or \"lifo\"")

	// ErrUnknownFilterBackend is returned for a duplicate-filter
	// backend other than "memory", "sqlite" or "redis".
	ErrUnknownFilterBackend = errors.New("unknown filter backend: must be \"memory\", \"sqlite\" or \"redis\"")

	// ErrMissingRedisAddr is returned when the redis filter backend is
	// selected without a server address.
	ErrMissingRedisAddr = errors.New("redis filter backend requires redis_addr")

	// ErrFilterNeedsJobDir is returned when the sqlite filter backend
	// is selected without a job directory to store the database in.
	ErrFilterNeedsJobDir = errors.New("sqlite filter backend requires a job directory")

	// ErrInvalidRedisTTL is returned when the redis TTL is negative.
	// Use zero to keep fingerprints forever.
	ErrInvalidRedisTTL = errors.New("invalid redis TTL: must be non-negative")
)
