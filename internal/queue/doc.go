// Package queue provides the storage layer of the crawl frontier:
// byte-oriented FIFO/LIFO queues backed by memory or disk, a codec that
// turns requests into bytes for persistence, and the adapter that
// composes the two into a request-level queue.
//
// Two queue interfaces exist on purpose:
//
//   - ByteQueue stores opaque byte records. Disk-backed implementations
//     persist records to a single append-only file per queue key.
//   - Queue stores *request.Request values. The memory implementation
//     holds requests directly (no serialization, so any request is
//     accepted); disk-backed queues are built by wrapping a ByteQueue
//     with a Codec via Serializable.
//
// Serialization failure is a routine, per-request condition rather than
// a bug: requests produced in-process may carry values (callbacks,
// channels) that cannot be written to disk. Such failures surface as
// ErrNotSerializable and the scheduler reroutes the request to memory.
package queue
