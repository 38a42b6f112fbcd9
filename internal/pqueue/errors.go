package pqueue

import "errors"

// Accounting errors.
//
// Design decision: underflow is a hard error rather than a clamped
// no-op. A decrement without a matching increment means the downloader
// lifecycle signals are duplicated or out of order, and papering over
// that would silently skew slot selection for the rest of the crawl.
var (
	// ErrInFlightUnderflow is returned when a "response downloaded"
	// event arrives for a slot whose in-flight counter is already zero
	// or missing.
	ErrInFlightUnderflow = errors.New("in-flight counter underflow: response event without matching request event")
)
