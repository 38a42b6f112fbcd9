// Package request defines the unit of work that flows through the
// scheduling subsystem: a Request with a URL, method, body, priority,
// and a typed metadata bag.
//
// From the scheduler's point of view a Request is a value-like object.
// The scheduler never mutates the URL or the fingerprint; it only reads
// and writes the specific Meta keys it owns (the download slot and the
// queue ownership marker).
//
// Design decision: metadata is an explicit ordered, string-keyed bag
// with typed accessors rather than a bare map[string]any. Accessors
// return a typed error when a key holds a value of an unexpected type,
// so schema drift surfaces as a clear failure instead of a silent
// zero-value default.
package request
