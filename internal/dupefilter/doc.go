// Package dupefilter decides whether a request has been scheduled
// before, keyed by the request fingerprint (a stable hash of the
// normalized URL, method and body).
//
// Three backends cover the usual crawl shapes:
//
//   - Memory: an in-process set, optionally persisted line-by-line to a
//     requests.seen file in the job directory so paused crawls resume
//     without re-scheduling finished work.
//   - SQLite: a fingerprint table in the job directory for crawls whose
//     dedup state outgrows comfortable memory use.
//   - Redis: a shared set for dedup state that must outlive one process
//     or be visible to several of them.
//
// A filter instance is scoped to exactly one scheduler open/close
// cycle and is passed in explicitly at construction; there is no
// process-global filter state.
package dupefilter
