// Package stats provides the counter surface the scheduler reports
// into: enqueue/dequeue totals split by storage tier, unserializable
// request counts, and duplicate-filter drops.
//
// Counters are fire-and-forget from the scheduler's point of view; a
// stats consumer (CLI, crawl monitor, tests) reads them via Snapshot.
package stats
