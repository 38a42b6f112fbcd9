// Package inspect summarizes the on-disk state of job directories
// without opening them for crawling: the queue strategy a directory was
// written under, its pending buckets or slots, record-file counts and
// sizes, and the duplicate-filter artifacts present.
//
// Inspection is read-only. It never locks, rewrites, or compacts
// anything, so it is safe to run against the job directory of a crawl
// that is merely paused.
package inspect
