// Package scheduler implements the crawl frontier's top level: the
// component that accepts discovered requests, drops duplicates, stores
// the rest across a two-tier memory/disk queue, and hands out the next
// request to fetch.
//
// Tiering policy: requests go to the disk queue when a job directory is
// configured, falling back to memory for requests that cannot be
// serialized. Dequeue drains memory first; in-memory requests are the
// most recently discovered (children of the page being processed) and
// serving them avoids disk latency on the hot path, while disk-backed
// entries represent overflow and resumed state.
//
// The scheduler is single-threaded cooperative: one control loop
// alternates EnqueueRequest (as extraction discovers links) and
// NextRequest (as downloader capacity frees up). Nothing here blocks on
// the network; the only I/O is local queue files and the job-directory
// sidecar.
package scheduler
