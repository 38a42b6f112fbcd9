// Package pqueue implements the frontier's priority containers.
//
// PriorityQueue buckets requests by an integer key and always pops from
// the lowest extant key; the scheduler pushes with negated request
// priority so that higher declared priority pops first. Within one
// bucket order is FIFO (or LIFO, if a LIFO queue factory is injected).
// There is deliberately no starvation safeguard across buckets: a flood
// of high-priority requests starves lower buckets, which is the wanted
// behavior for a crawl frontier.
//
// DownloaderAwarePriorityQueue partitions buckets per download slot
// (normally one slot per host) and selects the slot the downloader is
// least busy with, so a single large site cannot monopolize download
// capacity while other hosts sit idle. Busyness is tracked through two
// external downloader lifecycle events: "request reached downloader"
// and "response downloaded".
//
// Both containers are single-threaded by design; the one control loop
// that owns the scheduler is the only mutator.
package pqueue
