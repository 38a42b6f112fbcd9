// Package main provides the entry point for the frontier CLI.
//
// frontier manages resumable crawl frontiers: priority queues of
// requests persisted in job directories, with duplicate suppression.
//
// Usage:
//
//	frontier seed --job-dir ./job http://example.com/
//	frontier inspect ./job
//
// See --help for all available options.
package main

// main is the entry point for frontier.
func main() {
	Execute()
}
