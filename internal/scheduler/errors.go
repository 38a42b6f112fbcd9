package scheduler

import "errors"

// Fatal open-time errors.
var (
	// ErrJobDirUnavailable is returned when the job directory (or its
	// requests.queue subdirectory) cannot be created. The crawl cannot
	// offer resumability, so it refuses to start rather than silently
	// degrading.
	ErrJobDirUnavailable = errors.New("job directory unavailable")

	// ErrIncompatibleState is returned when the persisted active.json
	// does not match the configured queue strategy, which happens when
	// a job directory is resumed under a different strategy than it was
	// started with. Failing fast beats silently wrong prioritization.
	ErrIncompatibleState = errors.New("persisted queue state does not match the configured queue strategy (was this job started with a different queue setting?)")
)
