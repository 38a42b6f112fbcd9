// Package config holds the scheduler's configuration surface: queue
// strategy and ordering, job-directory location, and duplicate-filter
// backend selection.
//
// Configuration starts from defaults, is optionally overlaid with a
// YAML settings file, validated once up front, and then passed through
// the application via dependency injection. There is no global
// configuration state.
package config
