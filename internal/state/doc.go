// Package state provides thread-safe state management for skim.
//
// The Store is the coordination point between the background poller and the
// UI: the poller writes fresh subscription, folder, and entry data, and the
// UI reads immutable snapshots on its own schedule.
//
// Update has asymmetric error handling. A successful poll replaces the whole
// snapshot and resets the failure counter; a failed poll keeps the previous
// data, records the error, and increments ConsecutiveFailures so the UI can
// show an offline banner once the backend has missed several polls in a row.
//
// AuthRequired is set from the session's expiry callback when a token refresh
// fails terminally. Cached data survives so the user still sees their feeds
// behind the login prompt.
//
// Snapshot returns defensive copies: slices are cloned and the error is
// wrapped, so neither goroutine can mutate data the other is holding. The
// zero Store is ready to use.
package state
