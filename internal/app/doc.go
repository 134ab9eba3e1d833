// Package app wires skim's pieces together and owns the process lifecycle.
//
// Run loads the config and preferences, opens the log file, builds the
// authenticated session and client, and starts two long-lived activities:
// the background poller that keeps the state store fresh, and the Bubble Tea
// UI that renders it. Both stop when the context is cancelled.
//
// The poller is deliberately quiet about auth. While no credentials are on
// disk, or after the session has expired, it skips fetching entirely; the UI
// shows the login view, and polling resumes on the next tick after a
// successful login stores a fresh token pair. Network failures back off
// exponentially per consecutive failure so a stopped backend is probed
// gently.
package app
