// Package ui implements skim's terminal interface with Bubble Tea.
//
// The root Model dispatches between a handful of views: the login form, the
// two-pane feeds/entries browser, the reading viewport, the bookmark list,
// the activity log, and a help overlay. Rendering is pure lipgloss; colors come from a small
// theme registry the user can cycle at runtime.
//
// Data flows one way. A background poller keeps the shared state store
// fresh; the model re-reads a snapshot on every UI tick and folds it in.
// User actions (toggling read state, starring, marking all read) run as
// Bubble Tea commands against the API client and patch the local entry list
// when the response lands, so the interface never blocks on the network.
//
// When the session expires mid-flight the store's auth flag flips and the
// model drops back to the login view on the next tick, keeping whatever
// cached entries it had behind the form.
package ui
