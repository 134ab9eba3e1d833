package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/glean-rss/skim/internal/glean"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Subscriptions       []glean.Subscription
	Folders             []glean.FolderNode
	Tags                []glean.TagWithCounts
	Entries             []glean.Entry
	EntriesTotal        int
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
	AuthRequired        bool
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// UnreadTotal sums unread counts across all subscriptions.
func (s Snapshot) UnreadTotal() int {
	total := 0
	for _, sub := range s.Subscriptions {
		total += sub.UnreadCount
	}
	return total
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(subs []glean.Subscription, folders []glean.FolderNode, tags []glean.TagWithCounts, entries *glean.EntryList, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Subscriptions = cloneSlice(subs)
	s.snapshot.Folders = cloneSlice(folders)
	s.snapshot.Tags = cloneSlice(tags)
	if entries != nil {
		s.snapshot.Entries = cloneSlice(entries.Items)
		s.snapshot.EntriesTotal = entries.Total
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// SetAuthRequired records whether the session has expired and the user must
// log in again. Clearing the flag does not touch the cached data.
func (s *Store) SetAuthRequired(required bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.AuthRequired = required
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Subscriptions = cloneSlice(s.snapshot.Subscriptions)
	snap.Folders = cloneSlice(s.snapshot.Folders)
	snap.Tags = cloneSlice(s.snapshot.Tags)
	snap.Entries = cloneSlice(s.snapshot.Entries)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
