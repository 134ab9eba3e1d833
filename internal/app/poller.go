package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/glean-rss/skim/internal/glean"
	"github.com/glean-rss/skim/internal/state"
)

const (
	defaultPollInterval = 60 * time.Second
	maxBackoff          = 5 * time.Minute
	entriesPerPoll      = 50

	// Access tokens this close to their exp claim are rotated before the
	// fetch pass instead of letting every request eat a 401 round trip.
	refreshWindow = 2 * time.Minute
)

// StartPoller launches a background goroutine that refreshes the store at a
// fixed cadence, backing off while the backend is unreachable. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, client *glean.Client, tokens glean.TokenStore, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			refresh(ctx, store, client, tokens, logger)
			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}()
}

// refresh pulls the sidebar and entry data in one pass. It is a no-op while
// no credentials are stored or the session has expired; polling resumes once
// the user logs back in.
func refresh(ctx context.Context, store *state.Store, client *glean.Client, tokens glean.TokenStore, logger zerolog.Logger) {
	if store.Snapshot().AuthRequired {
		return
	}
	if pair, err := tokens.Load(); err != nil || pair.Empty() {
		return
	}
	if err := client.RefreshIfExpiring(ctx, refreshWindow); err != nil {
		recordPollError(store, logger, "token refresh", err)
		return
	}

	subs, err := client.ListSubscriptions(ctx, nil)
	if err != nil {
		recordPollError(store, logger, "feeds", err)
		return
	}
	folders, err := client.FolderTree(ctx, "feed")
	if err != nil {
		recordPollError(store, logger, "folders", err)
		return
	}
	tags, err := client.ListTags(ctx)
	if err != nil {
		recordPollError(store, logger, "tags", err)
		return
	}
	entries, err := client.ListEntries(ctx, glean.EntryQuery{Page: 1, PerPage: entriesPerPoll})
	if err != nil {
		recordPollError(store, logger, "entries", err)
		return
	}
	store.Update(subs, folders, tags, entries, nil)
}

func recordPollError(store *state.Store, logger zerolog.Logger, what string, err error) {
	// Session expiry is surfaced through the auth flag, not the offline banner.
	if errors.Is(err, glean.ErrSessionExpired) {
		return
	}
	store.Update(nil, nil, nil, nil, err)
	logger.Warn().Err(err).Str("resource", what).Msg("poll failed")
}

// calculateBackoff doubles the base interval per consecutive failure, capped
// at maxBackoff, so a down backend is not hammered on every tick.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
