package app

import (
	"context"
	"fmt"
	"time"

	"github.com/glean-rss/skim/internal/config"
	"github.com/glean-rss/skim/internal/glean"
	"github.com/glean-rss/skim/internal/logging"
	"github.com/glean-rss/skim/internal/prefs"
	"github.com/glean-rss/skim/internal/state"
	"github.com/glean-rss/skim/internal/ui"
)

// Options configure the skim application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/skim/prefs.toml
	PollEvery  int    // seconds; zero uses default
}

// Run boots the skim TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := logging.New(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	store := &state.Store{}
	tokens := glean.NewFileTokenStore(cfg.TokensPath)

	session, err := glean.NewSession(glean.SessionOptions{
		Origin:   glean.StaticOrigin(cfg.Server),
		BasePath: cfg.APIPrefix,
		Timeout:  cfg.Timeout,
		Tokens:   tokens,
		Logger:   &logger,
		OnSessionExpired: func() {
			store.SetAuthRequired(true)
		},
	})
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	client := glean.NewClient(session)

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	// The poller's first pass populates the store; the UI starts on its
	// cached snapshot and fills in on the next tick.
	StartPoller(ctx, store, client, tokens, interval, logger)

	uiOpts := ui.Options{
		Context:    ctx,
		Client:     client,
		Store:      store,
		Tokens:     tokens,
		PollTick:   interval,
		ThemeName:  userPrefs.Theme,
		UnreadOnly: userPrefs.UnreadOnly,
		PrefsPath:  opts.PrefsPath,
		LogFile:    cfg.LogFile,
		Logger:     logger,
	}
	return ui.Run(uiOpts)
}
