package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/rs/zerolog"

	"github.com/glean-rss/skim/internal/glean"
	"github.com/glean-rss/skim/internal/prefs"
	"github.com/glean-rss/skim/internal/state"
)

// Options configure the UI runtime.
type Options struct {
	Context    context.Context
	Client     *glean.Client
	Store      *state.Store
	Tokens     glean.TokenStore
	PollTick   time.Duration
	ThemeName  string
	UnreadOnly bool
	PrefsPath  string
	LogFile    string
	Logger     zerolog.Logger
}

const (
	entriesPerPage    = 50
	defaultUIInterval = time.Second
)

type view int

const (
	viewLogin view = iota
	viewEntries
	viewReading
	viewBookmarks
	viewActivity
	viewHelp
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusEntries
)

// Model is the root Bubble Tea model for skim.
type Model struct {
	opts   Options
	keys   keyMap
	theme  Theme
	styles Styles

	width  int
	height int

	view     view
	prevView view
	focus    focusArea

	snapshot state.Snapshot

	// Entry list state. subIndex 0 is the synthetic "All Feeds" row; higher
	// values index snapshot.Subscriptions[subIndex-1].
	subIndex     int
	entries      []glean.Entry
	entriesTotal int
	page         int
	entryIndex   int
	unreadOnly   bool

	login    loginModel
	reader   viewport.Model
	activity []string

	bookmarks     []glean.Bookmark
	bookmarkIndex int
	bookmarkPage  int
	bookmarkPages int

	statusMsg string
	errMsg    string
}

// Run blocks until the context is cancelled or the user quits.
func Run(opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("ui requires a data store")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	model := newModel(opts)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(opts.Context),
	)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		// Context cancellation is a normal shutdown.
		return nil
	}
	return err
}

func newModel(opts Options) Model {
	theme := GetTheme(opts.ThemeName)
	m := Model{
		opts:       opts,
		keys:       defaultKeyMap(),
		theme:      theme,
		styles:     theme.Styles(),
		view:       viewEntries,
		focus:      focusEntries,
		page:       1,
		unreadOnly: opts.UnreadOnly,
		login:      newLoginModel(),
		reader:     viewport.New(0, 0),
	}

	m.snapshot = opts.Store.Snapshot()
	m.entries = m.snapshot.Entries
	m.entriesTotal = m.snapshot.EntriesTotal

	if m.needsLogin() {
		m.view = viewLogin
		m.login.focusEmail()
	}
	return m
}

func (m Model) needsLogin() bool {
	if m.snapshot.AuthRequired {
		return true
	}
	if m.opts.Tokens == nil {
		return false
	}
	pair, err := m.opts.Tokens.Load()
	return err != nil || pair.Empty()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(defaultUIInterval)}
	if m.view == viewLogin {
		cmds = append(cmds, m.login.init())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reader.Width = msg.Width - 4
		m.reader.Height = msg.Height - 6
		return m, nil

	case tickMsg:
		m.refreshFromStore()
		return m, tick(defaultUIInterval)

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case entriesMsg:
		return m.handleEntries(msg)

	case bookmarksMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("load bookmarks: %v", msg.err)
			return m, nil
		}
		m.bookmarks = msg.list.Items
		m.bookmarkPage = msg.list.Page
		m.bookmarkPages = msg.list.Pages
		if m.bookmarkPages < 1 {
			m.bookmarkPages = 1
		}
		if m.bookmarkIndex >= len(m.bookmarks) {
			m.bookmarkIndex = 0
		}
		m.errMsg = ""
		return m, nil

	case browserOpenedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("open browser: %v", msg.err)
		}
		return m, nil

	case entryUpdatedMsg:
		return m.handleEntryUpdated(msg)

	case markAllDoneMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("mark all read: %v", msg.err)
			return m, nil
		}
		m.statusMsg = "marked all read"
		return m, m.fetchEntriesCmd(m.selectedFeedID(), m.page, m.unreadOnly)

	case activityMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("read log: %v", msg.err)
			return m, nil
		}
		m.activity = msg.lines
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// refreshFromStore folds the poller's latest snapshot into the model. The
// unfiltered first page tracks the store; filtered views keep their own
// fetched entries.
func (m *Model) refreshFromStore() {
	m.snapshot = m.opts.Store.Snapshot()
	if m.snapshot.AuthRequired && m.view != viewLogin {
		m.prevView = m.view
		m.view = viewLogin
		m.login = newLoginModel()
		m.login.focusEmail()
		return
	}
	if m.subIndex == 0 && m.page == 1 && !m.unreadOnly {
		m.entries = m.snapshot.Entries
		m.entriesTotal = m.snapshot.EntriesTotal
		m.clampEntrySelection()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The login form owns the keyboard while visible, except for quit.
	if m.view == viewLogin {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.updateLogin(msg)
	}

	switch m.view {
	case viewReading:
		return m.updateReading(msg)
	case viewBookmarks:
		return m.updateBookmarks(msg)
	case viewActivity, viewHelp:
		if key.Matches(msg, m.keys.Back, m.keys.Quit) {
			m.view = m.prevView
			return m, nil
		}
		return m, nil
	}
	return m.updateEntries(msg)
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.errMsg = loginErrorText(msg.err)
		return m, nil
	}
	m.opts.Store.SetAuthRequired(false)
	m.opts.Logger.Info().Str("user", msg.resp.User.Email).Msg("logged in")
	m.view = viewEntries
	m.statusMsg = "signed in as " + msg.resp.User.Email
	m.page = 1
	return m, m.fetchEntriesCmd(m.selectedFeedID(), 1, m.unreadOnly)
}

func (m Model) handleEntries(msg entriesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("load entries: %v", msg.err)
		return m, nil
	}
	// Ignore stale responses after the selection moved on.
	if msg.feedID != m.selectedFeedID() || msg.page != m.page {
		return m, nil
	}
	m.entries = msg.list.Items
	m.entriesTotal = msg.list.Total
	m.errMsg = ""
	m.clampEntrySelection()
	return m, nil
}

func (m Model) handleEntryUpdated(msg entryUpdatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("update entry: %v", msg.err)
		return m, nil
	}
	for i := range m.entries {
		if m.entries[i].ID == msg.entry.ID {
			m.entries[i] = msg.entry
			break
		}
	}
	m.errMsg = ""
	return m, nil
}

func (m *Model) clampEntrySelection() {
	if m.entryIndex >= len(m.entries) {
		m.entryIndex = len(m.entries) - 1
	}
	if m.entryIndex < 0 {
		m.entryIndex = 0
	}
}

func (m Model) selectedFeedID() string {
	if m.subIndex <= 0 || m.subIndex > len(m.snapshot.Subscriptions) {
		return ""
	}
	return m.snapshot.Subscriptions[m.subIndex-1].Feed.ID
}

func (m Model) selectedEntry() *glean.Entry {
	if m.entryIndex < 0 || m.entryIndex >= len(m.entries) {
		return nil
	}
	return &m.entries[m.entryIndex]
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var body string
	switch m.view {
	case viewLogin:
		body = m.renderLogin()
	case viewReading:
		body = m.renderReading()
	case viewBookmarks:
		body = m.renderBookmarks()
	case viewActivity:
		body = m.renderActivity()
	case viewHelp:
		body = m.renderHelp()
	default:
		body = m.renderEntriesView()
	}

	return m.renderHeader() + "\n" + body + "\n" + m.renderFooter()
}

func (m Model) cycleTheme() Model {
	next := NextTheme(m.theme.Name)
	m.theme = GetTheme(next)
	m.styles = m.theme.Styles()
	m.statusMsg = "theme: " + next
	if err := prefs.Save(m.opts.PrefsPath, prefs.Prefs{Theme: next, UnreadOnly: m.unreadOnly}); err != nil {
		m.opts.Logger.Warn().Err(err).Msg("save prefs")
	}
	return m
}
