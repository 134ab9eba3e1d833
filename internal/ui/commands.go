package ui

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glean-rss/skim/internal/glean"
	"github.com/glean-rss/skim/internal/logtail"
)

const activityLines = 200

// Messages produced by background commands.

type tickMsg time.Time

type loginDoneMsg struct {
	resp *glean.LoginResponse
	err  error
}

type entriesMsg struct {
	feedID string
	page   int
	list   glean.EntryList
	err    error
}

type entryUpdatedMsg struct {
	entry glean.Entry
	err   error
}

type markAllDoneMsg struct {
	feedID string
	err    error
}

type bookmarksMsg struct {
	page int
	list glean.BookmarkList
	err  error
}

type activityMsg struct {
	lines []string
	err   error
}

type browserOpenedMsg struct {
	err error
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	client, ctx := m.opts.Client, m.opts.Context
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		resp, err := client.Login(reqCtx, email, password)
		return loginDoneMsg{resp: resp, err: err}
	}
}

func (m Model) fetchEntriesCmd(feedID string, page int, unreadOnly bool) tea.Cmd {
	client, ctx := m.opts.Client, m.opts.Context
	return func() tea.Msg {
		query := glean.EntryQuery{FeedID: feedID, Page: page, PerPage: entriesPerPage}
		if unreadOnly {
			isRead := false
			query.IsRead = &isRead
		}
		list, err := client.ListEntries(ctx, query)
		if err != nil {
			return entriesMsg{feedID: feedID, page: page, err: err}
		}
		return entriesMsg{feedID: feedID, page: page, list: *list}
	}
}

func (m Model) updateEntryCmd(entryID string, update glean.EntryStateUpdate) tea.Cmd {
	client, ctx := m.opts.Client, m.opts.Context
	return func() tea.Msg {
		entry, err := client.UpdateEntryState(ctx, entryID, update)
		if err != nil {
			return entryUpdatedMsg{err: err}
		}
		return entryUpdatedMsg{entry: *entry}
	}
}

func (m Model) markAllReadCmd(feedID string) tea.Cmd {
	client, ctx := m.opts.Client, m.opts.Context
	return func() tea.Msg {
		err := client.MarkAllRead(ctx, feedID)
		return markAllDoneMsg{feedID: feedID, err: err}
	}
}

func (m Model) fetchBookmarksCmd(page int) tea.Cmd {
	client, ctx := m.opts.Client, m.opts.Context
	return func() tea.Msg {
		list, err := client.ListBookmarks(ctx, glean.BookmarkQuery{Page: page, PerPage: entriesPerPage})
		if err != nil {
			return bookmarksMsg{page: page, err: err}
		}
		return bookmarksMsg{page: page, list: *list}
	}
}

func openBrowserCmd(rawURL string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", rawURL)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
		default:
			cmd = exec.Command("xdg-open", rawURL)
		}
		return browserOpenedMsg{err: cmd.Start()}
	}
}

func (m Model) readActivityCmd() tea.Cmd {
	path := m.opts.LogFile
	return func() tea.Msg {
		lines, err := logtail.Read(path, activityLines)
		for i, line := range lines {
			lines[i] = logtail.Render(line)
		}
		return activityMsg{lines: lines, err: err}
	}
}
