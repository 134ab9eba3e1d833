package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glean-rss/skim/internal/glean"
	"github.com/glean-rss/skim/internal/prefs"
)

const sidebarWidth = 32

func (m Model) updateEntries(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.prevView = m.view
		m.view = viewHelp
		return m, nil

	case key.Matches(msg, m.keys.Activity):
		m.prevView = m.view
		m.view = viewActivity
		return m, m.readActivityCmd()

	case key.Matches(msg, m.keys.Bookmarks):
		m.prevView = m.view
		m.view = viewBookmarks
		m.bookmarkPage = 1
		m.bookmarkIndex = 0
		return m, m.fetchBookmarksCmd(1)

	case key.Matches(msg, m.keys.Theme):
		return m.cycleTheme(), nil

	case key.Matches(msg, m.keys.FocusNext):
		if m.focus == focusSidebar {
			m.focus = focusEntries
		} else {
			m.focus = focusSidebar
		}
		return m, nil

	case key.Matches(msg, m.keys.UnreadOnly):
		m.unreadOnly = !m.unreadOnly
		m.page = 1
		m.entryIndex = 0
		if err := prefs.Save(m.opts.PrefsPath, prefs.Prefs{Theme: m.theme.Name, UnreadOnly: m.unreadOnly}); err != nil {
			m.opts.Logger.Warn().Err(err).Msg("save prefs")
		}
		return m, m.fetchEntriesCmd(m.selectedFeedID(), 1, m.unreadOnly)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllReadCmd(m.selectedFeedID())

	case key.Matches(msg, m.keys.NextPage):
		if m.page*entriesPerPage < m.entriesTotal {
			m.page++
			m.entryIndex = 0
			return m, m.fetchEntriesCmd(m.selectedFeedID(), m.page, m.unreadOnly)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.page > 1 {
			m.page--
			m.entryIndex = 0
			return m, m.fetchEntriesCmd(m.selectedFeedID(), m.page, m.unreadOnly)
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.updateSidebar(msg)
	}
	return m.updateEntryList(msg)
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(m.snapshot.Subscriptions) + 1 // plus the All Feeds row
	prev := m.subIndex

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.subIndex < rows-1 {
			m.subIndex++
		}
	case key.Matches(msg, m.keys.Up):
		if m.subIndex > 0 {
			m.subIndex--
		}
	case key.Matches(msg, m.keys.Top):
		m.subIndex = 0
	case key.Matches(msg, m.keys.Bottom):
		m.subIndex = rows - 1
	case key.Matches(msg, m.keys.Open):
		m.focus = focusEntries
		return m, nil
	default:
		return m, nil
	}

	if m.subIndex != prev {
		m.page = 1
		m.entryIndex = 0
		return m, m.fetchEntriesCmd(m.selectedFeedID(), 1, m.unreadOnly)
	}
	return m, nil
}

func (m Model) updateEntryList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.entryIndex < len(m.entries)-1 {
			m.entryIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.entryIndex > 0 {
			m.entryIndex--
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.entryIndex = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		if len(m.entries) > 0 {
			m.entryIndex = len(m.entries) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Open):
		return m.openReading()

	case key.Matches(msg, m.keys.OpenBrowser):
		if entry := m.selectedEntry(); entry != nil && entry.URL != "" {
			return m, openBrowserCmd(entry.URL)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleRead):
		if entry := m.selectedEntry(); entry != nil {
			read := !entry.IsRead
			return m, m.updateEntryCmd(entry.ID, glean.EntryStateUpdate{IsRead: &read})
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleStar):
		if entry := m.selectedEntry(); entry != nil {
			liked := !entry.Liked()
			return m, m.updateEntryCmd(entry.ID, glean.EntryStateUpdate{IsLiked: &liked})
		}
		return m, nil

	case key.Matches(msg, m.keys.ReadLater):
		if entry := m.selectedEntry(); entry != nil {
			later := !entry.ReadLater
			return m, m.updateEntryCmd(entry.ID, glean.EntryStateUpdate{ReadLater: &later})
		}
		return m, nil
	}
	return m, nil
}

func (m Model) renderEntriesView() string {
	bodyHeight := m.height - 2
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	sidebar := m.renderSidebar(bodyHeight)
	list := m.renderEntryList(bodyHeight)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, list)
}

func (m Model) renderSidebar(height int) string {
	rows := make([]string, 0, len(m.snapshot.Subscriptions)+1)

	rows = append(rows, m.sidebarRow("All Feeds", m.snapshot.UnreadTotal(), m.subIndex == 0))
	for i, sub := range m.snapshot.Subscriptions {
		rows = append(rows, m.sidebarRow(sub.DisplayTitle(), sub.UnreadCount, m.subIndex == i+1))
	}

	body := strings.Join(rows, "\n")
	style := m.styles.PanelBorder
	if m.focus == focusSidebar {
		style = m.styles.PanelBorderFocus
	}
	return style.Width(sidebarWidth).Height(height - 2).Render(body)
}

func (m Model) sidebarRow(title string, unread int, selected bool) string {
	count := ""
	if unread > 0 {
		count = fmt.Sprintf("%d", unread)
	}
	row := alignRow(title, count, sidebarWidth-4)

	switch {
	case selected:
		return m.styles.Selected.Render(row)
	case unread > 0:
		return m.styles.Unread.Render(row)
	default:
		return m.styles.MutedText.Render(row)
	}
}

func (m Model) renderEntryList(height int) string {
	width := m.width - sidebarWidth - 4
	if width < 20 {
		width = 20
	}

	if len(m.entries) == 0 {
		empty := m.styles.MutedText.Render("no entries")
		if m.unreadOnly {
			empty = m.styles.MutedText.Render("no unread entries")
		}
		return m.entryPanelStyle().Width(width).Height(height - 2).Render(empty)
	}

	rows := make([]string, 0, len(m.entries))
	for i, entry := range m.entries {
		rows = append(rows, m.entryRow(entry, width-2, i == m.entryIndex))
	}
	return m.entryPanelStyle().Width(width).Height(height - 2).Render(strings.Join(rows, "\n"))
}

func (m Model) entryPanelStyle() lipgloss.Style {
	if m.focus == focusEntries {
		return m.styles.PanelBorderFocus
	}
	return m.styles.PanelBorder
}

func (m Model) entryRow(entry glean.Entry, width int, selected bool) string {
	marker := " "
	switch {
	case entry.Liked():
		marker = "★"
	case entry.ReadLater:
		marker = "»"
	case !entry.IsRead:
		marker = "●"
	}

	when := relativeTime(entry.ParsedPublishedAt())
	row := marker + " " + alignRow(entry.Title, when, width-3)

	switch {
	case selected:
		return m.styles.Selected.Render(row)
	case !entry.IsRead:
		return m.styles.Unread.Render(row)
	default:
		return m.styles.MutedText.Render(row)
	}
}
