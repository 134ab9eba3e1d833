package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glean-rss/skim/internal/glean"
)

func (m Model) updateBookmarks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back, m.keys.Quit):
		m.view = viewEntries
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.bookmarkIndex < len(m.bookmarks)-1 {
			m.bookmarkIndex++
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.bookmarkIndex > 0 {
			m.bookmarkIndex--
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.bookmarkIndex = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		if len(m.bookmarks) > 0 {
			m.bookmarkIndex = len(m.bookmarks) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.bookmarkPage < m.bookmarkPages {
			m.bookmarkPage++
			m.bookmarkIndex = 0
			return m, m.fetchBookmarksCmd(m.bookmarkPage)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.bookmarkPage > 1 {
			m.bookmarkPage--
			m.bookmarkIndex = 0
			return m, m.fetchBookmarksCmd(m.bookmarkPage)
		}
		return m, nil

	case key.Matches(msg, m.keys.Open, m.keys.OpenBrowser):
		if bm := m.selectedBookmark(); bm != nil && bm.URL != "" {
			return m, openBrowserCmd(bm.URL)
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.prevView = m.view
		m.view = viewHelp
		return m, nil
	}
	return m, nil
}

func (m Model) selectedBookmark() *glean.Bookmark {
	if m.bookmarkIndex < 0 || m.bookmarkIndex >= len(m.bookmarks) {
		return nil
	}
	return &m.bookmarks[m.bookmarkIndex]
}

func (m Model) renderBookmarks() string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	if len(m.bookmarks) == 0 {
		return m.styles.PanelBorder.Width(width).Render(m.styles.MutedText.Render("no bookmarks"))
	}

	rows := make([]string, 0, len(m.bookmarks)+1)
	header := fmt.Sprintf("bookmarks  page %d/%d", m.bookmarkPage, m.bookmarkPages)
	rows = append(rows, m.styles.Unread.Render(header), "")

	for i, bm := range m.bookmarks {
		rows = append(rows, m.bookmarkRow(bm, width-2, i == m.bookmarkIndex))
	}
	return m.styles.PanelBorder.Width(width).Render(strings.Join(rows, "\n"))
}

func (m Model) bookmarkRow(bm glean.Bookmark, width int, selected bool) string {
	title := bm.Title
	if title == "" {
		title = bm.URL
	}

	tags := ""
	if len(bm.Tags) > 0 {
		names := make([]string, len(bm.Tags))
		for i, tag := range bm.Tags {
			names[i] = tag.Name
		}
		tags = " [" + strings.Join(names, ", ") + "]"
	}
	when := relativeTime(bm.ParsedCreatedAt())
	row := alignRow(title+tags, when, width-1)

	if selected {
		return m.styles.Selected.Render(row)
	}
	return m.styles.Text.Render(row)
}
