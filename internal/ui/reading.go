package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glean-rss/skim/internal/glean"
)

func (m Model) openReading() (tea.Model, tea.Cmd) {
	entry := m.selectedEntry()
	if entry == nil {
		return m, nil
	}

	m.prevView = m.view
	m.view = viewReading
	m.reader.SetContent(m.renderEntryBody(*entry))
	m.reader.GotoTop()

	// Opening an entry marks it read, matching the web frontend.
	if !entry.IsRead {
		read := true
		return m, m.updateEntryCmd(entry.ID, glean.EntryStateUpdate{IsRead: &read})
	}
	return m, nil
}

func (m Model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back, m.keys.Quit):
		m.view = viewEntries
		return m, nil

	case key.Matches(msg, m.keys.OpenBrowser):
		if entry := m.selectedEntry(); entry != nil && entry.URL != "" {
			return m, openBrowserCmd(entry.URL)
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

	var cmd tea.Cmd
	m.reader, cmd = m.reader.Update(msg)
	return m, cmd
}

func (m Model) renderEntryBody(entry glean.Entry) string {
	var sb strings.Builder

	sb.WriteString(m.styles.Unread.Render(entry.Title))
	sb.WriteString("\n")

	meta := make([]string, 0, 3)
	if entry.Author != "" {
		meta = append(meta, entry.Author)
	}
	if ts := entry.ParsedPublishedAt(); !ts.IsZero() {
		meta = append(meta, ts.Format("2006-01-02 15:04"))
	}
	if entry.URL != "" {
		meta = append(meta, entry.URL)
	}
	if len(meta) > 0 {
		sb.WriteString(m.styles.MutedText.Render(strings.Join(meta, "  ")))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	content := entry.Content
	if content == "" {
		content = entry.Summary
	}
	text := stripHTML(content)
	if text == "" {
		text = "(no content)"
	}
	sb.WriteString(m.styles.Text.Render(text))

	return sb.String()
}

func (m Model) renderReading() string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	height := m.height - 4
	if height < 3 {
		height = 3
	}
	m.reader.Width = width
	m.reader.Height = height
	return m.styles.PanelBorder.Width(width).Render(m.reader.View())
}
