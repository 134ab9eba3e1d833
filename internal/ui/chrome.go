package ui

import (
	"fmt"
	"strings"
)

// renderHeader renders the top status bar.
func (m Model) renderHeader() string {
	parts := []string{m.styles.Logo.Render("skim")}

	switch {
	case m.view == viewLogin:
		parts = append(parts, m.styles.WarningText.Render("sign in required"))
	case m.snapshot.IsOffline():
		parts = append(parts, m.styles.DangerText.Render("● OFFLINE"))
	default:
		parts = append(parts, m.styles.SuccessText.Render("● ON"))
	}

	if m.view != viewLogin {
		unread := m.snapshot.UnreadTotal()
		parts = append(parts,
			m.styles.MutedText.Render("Unread:")+" "+m.styles.Text.Render(fmt.Sprintf("%d", unread)))

		if m.entriesTotal > entriesPerPage {
			pages := (m.entriesTotal + entriesPerPage - 1) / entriesPerPage
			parts = append(parts,
				m.styles.MutedText.Render(fmt.Sprintf("Page %d/%d", m.page, pages)))
		}
		if m.unreadOnly {
			parts = append(parts, m.styles.AccentText.Render("unread only"))
		}
	}

	if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts, m.styles.MutedText.Render(relativeTime(m.snapshot.LastUpdated)))
	}

	if m.snapshot.LastError != nil {
		errText := truncate(m.snapshot.LastError.Error(), 60)
		parts = append(parts,
			m.styles.DangerText.Render("ERROR")+" "+m.styles.DangerText.Render(errText))
	}

	return m.styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderFooter renders the command hints bar.
func (m Model) renderFooter() string {
	if m.errMsg != "" {
		return m.styles.Footer.Width(m.width).Render(m.styles.DangerText.Render(m.errMsg))
	}

	type hint struct{ key, desc string }
	var hints []hint

	switch m.view {
	case viewLogin:
		hints = []hint{
			{"tab", "switch field"},
			{"enter", "submit"},
			{"ctrl+c", "quit"},
		}
	case viewReading:
		hints = []hint{
			{"j/k", "scroll"},
			{"o", "browser"},
			{"s", "star"},
			{"w", "read later"},
			{"esc", "back"},
		}
	case viewBookmarks:
		hints = []hint{
			{"j/k", "navigate"},
			{"enter/o", "browser"},
			{"n/p", "page"},
			{"esc", "back"},
		}
	case viewActivity, viewHelp:
		hints = []hint{
			{"esc", "back"},
			{"q", "quit"},
		}
	default:
		hints = []hint{
			{"j/k", "navigate"},
			{"enter", "read"},
			{"tab", "focus"},
			{"r", "read/unread"},
			{"s", "star"},
			{"u", "unread only"},
			{"b", "bookmarks"},
			{"A", "mark all"},
			{"?", "more"},
		}
	}

	segments := make([]string, 0, len(hints)+2)
	for _, h := range hints {
		segments = append(segments,
			m.styles.AccentText.Render(h.key)+m.styles.FaintText.Render(":")+m.styles.MutedText.Render(h.desc))
	}
	if m.statusMsg != "" {
		segments = append(segments, m.styles.SuccessText.Render(m.statusMsg))
	}
	segments = append(segments,
		m.styles.AccentText.Render("T")+m.styles.FaintText.Render(":")+m.styles.FaintText.Render(m.theme.Name))

	return m.styles.Footer.Width(m.width).Render(strings.Join(segments, "  "))
}

func (m Model) renderActivity() string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	if len(m.activity) == 0 {
		return m.styles.PanelBorder.Width(width).Render(m.styles.MutedText.Render("no activity logged"))
	}

	visible := m.height - 4
	if visible < 1 {
		visible = 1
	}
	lines := m.activity
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = m.styles.MutedText.Render(truncate(line, width-2))
	}
	return m.styles.PanelBorder.Width(width).Render(strings.Join(rendered, "\n"))
}

func (m Model) renderHelp() string {
	rows := []struct{ key, desc string }{
		{"j/k, arrows", "navigate lists"},
		{"g / G", "jump to top / bottom"},
		{"tab", "switch between sidebar and entries"},
		{"enter", "open entry, mark it read"},
		{"esc", "back to the entry list"},
		{"r", "toggle read state"},
		{"s", "star / unstar"},
		{"w", "toggle read later"},
		{"o", "open in browser"},
		{"u", "show unread entries only"},
		{"b", "bookmarks"},
		{"A", "mark all read in the current feed"},
		{"n / p", "next / previous page"},
		{"L", "activity log"},
		{"T", "cycle theme (" + strings.Join(ThemeNames(), ", ") + ")"},
		{"?", "this help"},
		{"q, ctrl+c", "quit"},
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Unread.Render("skim keys"))
	sb.WriteString("\n\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s  %s\n",
			m.styles.AccentText.Render(fmt.Sprintf("%-12s", r.key)),
			m.styles.MutedText.Render(r.desc)))
	}

	width := m.width - 2
	if width < 20 {
		width = 20
	}
	return m.styles.PanelBorder.Width(width).Padding(1, 2).Render(sb.String())
}
