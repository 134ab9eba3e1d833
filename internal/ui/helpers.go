package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockPattern  = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|blockquote|tr)[^>]*>`)
	spacePattern  = regexp.MustCompile(`[ \t]+`)
	multiNewline  = regexp.MustCompile(`\n{3,}`)
)

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&mdash;", "-",
	"&ndash;", "-",
	"&hellip;", "...",
)

// stripHTML reduces feed HTML to readable plain text. Block-level tags become
// newlines so paragraphs survive; everything else is dropped.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = scriptPattern.ReplaceAllString(s, "")
	s = blockPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = entities.Replace(s)
	s = spacePattern.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// truncate shortens a string to max terminal cells with ellipsis. Widths are
// display cells, not bytes, so CJK titles truncate cleanly.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	if max <= 3 {
		return runewidth.Truncate(s, max, "")
	}
	return runewidth.Truncate(s, max, "...")
}

// alignRow left-aligns left and right-aligns right within width cells,
// truncating left to keep at least one cell between them.
func alignRow(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	if right == "" {
		return runewidth.FillRight(truncate(left, width), width)
	}
	rw := runewidth.StringWidth(right)
	left = truncate(left, width-rw-1)
	gap := width - runewidth.StringWidth(left) - rw
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// relativeTime renders a timestamp as "now", "14m", "3h", "2d", or the date.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := time.Since(t)
	switch {
	case since < time.Minute:
		return "now"
	case since < time.Hour:
		return fmt.Sprintf("%dm", int(since.Minutes()))
	case since < 24*time.Hour:
		return fmt.Sprintf("%dh", int(since.Hours()))
	case since < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(since.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
