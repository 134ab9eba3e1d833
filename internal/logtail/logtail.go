// Package logtail reads the tail of skim's log file for the activity view.
//
// The log is zerolog JSON, one event per line. Render flattens an event into
// a single readable line so the activity panel does not show raw JSON.
package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Render flattens one zerolog JSON line into "15:04:05 WRN message k=v"
// form. Lines that are not JSON events pass through unchanged.
func Render(line string) string {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil || len(fields) == 0 {
		return line
	}

	var sb strings.Builder
	if ts, ok := fields["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			sb.WriteString(t.Format("15:04:05"))
			sb.WriteByte(' ')
		}
		delete(fields, "time")
	}
	if lvl, ok := fields["level"].(string); ok {
		sb.WriteString(levelTag(lvl))
		sb.WriteByte(' ')
		delete(fields, "level")
	}
	if msg, ok := fields["message"].(string); ok {
		sb.WriteString(msg)
		delete(fields, "message")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	return strings.TrimSpace(sb.String())
}

func levelTag(level string) string {
	switch level {
	case "trace":
		return "TRC"
	case "debug":
		return "DBG"
	case "info":
		return "INF"
	case "warn":
		return "WRN"
	case "error":
		return "ERR"
	case "fatal":
		return "FTL"
	default:
		return strings.ToUpper(level)
	}
}
