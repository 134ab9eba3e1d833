// Package logging sets up skim's structured log output.
//
// The TUI owns the terminal, so logs go to a file instead of stderr. An
// empty path yields a no-op logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// New opens the log file at path and returns a logger writing JSON lines to
// it, plus a close func for shutdown. An empty path disables logging.
func New(path string) (zerolog.Logger, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return zerolog.Nop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	logger := zerolog.New(file).With().Timestamp().Logger()
	return logger, file.Close, nil
}
