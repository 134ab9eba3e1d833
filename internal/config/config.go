package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything skim needs to reach a glean backend.
type Config struct {
	Server     string        // backend origin, scheme://host[:port]
	APIPrefix  string        // request path prefix
	Timeout    time.Duration // per-request timeout
	LogFile    string        // skim's own log file; empty disables logging
	TokensPath string        // credential file, derived from the config dir
}

const (
	defaultConfigPath = "~/.config/skim/config.toml"
	defaultServer     = "http://127.0.0.1:8000"
	defaultAPIPrefix  = "/api"
	defaultTimeoutMS  = 30000
	defaultLogFile    = "~/.local/share/skim/skim.log"
)

// Load locates and parses the skim config, falling back to defaults when the
// file is missing. The backend origin is not validated here; the session
// validates it on first use.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server:    defaultServer,
		APIPrefix: defaultAPIPrefix,
		Timeout:   defaultTimeoutMS * time.Millisecond,
		LogFile:   mustExpand(defaultLogFile),
	}
	cfg.TokensPath = filepath.Join(filepath.Dir(resolved), "tokens.json")

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Server    string `toml:"server"`
		APIPrefix string `toml:"api_prefix"`
		TimeoutMS int    `toml:"timeout_ms"`
		LogFile   string `toml:"log_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if server := strings.TrimSpace(raw.Server); server != "" {
		cfg.Server = server
	}
	if prefix := strings.TrimSpace(raw.APIPrefix); prefix != "" {
		cfg.APIPrefix = prefix
	}
	if raw.TimeoutMS > 0 {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
