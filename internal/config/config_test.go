package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, ".config", "skim", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != defaultServer {
		t.Fatalf("Server = %q, want %q", cfg.Server, defaultServer)
	}
	if cfg.APIPrefix != defaultAPIPrefix {
		t.Fatalf("APIPrefix = %q, want %q", cfg.APIPrefix, defaultAPIPrefix)
	}
	if cfg.Timeout != defaultTimeoutMS*time.Millisecond {
		t.Fatalf("Timeout = %v, want %v", cfg.Timeout, defaultTimeoutMS*time.Millisecond)
	}
	if cfg.TokensPath != filepath.Join(filepath.Dir(path), "tokens.json") {
		t.Fatalf("TokensPath = %q, want it beside the config file", cfg.TokensPath)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server = "  https://reader.example.com  "
api_prefix = "/api/v1"
timeout_ms = 5000
log_file = "~/logs/skim.log"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != "https://reader.example.com" {
		t.Fatalf("Server = %q, want trimmed origin", cfg.Server)
	}
	if cfg.APIPrefix != "/api/v1" {
		t.Fatalf("APIPrefix = %q, want /api/v1", cfg.APIPrefix)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.LogFile != filepath.Join(home, "logs", "skim.log") {
		t.Fatalf("LogFile = %q, want tilde expanded under HOME", cfg.LogFile)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
server = "   "
api_prefix = ""
timeout_ms = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server != defaultServer {
		t.Fatalf("Server = %q, want %q", cfg.Server, defaultServer)
	}
	if cfg.APIPrefix != defaultAPIPrefix {
		t.Fatalf("APIPrefix = %q, want %q", cfg.APIPrefix, defaultAPIPrefix)
	}
	if cfg.Timeout != defaultTimeoutMS*time.Millisecond {
		t.Fatalf("Timeout = %v, want default", cfg.Timeout)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "a", "b") {
		t.Fatalf("expandPath = %q, want %q", got, filepath.Join(home, "a", "b"))
	}

	if _, err := expandPath("   "); err == nil {
		t.Fatal("expandPath returned nil error for blank path, want error")
	}
}
