package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hero.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Sync.PollInterval != 2*time.Second {
		t.Errorf("Expected 2s poll interval, got %v", cfg.Sync.PollInterval)
	}
	if cfg.Sync.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s request timeout, got %v", cfg.Sync.RequestTimeout)
	}
	if cfg.Ledger.Mode != LedgerLocal {
		t.Errorf("Expected local ledger, got %s", cfg.Ledger.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9090"

[sync]
poll_interval = "5s"
sequence_reads = true

[ledger]
mode = "sui"
package_id = "0x2a"
dev_accounts = ["0x1", "0x2"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Sync.PollInterval != 5*time.Second || !cfg.Sync.SequenceReads {
		t.Errorf("Unexpected sync config %+v", cfg.Sync)
	}
	if cfg.Sync.RequestTimeout != 30*time.Second {
		t.Error("Expected unset keys to keep defaults")
	}
	if cfg.Ledger.Mode != LedgerSui || cfg.Ledger.PackageID != "0x2a" || len(cfg.Ledger.DevAccounts) != 2 {
		t.Errorf("Unexpected ledger config %+v", cfg.Ledger)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9090"
`)
	t.Setenv("PORT", "7070")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SYNC_REQUEST_TIMEOUT", "0s")
	t.Setenv("LOG_LEVEL", "silent")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected env port 7070, got %s", cfg.Server.Port)
	}
	want := []string{"https://a.example", "https://b.example"}
	if strings.Join(cfg.Security.AllowedOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %v, got %v", want, cfg.Security.AllowedOrigins)
	}
	if cfg.Sync.RequestTimeout != 0 {
		t.Errorf("Expected request timeout disabled, got %v", cfg.Sync.RequestTimeout)
	}
	if cfg.Log.Level != "silent" {
		t.Errorf("Expected silent log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected missing default file to be ignored, got %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected defaults, got port %s", cfg.Server.Port)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, `[server`)

	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("SYNC_POLL_INTERVAL", "soon")

	if _, err := Load(writeConfig(t, "")); err == nil {
		t.Error("Expected env parse error")
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("LEDGER_MODE", "sui")
	t.Setenv("PACKAGE_ID", "")
	t.Setenv("SUI_KEYSTORE", "/tmp/test.keystore")
	path := writeConfig(t, "")

	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Expected Read to accept an unpublished package, got %v", err)
	}
	if cfg.Ledger.KeystorePath != "/tmp/test.keystore" {
		t.Errorf("Expected keystore path from env, got %s", cfg.Ledger.KeystorePath)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected Load to reject sui mode without a package id")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Empty port", func(c *Config) { c.Server.Port = " " }},
		{"Zero poll interval", func(c *Config) { c.Sync.PollInterval = 0 }},
		{"Negative timeout", func(c *Config) { c.Sync.RequestTimeout = -time.Second }},
		{"Zero message size", func(c *Config) { c.WebSocket.MaxMessageSize = 0 }},
		{"Zero rate", func(c *Config) { c.RateLimit.WS = 0 }},
		{"Unknown ledger", func(c *Config) { c.Ledger.Mode = "ethereum" }},
		{"Sui without package", func(c *Config) { c.Ledger.Mode = LedgerSui }},
		{"Local without dsn", func(c *Config) { c.Ledger.DSN = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
