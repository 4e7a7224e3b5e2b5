// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8484 {
		t.Errorf("default port = %d, want 8484", cfg.Server.Port)
	}
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("default max retries = %d, want 3", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.BackoffUnit != time.Second {
		t.Errorf("default backoff unit = %v, want 1s", cfg.Sync.BackoffUnit)
	}
	if cfg.Content.TrendingTTL != 10*time.Minute {
		t.Errorf("default trending TTL = %v, want 10m", cfg.Content.TrendingTTL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streamtrack.yaml")
	yaml := []byte("server:\n  port: 9090\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug from file", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Recommend.DefaultLimit != 10 {
		t.Errorf("recommend limit = %d, want default 10", cfg.Recommend.DefaultLimit)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streamtrack.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STREAMTRACK_SERVER_PORT", "7070")
	t.Setenv("STREAMTRACK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q, want env override warn", cfg.Logging.Level)
	}
}

func TestUnknownEnvIgnored(t *testing.T) {
	t.Setenv("STREAMTRACK_NO_SUCH_KEY", "boom")
	t.Setenv("PATH_LIKE_NOISE", "ignored")

	if _, err := Load(""); err != nil {
		t.Fatalf("Load should ignore unmapped environment: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}

	cfg = Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log level")
	}

	cfg = Default()
	cfg.Remote.BaseURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for malformed remote URL")
	}
}
