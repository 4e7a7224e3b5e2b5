// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are probed in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"./streamtrack.yaml",
	"./config/streamtrack.yaml",
	"/etc/streamtrack/streamtrack.yaml",
}

// Load builds the configuration from three layers: struct defaults, an
// optional YAML file, then environment variables. The path argument wins
// over STREAMTRACK_CONFIG_PATH, which wins over DefaultConfigPaths.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(path); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile resolves the config file to load, or "" for none.
func findConfigFile(path string) string {
	if path != "" {
		return path
	}
	if envPath := os.Getenv("STREAMTRACK_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	for _, candidate := range DefaultConfigPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// envTransform maps environment variable names onto config paths.
// Unknown variables return "" and are skipped, so unrelated process
// environment never leaks into the configuration.
func envTransform(key string) string {
	mappings := map[string]string{
		"streamtrack_server_host":      "server.host",
		"streamtrack_server_port":      "server.port",
		"streamtrack_rate_limit":       "server.rate_limit",
		"streamtrack_storage_path":     "storage.path",
		"streamtrack_sync_writes":      "storage.sync_writes",
		"streamtrack_max_retries":      "sync.max_retries",
		"streamtrack_backoff_unit":     "sync.backoff_unit",
		"streamtrack_probe_interval":   "sync.probe_interval",
		"streamtrack_probe_url":        "sync.probe_url",
		"streamtrack_remote_url":       "remote.base_url",
		"streamtrack_remote_api_key":   "remote.api_key",
		"streamtrack_content_url":      "content.base_url",
		"streamtrack_content_api_key":  "content.api_key",
		"streamtrack_content_region":   "content.region",
		"streamtrack_recommend_limit":  "recommend.default_limit",
		"streamtrack_log_level":        "logging.level",
		"streamtrack_log_format":       "logging.format",
		"streamtrack_log_caller":       "logging.caller",
	}

	if path, ok := mappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
