// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package config loads and validates StreamTrack configuration from
// struct defaults, an optional YAML file and environment variables,
// layered in that order.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the server process.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Sync      SyncConfig      `koanf:"sync"`
	Remote    RemoteConfig    `koanf:"remote"`
	Content   ContentConfig   `koanf:"content"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit" validate:"min=1"`
}

// StorageConfig controls the embedded BadgerDB store.
type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`

	// SyncWrites forces an fsync per write. Slower, but mutations survive
	// power loss, which is the point of a local-first store.
	SyncWrites bool `koanf:"sync_writes"`

	// GCInterval is how often the value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SyncConfig controls the synchronizer and its retry behavior.
type SyncConfig struct {
	// MaxRetries bounds automatic retry attempts per queued mutation.
	MaxRetries int `koanf:"max_retries" validate:"min=1"`

	// BackoffUnit is the base time unit of the 4^n retry backoff.
	BackoffUnit time.Duration `koanf:"backoff_unit"`

	// ProbeInterval is how often connectivity is re-checked.
	ProbeInterval time.Duration `koanf:"probe_interval"`

	// ProbeURL is the endpoint used to decide online/offline. Empty means
	// the remote store's base URL is probed.
	ProbeURL string `koanf:"probe_url"`

	// PushTimeout bounds a single remote push attempt.
	PushTimeout time.Duration `koanf:"push_timeout"`
}

// RemoteConfig points at the remote store backend.
type RemoteConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// ContentConfig points at the content metadata service.
type ContentConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// Region selects the streaming-availability region.
	Region string `koanf:"region" validate:"len=2"`

	// TrendingTTL is how long trending results are memoized.
	TrendingTTL time.Duration `koanf:"trending_ttl"`

	// RequestsPerSecond caps outbound metadata requests.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
}

// RecommendConfig controls the recommendation engine.
type RecommendConfig struct {
	DefaultLimit int `koanf:"default_limit" validate:"min=1,max=100"`
}

// LoggingConfig mirrors logging.Config for the koanf layer.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in defaults, the bottom layer of every load.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       300,
		},
		Storage: StorageConfig{
			Path:       "./data/streamtrack",
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
		},
		Sync: SyncConfig{
			MaxRetries:    3,
			BackoffUnit:   time.Second,
			ProbeInterval: 30 * time.Second,
			PushTimeout:   10 * time.Second,
		},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:9000",
			Timeout: 10 * time.Second,
		},
		Content: ContentConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			Timeout:           10 * time.Second,
			Region:            "GB",
			TrendingTTL:       10 * time.Minute,
			RequestsPerSecond: 4,
		},
		Recommend: RecommendConfig{
			DefaultLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
