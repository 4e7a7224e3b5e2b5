// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package store implements the durable local store on BadgerDB. It is the
// source of truth while offline: every user action commits here before any
// remote push is attempted. Secondary lookups are served by key-prefix
// index entries maintained in the same transaction as the primary record.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/logging"
)

// Sentinel errors for absent records. Absence is a domain condition, not a
// storage failure; anything else from this package is a storage failure and
// is fatal to the triggering operation.
var (
	ErrShowNotFound     = errors.New("show not found")
	ErrUserShowNotFound = errors.New("user show not found")
	ErrRecsNotFound     = errors.New("no cached recommendations")
)

// Open opens (or creates) the BadgerDB instance backing all local
// collections.
func Open(cfg config.StorageConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Compression = options.Snappy
	opts.Logger = nil // badger's logger is noisy; we log at the store layer

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}

	logging.Info().Str("path", cfg.Path).Bool("sync_writes", cfg.SyncWrites).Msg("local store opened")
	return db, nil
}

// RunGC runs badger value-log garbage collection until badger reports
// nothing left to collect. Intended to be called periodically.
func RunGC(db *badger.DB) {
	for {
		if err := db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}
