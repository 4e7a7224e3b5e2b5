// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package supervisor

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kmills44/streamtrack/internal/store"
)

// GCService periodically runs badger value-log garbage collection.
type GCService struct {
	db       *badger.DB
	interval time.Duration
}

// NewGCService wraps store GC as a supervised service.
func NewGCService(db *badger.DB, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{db: db, interval: interval}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			store.RunGC(s.db)
		}
	}
}

func (s *GCService) String() string { return "badger-gc" }
