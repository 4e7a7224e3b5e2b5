// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package main is the entry point for the StreamTrack server.
//
// StreamTrack is a local-first show tracker: every mutation commits to
// the embedded BadgerDB store before any remote push is attempted, so
// the application remains fully usable offline. A durable FIFO queue
// replays offline mutations when connectivity returns, and an on-device
// engine computes recommendations from local watch history.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, optional YAML file, environment)
//  2. Logging (zerolog)
//  3. Local store (BadgerDB) and sync queue
//  4. Remote store client (circuit-broken) and content-fetch client
//  5. Synchronizer with an initial connectivity probe
//  6. Recommendation engine
//  7. Supervision tree: connectivity watcher, badger GC, HTTP server
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kmills44/streamtrack/internal/api"
	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/fetch"
	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/queue"
	"github.com/kmills44/streamtrack/internal/recommend"
	"github.com/kmills44/streamtrack/internal/remote"
	"github.com/kmills44/streamtrack/internal/store"
	"github.com/kmills44/streamtrack/internal/supervisor"
	"github.com/kmills44/streamtrack/internal/syncer"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("store_path", cfg.Storage.Path).
		Str("remote_url", cfg.Remote.BaseURL).
		Msg("starting streamtrack")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("streamtrack exited with error")
	}
}

func run(cfg *config.Config) error {
	db, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("closing local store")
		}
	}()

	shows := store.NewShowStore(db)
	userShows := store.NewUserShowStore(db)
	recs := store.NewRecommendationStore(db)

	syncQueue, err := queue.New(db)
	if err != nil {
		return fmt.Errorf("open sync queue: %w", err)
	}
	defer func() {
		if err := syncQueue.Close(); err != nil {
			logging.Error().Err(err).Msg("closing sync queue")
		}
	}()

	remoteClient := remote.NewClient(cfg.Remote)
	fetchClient := fetch.NewClient(cfg.Content)

	sync, err := syncer.New(shows, userShows, syncQueue, remoteClient, &syncer.TimerScheduler{}, cfg.Sync)
	if err != nil {
		return fmt.Errorf("create synchronizer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One synchronous probe so the first requests see the right state and
	// any queue left over from the last run drains immediately.
	probeURL := cfg.Sync.ProbeURL
	if probeURL == "" {
		probeURL = cfg.Remote.BaseURL
	}
	prober := syncer.NewHTTPProber(probeURL, cfg.Remote.Timeout)
	sync.SetOnline(ctx, prober.Probe(ctx))

	engine, err := recommend.NewEngine(
		store.NewData(shows, userShows, recs),
		fetchClient,
		cfg.Recommend.DefaultLimit,
	)
	if err != nil {
		return fmt.Errorf("create recommendation engine: %w", err)
	}

	handler, err := api.NewHandler(sync, engine, shows, userShows, fetchClient, fetchClient)
	if err != nil {
		return fmt.Errorf("create api handler: %w", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.Config{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddSyncService(syncer.NewWatcher(prober, sync, cfg.Sync.ProbeInterval))
	tree.AddSyncService(supervisor.NewGCService(db, cfg.Storage.GCInterval))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Bool("online", sync.IsOnline()).Msg("serving")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
