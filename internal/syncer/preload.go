// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/models"
	"github.com/kmills44/streamtrack/internal/store"
)

// ProviderFetcher is the slice of the content-fetch contract the preload
// path needs.
type ProviderFetcher interface {
	FetchStreamingProviders(ctx context.Context, externalID string, mt models.MediaType) ([]models.Provider, error)
}

// PreloadForOffline refreshes stale streaming availability for the user's
// watching and watchlist shows so the data is useful without connectivity.
// Fetch failures skip the show; only a local storage failure aborts.
// Returns how many shows were refreshed.
func (s *Syncer) PreloadForOffline(ctx context.Context, userID string, fetcher ProviderFetcher) (int, error) {
	if fetcher == nil {
		return 0, errors.New("nil provider fetcher")
	}

	var records []*models.UserShow
	for _, status := range []models.Status{models.StatusWatching, models.StatusWatchlist} {
		byStatus, err := s.userShows.ListByUserStatus(ctx, userID, status, "")
		if err != nil {
			return 0, fmt.Errorf("list %s shows: %w", status, err)
		}
		records = append(records, byStatus...)
	}

	now := time.Now().UTC()
	refreshed := 0
	for _, record := range records {
		show, err := s.shows.Get(ctx, record.ShowID)
		if errors.Is(err, store.ErrShowNotFound) {
			continue
		}
		if err != nil {
			return refreshed, fmt.Errorf("load show %s: %w", record.ShowID, err)
		}
		if !show.ProvidersStale(now) {
			continue
		}

		providers, err := fetcher.FetchStreamingProviders(ctx, show.ExternalID, show.MediaType)
		if err != nil {
			logging.Debug().Err(err).Str("show_id", show.ID).Msg("provider refresh skipped")
			continue
		}

		show.Providers = providers
		show.ProvidersFetchedAt = now
		if err := s.SaveShow(ctx, show); err != nil {
			return refreshed, err
		}
		refreshed++
	}

	logging.Info().Str("user_id", userID).Int("refreshed", refreshed).Msg("offline preload complete")
	return refreshed, nil
}
