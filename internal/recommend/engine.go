// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package recommend computes on-device show recommendations from a
// user's local watch history. The engine never blocks on the network
// for a user with history; trending data is only consulted for cold
// starts and shortfall backfill, and any fetch failure degrades to
// whatever local data can provide.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/metrics"
	"github.com/kmills44/streamtrack/internal/models"
)

// ErrShowNotFound is returned by BecauseYouWatched when the seed show is
// not in the local store.
var ErrShowNotFound = errors.New("recommend: show not found")

// DataProvider is the local-store surface the engine needs.
type DataProvider interface {
	UserShows(ctx context.Context, userID string) ([]*models.UserShow, error)
	ShowsByType(ctx context.Context, mt models.MediaType) ([]*models.Show, error)
	Show(ctx context.Context, id string) (*models.Show, error)
	CacheShow(ctx context.Context, show *models.Show) error
	SaveRecommendations(ctx context.Context, list *models.RecommendationList) error
}

// TrendingProvider supplies popularity-ranked shows for cold starts and
// candidate backfill.
type TrendingProvider interface {
	FetchTrending(ctx context.Context, mt models.MediaType) ([]*models.Show, error)
}

// Engine generates recommendations from local data.
type Engine struct {
	data     DataProvider
	trending TrendingProvider
	limit    int
}

// NewEngine creates a recommendation engine. Both providers are required.
func NewEngine(data DataProvider, trending TrendingProvider, defaultLimit int) (*Engine, error) {
	if data == nil {
		return nil, errors.New("recommend: data provider is required")
	}
	if trending == nil {
		return nil, errors.New("recommend: trending provider is required")
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Engine{data: data, trending: trending, limit: defaultLimit}, nil
}

// Recommend returns up to limit recommendations for one user and media
// type, built from a taste profile over their completed and watching
// shows. A user with no usable history gets the trending list unmodified
// instead. Results are cached best-effort; cache failures never fail the
// call.
func (e *Engine) Recommend(ctx context.Context, userID string, mt models.MediaType, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = e.limit
	}

	userShows, err := e.data.UserShows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user shows: %w", err)
	}

	seen := make(map[string]bool, len(userShows))
	var history []HistoryItem
	for _, us := range userShows {
		seen[us.ShowID] = true
		if us.Status != models.StatusCompleted && us.Status != models.StatusWatching {
			continue
		}
		show, err := e.data.Show(ctx, us.ShowID)
		if err != nil {
			// A tracked show missing its record is not fatal to the run.
			logging.Debug().Str("show_id", us.ShowID).Err(err).Msg("history show unavailable")
			continue
		}
		if show.MediaType != mt {
			continue
		}
		history = append(history, HistoryItem{Show: show, Rating: us.PersonalRating})
	}

	if len(history) == 0 {
		return e.coldStart(ctx, userID, mt)
	}
	metrics.RecommendationRequests.WithLabelValues("profile").Inc()

	profile := BuildProfile(history)

	candidates, err := e.data.ShowsByType(ctx, mt)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	pool := make([]*models.Show, 0, len(candidates))
	poolIDs := make(map[string]bool, len(candidates))
	for _, show := range candidates {
		if seen[show.ID] || poolIDs[show.ID] {
			continue
		}
		pool = append(pool, show)
		poolIDs[show.ID] = true
	}

	// Too few local candidates: top up from trending, skipping anything
	// already seen or pooled. A fetch failure just means no backfill.
	if len(pool) < limit {
		trending, err := e.trending.FetchTrending(ctx, mt)
		if err != nil {
			logging.Warn().Err(err).Msg("trending backfill unavailable")
		}
		for _, show := range trending {
			if seen[show.ID] || poolIDs[show.ID] {
				continue
			}
			pool = append(pool, show)
			poolIDs[show.ID] = true
			e.cacheShow(ctx, show)
		}
	}

	recs := make([]models.Recommendation, 0, len(pool))
	for _, show := range pool {
		recs = append(recs, models.Recommendation{
			Show:  show,
			Score: Similarity(profile, show),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	e.saveList(ctx, userID, mt, recs)
	return recs, nil
}

// coldStart serves a user with no usable history: the trending list for
// the media type passes through verbatim, in its popularity order, with
// no filtering or truncation. A fetch failure degrades to an empty
// result rather than failing the call.
func (e *Engine) coldStart(ctx context.Context, userID string, mt models.MediaType) ([]models.Recommendation, error) {
	metrics.RecommendationRequests.WithLabelValues("cold_start").Inc()

	trending, err := e.trending.FetchTrending(ctx, mt)
	if err != nil {
		logging.Warn().Err(err).Msg("cold start trending unavailable")
		return []models.Recommendation{}, nil
	}

	recs := make([]models.Recommendation, 0, len(trending))
	for _, show := range trending {
		e.cacheShow(ctx, show)
		recs = append(recs, models.Recommendation{Show: show})
	}

	e.saveList(ctx, userID, mt, recs)
	return recs, nil
}

// BecauseYouWatched returns the shows most similar to one seed show,
// each carrying a reason string naming the seed.
func (e *Engine) BecauseYouWatched(ctx context.Context, seedID string, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = e.limit
	}
	metrics.RecommendationRequests.WithLabelValues("because_you_watched").Inc()

	seed, err := e.data.Show(ctx, seedID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrShowNotFound, seedID)
	}

	candidates, err := e.data.ShowsByType(ctx, seed.MediaType)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	reason := fmt.Sprintf("Because you watched %s", seed.Title)
	recs := make([]models.Recommendation, 0, len(candidates))
	for _, show := range candidates {
		if show.ID == seed.ID {
			continue
		}
		score := PairSimilarity(seed, show)
		if score <= 0 {
			continue
		}
		recs = append(recs, models.Recommendation{
			Show:   show,
			Score:  score,
			Reason: reason,
		})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (e *Engine) cacheShow(ctx context.Context, show *models.Show) {
	if err := e.data.CacheShow(ctx, show); err != nil {
		logging.Debug().Str("show_id", show.ID).Err(err).Msg("cache show failed")
	}
}

func (e *Engine) saveList(ctx context.Context, userID string, mt models.MediaType, recs []models.Recommendation) {
	list := &models.RecommendationList{
		UserID:      userID,
		MediaType:   mt,
		GeneratedAt: time.Now().UTC(),
		Items:       recs,
	}
	if err := e.data.SaveRecommendations(ctx, list); err != nil {
		logging.Debug().Str("user_id", userID).Err(err).Msg("cache recommendations failed")
	}
}
