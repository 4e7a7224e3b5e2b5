// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package store

import (
	"context"

	"github.com/kmills44/streamtrack/internal/models"
)

// Data bundles the stores behind the read/cache surface the
// recommendation engine consumes.
type Data struct {
	shows     *ShowStore
	userShows *UserShowStore
	recs      *RecommendationStore
}

// NewData creates the bundled data surface over the shared stores.
func NewData(shows *ShowStore, userShows *UserShowStore, recs *RecommendationStore) *Data {
	return &Data{shows: shows, userShows: userShows, recs: recs}
}

// UserShows lists every tracked show for one user, newest first.
func (d *Data) UserShows(ctx context.Context, userID string) ([]*models.UserShow, error) {
	return d.userShows.ListByUser(ctx, userID, "")
}

// ShowsByType lists all locally known shows of one media type.
func (d *Data) ShowsByType(ctx context.Context, mt models.MediaType) ([]*models.Show, error) {
	return d.shows.ListByType(ctx, mt)
}

// Show returns one show by id, or ErrShowNotFound.
func (d *Data) Show(ctx context.Context, id string) (*models.Show, error) {
	return d.shows.Get(ctx, id)
}

// CacheShow stores a show record fetched on the recommendation path.
func (d *Data) CacheShow(ctx context.Context, show *models.Show) error {
	return d.shows.Put(ctx, show)
}

// SaveRecommendations memoizes the result of a recommendation run.
func (d *Data) SaveRecommendations(ctx context.Context, list *models.RecommendationList) error {
	return d.recs.Put(ctx, list)
}
