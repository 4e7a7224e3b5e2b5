// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package models

import "time"

// Status is a user's relationship to a show.
type Status string

const (
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
	StatusWatchlist Status = "watchlist"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusWatching || s == StatusCompleted || s == StatusWatchlist
}

// UserShow tracks one user's state for one show. At most one record exists
// per (UserID, ShowID); UpdatedAt is authoritative for ordering and for
// replay tie-breaks during sync.
type UserShow struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ShowID string `json:"show_id"`
	Status Status `json:"status"`

	// MediaType is denormalized from the tracked show so listings can
	// filter without a join.
	MediaType MediaType `json:"media_type,omitempty"`

	// Progress applies to series only; both default to 1.
	CurrentSeason  int `json:"current_season"`
	CurrentEpisode int `json:"current_episode"`

	// PersonalRating is 1..5, or 0 when the user has not rated the show.
	PersonalRating int `json:"personal_rating,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// UserShowID derives the composite record id used locally and remotely.
func UserShowID(userID, showID string) string {
	return userID + "_" + showID
}

// Recommendation pairs a show with its computed score and, in pairwise
// mode, a human-readable reason.
type Recommendation struct {
	Show   *Show   `json:"show"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// RecommendationList is the persisted per-user memoization of the last
// recommendation run. It is a cache only, never required for correctness.
type RecommendationList struct {
	UserID      string           `json:"user_id"`
	MediaType   MediaType        `json:"media_type"`
	GeneratedAt time.Time        `json:"generated_at"`
	Items       []Recommendation `json:"items"`
}
