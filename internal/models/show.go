// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package models defines the core entities shared across the storage,
// sync and recommendation layers.
package models

import "time"

// MediaType distinguishes series from movies.
type MediaType string

const (
	MediaTypeSeries MediaType = "series"
	MediaTypeMovie  MediaType = "movie"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeSeries || m == MediaTypeMovie
}

// OfferType classifies how a streaming provider offers a title.
type OfferType string

const (
	OfferSubscription OfferType = "subscription"
	OfferFree         OfferType = "free"
	OfferRent         OfferType = "rent"
	OfferBuy          OfferType = "buy"
)

// ProviderStaleAfter is how long a show's streaming availability is
// trusted before callers should refetch it.
const ProviderStaleAfter = 7 * 24 * time.Hour

// CastMember is one credited actor on a show.
type CastMember struct {
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Provider is one streaming offer for a show in a region.
type Provider struct {
	Name        string    `json:"name"`
	LogoURL     string    `json:"logo_url,omitempty"`
	OfferType   OfferType `json:"offer_type"`
	Region      string    `json:"region"`
	IsFree      bool      `json:"is_free"`
	Color       string    `json:"color,omitempty"`
	DeepLinkURL string    `json:"deep_link_url,omitempty"`
}

// Show is a cached content record. ID is stable across refetches; saving a
// Show with an existing ID replaces the stored record wholesale.
type Show struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	MediaType  MediaType `json:"media_type"`

	Title       string       `json:"title"`
	Synopsis    string       `json:"synopsis,omitempty"`
	Genres      []string     `json:"genres,omitempty"`
	Year        int          `json:"year,omitempty"`
	PosterURL   string       `json:"poster_url,omitempty"`
	BackdropURL string       `json:"backdrop_url,omitempty"`
	Cast        []CastMember `json:"cast,omitempty"`
	Creators    []string     `json:"creators,omitempty"`

	// Movies carry 1/1 here so progress arithmetic never divides by zero.
	TotalSeasons   int `json:"total_seasons"`
	TotalEpisodes  int `json:"total_episodes"`
	RuntimeMinutes int `json:"runtime_minutes,omitempty"`

	// Ratings are on their native scales; zero means not available.
	IMDBScore           float64 `json:"imdb_score,omitempty"`
	RottenTomatoesScore float64 `json:"rotten_tomatoes_score,omitempty"`
	MetacriticScore     float64 `json:"metacritic_score,omitempty"`

	Providers          []Provider `json:"providers,omitempty"`
	ProvidersFetchedAt time.Time  `json:"providers_fetched_at"`

	// Embedding is an opaque similarity seed (genre and keyword ids).
	Embedding []int64 `json:"embedding,omitempty"`
}

// Decade returns the show's release decade (e.g. 1990), or 0 when the
// release year is unknown.
func (s *Show) Decade() int {
	if s.Year == 0 {
		return 0
	}
	return (s.Year / 10) * 10
}

// ProvidersStale reports whether the streaming availability is older than
// ProviderStaleAfter. A show whose providers were never fetched is stale.
func (s *Show) ProvidersStale(now time.Time) bool {
	if s.ProvidersFetchedAt.IsZero() {
		return true
	}
	return now.Sub(s.ProvidersFetchedAt) >= ProviderStaleAfter
}
