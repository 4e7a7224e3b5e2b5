// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package recommend

import (
	"github.com/kmills44/streamtrack/internal/models"
)

// UserProfile is the ephemeral normalized taste distribution derived from
// watch history. It is recomputed per recommendation call and never
// persisted.
type UserProfile struct {
	// Genres, Cast and Decades each sum to 1.0 (or are empty).
	Genres  map[string]float64
	Cast    map[string]float64
	Decades map[int]float64

	// AvgRuntime is a diagnostic field, not used in scoring.
	AvgRuntime  float64
	HistorySize int
}

// HistoryItem pairs a watched show with the user's rating (0 = unrated).
type HistoryItem struct {
	Show   *models.Show
	Rating int
}

// ratingWeight maps a personal rating to a profile weight. Loved shows
// count double, disliked shows still contribute a sliver so their genres
// are not erased entirely.
func ratingWeight(rating int) float64 {
	switch {
	case rating >= 4:
		return 2.0
	case rating >= 3:
		return 1.0
	case rating >= 1:
		return 0.25
	default:
		return 1.0 // unrated
	}
}

// BuildProfile accumulates weighted frequency maps over genres, cast
// names and release decades, then normalizes each map to sum to 1.0.
func BuildProfile(history []HistoryItem) *UserProfile {
	profile := &UserProfile{
		Genres:      make(map[string]float64),
		Cast:        make(map[string]float64),
		Decades:     make(map[int]float64),
		HistorySize: len(history),
	}

	var runtimeSum float64
	var runtimeCount int

	for _, item := range history {
		show := item.Show
		if show == nil {
			continue
		}
		weight := ratingWeight(item.Rating)

		for _, g := range show.Genres {
			profile.Genres[g] += weight
		}
		for _, c := range show.Cast {
			profile.Cast[c.Name] += weight
		}
		if decade := show.Decade(); decade != 0 {
			profile.Decades[decade] += weight
		}
		if show.MediaType == models.MediaTypeMovie && show.RuntimeMinutes > 0 {
			runtimeSum += float64(show.RuntimeMinutes)
			runtimeCount++
		}
	}

	if runtimeCount > 0 {
		profile.AvgRuntime = runtimeSum / float64(runtimeCount)
	}

	normalize(profile.Genres)
	normalize(profile.Cast)
	normalizeInt(profile.Decades)
	return profile
}

// normalize scales map values so they sum to 1.0. Maps with zero total
// are left as-is.
func normalize(m map[string]float64) {
	var total float64
	for _, v := range m {
		total += v
	}
	if total == 0 {
		return
	}
	for k, v := range m {
		m[k] = v / total
	}
}

func normalizeInt(m map[int]float64) {
	var total float64
	for _, v := range m {
		total += v
	}
	if total == 0 {
		return
	}
	for k, v := range m {
		m[k] = v / total
	}
}
