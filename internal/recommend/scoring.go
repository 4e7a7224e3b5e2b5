// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package recommend

import (
	"github.com/kmills44/streamtrack/internal/models"
)

// Scoring term weights. Genre affinity dominates; cast affinity is capped
// so ensemble shows cannot swamp the score.
const (
	genreWeight   = 0.4
	castWeight    = 0.2
	decadeWeight  = 0.15
	recencyBonus  = 0.10
	recencyCutoff = 2020
)

// Similarity scores a candidate against a normalized profile. Missing
// lookups contribute 0; an empty profile yields only the acclaim and
// recency terms.
func Similarity(profile *UserProfile, candidate *models.Show) float64 {
	var score float64

	var genreSum float64
	for _, g := range candidate.Genres {
		genreSum += profile.Genres[g]
	}
	score += genreWeight * genreSum

	var castSum float64
	for _, c := range candidate.Cast {
		castSum += profile.Cast[c.Name]
	}
	if castSum > 1 {
		castSum = 1
	}
	score += castWeight * castSum

	if decade := candidate.Decade(); decade != 0 {
		score += decadeWeight * profile.Decades[decade]
	}

	score += acclaimBonus(candidate.IMDBScore)

	if candidate.Year >= recencyCutoff {
		score += recencyBonus
	}
	return score
}

// acclaimBonus rewards critically acclaimed shows in tiers.
func acclaimBonus(imdbScore float64) float64 {
	switch {
	case imdbScore >= 8:
		return 0.15
	case imdbScore >= 7:
		return 0.10
	case imdbScore >= 6:
		return 0.05
	default:
		return 0
	}
}

// PairSimilarity scores how alike two shows are, for "because you
// watched" recommendations: genre overlap dominates, then shared cast,
// then release proximity.
func PairSimilarity(a, b *models.Show) float64 {
	var sim float64

	if len(a.Genres) > 0 && len(b.Genres) > 0 {
		sim += 0.5 * overlapRatio(a.Genres, b.Genres)
	}

	castA := castNames(a)
	castB := castNames(b)
	if len(castA) > 0 && len(castB) > 0 {
		sim += 0.3 * overlapRatio(castA, castB)
	}

	if a.Year != 0 && b.Year != 0 {
		diff := a.Year - b.Year
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= 2:
			sim += 0.2
		case diff <= 5:
			sim += 0.1
		}
	}
	return sim
}

// overlapRatio is |a ∩ b| / max(|a|, |b|).
func overlapRatio(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var shared int
	for _, v := range b {
		if set[v] {
			shared++
		}
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return float64(shared) / float64(longest)
}

func castNames(s *models.Show) []string {
	names := make([]string, 0, len(s.Cast))
	for _, c := range s.Cast {
		names = append(names, c.Name)
	}
	return names
}
