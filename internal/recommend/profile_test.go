// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package recommend

import (
	"math"
	"testing"

	"github.com/kmills44/streamtrack/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func show(id, title string, genres []string, year int, castNames ...string) *models.Show {
	cast := make([]models.CastMember, 0, len(castNames))
	for _, n := range castNames {
		cast = append(cast, models.CastMember{Name: n})
	}
	return &models.Show{
		ID:        id,
		MediaType: models.MediaTypeSeries,
		Title:     title,
		Genres:    genres,
		Year:      year,
		Cast:      cast,
	}
}

func TestRatingWeight(t *testing.T) {
	cases := []struct {
		rating int
		want   float64
	}{
		{5, 2.0},
		{4, 2.0},
		{3, 1.0},
		{2, 0.25},
		{1, 0.25},
		{0, 1.0},
	}
	for _, tc := range cases {
		if got := ratingWeight(tc.rating); got != tc.want {
			t.Errorf("ratingWeight(%d) = %v, want %v", tc.rating, got, tc.want)
		}
	}
}

func TestBuildProfileNormalizes(t *testing.T) {
	history := []HistoryItem{
		{Show: show("a", "A", []string{"Drama"}, 2021), Rating: 3},
		{Show: show("b", "B", []string{"Drama", "Comedy"}, 2022)},
	}

	p := BuildProfile(history)

	if !almostEqual(p.Genres["Drama"], 2.0/3.0) {
		t.Errorf("Drama = %v, want 2/3", p.Genres["Drama"])
	}
	if !almostEqual(p.Genres["Comedy"], 1.0/3.0) {
		t.Errorf("Comedy = %v, want 1/3", p.Genres["Comedy"])
	}

	var total float64
	for _, v := range p.Genres {
		total += v
	}
	if !almostEqual(total, 1.0) {
		t.Errorf("genre weights sum to %v, want 1", total)
	}
	if p.HistorySize != 2 {
		t.Errorf("HistorySize = %d, want 2", p.HistorySize)
	}
}

func TestBuildProfileHighRatingDoubles(t *testing.T) {
	history := []HistoryItem{
		{Show: show("a", "A", []string{"Drama"}, 2021), Rating: 5},
		{Show: show("b", "B", []string{"Comedy"}, 2022)},
	}

	p := BuildProfile(history)
	if !almostEqual(p.Genres["Drama"], 2.0/3.0) {
		t.Errorf("Drama = %v, want 2/3", p.Genres["Drama"])
	}
	if !almostEqual(p.Genres["Comedy"], 1.0/3.0) {
		t.Errorf("Comedy = %v, want 1/3", p.Genres["Comedy"])
	}
}

func TestBuildProfileCastAndDecades(t *testing.T) {
	history := []HistoryItem{
		{Show: show("a", "A", nil, 1994, "Keaton")},
		{Show: show("b", "B", nil, 1998, "Keaton", "Pfeiffer")},
	}

	p := BuildProfile(history)
	if !almostEqual(p.Cast["Keaton"], 2.0/3.0) {
		t.Errorf("Keaton = %v, want 2/3", p.Cast["Keaton"])
	}
	if !almostEqual(p.Decades[1990], 1.0) {
		t.Errorf("1990s = %v, want 1", p.Decades[1990])
	}
}

func TestBuildProfileSkipsNilAndUnknownYear(t *testing.T) {
	history := []HistoryItem{
		{Show: nil, Rating: 5},
		{Show: show("a", "A", []string{"Drama"}, 0)},
	}

	p := BuildProfile(history)
	if len(p.Decades) != 0 {
		t.Errorf("decades = %v, want empty for unknown year", p.Decades)
	}
	if !almostEqual(p.Genres["Drama"], 1.0) {
		t.Errorf("Drama = %v, want 1", p.Genres["Drama"])
	}
}

func TestBuildProfileAvgRuntime(t *testing.T) {
	a := show("a", "A", nil, 2020)
	a.MediaType = models.MediaTypeMovie
	a.RuntimeMinutes = 100
	b := show("b", "B", nil, 2021)
	b.MediaType = models.MediaTypeMovie
	b.RuntimeMinutes = 140

	p := BuildProfile([]HistoryItem{{Show: a}, {Show: b}})
	if !almostEqual(p.AvgRuntime, 120) {
		t.Errorf("AvgRuntime = %v, want 120", p.AvgRuntime)
	}
}

func TestSimilarityTerms(t *testing.T) {
	profile := &UserProfile{
		Genres:  map[string]float64{"Drama": 0.6, "Comedy": 0.4},
		Cast:    map[string]float64{"Keaton": 1.0},
		Decades: map[int]float64{2020: 1.0},
	}

	candidate := show("c", "C", []string{"Drama"}, 2021, "Keaton")
	candidate.IMDBScore = 8.5

	// 0.4*0.6 + 0.2*1.0 + 0.15*1.0 + 0.15 acclaim + 0.10 recency
	want := 0.24 + 0.2 + 0.15 + 0.15 + 0.10
	if got := Similarity(profile, candidate); !almostEqual(got, want) {
		t.Errorf("Similarity = %v, want %v", got, want)
	}
}

func TestSimilarityCastCapped(t *testing.T) {
	profile := &UserProfile{
		Genres:  map[string]float64{},
		Cast:    map[string]float64{"A": 0.7, "B": 0.7},
		Decades: map[int]float64{},
	}

	candidate := show("c", "C", nil, 0, "A", "B")
	// Raw cast sum is 1.4, capped at 1.0 before weighting.
	if got := Similarity(profile, candidate); !almostEqual(got, 0.2) {
		t.Errorf("Similarity = %v, want 0.2", got)
	}
}

func TestAcclaimBonusTiers(t *testing.T) {
	cases := []struct {
		score float64
		want  float64
	}{
		{8.0, 0.15},
		{7.5, 0.10},
		{6.0, 0.05},
		{5.9, 0},
		{0, 0},
	}
	for _, tc := range cases {
		if got := acclaimBonus(tc.score); !almostEqual(got, tc.want) {
			t.Errorf("acclaimBonus(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestPairSimilarity(t *testing.T) {
	a := show("a", "A", []string{"Drama", "Thriller"}, 2015)
	b := show("b", "B", []string{"Drama", "Comedy"}, 2018)

	// Genre overlap 1/2 weighted 0.5, no shared cast, 3 years apart.
	if got := PairSimilarity(a, b); !almostEqual(got, 0.35) {
		t.Errorf("PairSimilarity = %v, want 0.35", got)
	}
}

func TestPairSimilarityCloseYearsAndCast(t *testing.T) {
	a := show("a", "A", []string{"Drama"}, 2020, "X", "Y")
	b := show("b", "B", []string{"Drama"}, 2021, "X")

	// Full genre overlap, cast overlap 1/2, years within 2.
	want := 0.5 + 0.3*0.5 + 0.2
	if got := PairSimilarity(a, b); !almostEqual(got, want) {
		t.Errorf("PairSimilarity = %v, want %v", got, want)
	}
}

func TestPairSimilarityUnknownYears(t *testing.T) {
	a := show("a", "A", []string{"Drama"}, 0)
	b := show("b", "B", []string{"Drama"}, 0)

	if got := PairSimilarity(a, b); !almostEqual(got, 0.5) {
		t.Errorf("PairSimilarity = %v, want 0.5 (no year term)", got)
	}
}
