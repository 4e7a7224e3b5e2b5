// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package fetch

import (
	"strconv"

	"github.com/kmills44/streamtrack/internal/models"
)

// Wire types for the metadata API.

type trendingResponse struct {
	Results []trendingResult `json:"results"`
}

type trendingResult struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`  // series
	Title        string  `json:"title"` // movies
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"` // series
	ReleaseDate  string  `json:"release_date"`   // movies
	GenreIDs     []int64 `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
}

func (r *trendingResult) toShow(mt models.MediaType) *models.Show {
	title := r.Name
	date := r.FirstAirDate
	if mt == models.MediaTypeMovie {
		title = r.Title
		date = r.ReleaseDate
	}

	return &models.Show{
		ID:            externalShowID(r.ID),
		ExternalID:    strconv.FormatInt(r.ID, 10),
		MediaType:     mt,
		Title:         title,
		Synopsis:      r.Overview,
		Year:          yearOf(date),
		PosterURL:     imageURL(r.PosterPath),
		BackdropURL:   imageURL(r.BackdropPath),
		TotalSeasons:  1,
		TotalEpisodes: 1,
		IMDBScore:     r.VoteAverage,
		Embedding:     append([]int64(nil), r.GenreIDs...),
	}
}

type detailsResponse struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Title            string      `json:"title"`
	Overview         string      `json:"overview"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	FirstAirDate     string      `json:"first_air_date"`
	ReleaseDate      string      `json:"release_date"`
	Genres           []genre     `json:"genres"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	Runtime          int         `json:"runtime"` // movies
	VoteAverage      float64     `json:"vote_average"`
	CreatedBy        []person    `json:"created_by"` // series
	Credits          credits     `json:"credits"`
	Keywords         keywordsDoc `json:"keywords"`
}

type genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type person struct {
	Name string `json:"name"`
}

type credits struct {
	Cast []castCredit `json:"cast"`
	Crew []crewCredit `json:"crew"`
}

type castCredit struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

type crewCredit struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// keywordsDoc tolerates both shapes the API uses: "keywords" for movies,
// "results" for series.
type keywordsDoc struct {
	Keywords []genre `json:"keywords"`
	Results  []genre `json:"results"`
}

func (k *keywordsDoc) ids() []int64 {
	list := k.Keywords
	if len(list) == 0 {
		list = k.Results
	}
	var ids []int64
	for i, kw := range list {
		if i >= maxKeywords {
			break
		}
		ids = append(ids, kw.ID)
	}
	return ids
}

func (d *detailsResponse) toShow(mt models.MediaType) *models.Show {
	title := d.Name
	date := d.FirstAirDate
	if mt == models.MediaTypeMovie {
		title = d.Title
		date = d.ReleaseDate
	}

	genres := make([]string, 0, len(d.Genres))
	embedding := make([]int64, 0, len(d.Genres)+maxKeywords)
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
		embedding = append(embedding, g.ID)
	}
	embedding = append(embedding, d.Keywords.ids()...)

	cast := make([]models.CastMember, 0, maxCast)
	for i, cc := range d.Credits.Cast {
		if i >= maxCast {
			break
		}
		cast = append(cast, models.CastMember{
			Name:     cc.Name,
			Role:     cc.Character,
			ImageURL: imageURL(cc.ProfilePath),
		})
	}

	var creators []string
	if mt == models.MediaTypeSeries {
		for _, p := range d.CreatedBy {
			creators = append(creators, p.Name)
		}
	} else {
		for _, cw := range d.Credits.Crew {
			if cw.Job == "Director" {
				creators = append(creators, cw.Name)
			}
		}
	}

	seasons, episodes := d.NumberOfSeasons, d.NumberOfEpisodes
	if mt == models.MediaTypeMovie || seasons == 0 {
		seasons = 1
	}
	if mt == models.MediaTypeMovie || episodes == 0 {
		episodes = 1
	}

	runtime := 0
	if mt == models.MediaTypeMovie {
		runtime = d.Runtime
	}

	return &models.Show{
		ID:             externalShowID(d.ID),
		ExternalID:     strconv.FormatInt(d.ID, 10),
		MediaType:      mt,
		Title:          title,
		Synopsis:       d.Overview,
		Genres:         genres,
		Year:           yearOf(date),
		PosterURL:      imageURL(d.PosterPath),
		BackdropURL:    imageURL(d.BackdropPath),
		Cast:           cast,
		Creators:       creators,
		TotalSeasons:   seasons,
		TotalEpisodes:  episodes,
		RuntimeMinutes: runtime,
		IMDBScore:      d.VoteAverage,
		Embedding:      embedding,
	}
}

type providersResponse struct {
	Results map[string]regionOffers `json:"results"`
}

type regionOffers struct {
	Flatrate []providerOffer `json:"flatrate"`
	Free     []providerOffer `json:"free"`
	Ads      []providerOffer `json:"ads"`
	Rent     []providerOffer `json:"rent"`
	Buy      []providerOffer `json:"buy"`
	Link     string          `json:"link"`
}

type providerOffer struct {
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// freeServices are ad-funded national broadcasters whose subscription
// listings are free to watch anyway.
var freeServices = map[string]bool{
	"BBC iPlayer": true,
	"ITVX":        true,
	"Channel 4":   true,
	"My5":         true,
}

// providerColors gives the UI a stable brand color per provider.
var providerColors = map[string]string{
	"Netflix":            "#e50914",
	"BBC iPlayer":        "#ff4c98",
	"ITVX":               "#102d3f",
	"Channel 4":          "#0bf05e",
	"Disney Plus":        "#113ccf",
	"Amazon Prime Video": "#00a8e1",
	"Apple TV+":          "#000000",
	"NOW":                "#00818a",
	"Paramount Plus":     "#0064ff",
	"My5":                "#e9138d",
}

func (r *regionOffers) normalize(region string) []models.Provider {
	var providers []models.Provider

	add := func(offers []providerOffer, offerType models.OfferType) {
		for _, o := range offers {
			isFree := offerType == models.OfferFree || freeServices[o.ProviderName]
			providers = append(providers, models.Provider{
				Name:        o.ProviderName,
				LogoURL:     imageURL(o.LogoPath),
				OfferType:   offerType,
				Region:      region,
				IsFree:      isFree,
				Color:       providerColors[o.ProviderName],
				DeepLinkURL: r.Link,
			})
		}
	}

	add(r.Flatrate, models.OfferSubscription)
	add(r.Free, models.OfferFree)
	add(r.Ads, models.OfferFree)
	add(r.Rent, models.OfferRent)
	add(r.Buy, models.OfferBuy)
	return providers
}
