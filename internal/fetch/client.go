// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package fetch implements the content-fetch collaborator against a
// TMDB-compatible metadata API. Callers must treat every failure here as
// "no data"; nothing in this package is fatal to a recommendation call.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/models"
)

const (
	imageBaseURL = "https://image.tmdb.org/t/p/w500"
	maxCast      = 8
	maxKeywords  = 5
)

// Client fetches and normalizes content metadata.
type Client struct {
	baseURL string
	apiKey  string
	region  string
	http    *http.Client
	limiter *rate.Limiter

	// trending results are memoized per media type.
	mu          sync.Mutex
	trendingTTL time.Duration
	trending    map[models.MediaType]trendingCacheEntry
}

type trendingCacheEntry struct {
	shows     []*models.Show
	fetchedAt time.Time
}

// NewClient creates a content-fetch client.
func NewClient(cfg config.ContentConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	ttl := cfg.TrendingTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	region := cfg.Region
	if region == "" {
		region = "GB"
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		region:      region,
		http:        &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		trendingTTL: ttl,
		trending:    make(map[models.MediaType]trendingCacheEntry),
	}
}

// pathType maps a media type onto the API's path segment.
func pathType(mt models.MediaType) string {
	if mt == models.MediaTypeMovie {
		return "movie"
	}
	return "tv"
}

// FetchTrending returns this week's trending shows for a media type,
// memoized for the configured TTL.
func (c *Client) FetchTrending(ctx context.Context, mt models.MediaType) ([]*models.Show, error) {
	c.mu.Lock()
	if entry, ok := c.trending[mt]; ok && time.Since(entry.fetchedAt) < c.trendingTTL {
		shows := entry.shows
		c.mu.Unlock()
		return shows, nil
	}
	c.mu.Unlock()

	var resp trendingResponse
	endpoint := fmt.Sprintf("%s/trending/%s/week", c.baseURL, pathType(mt))
	if err := c.doGET(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch trending %s: %w", mt, err)
	}

	shows := make([]*models.Show, 0, len(resp.Results))
	for i := range resp.Results {
		shows = append(shows, resp.Results[i].toShow(mt))
	}

	c.mu.Lock()
	c.trending[mt] = trendingCacheEntry{shows: shows, fetchedAt: time.Now()}
	c.mu.Unlock()

	logging.Debug().Str("media_type", string(mt)).Int("count", len(shows)).Msg("trending fetched")
	return shows, nil
}

// FetchShowDetails returns the full normalized record for one show.
func (c *Client) FetchShowDetails(ctx context.Context, externalID string, mt models.MediaType) (*models.Show, error) {
	var resp detailsResponse
	endpoint := fmt.Sprintf("%s/%s/%s?append_to_response=credits,keywords", c.baseURL, pathType(mt), externalID)
	if err := c.doGET(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch details %s/%s: %w", mt, externalID, err)
	}
	return resp.toShow(mt), nil
}

// FetchStreamingProviders returns normalized streaming offers for the
// configured region.
func (c *Client) FetchStreamingProviders(ctx context.Context, externalID string, mt models.MediaType) ([]models.Provider, error) {
	var resp providersResponse
	endpoint := fmt.Sprintf("%s/%s/%s/watch/providers", c.baseURL, pathType(mt), externalID)
	if err := c.doGET(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch providers %s/%s: %w", mt, externalID, err)
	}

	regional, ok := resp.Results[c.region]
	if !ok {
		return nil, nil
	}
	return regional.normalize(c.region), nil
}

// doGET performs a rate-limited GET with bounded retries on throttling and
// server errors.
func (c *Client) doGET(ctx context.Context, endpoint string, out any) error {
	const attempts = 3

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response: %w", readErr)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
			case resp.StatusCode >= 400:
				return fmt.Errorf("status %d", resp.StatusCode)
			default:
				return json.Unmarshal(data, out)
			}
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return lastErr
}

// externalShowID derives the stable content id from the source catalog id.
func externalShowID(id int64) string {
	return "tmdb_" + strconv.FormatInt(id, 10)
}

func imageURL(path string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + path
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
