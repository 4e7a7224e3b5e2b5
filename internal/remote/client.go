// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package remote implements the remote store contract over a REST backend
// with row-level upserts keyed by entity id. All calls run through a
// circuit breaker so a struggling backend sheds load instead of stacking
// timeouts.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/metrics"
	"github.com/kmills44/streamtrack/internal/models"
)

// Client talks to the remote store's REST interface.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a remote store client.
// Circuit breaker configuration: opens after a 60% failure rate with at
// least 10 requests in a 1 minute window, recovers through half-open
// after 2 minutes.
func NewClient(cfg config.RemoteConfig) *Client {
	const cbName = "remote-store"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// Upsert writes an entity by primary id. Replaying the same payload is a
// no-op beyond overwriting with identical data.
func (c *Client) Upsert(ctx context.Context, table string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", table, err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	_, err = c.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Prefer": "resolution=merge-duplicates",
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// GetByID fetches an entity by primary id, returning
// models.ErrRemoteNotFound when absent.
func (c *Client) GetByID(ctx context.Context, table, id string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, url.PathEscape(table), url.QueryEscape(id))
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}

	// The backend answers row queries with an array.
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", table, id, err)
	}
	if len(rows) == 0 {
		return nil, models.ErrRemoteNotFound
	}
	return rows[0], nil
}

// DeleteByID removes an entity by primary id. Deleting an absent id
// succeeds; the backend treats it as a no-op.
func (c *Client) DeleteByID(ctx context.Context, table, id string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, url.PathEscape(table), url.QueryEscape(id))
	if _, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return nil
}

// do executes one HTTP call through the circuit breaker.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s %s: status %d", method, endpoint, resp.StatusCode)
		}
		return data, nil
	})
}
