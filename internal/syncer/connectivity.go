// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package syncer

import (
	"context"
	"net/http"
	"time"
)

// Prober answers the question "are we online right now?".
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber decides connectivity by issuing a HEAD request against a
// reachable endpoint, normally the remote store's base URL.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a prober for the given URL.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Probe reports whether the endpoint answered. Any HTTP response counts as
// online, including auth errors; only transport failure means offline.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Watcher polls a Prober and feeds transitions into the Syncer. It
// implements suture.Service and is restarted by the supervisor on failure.
type Watcher struct {
	prober   Prober
	syncer   *Syncer
	interval time.Duration
}

// NewWatcher creates a connectivity watcher.
func NewWatcher(prober Prober, s *Syncer, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{prober: prober, syncer: s, interval: interval}
}

// Serve probes connectivity on the configured interval until ctx is done.
func (w *Watcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.syncer.SetOnline(ctx, w.prober.Probe(ctx))
		}
	}
}

func (w *Watcher) String() string {
	return "connectivity-watcher"
}
