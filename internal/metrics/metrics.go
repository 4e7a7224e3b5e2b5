// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package metrics exposes Prometheus collectors for the sync pipeline and
// the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync pipeline metrics
	SyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_pending_entries",
			Help: "Current number of pending sync queue entries",
		},
	)

	SyncDeadLetterTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_dead_letter_total",
			Help: "Total number of sync entries moved to the dead-letter set",
		},
	)

	SyncPushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_push_total",
			Help: "Total remote push attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "enqueued"
	)

	SyncDrainsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_drains_total",
			Help: "Total number of queue drains triggered by reconnect",
		},
	)

	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectivity_online",
			Help: "1 when the synchronizer considers itself online, 0 otherwise",
		},
	)

	// Circuit breaker metrics for the remote store client
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Recommendation engine metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total recommendation requests by mode",
		},
		[]string{"mode"}, // "profile", "cold_start", "because_you_watched"
	)

	// HTTP API metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
