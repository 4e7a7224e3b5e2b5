// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/metrics"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the given handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup wires middleware and routes and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httpMetrics)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimit, time.Minute))

		r.Get("/health", rt.handler.Health)
		r.Get("/trending", rt.handler.Trending)

		r.Route("/shows", func(r chi.Router) {
			r.Post("/", rt.handler.SaveShow)
			r.Get("/search", rt.handler.SearchShows)
			r.Get("/{id}", rt.handler.GetShow)
			r.Get("/{id}/similar", rt.handler.Similar)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/shows", rt.handler.ListUserShows)
			r.Get("/shows/{showID}", rt.handler.GetUserShow)
			r.Put("/shows/{showID}", rt.handler.UpsertUserShow)
			r.Delete("/shows/{showID}", rt.handler.DeleteUserShow)
			r.Get("/recommendations", rt.handler.Recommendations)
			r.Post("/preload", rt.handler.Preload)
		})

		r.Get("/sync/status", rt.handler.SyncStatus)
	})

	return r
}

// httpMetrics records per-route request durations.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
