// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package api provides the chi-routed JSON API over the local store,
// the synchronizer and the recommendation engine.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/models"
	"github.com/kmills44/streamtrack/internal/queue"
	"github.com/kmills44/streamtrack/internal/recommend"
	"github.com/kmills44/streamtrack/internal/store"
	"github.com/kmills44/streamtrack/internal/syncer"
)

// Tracker is the synchronizer surface the API writes through.
type Tracker interface {
	SaveShow(ctx context.Context, show *models.Show) error
	UpsertUserShow(ctx context.Context, us *models.UserShow) error
	DeleteUserShow(ctx context.Context, userID, showID string) error
	IsOnline() bool
	QueueStats(ctx context.Context) (queue.Stats, error)
	PreloadForOffline(ctx context.Context, userID string, fetcher syncer.ProviderFetcher) (int, error)
}

// Recommender generates recommendation lists.
type Recommender interface {
	Recommend(ctx context.Context, userID string, mt models.MediaType, limit int) ([]models.Recommendation, error)
	BecauseYouWatched(ctx context.Context, seedID string, limit int) ([]models.Recommendation, error)
}

// Catalog is the read side of the local show store.
type Catalog interface {
	Get(ctx context.Context, id string) (*models.Show, error)
	Search(ctx context.Context, query string, mt models.MediaType) ([]*models.Show, error)
}

// Library is the read side of the per-user tracking store.
type Library interface {
	Get(ctx context.Context, userID, showID string) (*models.UserShow, error)
	ListByUser(ctx context.Context, userID string, mt models.MediaType) ([]*models.UserShow, error)
	ListByUserStatus(ctx context.Context, userID string, status models.Status, mt models.MediaType) ([]*models.UserShow, error)
}

// Handler carries the API's collaborators.
type Handler struct {
	tracker     Tracker
	recommender Recommender
	catalog     Catalog
	library     Library
	trending    recommend.TrendingProvider
	fetcher     syncer.ProviderFetcher
	startTime   time.Time
}

// NewHandler creates the API handler. All collaborators are required.
func NewHandler(tracker Tracker, recommender Recommender, catalog Catalog, library Library, trending recommend.TrendingProvider, fetcher syncer.ProviderFetcher) (*Handler, error) {
	if tracker == nil || recommender == nil || catalog == nil || library == nil || trending == nil || fetcher == nil {
		return nil, errors.New("api: all handler collaborators are required")
	}
	return &Handler{
		tracker:     tracker,
		recommender: recommender,
		catalog:     catalog,
		library:     library,
		trending:    trending,
		fetcher:     fetcher,
		startTime:   time.Now(),
	}, nil
}

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeNotFound       = "NOT_FOUND"
	codeInternal       = "INTERNAL_ERROR"
)

// respondJSON sends the uniform envelope.
func respondJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("marshal response failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("write response failed")
	}
}

func respondData(w http.ResponseWriter, status int, data any, count int) {
	respondJSON(w, status, &models.APIResponse{
		Status: "ok",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			Count:     count,
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("api error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// limitParam reads ?limit=, falling back to 0 so callers get the
// engine's default.
func limitParam(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// mediaTypeParam reads ?type=, defaulting to series.
func mediaTypeParam(r *http.Request) (models.MediaType, bool) {
	v := r.URL.Query().Get("type")
	if v == "" {
		return models.MediaTypeSeries, true
	}
	mt := models.MediaType(v)
	return mt, mt.Valid()
}

// Health reports process liveness, connectivity and queue depth.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.QueueStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "queue stats unavailable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"online":         h.tracker.IsOnline(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"queue":          stats,
	}, 0)
}

// SaveShow stores a show locally and syncs it in the background.
func (h *Handler) SaveShow(w http.ResponseWriter, r *http.Request) {
	var show models.Show
	if err := json.NewDecoder(r.Body).Decode(&show); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed show payload", err)
		return
	}
	if show.ID == "" || show.Title == "" || !show.MediaType.Valid() {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "show requires id, title and a valid media_type", nil)
		return
	}

	if err := h.tracker.SaveShow(r.Context(), &show); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "save show failed", err)
		return
	}
	respondData(w, http.StatusCreated, &show, 1)
}

// GetShow returns one locally stored show.
func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	show, err := h.catalog.Get(r.Context(), id)
	if errors.Is(err, store.ErrShowNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "show not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "get show failed", err)
		return
	}
	respondData(w, http.StatusOK, show, 1)
}

// SearchShows searches local titles by substring.
func (h *Handler) SearchShows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "q parameter is required", nil)
		return
	}

	var mt models.MediaType
	if v := r.URL.Query().Get("type"); v != "" {
		mt = models.MediaType(v)
		if !mt.Valid() {
			respondError(w, http.StatusBadRequest, codeInvalidRequest, "type must be series or movie", nil)
			return
		}
	}

	shows, err := h.catalog.Search(r.Context(), query, mt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "search failed", err)
		return
	}
	respondData(w, http.StatusOK, shows, len(shows))
}

// Trending returns this week's trending shows for a media type.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	mt, ok := mediaTypeParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "type must be series or movie", nil)
		return
	}

	shows, err := h.trending.FetchTrending(r.Context(), mt)
	if err != nil {
		respondError(w, http.StatusBadGateway, codeInternal, "trending unavailable", err)
		return
	}
	respondData(w, http.StatusOK, shows, len(shows))
}

// ListUserShows lists a user's tracked shows, optionally filtered by
// status and media type.
func (h *Handler) ListUserShows(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var mt models.MediaType
	if v := r.URL.Query().Get("type"); v != "" {
		mt = models.MediaType(v)
		if !mt.Valid() {
			respondError(w, http.StatusBadRequest, codeInvalidRequest, "type must be series or movie", nil)
			return
		}
	}

	var (
		records []*models.UserShow
		err     error
	)
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			respondError(w, http.StatusBadRequest, codeInvalidRequest, "status must be watching, completed or watchlist", nil)
			return
		}
		records, err = h.library.ListByUserStatus(r.Context(), userID, status, mt)
	} else {
		records, err = h.library.ListByUser(r.Context(), userID, mt)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "list user shows failed", err)
		return
	}
	respondData(w, http.StatusOK, records, len(records))
}

// GetUserShow returns one tracking record.
func (h *Handler) GetUserShow(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	showID := chi.URLParam(r, "showID")

	record, err := h.library.Get(r.Context(), userID, showID)
	if errors.Is(err, store.ErrUserShowNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "show is not tracked by this user", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "get user show failed", err)
		return
	}
	respondData(w, http.StatusOK, record, 1)
}

// upsertUserShowRequest is the mutable slice of a tracking record.
type upsertUserShowRequest struct {
	Status         models.Status `json:"status"`
	CurrentSeason  int           `json:"current_season"`
	CurrentEpisode int           `json:"current_episode"`
	PersonalRating int           `json:"personal_rating"`
}

// UpsertUserShow creates or updates a tracking record locally and syncs
// it in the background.
func (h *Handler) UpsertUserShow(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	showID := chi.URLParam(r, "showID")

	var req upsertUserShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "malformed tracking payload", err)
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "status must be watching, completed or watchlist", nil)
		return
	}
	if req.PersonalRating < 0 || req.PersonalRating > 5 {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "personal_rating must be 1-5, or 0 for unrated", nil)
		return
	}

	// The tracked show must exist locally first.
	show, err := h.catalog.Get(r.Context(), showID)
	if err != nil {
		if errors.Is(err, store.ErrShowNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "show not found, save it first", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternal, "get show failed", err)
		return
	}

	record := &models.UserShow{
		UserID:         userID,
		ShowID:         showID,
		Status:         req.Status,
		MediaType:      show.MediaType,
		CurrentSeason:  req.CurrentSeason,
		CurrentEpisode: req.CurrentEpisode,
		PersonalRating: req.PersonalRating,
	}
	if err := h.tracker.UpsertUserShow(r.Context(), record); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "upsert user show failed", err)
		return
	}
	respondData(w, http.StatusOK, record, 1)
}

// DeleteUserShow removes a tracking record locally and syncs the delete
// in the background. Deleting an untracked show is a no-op.
func (h *Handler) DeleteUserShow(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	showID := chi.URLParam(r, "showID")

	if err := h.tracker.DeleteUserShow(r.Context(), userID, showID); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "delete user show failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recommendations returns personalized recommendations for a user.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	mt, ok := mediaTypeParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "type must be series or movie", nil)
		return
	}

	recs, err := h.recommender.Recommend(r.Context(), userID, mt, limitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "recommendations failed", err)
		return
	}
	respondData(w, http.StatusOK, recs, len(recs))
}

// Similar returns the shows most like one seed show.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	seedID := chi.URLParam(r, "id")

	recs, err := h.recommender.BecauseYouWatched(r.Context(), seedID, limitParam(r))
	if errors.Is(err, recommend.ErrShowNotFound) {
		respondError(w, http.StatusNotFound, codeNotFound, "show not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "similar shows failed", err)
		return
	}
	respondData(w, http.StatusOK, recs, len(recs))
}

// SyncStatus reports connectivity and queue depth.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.QueueStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "queue stats unavailable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"online": h.tracker.IsOnline(),
		"queue":  stats,
	}, 0)
}

// Preload refreshes stale streaming availability for a user's watching
// and watchlist shows ahead of going offline.
func (h *Handler) Preload(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	refreshed, err := h.tracker.PreloadForOffline(r.Context(), userID, h.fetcher)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "preload failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"refreshed": refreshed}, refreshed)
}
