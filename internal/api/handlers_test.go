// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/models"
	"github.com/kmills44/streamtrack/internal/queue"
	"github.com/kmills44/streamtrack/internal/recommend"
	"github.com/kmills44/streamtrack/internal/store"
	"github.com/kmills44/streamtrack/internal/syncer"
)

type fakeTracker struct {
	online    bool
	stats     queue.Stats
	savedShow *models.Show
	upserted  *models.UserShow
	deleted   []string
	preloaded int
	err       error
}

func (f *fakeTracker) SaveShow(ctx context.Context, show *models.Show) error {
	f.savedShow = show
	return f.err
}

func (f *fakeTracker) UpsertUserShow(ctx context.Context, us *models.UserShow) error {
	f.upserted = us
	return f.err
}

func (f *fakeTracker) DeleteUserShow(ctx context.Context, userID, showID string) error {
	f.deleted = append(f.deleted, userID+"/"+showID)
	return f.err
}

func (f *fakeTracker) IsOnline() bool { return f.online }

func (f *fakeTracker) QueueStats(ctx context.Context) (queue.Stats, error) {
	return f.stats, f.err
}

func (f *fakeTracker) PreloadForOffline(ctx context.Context, userID string, fetcher syncer.ProviderFetcher) (int, error) {
	return f.preloaded, f.err
}

type fakeRecommender struct {
	recs []models.Recommendation
	err  error
}

func (f *fakeRecommender) Recommend(ctx context.Context, userID string, mt models.MediaType, limit int) ([]models.Recommendation, error) {
	return f.recs, f.err
}

func (f *fakeRecommender) BecauseYouWatched(ctx context.Context, seedID string, limit int) ([]models.Recommendation, error) {
	return f.recs, f.err
}

type fakeCatalog struct {
	shows map[string]*models.Show
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*models.Show, error) {
	s, ok := f.shows[id]
	if !ok {
		return nil, store.ErrShowNotFound
	}
	return s, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string, mt models.MediaType) ([]*models.Show, error) {
	var out []*models.Show
	for _, s := range f.shows {
		out = append(out, s)
	}
	return out, nil
}

type fakeLibrary struct {
	records map[string]*models.UserShow
}

func (f *fakeLibrary) Get(ctx context.Context, userID, showID string) (*models.UserShow, error) {
	us, ok := f.records[models.UserShowID(userID, showID)]
	if !ok {
		return nil, store.ErrUserShowNotFound
	}
	return us, nil
}

func (f *fakeLibrary) ListByUser(ctx context.Context, userID string, mt models.MediaType) ([]*models.UserShow, error) {
	var out []*models.UserShow
	for _, us := range f.records {
		if us.UserID == userID && (mt == "" || us.MediaType == mt) {
			out = append(out, us)
		}
	}
	return out, nil
}

func (f *fakeLibrary) ListByUserStatus(ctx context.Context, userID string, status models.Status, mt models.MediaType) ([]*models.UserShow, error) {
	var out []*models.UserShow
	for _, us := range f.records {
		if us.UserID == userID && us.Status == status && (mt == "" || us.MediaType == mt) {
			out = append(out, us)
		}
	}
	return out, nil
}

type fakeTrendingAPI struct {
	shows []*models.Show
	err   error
}

func (f *fakeTrendingAPI) FetchTrending(ctx context.Context, mt models.MediaType) ([]*models.Show, error) {
	return f.shows, f.err
}

type fakeFetcher struct{}

func (f *fakeFetcher) FetchStreamingProviders(ctx context.Context, externalID string, mt models.MediaType) ([]models.Provider, error) {
	return nil, nil
}

type testAPI struct {
	tracker     *fakeTracker
	recommender *fakeRecommender
	catalog     *fakeCatalog
	library     *fakeLibrary
	trending    *fakeTrendingAPI
	server      http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	a := &testAPI{
		tracker:     &fakeTracker{online: true},
		recommender: &fakeRecommender{},
		catalog:     &fakeCatalog{shows: make(map[string]*models.Show)},
		library:     &fakeLibrary{records: make(map[string]*models.UserShow)},
		trending:    &fakeTrendingAPI{},
	}

	h, err := NewHandler(a.tracker, a.recommender, a.catalog, a.library, a.trending, &fakeFetcher{})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	a.server = NewRouter(h, config.Default().Server).Setup()
	return a
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return &resp
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	if _, err := NewHandler(nil, &fakeRecommender{}, &fakeCatalog{}, &fakeLibrary{}, &fakeTrendingAPI{}, &fakeFetcher{}); err == nil {
		t.Error("expected error for nil tracker")
	}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	a.tracker.stats = queue.Stats{Pending: 2, DeadLetter: 1}

	rec := a.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Status != "ok" {
		t.Errorf("envelope status = %q", resp.Status)
	}
	data := resp.Data.(map[string]any)
	if data["online"] != true {
		t.Errorf("online = %v, want true", data["online"])
	}
}

func TestSaveShow(t *testing.T) {
	a := newTestAPI(t)

	show := &models.Show{ID: "tmdb_1", MediaType: models.MediaTypeSeries, Title: "First"}
	rec := a.do(t, http.MethodPost, "/api/v1/shows", show)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if a.tracker.savedShow == nil || a.tracker.savedShow.ID != "tmdb_1" {
		t.Errorf("tracker saved %+v", a.tracker.savedShow)
	}
}

func TestSaveShowValidation(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/shows", &models.Show{Title: "No ID"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shows", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	a.server.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", w.Code)
	}
}

func TestGetShow(t *testing.T) {
	a := newTestAPI(t)
	a.catalog.shows["tmdb_1"] = &models.Show{ID: "tmdb_1", Title: "First"}

	rec := a.do(t, http.MethodGet, "/api/v1/shows/tmdb_1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/shows/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing show: status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/v1/shows/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without q", rec.Code)
	}

	a.catalog.shows["tmdb_1"] = &models.Show{ID: "tmdb_1", Title: "First"}
	rec = a.do(t, http.MethodGet, "/api/v1/shows/search?q=fir", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Metadata.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Metadata.Count)
	}
}

func TestTrending(t *testing.T) {
	a := newTestAPI(t)
	a.trending.shows = []*models.Show{{ID: "t1", Title: "Trendy"}}

	rec := a.do(t, http.MethodGet, "/api/v1/trending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/trending?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus type: status = %d", rec.Code)
	}

	a.trending.err = errors.New("offline")
	rec = a.do(t, http.MethodGet, "/api/v1/trending", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("fetch failure: status = %d", rec.Code)
	}
}

func TestUpsertUserShow(t *testing.T) {
	a := newTestAPI(t)
	a.catalog.shows["tmdb_1"] = &models.Show{ID: "tmdb_1", Title: "First", MediaType: models.MediaTypeSeries}

	body := map[string]any{"status": "watching", "current_season": 2, "current_episode": 5}
	rec := a.do(t, http.MethodPut, "/api/v1/users/u1/shows/tmdb_1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := a.tracker.upserted
	if got == nil || got.UserID != "u1" || got.ShowID != "tmdb_1" {
		t.Fatalf("upserted = %+v", got)
	}
	if got.CurrentSeason != 2 || got.CurrentEpisode != 5 {
		t.Errorf("progress = S%dE%d", got.CurrentSeason, got.CurrentEpisode)
	}
	if got.MediaType != models.MediaTypeSeries {
		t.Errorf("media type = %q, want the tracked show's", got.MediaType)
	}
}

func TestUpsertUserShowValidation(t *testing.T) {
	a := newTestAPI(t)
	a.catalog.shows["tmdb_1"] = &models.Show{ID: "tmdb_1", Title: "First"}

	rec := a.do(t, http.MethodPut, "/api/v1/users/u1/shows/tmdb_1", map[string]any{"status": "paused"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status: code = %d", rec.Code)
	}

	rec = a.do(t, http.MethodPut, "/api/v1/users/u1/shows/tmdb_1", map[string]any{"status": "watching", "personal_rating": 6})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad rating: code = %d", rec.Code)
	}

	rec = a.do(t, http.MethodPut, "/api/v1/users/u1/shows/unknown", map[string]any{"status": "watching"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown show: code = %d", rec.Code)
	}
}

func TestDeleteUserShow(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodDelete, "/api/v1/users/u1/shows/tmdb_1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(a.tracker.deleted) != 1 || a.tracker.deleted[0] != "u1/tmdb_1" {
		t.Errorf("deleted = %v", a.tracker.deleted)
	}
}

func TestListUserShows(t *testing.T) {
	a := newTestAPI(t)
	a.library.records["u1_s1"] = &models.UserShow{ID: "u1_s1", UserID: "u1", ShowID: "s1", Status: models.StatusWatching}
	a.library.records["u1_s2"] = &models.UserShow{ID: "u1_s2", UserID: "u1", ShowID: "s2", Status: models.StatusCompleted}

	rec := a.do(t, http.MethodGet, "/api/v1/users/u1/shows", nil)
	if resp := decodeEnvelope(t, rec); resp.Metadata.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Metadata.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/shows?status=watching", nil)
	if resp := decodeEnvelope(t, rec); resp.Metadata.Count != 1 {
		t.Errorf("filtered count = %d, want 1", resp.Metadata.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/shows?status=paused", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status filter: code = %d", rec.Code)
	}
}

func TestListUserShowsFiltersByMediaType(t *testing.T) {
	a := newTestAPI(t)
	a.library.records["u1_s1"] = &models.UserShow{ID: "u1_s1", UserID: "u1", ShowID: "s1", Status: models.StatusWatching, MediaType: models.MediaTypeSeries}
	a.library.records["u1_m1"] = &models.UserShow{ID: "u1_m1", UserID: "u1", ShowID: "m1", Status: models.StatusWatching, MediaType: models.MediaTypeMovie}

	rec := a.do(t, http.MethodGet, "/api/v1/users/u1/shows?status=watching&type=series", nil)
	resp := decodeEnvelope(t, rec)
	if resp.Metadata.Count != 1 {
		t.Fatalf("count = %d, want only the series record", resp.Metadata.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/shows?type=movie", nil)
	if resp := decodeEnvelope(t, rec); resp.Metadata.Count != 1 {
		t.Errorf("count = %d, want only the movie record", resp.Metadata.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/shows?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type filter: code = %d", rec.Code)
	}
}

func TestGetUserShow(t *testing.T) {
	a := newTestAPI(t)
	a.library.records["u1_s1"] = &models.UserShow{ID: "u1_s1", UserID: "u1", ShowID: "s1", Status: models.StatusWatching}

	rec := a.do(t, http.MethodGet, "/api/v1/users/u1/shows/s1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/shows/s2", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("untracked: status = %d", rec.Code)
	}
}

func TestRecommendations(t *testing.T) {
	a := newTestAPI(t)
	a.recommender.recs = []models.Recommendation{
		{Show: &models.Show{ID: "c1", Title: "One"}, Score: 0.8},
	}

	rec := a.do(t, http.MethodGet, "/api/v1/users/u1/recommendations?type=series&limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Metadata.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Metadata.Count)
	}

	rec = a.do(t, http.MethodGet, "/api/v1/users/u1/recommendations?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus type: status = %d", rec.Code)
	}
}

func TestSimilarUnknownSeed(t *testing.T) {
	a := newTestAPI(t)
	a.recommender.err = recommend.ErrShowNotFound

	rec := a.do(t, http.MethodGet, "/api/v1/shows/missing/similar", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSyncStatus(t *testing.T) {
	a := newTestAPI(t)
	a.tracker.online = false
	a.tracker.stats = queue.Stats{Pending: 7, Oldest: time.Now()}

	rec := a.do(t, http.MethodGet, "/api/v1/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	if data["online"] != false {
		t.Errorf("online = %v, want false", data["online"])
	}
}

func TestPreload(t *testing.T) {
	a := newTestAPI(t)
	a.tracker.preloaded = 3

	rec := a.do(t, http.MethodPost, "/api/v1/users/u1/preload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	if data["refreshed"] != float64(3) {
		t.Errorf("refreshed = %v, want 3", data["refreshed"])
	}
}
