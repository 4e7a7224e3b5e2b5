// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/models"
)

func TestUpsertSendsMergeDuplicates(t *testing.T) {
	var gotPrefer, gotPath, gotAPIKey string
	var gotBody models.Show

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(config.RemoteConfig{BaseURL: srv.URL, APIKey: "secret"})
	show := &models.Show{ID: "tmdb_1", MediaType: models.MediaTypeSeries, Title: "Test"}
	if err := c.Upsert(context.Background(), "shows", show); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if gotPrefer != "resolution=merge-duplicates" {
		t.Errorf("Prefer header = %q", gotPrefer)
	}
	if gotPath != "/rest/v1/shows" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAPIKey != "secret" {
		t.Errorf("apikey header = %q", gotAPIKey)
	}
	if gotBody.ID != "tmdb_1" {
		t.Errorf("body id = %q", gotBody.ID)
	}
}

func TestUpsertServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(config.RemoteConfig{BaseURL: srv.URL})
	err := c.Upsert(context.Background(), "shows", &models.Show{ID: "x"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestGetByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "eq.u1_a" {
			t.Errorf("id filter = %q", r.URL.Query().Get("id"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1_a","status":"watching"}]`))
	}))
	defer srv.Close()

	c := NewClient(config.RemoteConfig{BaseURL: srv.URL})
	raw, err := c.GetByID(context.Background(), "user_shows", "u1_a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	var row struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		t.Fatal(err)
	}
	if row.ID != "u1_a" {
		t.Errorf("row id = %q", row.ID)
	}
}

func TestGetByIDAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(config.RemoteConfig{BaseURL: srv.URL})
	_, err := c.GetByID(context.Background(), "shows", "missing")
	if !errors.Is(err, models.ErrRemoteNotFound) {
		t.Errorf("err = %v, want ErrRemoteNotFound", err)
	}
}

func TestDeleteByID(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(config.RemoteConfig{BaseURL: srv.URL})
	if err := c.DeleteByID(context.Background(), "user_shows", "u1_a"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q", gotMethod)
	}
}
