// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/models"
)

const recsKeyPrefix = "recs:"

// RecommendationStore memoizes the last recommendation run per user and
// media type. Purely a cache; a miss is normal.
type RecommendationStore struct {
	db *badger.DB
}

// NewRecommendationStore creates a recommendation cache on the shared
// BadgerDB instance.
func NewRecommendationStore(db *badger.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

func recsKey(userID string, mt models.MediaType) []byte {
	return []byte(recsKeyPrefix + userID + ":" + string(mt))
}

// Put stores the recommendation list for (userID, mediaType).
func (s *RecommendationStore) Put(ctx context.Context, list *models.RecommendationList) error {
	if list == nil || list.UserID == "" {
		return errors.New("recommendation list requires a user id")
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recsKey(list.UserID, list.MediaType), data)
	})
}

// Get returns the cached list for (userID, mediaType), or ErrRecsNotFound.
func (s *RecommendationStore) Get(ctx context.Context, userID string, mt models.MediaType) (*models.RecommendationList, error) {
	var list models.RecommendationList

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recsKey(userID, mt))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRecsNotFound
		}
		if err != nil {
			return fmt.Errorf("get recommendations: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &list)
		})
	})
	if err != nil {
		return nil, err
	}
	return &list, nil
}
