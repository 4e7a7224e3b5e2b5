// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/models"
)

// Key prefixes for the shows collection.
const (
	showKeyPrefix     = "show:"
	showTypeKeyPrefix = "show_type:"
)

// ShowStore persists cached content records.
type ShowStore struct {
	db *badger.DB
}

// NewShowStore creates a show store on the shared BadgerDB instance.
func NewShowStore(db *badger.DB) *ShowStore {
	return &ShowStore{db: db}
}

func showKey(id string) []byte {
	return []byte(showKeyPrefix + id)
}

func showTypeKey(mt models.MediaType, id string) []byte {
	return []byte(showTypeKeyPrefix + string(mt) + ":" + id)
}

// Put upserts a show by id, replacing any existing record wholesale and
// maintaining the media-type index in the same transaction.
func (s *ShowStore) Put(ctx context.Context, show *models.Show) error {
	if show == nil {
		return errors.New("nil show")
	}
	if show.ID == "" {
		return errors.New("show id is empty")
	}
	if !show.MediaType.Valid() {
		return fmt.Errorf("invalid media type %q", show.MediaType)
	}

	data, err := json.Marshal(show)
	if err != nil {
		return fmt.Errorf("marshal show: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Re-saves never change a show's media type in practice, but a
		// stale index entry would make ListByType return ghosts.
		var existing models.Show
		item, err := txn.Get(showKey(show.ID))
		if err == nil {
			verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			})
			if verr == nil && existing.MediaType != show.MediaType {
				if derr := txn.Delete(showTypeKey(existing.MediaType, show.ID)); derr != nil {
					return fmt.Errorf("drop stale type index: %w", derr)
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read existing show: %w", err)
		}

		if err := txn.Set(showKey(show.ID), data); err != nil {
			return fmt.Errorf("set show: %w", err)
		}
		if err := txn.Set(showTypeKey(show.MediaType, show.ID), []byte(show.ID)); err != nil {
			return fmt.Errorf("set type index: %w", err)
		}
		return nil
	})
}

// Get retrieves a show by id. Absent ids return ErrShowNotFound.
func (s *ShowStore) Get(ctx context.Context, id string) (*models.Show, error) {
	var show models.Show

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(showKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrShowNotFound
		}
		if err != nil {
			return fmt.Errorf("get show: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &show)
		})
	})
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// ListByType returns all cached shows of the given media type. The result
// order is unspecified.
func (s *ShowStore) ListByType(ctx context.Context, mt models.MediaType) ([]*models.Show, error) {
	var shows []*models.Show

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(showTypeKeyPrefix + string(mt) + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				continue
			}

			item, err := txn.Get(showKey(id))
			if err != nil {
				continue // index entry without record; skip
			}

			var show models.Show
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &show)
			}); err != nil {
				continue
			}
			shows = append(shows, &show)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list shows by type: %w", err)
	}
	return shows, nil
}

// Search returns cached shows whose title contains the query,
// case-insensitively, optionally filtered by media type.
func (s *ShowStore) Search(ctx context.Context, query string, mt models.MediaType) ([]*models.Show, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var matches []*models.Show
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(showKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var show models.Show
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &show)
			}); err != nil {
				continue
			}
			if mt != "" && show.MediaType != mt {
				continue
			}
			if strings.Contains(strings.ToLower(show.Title), needle) {
				matches = append(matches, &show)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search shows: %w", err)
	}
	return matches, nil
}

// Delete removes a show and its index entry. Deleting an absent show is
// not an error.
func (s *ShowStore) Delete(ctx context.Context, id string) error {
	var mt models.MediaType

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(showKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var show models.Show
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &show)
		}); err != nil {
			return err
		}
		mt = show.MediaType
		return nil
	})
	if err != nil {
		return fmt.Errorf("read show for delete: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(showKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete show: %w", err)
		}
		if mt != "" {
			if err := txn.Delete(showTypeKey(mt, id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete type index: %w", err)
			}
		}
		return nil
	})
}
