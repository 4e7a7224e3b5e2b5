// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/models"
)

// Key prefixes for the user-shows collection.
const (
	userShowKeyPrefix       = "usershow:"
	userShowStatusKeyPrefix = "usershow_status:"
)

// UserShowStore persists per-user tracking records keyed by
// (userID, showID), with a secondary index on (userID, status).
type UserShowStore struct {
	db *badger.DB
}

// NewUserShowStore creates a user-show store on the shared BadgerDB instance.
func NewUserShowStore(db *badger.DB) *UserShowStore {
	return &UserShowStore{db: db}
}

func userShowKey(userID, showID string) []byte {
	return []byte(userShowKeyPrefix + userID + ":" + showID)
}

func userShowStatusKey(userID string, status models.Status, showID string) []byte {
	return []byte(userShowStatusKeyPrefix + userID + ":" + string(status) + ":" + showID)
}

// Put upserts a tracking record, keeping the status index consistent when
// the record moves between statuses.
func (s *UserShowStore) Put(ctx context.Context, us *models.UserShow) error {
	if us == nil {
		return errors.New("nil user show")
	}
	if us.UserID == "" || us.ShowID == "" {
		return errors.New("user show requires user id and show id")
	}
	if !us.Status.Valid() {
		return fmt.Errorf("invalid status %q", us.Status)
	}
	if us.ID == "" {
		us.ID = models.UserShowID(us.UserID, us.ShowID)
	}

	data, err := json.Marshal(us)
	if err != nil {
		return fmt.Errorf("marshal user show: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var existing models.UserShow
		item, err := txn.Get(userShowKey(us.UserID, us.ShowID))
		if err == nil {
			verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			})
			if verr == nil && existing.Status != us.Status {
				if derr := txn.Delete(userShowStatusKey(us.UserID, existing.Status, us.ShowID)); derr != nil {
					return fmt.Errorf("drop stale status index: %w", derr)
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read existing user show: %w", err)
		}

		if err := txn.Set(userShowKey(us.UserID, us.ShowID), data); err != nil {
			return fmt.Errorf("set user show: %w", err)
		}
		if err := txn.Set(userShowStatusKey(us.UserID, us.Status, us.ShowID), []byte(us.ShowID)); err != nil {
			return fmt.Errorf("set status index: %w", err)
		}
		return nil
	})
}

// Get retrieves a tracking record. Absent keys return ErrUserShowNotFound.
func (s *UserShowStore) Get(ctx context.Context, userID, showID string) (*models.UserShow, error) {
	var us models.UserShow

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userShowKey(userID, showID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserShowNotFound
		}
		if err != nil {
			return fmt.Errorf("get user show: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &us)
		})
	})
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// ListByUser returns a user's tracking records, most recently updated
// first. A non-empty mt restricts the result to that media type.
func (s *UserShowStore) ListByUser(ctx context.Context, userID string, mt models.MediaType) ([]*models.UserShow, error) {
	var records []*models.UserShow

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userShowKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var us models.UserShow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &us)
			}); err != nil {
				continue
			}
			if mt != "" && us.MediaType != mt {
				continue
			}
			records = append(records, &us)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list user shows: %w", err)
	}

	sortByUpdatedDesc(records)
	return records, nil
}

// ListByUserStatus returns a user's records with the given status, most
// recently updated first. A non-empty mt restricts the result to that
// media type.
func (s *UserShowStore) ListByUserStatus(ctx context.Context, userID string, status models.Status, mt models.MediaType) ([]*models.UserShow, error) {
	var records []*models.UserShow

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userShowStatusKeyPrefix + userID + ":" + string(status) + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var showID string
			if err := it.Item().Value(func(val []byte) error {
				showID = string(val)
				return nil
			}); err != nil {
				continue
			}

			item, err := txn.Get(userShowKey(userID, showID))
			if err != nil {
				continue
			}
			var us models.UserShow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &us)
			}); err != nil {
				continue
			}
			if mt != "" && us.MediaType != mt {
				continue
			}
			records = append(records, &us)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list user shows by status: %w", err)
	}

	sortByUpdatedDesc(records)
	return records, nil
}

// Delete removes a tracking record and its status index entry. Deleting an
// absent record is not an error.
func (s *UserShowStore) Delete(ctx context.Context, userID, showID string) error {
	var status models.Status

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userShowKey(userID, showID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var us models.UserShow
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &us)
		}); err != nil {
			return err
		}
		status = us.Status
		return nil
	})
	if err != nil {
		return fmt.Errorf("read user show for delete: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(userShowKey(userID, showID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete user show: %w", err)
		}
		if status != "" {
			if err := txn.Delete(userShowStatusKey(userID, status, showID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete status index: %w", err)
			}
		}
		return nil
	})
}

func sortByUpdatedDesc(records []*models.UserShow) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
}
