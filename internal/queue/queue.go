// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package queue implements the durable FIFO of mutations pending remote
// propagation. Entries live under a pending key prefix whose keys embed a
// monotonic sequence number, so BadgerDB's byte-ordered iteration yields
// enqueue order. Entries that exhaust their retries move to a dead-letter
// prefix instead of stalling the pending set.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Sentinel errors.
var (
	ErrQueueClosed   = errors.New("sync queue is closed")
	ErrNilPayload    = errors.New("payload cannot be nil")
	ErrEntryNotFound = errors.New("queue entry not found")
)

// Operation names the remote mutation an entry replays.
type Operation string

const (
	OpSaveShow       Operation = "save_show"
	OpUpsertUserShow Operation = "upsert_user_show"
	OpDeleteUserShow Operation = "delete_user_show"
)

// Key prefixes. The sequence number is rendered as fixed-width hex so key
// order equals numeric order.
const (
	prefixPending = "squeue_pending:"
	prefixDead    = "squeue_dead:"
	seqBandwidth  = 64
)

var seqKeyName = []byte("squeue_seq")

// Entry is one pending remote mutation.
type Entry struct {
	ID            string          `json:"id"`
	Seq           uint64          `json:"seq"`
	Op            Operation       `json:"op"`
	Table         string          `json:"table"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	RetryCount    int             `json:"retry_count"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// Stats summarizes queue state for health reporting and metrics.
type Stats struct {
	Pending    int       `json:"pending"`
	DeadLetter int       `json:"dead_letter"`
	Oldest     time.Time `json:"oldest,omitempty"`
}

// BadgerQueue is the BadgerDB-backed queue implementation.
type BadgerQueue struct {
	db  *badger.DB
	seq *badger.Sequence

	mu     sync.Mutex
	closed bool
}

// New creates a queue on the shared BadgerDB instance.
func New(db *badger.DB) (*BadgerQueue, error) {
	seq, err := db.GetSequence(seqKeyName, seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("open queue sequence: %w", err)
	}
	return &BadgerQueue{db: db, seq: seq}, nil
}

func pendingKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", prefixPending, seq)
}

func deadKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", prefixDead, seq)
}

func (q *BadgerQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Enqueue appends a mutation to the pending set. Payload is marshaled as
// JSON; entries are never deduplicated, replay safety comes from the remote
// side's upsert semantics.
func (q *BadgerQueue) Enqueue(ctx context.Context, op Operation, table string, payload any) (*Entry, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	if payload == nil {
		return nil, ErrNilPayload
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	seq, err := q.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	entry := &Entry{
		ID:         uuid.New().String(),
		Seq:        seq,
		Op:         op,
		Table:      table,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(seq), data)
	})
	if err != nil {
		return nil, fmt.Errorf("persist entry: %w", err)
	}
	return entry, nil
}

// Get returns a single pending entry by sequence number.
func (q *BadgerQueue) Get(ctx context.Context, seq uint64) (*Entry, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}

	var entry Entry
	err := q.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Pending returns all pending entries in enqueue (FIFO) order.
func (q *BadgerQueue) Pending(ctx context.Context) ([]*Entry, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	return q.list(ctx, prefixPending)
}

// DeadLetters returns all entries that exhausted their retries, oldest first.
func (q *BadgerQueue) DeadLetters(ctx context.Context) ([]*Entry, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	return q.list(ctx, prefixDead)
}

func (q *BadgerQueue) list(ctx context.Context, prefix string) ([]*Entry, error) {
	var entries []*Entry

	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkAttempt records a failed push attempt: increments RetryCount and
// stores the error and attempt time. Returns the updated entry.
func (q *BadgerQueue) MarkAttempt(ctx context.Context, seq uint64, attemptErr string) (*Entry, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}

	var entry Entry
	err := q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}

		entry.RetryCount++
		entry.LastAttemptAt = time.Now().UTC()
		entry.LastError = attemptErr

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return txn.Set(pendingKey(seq), data)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove deletes a pending entry after a successful push. Removing an
// absent entry is not an error; a concurrent drain may have won.
func (q *BadgerQueue) Remove(ctx context.Context, seq uint64) error {
	if q.isClosed() {
		return ErrQueueClosed
	}
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(pendingKey(seq)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})
}

// MoveToDeadLetter moves a pending entry to the dead-letter set in one
// transaction. The entry keeps its sequence key so dead letters stay in
// enqueue order.
func (q *BadgerQueue) MoveToDeadLetter(ctx context.Context, seq uint64) error {
	if q.isClosed() {
		return ErrQueueClosed
	}

	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pendingKey(seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var data []byte
		if err := item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return fmt.Errorf("read entry: %w", err)
		}

		if err := txn.Set(deadKey(seq), data); err != nil {
			return fmt.Errorf("set dead letter: %w", err)
		}
		if err := txn.Delete(pendingKey(seq)); err != nil {
			return fmt.Errorf("delete pending: %w", err)
		}
		return nil
	})
}

// Stats returns pending and dead-letter counts plus the oldest pending
// enqueue time.
func (q *BadgerQueue) Stats(ctx context.Context) (Stats, error) {
	if q.isClosed() {
		return Stats{}, ErrQueueClosed
	}

	var stats Stats
	pending, err := q.list(ctx, prefixPending)
	if err != nil {
		return Stats{}, err
	}
	dead, err := q.list(ctx, prefixDead)
	if err != nil {
		return Stats{}, err
	}

	stats.Pending = len(pending)
	stats.DeadLetter = len(dead)
	if len(pending) > 0 {
		stats.Oldest = pending[0].EnqueuedAt
	}
	return stats, nil
}

// Close releases the sequence allocator. The queue must not be used after
// Close; the shared BadgerDB instance is closed by its owner.
func (q *BadgerQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	if err := q.seq.Release(); err != nil {
		return fmt.Errorf("release queue sequence: %w", err)
	}
	return nil
}
