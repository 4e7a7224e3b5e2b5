// StreamTrack - Local-First Show Tracking and Recommendations
// Copyright 2026 K. Mills (kmills44)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kmills44/streamtrack

// Package syncer keeps the remote store eventually consistent with local
// mutations. Every mutation commits to the local store first; the remote
// push happens after, and failed pushes land in the durable sync queue.
// An Offline→Online transition triggers exactly one queue drain.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/kmills44/streamtrack/internal/config"
	"github.com/kmills44/streamtrack/internal/logging"
	"github.com/kmills44/streamtrack/internal/metrics"
	"github.com/kmills44/streamtrack/internal/models"
	"github.com/kmills44/streamtrack/internal/queue"
	"github.com/kmills44/streamtrack/internal/store"
)

// Remote store table names.
const (
	TableShows     = "shows"
	TableUserShows = "user_shows"
)

// RemoteStore is the opaque backend persistence contract. Upsert is keyed
// by the entity's primary id, which makes queue replays safe. GetByID
// returns models.ErrRemoteNotFound for absent ids.
type RemoteStore interface {
	Upsert(ctx context.Context, table string, payload any) error
	GetByID(ctx context.Context, table, id string) (json.RawMessage, error)
	DeleteByID(ctx context.Context, table, id string) error
}

// Scheduler defers a function call. The production implementation wraps
// time.AfterFunc; tests substitute a manual implementation so backoff is
// deterministic without wall-clock waits.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler is the wall-clock Scheduler.
type TimerScheduler struct{}

// AfterFunc schedules fn after d using the runtime timer.
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// deletePayload is the queued form of a remote delete.
type deletePayload struct {
	ID string `json:"id"`
}

// drainResult tracks the outcome of processing a single queue entry.
type drainResult int

const (
	drainSuccess drainResult = iota
	drainFailed
	drainDeadLettered
)

// Syncer orchestrates the write path and the queue drain.
type Syncer struct {
	shows     *store.ShowStore
	userShows *store.UserShowStore
	queue     *queue.BadgerQueue
	remote    RemoteStore
	sched     Scheduler
	cfg       config.SyncConfig

	// State - all protected by mu.
	mu       sync.Mutex
	online   bool
	draining bool
}

// New creates a Syncer. The initial connectivity state is Offline until
// SetOnline is called with the first probe result.
func New(shows *store.ShowStore, userShows *store.UserShowStore, q *queue.BadgerQueue, remote RemoteStore, sched Scheduler, cfg config.SyncConfig) (*Syncer, error) {
	if shows == nil || userShows == nil || q == nil {
		return nil, errors.New("syncer requires local stores and a queue")
	}
	if remote == nil {
		return nil, errors.New("syncer requires a remote store")
	}
	if sched == nil {
		sched = TimerScheduler{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}

	return &Syncer{
		shows:     shows,
		userShows: userShows,
		queue:     q,
		remote:    remote,
		sched:     sched,
		cfg:       cfg,
	}, nil
}

// IsOnline reports the current connectivity state.
func (s *Syncer) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline records a connectivity transition. Offline→Online triggers a
// single synchronous drain; Online→Offline only flips the flag and never
// cancels in-flight pushes.
func (s *Syncer) SetOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	prev := s.online
	s.online = online
	s.mu.Unlock()

	if online {
		metrics.ConnectivityOnline.Set(1)
	} else {
		metrics.ConnectivityOnline.Set(0)
	}

	switch {
	case online && !prev:
		logging.Info().Msg("connectivity restored, draining sync queue")
		s.Drain(ctx)
	case !online && prev:
		logging.Warn().Msg("connectivity lost, queueing mutations locally")
	}
}

// SaveShow commits a show locally, then pushes or enqueues the remote
// upsert. A local commit failure aborts the operation; a remote failure
// never does.
func (s *Syncer) SaveShow(ctx context.Context, show *models.Show) error {
	if err := s.shows.Put(ctx, show); err != nil {
		return fmt.Errorf("local commit: %w", err)
	}
	return s.pushOrEnqueue(ctx, queue.OpSaveShow, TableShows, show)
}

// UpsertUserShow commits a tracking record locally, then pushes or
// enqueues the remote upsert. Series progress defaults to 1/1 and
// UpdatedAt is stamped when the caller left it zero.
func (s *Syncer) UpsertUserShow(ctx context.Context, us *models.UserShow) error {
	if us == nil {
		return errors.New("nil user show")
	}
	if us.ID == "" {
		us.ID = models.UserShowID(us.UserID, us.ShowID)
	}
	if us.CurrentSeason <= 0 {
		us.CurrentSeason = 1
	}
	if us.CurrentEpisode <= 0 {
		us.CurrentEpisode = 1
	}
	if us.UpdatedAt.IsZero() {
		us.UpdatedAt = time.Now().UTC()
	}

	if err := s.userShows.Put(ctx, us); err != nil {
		return fmt.Errorf("local commit: %w", err)
	}
	return s.pushOrEnqueue(ctx, queue.OpUpsertUserShow, TableUserShows, us)
}

// DeleteUserShow removes a tracking record locally, then pushes or
// enqueues the remote delete.
func (s *Syncer) DeleteUserShow(ctx context.Context, userID, showID string) error {
	if err := s.userShows.Delete(ctx, userID, showID); err != nil {
		return fmt.Errorf("local delete: %w", err)
	}
	payload := deletePayload{ID: models.UserShowID(userID, showID)}
	return s.pushOrEnqueue(ctx, queue.OpDeleteUserShow, TableUserShows, payload)
}

// pushOrEnqueue attempts an immediate remote push when online and falls
// back to the durable queue. Only a queue persistence failure is returned;
// that is a local storage failure, not a connectivity one.
func (s *Syncer) pushOrEnqueue(ctx context.Context, op queue.Operation, table string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if s.IsOnline() {
		pushErr := s.push(ctx, op, table, raw)
		if pushErr == nil {
			metrics.SyncPushTotal.WithLabelValues("success").Inc()
			return nil
		}
		metrics.SyncPushTotal.WithLabelValues("failure").Inc()
		logging.Warn().Err(pushErr).Str("op", string(op)).Msg("remote push failed, enqueueing")
	}

	entry, err := s.queue.Enqueue(ctx, op, table, json.RawMessage(raw))
	if err != nil {
		return fmt.Errorf("enqueue mutation: %w", err)
	}
	metrics.SyncPushTotal.WithLabelValues("enqueued").Inc()
	s.updateQueueDepth(ctx)
	logging.Debug().Uint64("seq", entry.Seq).Str("op", string(op)).Msg("mutation queued")
	return nil
}

// push performs one bounded remote attempt for an operation and payload.
func (s *Syncer) push(ctx context.Context, op queue.Operation, table string, raw json.RawMessage) error {
	pushCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
	defer cancel()

	if op == queue.OpDeleteUserShow {
		var p deletePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode delete payload: %w", err)
		}
		return s.remote.DeleteByID(pushCtx, table, p.ID)
	}
	return s.remote.Upsert(pushCtx, table, raw)
}

// Drain processes the pending queue in FIFO order. A drain already in
// progress makes this call a no-op; a connectivity flip to Offline stops
// the loop from issuing new attempts.
func (s *Syncer) Drain(ctx context.Context) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	metrics.SyncDrainsTotal.Inc()

	entries, err := s.queue.Pending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("drain: failed to read pending entries")
		return
	}
	if len(entries) == 0 {
		return
	}

	logging.Info().Int("pending", len(entries)).Msg("drain: processing queued mutations")

	var succeeded, failed, deadLettered int
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !s.IsOnline() {
			break
		}

		switch s.processEntry(ctx, entry) {
		case drainSuccess:
			succeeded++
		case drainFailed:
			failed++
		case drainDeadLettered:
			deadLettered++
		}
	}

	s.updateQueueDepth(ctx)
	logging.Info().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("dead_lettered", deadLettered).
		Msg("drain complete")
}

// processEntry pushes one queue entry and settles its fate: removal on
// success, scheduled backoff retry on failure, dead-letter on exhaustion.
func (s *Syncer) processEntry(ctx context.Context, entry *queue.Entry) drainResult {
	err := s.push(ctx, entry.Op, entry.Table, entry.Payload)
	if err == nil {
		if rerr := s.queue.Remove(ctx, entry.Seq); rerr != nil {
			logging.Error().Err(rerr).Uint64("seq", entry.Seq).Msg("drain: failed to remove pushed entry")
		}
		metrics.SyncPushTotal.WithLabelValues("success").Inc()
		return drainSuccess
	}

	metrics.SyncPushTotal.WithLabelValues("failure").Inc()
	updated, merr := s.queue.MarkAttempt(ctx, entry.Seq, err.Error())
	if merr != nil {
		logging.Error().Err(merr).Uint64("seq", entry.Seq).Msg("drain: failed to record attempt")
		return drainFailed
	}

	if updated.RetryCount >= s.cfg.MaxRetries {
		if dlerr := s.queue.MoveToDeadLetter(ctx, entry.Seq); dlerr != nil {
			logging.Error().Err(dlerr).Uint64("seq", entry.Seq).Msg("drain: failed to dead-letter entry")
			return drainFailed
		}
		metrics.SyncDeadLetterTotal.Inc()
		logging.Warn().
			Uint64("seq", entry.Seq).
			Int("retries", updated.RetryCount).
			Str("last_error", updated.LastError).
			Msg("entry exhausted retries, moved to dead letter")
		return drainDeadLettered
	}

	delay := s.backoff(updated.RetryCount)
	seq := entry.Seq
	s.sched.AfterFunc(delay, func() {
		s.retryEntry(seq)
	})
	logging.Debug().
		Uint64("seq", seq).
		Int("retry", updated.RetryCount).
		Dur("delay", delay).
		Msg("retry scheduled")
	return drainFailed
}

// retryEntry is the scheduled single-entry retry. Offline retries are
// dropped; the entry is still pending and the next reconnect drain picks
// it up.
func (s *Syncer) retryEntry(seq uint64) {
	if !s.IsOnline() {
		return
	}

	ctx := context.Background()
	entry, err := s.queue.Get(ctx, seq)
	if errors.Is(err, queue.ErrEntryNotFound) {
		return // a drain got there first
	}
	if err != nil {
		logging.Error().Err(err).Uint64("seq", seq).Msg("retry: failed to load entry")
		return
	}

	s.processEntry(ctx, entry)
	s.updateQueueDepth(ctx)
}

// backoff is 4^retryCount backoff units.
func (s *Syncer) backoff(retryCount int) time.Duration {
	d := s.cfg.BackoffUnit
	for i := 0; i < retryCount; i++ {
		d *= 4
	}
	return d
}

// QueueStats exposes queue depth for the health endpoint.
func (s *Syncer) QueueStats(ctx context.Context) (queue.Stats, error) {
	return s.queue.Stats(ctx)
}

func (s *Syncer) updateQueueDepth(ctx context.Context) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return
	}
	metrics.SyncQueueDepth.Set(float64(stats.Pending))
}
