// Package store holds in-memory snapshots of upstream records, one store per
// dashboard resource. A snapshot is replaced wholesale on every successful
// refresh; there is no incremental patching. On refresh failure the store
// keeps its last-known data so the dashboard degrades to stale rather than
// empty.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FetchFunc retrieves the full record list from upstream.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Store is a point-in-time snapshot of one upstream resource.
type Store[T any] struct {
	name  string
	fetch FetchFunc[T]
	id    func(T) string

	mu        sync.RWMutex
	records   []T
	fetchedAt time.Time
	onUpdate  []func([]T)

	logger *zap.Logger
}

// New creates an empty store. The id accessor extracts the record
// identifier used for selections and pruning.
func New[T any](name string, fetch FetchFunc[T], id func(T) string, logger *zap.Logger) *Store[T] {
	return &Store[T]{
		name:   name,
		fetch:  fetch,
		id:     id,
		logger: logger,
	}
}

// Refresh fetches the resource and replaces the snapshot. When two refreshes
// race, whichever resolves later wins; records are read-mostly and
// idempotently refetched so this is safe. A failed fetch leaves the current
// snapshot in place.
func (s *Store[T]) Refresh(ctx context.Context) error {
	records, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("Refresh failed, keeping last-known snapshot",
			zap.String("store", s.name),
			zap.Error(err))
		return fmt.Errorf("refresh %s: %w", s.name, err)
	}

	s.replace(records, time.Now())
	return nil
}

// Seed installs records loaded from the local cache. It only applies while
// the store has never been successfully refreshed, so a late cache load can
// never clobber fresh upstream data.
func (s *Store[T]) Seed(records []T, fetchedAt time.Time) {
	s.mu.Lock()
	if !s.fetchedAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.records = records
	s.fetchedAt = fetchedAt
	observers := append([]func([]T){}, s.onUpdate...)
	s.mu.Unlock()

	s.notify(observers, records)
}

func (s *Store[T]) replace(records []T, fetchedAt time.Time) {
	s.mu.Lock()
	s.records = records
	s.fetchedAt = fetchedAt
	observers := append([]func([]T){}, s.onUpdate...)
	s.mu.Unlock()

	s.logger.Debug("Snapshot replaced",
		zap.String("store", s.name),
		zap.Int("records", len(records)))
	s.notify(observers, records)
}

func (s *Store[T]) notify(observers []func([]T), records []T) {
	for _, fn := range observers {
		fn(records)
	}
}

// OnUpdate registers a callback invoked after every snapshot replacement,
// with the new record list. Used for cache persistence and selection pruning.
func (s *Store[T]) OnUpdate(fn func([]T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, fn)
}

// Snapshot returns a copy of the current record list.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// IDs returns the identifiers of all records in the snapshot.
func (s *Store[T]) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, s.id(rec))
	}
	return out
}

// ID returns the identifier of a single record.
func (s *Store[T]) ID(rec T) string {
	return s.id(rec)
}

// Len returns the snapshot size.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FetchedAt returns when the snapshot was last replaced; zero if never.
func (s *Store[T]) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Name returns the store's resource name.
func (s *Store[T]) Name() string {
	return s.name
}
