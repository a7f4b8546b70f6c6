package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ValueFetch retrieves a single document from upstream.
type ValueFetch[T any] func(ctx context.Context) (*T, error)

// Value is the single-document counterpart of Store, used for the stats
// payload. Same rules: wholesale replacement, last resolver wins, failures
// keep the last-known value.
type Value[T any] struct {
	name  string
	fetch ValueFetch[T]

	mu        sync.RWMutex
	value     *T
	fetchedAt time.Time
	onUpdate  []func(T)

	logger *zap.Logger
}

// NewValue creates an empty value store.
func NewValue[T any](name string, fetch ValueFetch[T], logger *zap.Logger) *Value[T] {
	return &Value[T]{
		name:   name,
		fetch:  fetch,
		logger: logger,
	}
}

// Refresh fetches and replaces the value.
func (v *Value[T]) Refresh(ctx context.Context) error {
	value, err := v.fetch(ctx)
	if err != nil {
		v.logger.Warn("Refresh failed, keeping last-known value",
			zap.String("store", v.name),
			zap.Error(err))
		return fmt.Errorf("refresh %s: %w", v.name, err)
	}

	v.mu.Lock()
	v.value = value
	v.fetchedAt = time.Now()
	observers := append([]func(T){}, v.onUpdate...)
	v.mu.Unlock()

	for _, fn := range observers {
		fn(*value)
	}
	return nil
}

// Seed installs a cached value while no fetch has succeeded yet.
func (v *Value[T]) Seed(value T, fetchedAt time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.fetchedAt.IsZero() {
		return
	}
	v.value = &value
	v.fetchedAt = fetchedAt
}

// OnUpdate registers a callback invoked after every successful refresh.
func (v *Value[T]) OnUpdate(fn func(T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onUpdate = append(v.onUpdate, fn)
}

// Get returns a copy of the current value, or nil if none was ever loaded.
func (v *Value[T]) Get() (*T, time.Time) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.value == nil {
		return nil, v.fetchedAt
	}
	copied := *v.value
	return &copied, v.fetchedAt
}
