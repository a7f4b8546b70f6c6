// Package events routes "data changed upstream" signals to store refreshes.
// Both refresh triggers — the periodic poller and the upstream WebSocket
// push — raise the same invalidation, and concurrent invalidations for one
// resource coalesce: at most one refetch runs at a time with at most one
// queued behind it, so a burst of pushes never fans out into a burst of
// identical upstream requests.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Resource identifies one refreshable record store.
type Resource string

const (
	ResourceInvoices      Resource = "invoices"
	ResourceUsers         Resource = "users"
	ResourceRequests      Resource = "requests"
	ResourceMerchants     Resource = "merchants"
	ResourceAuditLogs     Resource = "audit-logs"
	ResourceBotActivity   Resource = "bot-activity"
	ResourceNotifications Resource = "notifications"
	ResourceStats         Resource = "stats"
)

// RefreshFunc refetches one resource from upstream.
type RefreshFunc func(ctx context.Context) error

type target struct {
	refresh RefreshFunc
	running bool
	pending bool
}

// Bus coalesces invalidations per resource.
type Bus struct {
	mu      sync.Mutex
	targets map[Resource]*target
	logger  *zap.Logger
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// NewBus creates an empty invalidation bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		targets: make(map[Resource]*target),
		logger:  logger,
	}
}

// Register binds a refresh function to a resource. Later registrations for
// the same resource replace earlier ones.
func (b *Bus) Register(res Resource, refresh RefreshFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets[res] = &target{refresh: refresh}
}

// Invalidate schedules a refetch of the resource. If one is already in
// flight, a single follow-up is queued; further invalidations are absorbed.
// The refetch runs detached from the caller's request lifetime.
func (b *Bus) Invalidate(ctx context.Context, res Resource) {
	if b.closed.Load() {
		return
	}

	b.mu.Lock()
	t, ok := b.targets[res]
	if !ok {
		b.mu.Unlock()
		b.logger.Warn("Invalidation for unregistered resource", zap.String("resource", string(res)))
		return
	}
	if t.running {
		t.pending = true
		b.mu.Unlock()
		return
	}
	t.running = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.refreshLoop(context.WithoutCancel(ctx), res, t)
}

func (b *Bus) refreshLoop(ctx context.Context, res Resource, t *target) {
	defer b.wg.Done()

	for {
		if err := t.refresh(ctx); err != nil {
			b.logger.Error("Refresh failed",
				zap.String("resource", string(res)),
				zap.Error(err))
		} else {
			b.logger.Debug("Resource refreshed", zap.String("resource", string(res)))
		}

		b.mu.Lock()
		if t.pending && !b.closed.Load() {
			t.pending = false
			b.mu.Unlock()
			continue
		}
		t.running = false
		b.mu.Unlock()
		return
	}
}

// Close stops accepting invalidations and waits for in-flight refreshes.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.wg.Wait()
}
