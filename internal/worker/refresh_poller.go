package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/damshique/admin-gateway/internal/events"
	"go.uber.org/zap"
)

// RefreshPoller periodically invalidates a set of resources so their stores
// refetch from upstream. It replaces the SPA's per-screen setInterval calls
// with one shared timer that is released unconditionally on shutdown.
// Because invalidations coalesce on the bus, a poll tick that lands while a
// push-triggered refetch is in flight does not start a duplicate request.
type RefreshPoller struct {
	bus       *events.Bus
	resources []events.Resource
	interval  time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRefreshPoller creates a poller. A zero interval defaults to 30 seconds,
// the cadence the dashboard polled at.
func NewRefreshPoller(bus *events.Bus, resources []events.Resource, interval time.Duration, logger *zap.Logger) *RefreshPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RefreshPoller{
		bus:       bus,
		resources: resources,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins polling in the background.
func (p *RefreshPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("refresh poller is already running")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.isRunning = true

	p.logger.Info("RefreshPoller started",
		zap.Duration("interval", p.interval),
		zap.Int("resources", len(p.resources)))

	go p.pollLoop()
	return nil
}

// Stop cancels the polling loop and releases its timer.
func (p *RefreshPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}
	p.isRunning = false
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Info("RefreshPoller stopped")
}

// Name identifies the worker.
func (p *RefreshPoller) Name() string {
	return "RefreshPoller"
}

func (p *RefreshPoller) pollLoop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Refresh immediately on start so the stores are warm before the
	// first dashboard request.
	p.invalidateAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.invalidateAll()
		}
	}
}

func (p *RefreshPoller) invalidateAll() {
	for _, res := range p.resources {
		p.bus.Invalidate(p.ctx, res)
	}
}
