// Package notify is the gateway's toast channel: an append-only,
// time-expiring queue of transient notifications. Producers are the upstream
// push listener and bulk-action outcomes; consumers are connected dashboards
// (live via the gateway WebSocket, or catching up over HTTP after a reload).
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Toast severities, matching the dashboard's styling buckets.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// DefaultRetention is how long a toast stays replayable for dashboards that
// reconnect. Clients auto-dismiss after a few seconds; the server keeps
// toasts longer so a reload does not lose them.
const DefaultRetention = 5 * time.Minute

// Toast is one transient notification.
type Toast struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Center buffers toasts and fans them out to subscribers.
type Center struct {
	mu        sync.Mutex
	toasts    []Toast
	retention time.Duration
	subs      map[chan Toast]struct{}
	logger    *zap.Logger
}

// NewCenter creates a toast center. A zero retention uses the default.
func NewCenter(retention time.Duration, logger *zap.Logger) *Center {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Center{
		retention: retention,
		subs:      make(map[chan Toast]struct{}),
		logger:    logger,
	}
}

// Push appends a toast and delivers it to all live subscribers. Slow
// subscribers are skipped rather than blocked on; they catch up via Recent.
func (c *Center) Push(level, message string) Toast {
	toast := Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.prune(toast.CreatedAt)
	c.toasts = append(c.toasts, toast)
	for sub := range c.subs {
		select {
		case sub <- toast:
		default:
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Toast pushed",
		zap.String("level", level),
		zap.String("message", message))
	return toast
}

// Recent returns the unexpired toasts, oldest first.
func (c *Center) Recent() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(time.Now())
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Subscribe returns a channel of future toasts and a cancel function that
// must be called when the consumer goes away.
func (c *Center) Subscribe() (<-chan Toast, func()) {
	ch := make(chan Toast, 16)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
	return ch, cancel
}

// prune drops expired toasts; callers hold the lock.
func (c *Center) prune(now time.Time) {
	cutoff := now.Add(-c.retention)
	keep := c.toasts[:0]
	for _, t := range c.toasts {
		if t.CreatedAt.After(cutoff) {
			keep = append(keep, t)
		}
	}
	c.toasts = keep
}
