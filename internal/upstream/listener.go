package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Push message types the backend emits over /ws.
const (
	EventInvoiceReceived   = "invoice_received"
	EventInvoiceRejected   = "invoice_rejected"
	EventDuplicateDetected = "duplicate_detected"
)

// PushMessage is one JSON frame from the backend's WebSocket endpoint. The
// protocol is notify-and-refetch: the payload carries a display message and
// the receiver refetches whatever store the type concerns.
type PushMessage struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Listener maintains a connection to the backend push endpoint and hands
// each decoded frame to a handler. It reconnects with backoff and runs as a
// managed background worker.
type Listener struct {
	url     string
	handler func(PushMessage)
	logger  *zap.Logger

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewListener creates a listener for the given ws:// or wss:// URL.
func NewListener(wsURL string, handler func(PushMessage), logger *zap.Logger) *Listener {
	return &Listener{
		url:     wsURL,
		handler: handler,
		logger:  logger,
	}
}

// Start begins listening in the background.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isRunning {
		return fmt.Errorf("push listener is already running")
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.isRunning = true

	l.logger.Info("Push listener started", zap.String("url", l.url))
	go l.run()
	return nil
}

// Stop disconnects and stops reconnecting.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isRunning {
		return
	}
	l.isRunning = false
	if l.cancel != nil {
		l.cancel()
	}
	l.logger.Info("Push listener stopped")
}

// Name identifies the worker.
func (l *Listener) Name() string {
	return "PushListener"
}

func (l *Listener) run() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if l.ctx.Err() != nil {
			return
		}

		if err := l.listenOnce(); err != nil {
			l.logger.Warn("Push connection lost",
				zap.Error(err),
				zap.Duration("retry_in", backoff))
		}

		select {
		case <-l.ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listenOnce() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(l.ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()

	// Unblock the read loop when the worker is stopped.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-l.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	l.logger.Info("Push connection established")
	for {
		var msg PushMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read push frame: %w", err)
		}
		if msg.Type == "" {
			l.logger.Debug("Ignoring untyped push frame")
			continue
		}
		l.handler(msg)
	}
}
