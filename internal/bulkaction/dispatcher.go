// Package bulkaction applies one action to every selected invoice. The
// backend exposes a batched endpoint, so the whole selection goes out in a
// single request and failures come back as one aggregate error; there is no
// per-id result to surface. Whatever the outcome, the selection is cleared
// and exactly one store refetch is raised so the view reflects backend truth
// instead of a locally guessed state.
package bulkaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/damshique/admin-gateway/internal/events"
	"github.com/damshique/admin-gateway/internal/selection"
	"github.com/damshique/admin-gateway/internal/upstream"
	"go.uber.org/zap"
)

var (
	// ErrEmptySelection means dispatch was requested with nothing selected.
	ErrEmptySelection = errors.New("no invoices selected")
	// ErrUnknownAction means the action tag is not approve, reject or delete.
	ErrUnknownAction = errors.New("unknown bulk action")
	// ErrConfirmationRequired means a destructive action was not confirmed.
	ErrConfirmationRequired = errors.New("destructive action requires confirmation")
)

// Backend is the slice of the upstream client the dispatcher needs.
type Backend interface {
	BulkAction(ctx context.Context, ids []string, action string) error
}

// Dispatcher issues bulk invoice actions.
type Dispatcher struct {
	backend Backend
	bus     *events.Bus
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(backend Backend, bus *events.Bus, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		bus:     bus,
		logger:  logger,
	}
}

// Result reports the aggregate outcome of a dispatch.
type Result struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Dispatch sends the selected ids upstream with the given action. Delete and
// reject are destructive and must arrive with confirmed=true. After the
// upstream call returns — success or failure — the selection is cleared and
// the invoice store is invalidated once.
func (d *Dispatcher) Dispatch(ctx context.Context, sel *selection.Set, action string, confirmed bool) (*Result, error) {
	switch action {
	case upstream.ActionApprove:
	case upstream.ActionReject, upstream.ActionDelete:
		if !confirmed {
			return nil, ErrConfirmationRequired
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	ids := sel.IDs()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	err := d.backend.BulkAction(ctx, ids, action)

	sel.Clear()
	d.bus.Invalidate(ctx, events.ResourceInvoices)

	if err != nil {
		d.logger.Error("Bulk action failed",
			zap.String("action", action),
			zap.Int("count", len(ids)),
			zap.Error(err))
		return nil, fmt.Errorf("bulk %s of %d invoices: %w", action, len(ids), err)
	}

	d.logger.Info("Bulk action dispatched",
		zap.String("action", action),
		zap.Int("count", len(ids)))
	return &Result{Action: action, Count: len(ids)}, nil
}
