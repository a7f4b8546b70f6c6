// Package records wires one store per dashboard resource to the upstream
// client, the invalidation bus and the local snapshot cache. It is the
// single place that knows which resources exist.
package records

import (
	"context"

	"github.com/damshique/admin-gateway/internal/cache"
	"github.com/damshique/admin-gateway/internal/events"
	"github.com/damshique/admin-gateway/internal/filter"
	"github.com/damshique/admin-gateway/internal/models"
	"github.com/damshique/admin-gateway/internal/store"
	"github.com/damshique/admin-gateway/internal/upstream"
	"go.uber.org/zap"
)

// Registry holds every record store the gateway serves.
type Registry struct {
	Invoices      *store.Store[models.Invoice]
	Users         *store.Store[models.User]
	Requests      *store.Store[models.RegistrationRequest]
	Merchants     *store.Store[models.Merchant]
	AuditLogs     *store.Store[models.AuditLog]
	BotActivity   *store.Store[models.BotActivity]
	Notifications *store.Store[models.Notification]
	Stats         *store.Value[models.Stats]

	snapshots *cache.Snapshots
	logger    *zap.Logger
}

// NewRegistry builds all stores, binds their refreshes to the bus and hooks
// snapshot persistence. Pass a nil snapshots cache to disable persistence.
func NewRegistry(client *upstream.Client, snapshots *cache.Snapshots, bus *events.Bus, logger *zap.Logger) *Registry {
	r := &Registry{
		Invoices:      store.New("invoices", client.Invoices, func(i models.Invoice) string { return i.ID }, logger),
		Users:         store.New("users", client.Users, func(u models.User) string { return u.Phone }, logger),
		Requests:      store.New("requests", client.Requests, func(q models.RegistrationRequest) string { return q.Phone }, logger),
		Merchants:     store.New("merchants", client.Merchants, func(m models.Merchant) string { return m.Name }, logger),
		AuditLogs:     store.New("audit-logs", client.AuditLogs, func(a models.AuditLog) string { return a.ID }, logger),
		BotActivity:   store.New("bot-activity", client.BotActivity, func(b models.BotActivity) string { return b.ID }, logger),
		Notifications: store.New("notifications", client.Notifications, func(n models.Notification) string { return n.ID }, logger),
		Stats:         store.NewValue("stats", client.Stats, logger),
		snapshots:     snapshots,
		logger:        logger,
	}

	bus.Register(events.ResourceInvoices, r.Invoices.Refresh)
	bus.Register(events.ResourceUsers, r.Users.Refresh)
	bus.Register(events.ResourceRequests, r.Requests.Refresh)
	bus.Register(events.ResourceMerchants, r.Merchants.Refresh)
	bus.Register(events.ResourceAuditLogs, r.AuditLogs.Refresh)
	bus.Register(events.ResourceBotActivity, r.BotActivity.Refresh)
	bus.Register(events.ResourceNotifications, r.Notifications.Refresh)
	bus.Register(events.ResourceStats, r.Stats.Refresh)

	if snapshots != nil {
		persist(r.Invoices, snapshots, logger)
		persist(r.Users, snapshots, logger)
		persist(r.Requests, snapshots, logger)
		persist(r.Merchants, snapshots, logger)
		persist(r.AuditLogs, snapshots, logger)
		persist(r.BotActivity, snapshots, logger)
		persist(r.Notifications, snapshots, logger)
	}

	return r
}

// AllResources lists every refreshable resource, in poller order.
func AllResources() []events.Resource {
	return []events.Resource{
		events.ResourceInvoices,
		events.ResourceUsers,
		events.ResourceRequests,
		events.ResourceMerchants,
		events.ResourceAuditLogs,
		events.ResourceBotActivity,
		events.ResourceNotifications,
		events.ResourceStats,
	}
}

// WarmFromCache seeds every store from the local snapshot cache. Stores that
// already refreshed keep their live data.
func (r *Registry) WarmFromCache() {
	if r.snapshots == nil {
		return
	}
	warm(r.Invoices, r.snapshots, r.logger)
	warm(r.Users, r.snapshots, r.logger)
	warm(r.Requests, r.snapshots, r.logger)
	warm(r.Merchants, r.snapshots, r.logger)
	warm(r.AuditLogs, r.snapshots, r.logger)
	warm(r.BotActivity, r.snapshots, r.logger)
	warm(r.Notifications, r.snapshots, r.logger)
}

// RefreshAll refreshes every store once, directly. Used at startup to warm
// stores before the server accepts traffic; errors are already logged per
// store and startup proceeds on stale or empty data.
func (r *Registry) RefreshAll(ctx context.Context) {
	_ = r.Invoices.Refresh(ctx)
	_ = r.Users.Refresh(ctx)
	_ = r.Requests.Refresh(ctx)
	_ = r.Merchants.Refresh(ctx)
	_ = r.AuditLogs.Refresh(ctx)
	_ = r.BotActivity.Refresh(ctx)
	_ = r.Notifications.Refresh(ctx)
	_ = r.Stats.Refresh(ctx)
}

// FilteredIDs applies a filter state to the named screen and returns the
// visible record ids. The second return is false for unknown screens.
func (r *Registry) FilteredIDs(screen string, state filter.State) ([]string, bool) {
	switch screen {
	case "invoices":
		return filteredIDs(r.Invoices, state, filter.InvoiceFields), true
	case "users":
		return filteredIDs(r.Users, state, filter.UserFields), true
	case "merchants":
		return filteredIDs(r.Merchants, state, filter.MerchantFields), true
	case "audit-logs":
		return filteredIDs(r.AuditLogs, state, filter.AuditLogFields), true
	case "bot-activity":
		return filteredIDs(r.BotActivity, state, filter.BotActivityFields), true
	default:
		return nil, false
	}
}

func filteredIDs[T any](s *store.Store[T], state filter.State, fields filter.Fields[T]) []string {
	matched := filter.Apply(s.Snapshot(), state, fields)
	ids := make([]string, 0, len(matched))
	for _, rec := range matched {
		ids = append(ids, s.ID(rec))
	}
	return ids
}

func persist[T any](s *store.Store[T], snapshots *cache.Snapshots, logger *zap.Logger) {
	name := s.Name()
	s.OnUpdate(func(recs []T) {
		if err := snapshots.Save(name, recs); err != nil {
			logger.Warn("Snapshot persistence failed",
				zap.String("resource", name),
				zap.Error(err))
		}
	})
}

func warm[T any](s *store.Store[T], snapshots *cache.Snapshots, logger *zap.Logger) {
	var recs []T
	fetchedAt, ok, err := snapshots.Load(s.Name(), &recs)
	if err != nil {
		logger.Warn("Cache load failed",
			zap.String("resource", s.Name()),
			zap.Error(err))
		return
	}
	if !ok {
		return
	}
	s.Seed(recs, fetchedAt)
	logger.Info("Store warmed from cache",
		zap.String("resource", s.Name()),
		zap.Int("records", len(recs)),
		zap.Time("fetched_at", fetchedAt))
}
