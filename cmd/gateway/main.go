package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damshique/admin-gateway/internal/assistant"
	"github.com/damshique/admin-gateway/internal/bulkaction"
	"github.com/damshique/admin-gateway/internal/cache"
	"github.com/damshique/admin-gateway/internal/config"
	"github.com/damshique/admin-gateway/internal/events"
	"github.com/damshique/admin-gateway/internal/export"
	"github.com/damshique/admin-gateway/internal/models"
	"github.com/damshique/admin-gateway/internal/notify"
	"github.com/damshique/admin-gateway/internal/records"
	"github.com/damshique/admin-gateway/internal/selection"
	"github.com/damshique/admin-gateway/internal/server"
	"github.com/damshique/admin-gateway/internal/session"
	"github.com/damshique/admin-gateway/internal/upstream"
	"github.com/damshique/admin-gateway/internal/worker"
	"github.com/damshique/admin-gateway/pkg/database"
	"github.com/damshique/admin-gateway/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Damshique Admin Gateway",
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.Int("port", cfg.Server.Port))

	// Local database for sessions and snapshot cache
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open local database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sessions := session.NewStore(db.DB, logger)
	snapshots := cache.NewSnapshots(db.DB, logger)

	// Upstream client and record stores
	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.Upstream.Timeout,
	}, logger)

	bus := events.NewBus(logger)
	registry := records.NewRegistry(client, snapshots, bus, logger)
	registry.WarmFromCache()

	notifier := notify.NewCenter(cfg.Notifications.Retention, logger)
	selections := selection.NewRegistry()
	dispatcher := bulkaction.NewDispatcher(client, bus, logger)
	exports := export.NewBuilder(logger)

	chat := assistant.New(assistant.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	}, snapshotView{registry}, logger)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := worker.NewManager(logger)
	if cfg.Poller.Enabled {
		manager.Register(worker.NewRefreshPoller(bus, records.AllResources(), cfg.Poller.Interval, logger))
	} else {
		// No poller: still fetch once at startup so the stores are warm.
		registry.RefreshAll(ctx)
	}
	if cfg.Upstream.EnablePush {
		manager.Register(upstream.NewListener(
			client.WebSocketURL(),
			pushHandler(ctx, bus, notifier, logger),
			logger,
		))
	}
	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(server.Deps{
			Upstream:    client,
			Registry:    registry,
			Bus:         bus,
			Selections:  selections,
			Dispatcher:  dispatcher,
			Notifier:    notifier,
			Sessions:    sessions,
			Exports:     exports,
			Assistant:   chat,
			StaticToken: cfg.Upstream.Token,
			Logger:      logger,
		}).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	manager.StopAll()
	cancel()
	bus.Close()

	logger.Info("Gateway exited successfully")
}

// snapshotView adapts the store registry to the assistant's read interface.
type snapshotView struct {
	registry *records.Registry
}

func (v snapshotView) Invoices() []models.Invoice   { return v.registry.Invoices.Snapshot() }
func (v snapshotView) Users() []models.User         { return v.registry.Users.Snapshot() }
func (v snapshotView) Merchants() []models.Merchant { return v.registry.Merchants.Snapshot() }

// pushHandler reacts to upstream push messages: show a toast, then refetch
// whatever the message concerns. Both mechanisms funnel through the bus, so
// a push landing during a poll cycle coalesces instead of double-fetching.
func pushHandler(ctx context.Context, bus *events.Bus, notifier *notify.Center, logger *zap.Logger) func(upstream.PushMessage) {
	return func(msg upstream.PushMessage) {
		level := notify.LevelInfo
		switch msg.Type {
		case upstream.EventInvoiceReceived:
			level = notify.LevelSuccess
		case upstream.EventInvoiceRejected, upstream.EventDuplicateDetected:
			level = notify.LevelWarning
		default:
			logger.Debug("Unhandled push type", zap.String("type", msg.Type))
		}

		if msg.Message != "" {
			notifier.Push(level, msg.Message)
		}

		bus.Invalidate(ctx, events.ResourceInvoices)
		bus.Invalidate(ctx, events.ResourceMerchants)
		bus.Invalidate(ctx, events.ResourceStats)
		bus.Invalidate(ctx, events.ResourceNotifications)
	}
}
