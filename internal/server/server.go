// Package server is the gateway's HTTP surface. It exposes the consolidated
// admin API the dashboard consumes: filtered record lists, selections, bulk
// actions, aggregates, exports, chat and a WebSocket toast feed.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/damshique/admin-gateway/internal/assistant"
	"github.com/damshique/admin-gateway/internal/bulkaction"
	"github.com/damshique/admin-gateway/internal/events"
	"github.com/damshique/admin-gateway/internal/export"
	"github.com/damshique/admin-gateway/internal/models"
	"github.com/damshique/admin-gateway/internal/notify"
	"github.com/damshique/admin-gateway/internal/records"
	"github.com/damshique/admin-gateway/internal/selection"
	"github.com/damshique/admin-gateway/internal/session"
	"github.com/damshique/admin-gateway/internal/upstream"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps bundles everything the handlers need.
type Deps struct {
	Upstream   *upstream.Client
	Registry   *records.Registry
	Bus        *events.Bus
	Selections *selection.Registry
	Dispatcher *bulkaction.Dispatcher
	Notifier   *notify.Center
	Sessions   *session.Store
	Exports    *export.Builder
	Assistant  *assistant.Assistant
	// StaticToken is accepted alongside session tokens, mirroring the
	// backend's environment-token fallback for scripted access.
	StaticToken string
	Logger      *zap.Logger
}

// Server holds the router and its dependencies.
type Server struct {
	Deps
	router *gin.Engine
}

// New builds the router and wires selection pruning to store refreshes.
func New(deps Deps) *Server {
	s := &Server{Deps: deps}

	// Selections may never outlive the records they point at: after every
	// refetch, ids that left the snapshot are dropped from all selections.
	deps.Registry.Invoices.OnUpdate(func([]models.Invoice) {
		deps.Selections.PruneAll("invoices", deps.Registry.Invoices.IDs())
	})
	deps.Registry.Users.OnUpdate(func([]models.User) {
		deps.Selections.PruneAll("users", deps.Registry.Users.IDs())
	})
	deps.Registry.Merchants.OnUpdate(func([]models.Merchant) {
		deps.Selections.PruneAll("merchants", deps.Registry.Merchants.IDs())
	})
	deps.Registry.AuditLogs.OnUpdate(func([]models.AuditLog) {
		deps.Selections.PruneAll("audit-logs", deps.Registry.AuditLogs.IDs())
	})
	deps.Registry.BotActivity.OnUpdate(func([]models.BotActivity) {
		deps.Selections.PruneAll("bot-activity", deps.Registry.BotActivity.IDs())
	})

	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.Logger))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "damshique-admin-gateway",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", s.handleLogin)
		auth.POST("/logout", s.handleLogout)
	}

	admin := router.Group("/api/admin")
	admin.Use(s.authMiddleware())
	{
		admin.GET("/invoices", s.handleListInvoices)
		admin.GET("/invoices/summary", s.handleInvoiceSummary)
		admin.GET("/invoices/:id", s.handleInvoiceDetail)
		admin.POST("/invoices/:id/process", s.handleProcessInvoice)
		admin.POST("/invoices/bulk-action", s.handleBulkAction)

		admin.GET("/users", s.handleListUsers)
		admin.POST("/users", s.handleCreateUser)
		admin.DELETE("/users/:phone", s.handleDeleteUser)
		admin.GET("/users/:phone/invoices", s.handleUserInvoices)

		admin.GET("/requests", s.handleListRequests)
		admin.POST("/requests/:phone/approve", s.handleApproveRequest)
		admin.POST("/requests/:phone/reject", s.handleRejectRequest)

		admin.GET("/merchants", s.handleListMerchants)
		admin.GET("/merchants/summary", s.handleMerchantSummary)
		admin.GET("/merchants/:name/invoices", s.handleMerchantInvoices)

		admin.GET("/audit-logs", s.handleListAuditLogs)
		admin.GET("/bot-activity", s.handleListBotActivity)
		admin.GET("/notifications", s.handleListNotifications)
		admin.GET("/toasts", s.handleRecentToasts)
		admin.GET("/stats", s.handleStats)

		admin.GET("/selection/:screen", s.handleSelectionStatus)
		admin.POST("/selection/:screen/toggle", s.handleSelectionToggle)
		admin.POST("/selection/:screen/select-all", s.handleSelectionSelectAll)
		admin.POST("/selection/:screen/clear", s.handleSelectionClear)

		admin.GET("/export/:kind", s.handleExport)
		admin.POST("/chat", s.handleChat)
		admin.POST("/refresh/:resource", s.handleRefresh)
	}

	router.GET("/ws", s.authMiddleware(), s.handleWebSocket)

	return router
}

// Handler returns the HTTP handler for the gateway server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// authMiddleware resolves the caller's token to an admin user. Tokens are
// accepted from the X-API-Token header, a token query parameter or a Bearer
// authorization header, matching what the backend itself accepts.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "No authentication token provided"})
			return
		}

		if s.StaticToken != "" && token == s.StaticToken {
			c.Set(ctxToken, token)
			c.Next()
			return
		}

		user, err := s.Sessions.Lookup(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Session lookup failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Access Denied. Invalid or expired session token."})
			return
		}

		c.Set(ctxToken, token)
		c.Set(ctxUser, *user)
		c.Next()
	}
}

const (
	ctxToken = "session_token"
	ctxUser  = "admin_user"
)

func extractToken(c *gin.Context) string {
	if token := c.GetHeader("X-API-Token"); token != "" {
		return token
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	if authz := c.GetHeader("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return ""
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// corsMiddleware adds CORS headers for the SPA origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
