package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/damshique/admin-gateway/internal/aggregate"
	"github.com/damshique/admin-gateway/internal/assistant"
	"github.com/damshique/admin-gateway/internal/bulkaction"
	"github.com/damshique/admin-gateway/internal/events"
	"github.com/damshique/admin-gateway/internal/filter"
	"github.com/damshique/admin-gateway/internal/models"
	"github.com/damshique/admin-gateway/internal/notify"
	"github.com/damshique/admin-gateway/internal/records"
	"github.com/damshique/admin-gateway/internal/selection"
	"github.com/damshique/admin-gateway/internal/store"
	"github.com/damshique/admin-gateway/internal/upstream"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// listResponse is the envelope every record list endpoint returns.
type listResponse[T any] struct {
	Records   []T       `json:"records"`
	Total     int       `json:"total"`
	Filtered  int       `json:"filtered"`
	FetchedAt time.Time `json:"fetched_at"`
}

func respondList[T any](c *gin.Context, s *store.Store[T], state filter.State, fields filter.Fields[T]) {
	snapshot := s.Snapshot()
	matched := filter.Apply(snapshot, state, fields)
	c.JSON(http.StatusOK, listResponse[T]{
		Records:   matched,
		Total:     len(snapshot),
		Filtered:  len(matched),
		FetchedAt: s.FetchedAt(),
	})
}

// parseFilterState reads the shared filter query parameters: search,
// date_from, date_to (inclusive, YYYY-MM-DD), statuses and categories
// (comma-separated), min_amount and max_amount. Malformed values are treated
// as unset rather than erroring, matching how the dashboard's inputs
// degraded.
func parseFilterState(c *gin.Context) filter.State {
	state := filter.State{Search: c.Query("search")}

	if from, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		state.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		// inclusive upper bound: cover the whole end day
		end := to.Add(24*time.Hour - time.Nanosecond)
		state.DateTo = &end
	}

	state.Statuses = splitList(c.Query("statuses"))
	state.Categories = splitList(c.Query("categories"))

	if min, err := strconv.ParseFloat(c.Query("min_amount"), 64); err == nil {
		state.AmountMin = &min
	}
	if max, err := strconv.ParseFloat(c.Query("max_amount"), 64); err == nil {
		state.AmountMax = &max
	}

	return state
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// respondUpstreamError maps a failed upstream call onto the response. The
// backend's application errors keep their status and detail; connectivity
// failures become a 502 so the dashboard can tell "backend said no" from
// "backend unreachable".
func (s *Server) respondUpstreamError(c *gin.Context, err error) {
	if apiErr, ok := upstream.AsAPIError(err); ok {
		c.JSON(apiErr.StatusCode, gin.H{"detail": apiErr.Detail})
		return
	}
	s.Logger.Error("Upstream call failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"detail": "Backend unreachable"})
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password required"})
		return
	}

	result, err := s.Upstream.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondUpstreamError(c, err)
		return
	}

	if err := s.Sessions.Save(result.Token, result.User); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to persist session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"user":    result.User,
	})
}

type logoutRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleLogout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	// Best effort on both sides; logout never fails visibly.
	if err := s.Upstream.Logout(c.Request.Context(), req.Token); err != nil {
		s.Logger.Warn("Upstream logout failed", zap.Error(err))
	}
	if err := s.Sessions.Delete(req.Token); err != nil {
		s.Logger.Warn("Session delete failed", zap.Error(err))
	}
	s.Selections.DropSession(req.Token)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Invoices ---

func (s *Server) handleListInvoices(c *gin.Context) {
	respondList(c, s.Registry.Invoices, parseFilterState(c), filter.InvoiceFields)
}

func (s *Server) handleInvoiceSummary(c *gin.Context) {
	c.JSON(http.StatusOK, aggregate.SummarizeInvoices(s.Registry.Invoices.Snapshot()))
}

func (s *Server) handleInvoiceDetail(c *gin.Context) {
	invoice, err := s.Upstream.InvoiceDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) handleProcessInvoice(c *gin.Context) {
	id := c.Param("id")
	err := s.Upstream.ProcessInvoice(c.Request.Context(), id)
	s.Bus.Invalidate(c.Request.Context(), events.ResourceInvoices)
	if err != nil {
		s.Notifier.Push(notify.LevelError, "Failed to approve invoice")
		s.respondUpstreamError(c, err)
		return
	}
	s.Notifier.Push(notify.LevelSuccess, "Invoice approved")
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type bulkActionRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
	Action     string   `json:"action" binding:"required"`
	Confirm    bool     `json:"confirm"`
}

func (s *Server) handleBulkAction(c *gin.Context) {
	var req bulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invoice_ids and action are required"})
		return
	}

	// Explicit ids bypass the stored selection, for SPA builds that kept
	// selection state client-side.
	var sel *selection.Set
	if len(req.InvoiceIDs) > 0 {
		sel = selection.NewSet()
		sel.SelectAll(req.InvoiceIDs)
	} else {
		sel = s.Selections.Get(c.GetString(ctxToken), "invoices")
	}

	result, err := s.Dispatcher.Dispatch(c.Request.Context(), sel, req.Action, req.Confirm)
	if err != nil {
		switch {
		case errors.Is(err, bulkaction.ErrConfirmationRequired),
			errors.Is(err, bulkaction.ErrEmptySelection),
			errors.Is(err, bulkaction.ErrUnknownAction):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		default:
			s.Notifier.Push(notify.LevelError, "Bulk action failed")
			s.respondUpstreamError(c, err)
		}
		return
	}

	s.Notifier.Push(notify.LevelSuccess,
		strconv.Itoa(result.Count)+" invoices "+pastTense(result.Action))
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"count":  result.Count,
		"action": result.Action,
	})
}

func pastTense(action string) string {
	switch action {
	case upstream.ActionApprove:
		return "approved"
	case upstream.ActionReject:
		return "rejected"
	case upstream.ActionDelete:
		return "deleted"
	}
	return action + "ed"
}

// --- Users ---

func (s *Server) handleListUsers(c *gin.Context) {
	respondList(c, s.Registry.Users, parseFilterState(c), filter.UserFields)
}

type createUserRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Role  string `json:"role"`
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Phone and Name are required"})
		return
	}
	if req.Role == "" {
		req.Role = "employee"
	}

	if err := s.Upstream.CreateUser(c.Request.Context(), req.Phone, req.Name, req.Role); err != nil {
		s.respondUpstreamError(c, err)
		return
	}

	s.Bus.Invalidate(c.Request.Context(), events.ResourceUsers)
	s.Notifier.Push(notify.LevelSuccess, "User "+req.Name+" added")
	c.JSON(http.StatusOK, gin.H{"status": "success", "phone": req.Phone})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "destructive action requires confirmation"})
		return
	}

	phone := c.Param("phone")
	if err := s.Upstream.DeleteUser(c.Request.Context(), phone); err != nil {
		s.respondUpstreamError(c, err)
		return
	}

	s.Bus.Invalidate(c.Request.Context(), events.ResourceUsers)
	s.Notifier.Push(notify.LevelSuccess, "User deleted")
	c.JSON(http.StatusOK, gin.H{"status": "success", "phone": phone})
}

func (s *Server) handleUserInvoices(c *gin.Context) {
	invoices, err := s.Upstream.UserInvoices(c.Request.Context(), c.Param("phone"))
	if err != nil {
		s.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// --- Registration requests ---

func (s *Server) handleListRequests(c *gin.Context) {
	snapshot := s.Registry.Requests.Snapshot()
	c.JSON(http.StatusOK, listResponse[models.RegistrationRequest]{
		Records:   snapshot,
		Total:     len(snapshot),
		Filtered:  len(snapshot),
		FetchedAt: s.Registry.Requests.FetchedAt(),
	})
}

func (s *Server) handleApproveRequest(c *gin.Context) {
	phone := c.Param("phone")
	role := c.DefaultQuery("role", "employee")
	if err := s.Upstream.ApproveRequest(c.Request.Context(), phone, role); err != nil {
		s.respondUpstreamError(c, err)
		return
	}

	s.Bus.Invalidate(c.Request.Context(), events.ResourceRequests)
	s.Bus.Invalidate(c.Request.Context(), events.ResourceUsers)
	s.Notifier.Push(notify.LevelSuccess, "Access request approved")
	c.JSON(http.StatusOK, gin.H{"status": "success", "phone": phone})
}

func (s *Server) handleRejectRequest(c *gin.Context) {
	phone := c.Param("phone")
	if err := s.Upstream.RejectRequest(c.Request.Context(), phone); err != nil {
		s.respondUpstreamError(c, err)
		return
	}

	s.Bus.Invalidate(c.Request.Context(), events.ResourceRequests)
	s.Notifier.Push(notify.LevelInfo, "Access request rejected")
	c.JSON(http.StatusOK, gin.H{"status": "success", "phone": phone})
}

// --- Merchants ---

func (s *Server) handleListMerchants(c *gin.Context) {
	respondList(c, s.Registry.Merchants, parseFilterState(c), filter.MerchantFields)
}

func (s *Server) handleMerchantSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"merchants": aggregate.SummarizeMerchants(s.Registry.Merchants.Snapshot()),
	})
}

func (s *Server) handleMerchantInvoices(c *gin.Context) {
	invoices, err := s.Upstream.MerchantInvoices(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// --- Logs, notifications, stats ---

func (s *Server) handleListAuditLogs(c *gin.Context) {
	respondList(c, s.Registry.AuditLogs, parseFilterState(c), filter.AuditLogFields)
}

func (s *Server) handleListBotActivity(c *gin.Context) {
	respondList(c, s.Registry.BotActivity, parseFilterState(c), filter.BotActivityFields)
}

func (s *Server) handleListNotifications(c *gin.Context) {
	snapshot := s.Registry.Notifications.Snapshot()
	c.JSON(http.StatusOK, listResponse[models.Notification]{
		Records:   snapshot,
		Total:     len(snapshot),
		Filtered:  len(snapshot),
		FetchedAt: s.Registry.Notifications.FetchedAt(),
	})
}

func (s *Server) handleRecentToasts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"toasts": s.Notifier.Recent()})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, fetchedAt := s.Registry.Stats.Get()
	if stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Stats not yet available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "fetched_at": fetchedAt})
}

// --- Refresh ---

func (s *Server) handleRefresh(c *gin.Context) {
	resource := events.Resource(c.Param("resource"))
	known := false
	for _, res := range records.AllResources() {
		if res == resource {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown resource"})
		return
	}

	s.Bus.Invalidate(c.Request.Context(), resource)
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled"})
}

// --- Chat ---

type chatRequest struct {
	Query   string              `json:"query" binding:"required"`
	History []assistant.Message `json:"history"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Query is required"})
		return
	}

	reply, err := s.Assistant.Answer(c.Request.Context(), req.Query, req.History)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}
