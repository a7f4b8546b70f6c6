// Package upstream is the typed client for the Damshique bot backend. The
// backend owns all data; the gateway only reads snapshots and posts actions
// through this client. The admin API token is injected at construction, not
// read from ambient state, so tests can point a client at a mock server.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/damshique/admin-gateway/internal/models"
	"go.uber.org/zap"
)

// Bulk action tags accepted by the backend.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

// Config holds upstream connection settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the bot backend's admin REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an upstream client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Invoices fetches the full invoice list.
func (c *Client) Invoices(ctx context.Context) ([]models.Invoice, error) {
	var out []models.Invoice
	if err := c.getJSON(ctx, "/api/admin/invoices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InvoiceDetail fetches one invoice with line items.
func (c *Client) InvoiceDetail(ctx context.Context, id string) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.getJSON(ctx, "/api/admin/invoices/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessInvoice approves a single invoice.
func (c *Client) ProcessInvoice(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/admin/invoices/"+url.PathEscape(id)+"/process", nil, nil)
}

// BulkAction applies one action to a batch of invoice ids in a single
// request. The backend reports only an aggregate result, never per-id status.
func (c *Client) BulkAction(ctx context.Context, ids []string, action string) error {
	body := map[string]any{
		"invoice_ids": ids,
		"action":      action,
	}
	return c.postJSON(ctx, "/api/admin/invoices/bulk-action", body, nil)
}

// Users fetches all system users.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.getJSON(ctx, "/api/admin/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser registers a user directly, bypassing the request queue.
func (c *Client) CreateUser(ctx context.Context, phone, name, role string) error {
	body := map[string]string{"phone": phone, "name": name, "role": role}
	return c.postJSON(ctx, "/api/admin/users", body, nil)
}

// DeleteUser removes a system user.
func (c *Client) DeleteUser(ctx context.Context, phone string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(phone), nil, nil)
}

// Requests fetches pending registration requests.
func (c *Client) Requests(ctx context.Context) ([]models.RegistrationRequest, error) {
	var out []models.RegistrationRequest
	if err := c.getJSON(ctx, "/api/admin/requests", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveRequest grants a registration request with the given role.
func (c *Client) ApproveRequest(ctx context.Context, phone, role string) error {
	path := "/api/admin/requests/" + url.PathEscape(phone) + "/approve"
	if role != "" {
		path += "?role=" + url.QueryEscape(role)
	}
	return c.postJSON(ctx, path, nil, nil)
}

// RejectRequest declines a registration request.
func (c *Client) RejectRequest(ctx context.Context, phone string) error {
	return c.postJSON(ctx, "/api/admin/requests/"+url.PathEscape(phone)+"/reject", nil, nil)
}

// Merchants fetches vendor aggregates.
func (c *Client) Merchants(ctx context.Context) ([]models.Merchant, error) {
	var out []models.Merchant
	if err := c.getJSON(ctx, "/api/admin/merchants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MerchantInvoices fetches all invoices for one vendor name.
func (c *Client) MerchantInvoices(ctx context.Context, name string) ([]models.Invoice, error) {
	var out []models.Invoice
	if err := c.getJSON(ctx, "/api/admin/merchants/"+url.PathEscape(name)+"/invoices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserInvoices fetches all invoices submitted by one user.
func (c *Client) UserInvoices(ctx context.Context, phone string) ([]models.Invoice, error) {
	var out []models.Invoice
	if err := c.getJSON(ctx, "/api/admin/users/"+url.PathEscape(phone)+"/invoices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AuditLogs fetches the system audit trail.
func (c *Client) AuditLogs(ctx context.Context) ([]models.AuditLog, error) {
	var out []models.AuditLog
	if err := c.getJSON(ctx, "/api/admin/audit-logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BotActivity fetches logged bot interactions.
func (c *Client) BotActivity(ctx context.Context) ([]models.BotActivity, error) {
	var out []models.BotActivity
	if err := c.getJSON(ctx, "/api/admin/bot-activity", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notifications fetches system notifications.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.getJSON(ctx, "/api/admin/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the header-card counters.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.getJSON(ctx, "/api/admin/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginResult is the upstream login response.
type LoginResult struct {
	Success bool             `json:"success"`
	Token   string           `json:"token"`
	User    models.AdminUser `json:"user"`
}

// Login authenticates admin credentials against the backend. It is the only
// call made without the admin API token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates an upstream session token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.postJSON(ctx, "/api/auth/logout", map[string]string{"token": token}, nil)
}

// WebSocketURL derives the upstream push endpoint from the base URL.
func (c *Client) WebSocketURL() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-API-Token", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Detail = body.Detail
	}

	c.logger.Debug("Upstream request rejected",
		zap.Int("status", apiErr.StatusCode),
		zap.String("detail", apiErr.Detail))
	return apiErr
}
