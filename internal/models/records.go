package models

import "strings"

// Invoice statuses form a small closed set. The upstream database is not
// strict about casing, and older rows have no status at all.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// DefaultCategory is assigned to invoices without a category, matching the
// "Uncategorized" bucket the dashboard always showed.
const DefaultCategory = "Uncategorized"

// NormalizeStatus lowercases a status value and maps empty to pending.
func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return StatusPending
	}
	return s
}

// NormalizeCategory maps an empty category to the default bucket.
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if c == "" {
		return DefaultCategory
	}
	return c
}

// LineItem is a single row of an invoice.
type LineItem struct {
	Description string `json:"description"`
	Quantity    Amount `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	LineTotal   Amount `json:"line_total"`
}

// Invoice is an invoice record as returned by the upstream admin API.
type Invoice struct {
	ID          string     `json:"invoice_id"`
	VendorName  string     `json:"vendor_name"`
	TotalAmount Amount     `json:"total_amount"`
	Currency    string     `json:"currency"`
	InvoiceDate Timestamp  `json:"invoice_date"`
	Status      string     `json:"status"`
	Category    string     `json:"category"`
	UserID      string     `json:"user_id"`
	UserName    string     `json:"user_name"`
	FileURL     string     `json:"file_url,omitempty"`
	LineItems   []LineItem `json:"line_items,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
}

// User is a system user. The phone number is the identifier.
type User struct {
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  Timestamp `json:"created_at"`
	LastLogin  Timestamp `json:"last_login"`
}

// RegistrationRequest is a pending access request from a WhatsApp user.
type RegistrationRequest struct {
	Phone       string    `json:"phone"`
	Name        string    `json:"name"`
	RequestedAt Timestamp `json:"requested_at"`
}

// Merchant is a vendor aggregate. The name doubles as the identifier; the
// upstream has no surrogate key for merchants.
type Merchant struct {
	Name            string    `json:"name"`
	TotalSpend      Amount    `json:"total_spend"`
	InvoiceCount    int       `json:"invoice_count"`
	LastInteraction Timestamp `json:"last_interaction"`
}

// AuditLog is one entry of the system audit trail.
type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  Timestamp `json:"created_at"`
}

// BotActivity is one logged bot interaction.
type BotActivity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Message    string    `json:"message"`
	Response   string    `json:"response"`
	Intent     string    `json:"intent"`
	Confidence Amount    `json:"confidence"`
	Channel    string    `json:"channel"`
	CreatedAt  Timestamp `json:"created_at"`
}

// Notification is a system notification pushed to the dashboard.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt Timestamp `json:"created_at"`
}

// Stats is the header-card summary returned by the upstream stats endpoint.
type Stats struct {
	Employees   int `json:"employees"`
	Merchants   int `json:"merchants"`
	Invoices    int `json:"invoices"`
	Reports     int `json:"reports"`
	BotActivity int `json:"botActivity"`
	AIQueue     int `json:"aiQueue"`
	Users       int `json:"users"`
	Audits      int `json:"audits"`
}

// AdminUser is the user object returned by upstream login and cached with
// the session token.
type AdminUser struct {
	Name string `json:"name"`
	Role string `json:"role"`
}
