package filter

import (
	"time"

	"github.com/damshique/admin-gateway/internal/models"
)

// Per-screen field accessors. These mirror which columns each dashboard
// screen searched and filtered on.

// InvoiceFields filters invoices by vendor, submitter, status, category,
// invoice date and total amount.
var InvoiceFields = Fields[models.Invoice]{
	Search: func(inv models.Invoice) []string {
		return []string{inv.VendorName, inv.UserName, inv.UserID, inv.ID}
	},
	Date: func(inv models.Invoice) (time.Time, bool) {
		return inv.InvoiceDate.Time, inv.InvoiceDate.Valid
	},
	Amount: func(inv models.Invoice) float64 {
		return inv.TotalAmount.Float64()
	},
	Status: func(inv models.Invoice) string {
		return models.NormalizeStatus(inv.Status)
	},
	Category: func(inv models.Invoice) string {
		return models.NormalizeCategory(inv.Category)
	},
}

// UserFields filters employees by name, phone and role.
var UserFields = Fields[models.User]{
	Search: func(u models.User) []string {
		return []string{u.Name, u.Phone}
	},
	Date: func(u models.User) (time.Time, bool) {
		return u.CreatedAt.Time, u.CreatedAt.Valid
	},
	Category: func(u models.User) string {
		return u.Role
	},
}

// MerchantFields filters merchants by name, with amount criteria applying to
// aggregate spend.
var MerchantFields = Fields[models.Merchant]{
	Search: func(m models.Merchant) []string {
		return []string{m.Name}
	},
	Date: func(m models.Merchant) (time.Time, bool) {
		return m.LastInteraction.Time, m.LastInteraction.Valid
	},
	Amount: func(m models.Merchant) float64 {
		return m.TotalSpend.Float64()
	},
}

// AuditLogFields filters audit entries by actor, action and entity.
var AuditLogFields = Fields[models.AuditLog]{
	Search: func(a models.AuditLog) []string {
		return []string{a.ActorName, a.ActorID, a.Action, a.EntityType, a.EntityID, a.Detail}
	},
	Date: func(a models.AuditLog) (time.Time, bool) {
		return a.CreatedAt.Time, a.CreatedAt.Valid
	},
	Category: func(a models.AuditLog) string {
		return a.Action
	},
}

// BotActivityFields filters bot interactions by user, message and intent.
var BotActivityFields = Fields[models.BotActivity]{
	Search: func(b models.BotActivity) []string {
		return []string{b.UserID, b.Message, b.Intent}
	},
	Date: func(b models.BotActivity) (time.Time, bool) {
		return b.CreatedAt.Time, b.CreatedAt.Valid
	},
	Category: func(b models.BotActivity) string {
		return b.Intent
	},
}
