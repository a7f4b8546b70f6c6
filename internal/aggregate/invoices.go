package aggregate

import (
	"time"

	"github.com/damshique/admin-gateway/internal/models"
)

// InvoiceSummary is the derived view the invoices dashboard header renders.
type InvoiceSummary struct {
	TotalCount    int            `json:"total_count"`
	StatusCounts  map[string]int `json:"status_counts"`
	TotalSpend    float64        `json:"total_spend"`
	ByCategory    []Bucket       `json:"by_category"`
	MonthlySpend  []TrendPoint   `json:"monthly_spend"`
	UniqueVendors int            `json:"unique_vendors"`
}

// SummarizeInvoices computes the full invoice summary from a snapshot.
func SummarizeInvoices(invoices []models.Invoice) InvoiceSummary {
	status := func(inv models.Invoice) string { return models.NormalizeStatus(inv.Status) }
	category := func(inv models.Invoice) string { return models.NormalizeCategory(inv.Category) }
	amount := func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() }
	date := func(inv models.Invoice) (time.Time, bool) { return inv.InvoiceDate.Time, inv.InvoiceDate.Valid }

	vendors := make(map[string]struct{})
	for _, inv := range invoices {
		if inv.VendorName != "" {
			vendors[inv.VendorName] = struct{}{}
		}
	}

	return InvoiceSummary{
		TotalCount:    len(invoices),
		StatusCounts:  CountByStatus(invoices, status),
		TotalSpend:    round2(Sum(invoices, amount)),
		ByCategory:    Distribution(invoices, category, amount),
		MonthlySpend:  MonthlyTrend(invoices, date, amount),
		UniqueVendors: len(vendors),
	}
}

// SummarizeMerchants ranks merchants by aggregate spend share.
func SummarizeMerchants(merchants []models.Merchant) []Bucket {
	return Distribution(merchants,
		func(m models.Merchant) string { return m.Name },
		func(m models.Merchant) float64 { return m.TotalSpend.Float64() })
}
