package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/damshique/admin-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(y int, m time.Month, d int) models.Timestamp {
	return models.NewTimestamp(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestCountByStatus_BucketsSumToTotal(t *testing.T) {
	invoices := []models.Invoice{
		{Status: "approved"},
		{Status: "Approved"},
		{Status: "pending"},
		{Status: ""},
		{Status: "rejected"},
	}
	counts := CountByStatus(invoices, func(inv models.Invoice) string {
		return models.NormalizeStatus(inv.Status)
	})

	assert.Equal(t, 2, counts["approved"])
	assert.Equal(t, 2, counts["pending"]) // empty status falls back to pending
	assert.Equal(t, 1, counts["rejected"])

	var total int
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(invoices), total)
}

func TestSum_NeverNaN(t *testing.T) {
	invoices := []models.Invoice{
		{TotalAmount: 10},
		{TotalAmount: 0}, // unparseable upstream value coerced at decode time
		{TotalAmount: 5.5},
	}
	sum := Sum(invoices, func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() })
	assert.False(t, math.IsNaN(sum))
	assert.Equal(t, 15.5, sum)
}

func TestDistribution_PercentagesSumToHundred(t *testing.T) {
	invoices := []models.Invoice{
		{Category: "Office", TotalAmount: 30},
		{Category: "Travel", TotalAmount: 50},
		{Category: "Office", TotalAmount: 20},
	}
	buckets := Distribution(invoices,
		func(inv models.Invoice) string { return models.NormalizeCategory(inv.Category) },
		func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() })

	require.Len(t, buckets, 2)
	assert.Equal(t, "Office", buckets[0].Key)
	assert.Equal(t, 50.0, buckets[0].Total)
	assert.Equal(t, 50.0, buckets[0].Percentage)
	assert.Equal(t, "Travel", buckets[1].Key)
	assert.Equal(t, 50.0, buckets[1].Percentage)

	var pct float64
	for _, b := range buckets {
		pct += b.Percentage
	}
	assert.InDelta(t, 100.0, pct, 0.05)
}

func TestDistribution_ZeroGrandTotal(t *testing.T) {
	invoices := []models.Invoice{
		{Category: "Office", TotalAmount: 0},
		{Category: "Travel", TotalAmount: 0},
	}
	buckets := Distribution(invoices,
		func(inv models.Invoice) string { return inv.Category },
		func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() })

	for _, b := range buckets {
		assert.Equal(t, 0.0, b.Percentage)
		assert.False(t, math.IsNaN(b.Percentage))
	}
}

func TestDistribution_KeepsFirstAppearanceOrder(t *testing.T) {
	invoices := []models.Invoice{
		{Category: "Travel", TotalAmount: 1},
		{Category: "Office", TotalAmount: 1},
		{Category: "Travel", TotalAmount: 1},
		{Category: "Meals", TotalAmount: 1},
	}
	buckets := Distribution(invoices,
		func(inv models.Invoice) string { return inv.Category },
		func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() })

	keys := make([]string, len(buckets))
	for i, b := range buckets {
		keys[i] = b.Key
	}
	assert.Equal(t, []string{"Travel", "Office", "Meals"}, keys)
}

func TestDistribution_Empty(t *testing.T) {
	buckets := Distribution(nil,
		func(inv models.Invoice) string { return inv.Category },
		func(inv models.Invoice) float64 { return 0 })
	assert.Empty(t, buckets)
}

func TestMonthlyTrend(t *testing.T) {
	invoices := []models.Invoice{
		{InvoiceDate: ts(2025, 1, 5), TotalAmount: 100},
		{InvoiceDate: ts(2025, 1, 20), TotalAmount: 50},
		{InvoiceDate: ts(2025, 2, 1), TotalAmount: 75},
		{InvoiceDate: models.Timestamp{}, TotalAmount: 999}, // no date, skipped
	}
	points := MonthlyTrend(invoices,
		func(inv models.Invoice) (time.Time, bool) { return inv.InvoiceDate.Time, inv.InvoiceDate.Valid },
		func(inv models.Invoice) float64 { return inv.TotalAmount.Float64() })

	require.Len(t, points, 2)
	assert.Equal(t, "2025-01", points[0].Period)
	assert.Equal(t, 2, points[0].Count)
	assert.Equal(t, 150.0, points[0].Total)
	assert.Equal(t, "2025-02", points[1].Period)
	assert.Equal(t, 75.0, points[1].Total)
}

func TestSummarizeInvoices(t *testing.T) {
	invoices := []models.Invoice{
		{VendorName: "Acme", Status: "approved", Category: "Office", TotalAmount: 100, InvoiceDate: ts(2025, 1, 10)},
		{VendorName: "Acme", Status: "pending", Category: "Travel", TotalAmount: 200, InvoiceDate: ts(2025, 2, 10)},
		{VendorName: "Globex", Status: "", Category: "", TotalAmount: 0, InvoiceDate: models.Timestamp{}},
	}
	summary := SummarizeInvoices(invoices)

	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 300.0, summary.TotalSpend)
	assert.Equal(t, 2, summary.UniqueVendors)
	assert.Equal(t, 1, summary.StatusCounts["approved"])
	assert.Equal(t, 2, summary.StatusCounts["pending"])
	assert.Len(t, summary.MonthlySpend, 2)

	var uncategorized bool
	for _, b := range summary.ByCategory {
		if b.Key == models.DefaultCategory {
			uncategorized = true
		}
	}
	assert.True(t, uncategorized)
}

func TestSummarizeInvoices_Empty(t *testing.T) {
	summary := SummarizeInvoices(nil)
	assert.Equal(t, 0, summary.TotalCount)
	assert.Equal(t, 0.0, summary.TotalSpend)
	assert.Empty(t, summary.ByCategory)
	assert.Empty(t, summary.MonthlySpend)
}

func TestSummarizeMerchants(t *testing.T) {
	merchants := []models.Merchant{
		{Name: "Acme", TotalSpend: 750},
		{Name: "Globex", TotalSpend: 250},
	}
	buckets := SummarizeMerchants(merchants)
	require.Len(t, buckets, 2)
	assert.Equal(t, 75.0, buckets[0].Percentage)
	assert.Equal(t, 25.0, buckets[1].Percentage)
}
