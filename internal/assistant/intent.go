package assistant

import "strings"

// Intent is the recognized subject of an admin query. Classification is
// keyword based and deliberately coarse: the assistant only ever answers
// from gateway snapshots, so a wrong guess degrades to a generic summary
// rather than a wrong fact.
type Intent string

const (
	IntentSpendSummary   Intent = "spend_summary"
	IntentRecentInvoices Intent = "recent_invoices"
	IntentTopMerchants   Intent = "top_merchants"
	IntentPendingReview  Intent = "pending_review"
	IntentEmployees      Intent = "employees"
	IntentUnknown        Intent = "unknown"
)

var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPendingReview, []string{"pending", "review", "approve", "waiting"}},
	{IntentTopMerchants, []string{"merchant", "vendor", "supplier", "top"}},
	{IntentRecentInvoices, []string{"recent", "latest", "last invoice", "newest"}},
	{IntentEmployees, []string{"employee", "user", "staff", "who"}},
	{IntentSpendSummary, []string{"spend", "total", "how much", "cost", "amount", "month"}},
}

// ClassifyIntent maps a free-text admin query to an intent.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(query)
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.intent
			}
		}
	}
	return IntentUnknown
}
