// Package assistant answers the dashboard's chat panel. Replies are fact
// based: the query is classified, the relevant figures are computed from the
// current snapshots, and the language model only phrases those figures. With
// no API key configured the same facts are rendered as plain text.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/damshique/admin-gateway/internal/aggregate"
	"github.com/damshique/admin-gateway/internal/models"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Snapshots is the read-only view of the record stores the assistant
// answers from.
type Snapshots interface {
	Invoices() []models.Invoice
	Users() []models.User
	Merchants() []models.Merchant
}

// Config holds the language model settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Message is one turn of chat history, as sent by the dashboard.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the assistant's answer.
type Reply struct {
	Response string         `json:"response"`
	Intent   string         `json:"intent"`
	Facts    map[string]any `json:"query_results"`
}

// Assistant serves admin chat queries.
type Assistant struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	snapshots   Snapshots
	logger      *zap.Logger
}

// New creates an assistant. An empty API key disables the language model.
func New(cfg Config, snapshots Snapshots, logger *zap.Logger) *Assistant {
	a := &Assistant{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		snapshots:   snapshots,
		logger:      logger,
	}
	if cfg.APIKey != "" {
		a.client = openai.NewClient(cfg.APIKey)
	}
	return a
}

// Answer responds to one admin query. Model failures fall back to the plain
// factual rendering; the caller always gets an answer or a validation error.
func (a *Assistant) Answer(ctx context.Context, query string, history []Message) (*Reply, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	intent := ClassifyIntent(query)
	facts := a.gatherFacts(intent)
	plain := renderFacts(intent, facts)

	reply := &Reply{
		Response: plain,
		Intent:   string(intent),
		Facts:    facts,
	}

	if a.client == nil {
		return reply, nil
	}

	phrased, err := a.phrase(ctx, query, history, facts)
	if err != nil {
		a.logger.Warn("Model phrasing failed, answering with plain facts", zap.Error(err))
		return reply, nil
	}
	reply.Response = phrased
	return reply, nil
}

func (a *Assistant) gatherFacts(intent Intent) map[string]any {
	invoices := a.snapshots.Invoices()

	switch intent {
	case IntentPendingReview:
		pending := make([]models.Invoice, 0)
		for _, inv := range invoices {
			if models.NormalizeStatus(inv.Status) == models.StatusPending {
				pending = append(pending, inv)
			}
		}
		return map[string]any{
			"pending_count":    len(pending),
			"pending_invoices": top(pending, 5),
		}

	case IntentTopMerchants:
		merchants := a.snapshots.Merchants()
		sorted := make([]models.Merchant, len(merchants))
		copy(sorted, merchants)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].TotalSpend.Float64() > sorted[j].TotalSpend.Float64()
		})
		return map[string]any{
			"merchant_count": len(merchants),
			"top_merchants":  top(sorted, 5),
		}

	case IntentRecentInvoices:
		sorted := make([]models.Invoice, len(invoices))
		copy(sorted, invoices)
		sort.Slice(sorted, func(i, j int) bool {
			return timeOf(sorted[i]).After(timeOf(sorted[j]))
		})
		return map[string]any{
			"invoice_count":   len(invoices),
			"recent_invoices": top(sorted, 5),
		}

	case IntentEmployees:
		users := a.snapshots.Users()
		approved := 0
		for _, u := range users {
			if u.IsApproved {
				approved++
			}
		}
		return map[string]any{
			"user_count":     len(users),
			"approved_count": approved,
		}

	default:
		summary := aggregate.SummarizeInvoices(invoices)
		return map[string]any{
			"summary": summary,
		}
	}
}

func (a *Assistant) phrase(ctx context.Context, query string, history []Message, facts map[string]any) (string, error) {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("encode facts: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildUserPrompt(query, string(factsJSON)),
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func top[T any](records []T, n int) []T {
	if len(records) > n {
		return records[:n]
	}
	return records
}

func timeOf(inv models.Invoice) time.Time {
	if inv.InvoiceDate.Valid {
		return inv.InvoiceDate.Time
	}
	return time.Time{}
}

func renderFacts(intent Intent, facts map[string]any) string {
	switch intent {
	case IntentPendingReview:
		return fmt.Sprintf("There are %v invoices waiting for review.", facts["pending_count"])
	case IntentTopMerchants:
		return fmt.Sprintf("Tracking %v merchants; the top spenders are included in the results.", facts["merchant_count"])
	case IntentRecentInvoices:
		return fmt.Sprintf("There are %v invoices on record; the most recent are included in the results.", facts["invoice_count"])
	case IntentEmployees:
		return fmt.Sprintf("There are %v users, %v of them approved.", facts["user_count"], facts["approved_count"])
	default:
		if summary, ok := facts["summary"].(aggregate.InvoiceSummary); ok {
			return fmt.Sprintf("Across %d invoices the total spend is %.2f.", summary.TotalCount, summary.TotalSpend)
		}
		return "Here is the current summary of the expense system."
	}
}
