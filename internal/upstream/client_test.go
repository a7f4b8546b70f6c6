package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Token: "secret-token"}, zap.NewNop())
	return client, srv
}

func TestClient_SendsAPIToken(t *testing.T) {
	var gotToken string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-API-Token")
		w.Write([]byte(`[]`))
	})

	_, err := client.Invoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotToken)
}

func TestClient_Invoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/invoices", r.URL.Path)
		w.Write([]byte(`[
			{"invoice_id": "inv-1", "vendor_name": "Acme", "total_amount": "120.50", "status": "approved"},
			{"invoice_id": "inv-2", "vendor_name": "Globex", "total_amount": 99, "invoice_date": "2025-02-01"}
		]`))
	})

	invoices, err := client.Invoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "inv-1", invoices[0].ID)
	assert.Equal(t, 120.50, invoices[0].TotalAmount.Float64())
	assert.True(t, invoices[1].InvoiceDate.Valid)
}

func TestClient_BulkActionBody(t *testing.T) {
	var got struct {
		InvoiceIDs []string `json:"invoice_ids"`
		Action     string   `json:"action"`
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/invoices/bulk-action", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status": "success", "count": 2, "action": "delete"}`))
	})

	err := client.BulkAction(context.Background(), []string{"inv-1", "inv-2"}, ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"inv-1", "inv-2"}, got.InvoiceIDs)
	assert.Equal(t, "delete", got.Action)
}

func TestClient_ErrorDecodesDetail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "Invalid API token"}`))
	})

	_, err := client.Invoices(context.Background())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Invalid API token", apiErr.Detail)
}

func TestClient_ErrorWithoutJSONBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream hiccup"))
	})

	_, err := client.Stats(context.Background())
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Detail)
}

func TestClient_LoginOmitsAPIToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin", body["username"])
		w.Write([]byte(`{"success": true, "token": "sess-1", "user": {"name": "Admin", "role": "admin"}}`))
	})

	res, err := client.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "sess-1", res.Token)
	assert.Equal(t, "Admin", res.User.Name)
}

func TestClient_ApproveRequestPassesRole(t *testing.T) {
	var gotRole string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/requests/15551234/approve", r.URL.Path)
		gotRole = r.URL.Query().Get("role")
		w.Write([]byte(`{"status": "approved"}`))
	})

	require.NoError(t, client.ApproveRequest(context.Background(), "15551234", "manager"))
	assert.Equal(t, "manager", gotRole)
}

func TestClient_StatsDecoding(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"employees": 12, "merchants": 7, "invoices": 340, "botActivity": 90, "aiQueue": 3}`))
	})

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Employees)
	assert.Equal(t, 90, stats.BotActivity)
	assert.Equal(t, 3, stats.AIQueue)
}

func TestClient_WebSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://bot.example.com", "wss://bot.example.com/ws"},
	}
	for _, tt := range tests {
		c := NewClient(Config{BaseURL: tt.base}, zap.NewNop())
		assert.Equal(t, tt.want, c.WebSocketURL())
	}
}
