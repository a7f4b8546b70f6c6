package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

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
	"github.com/damshique/admin-gateway/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const staticToken = "test-static-token"

// fakeBackend stands in for the bot backend, serving canned snapshots and
// recording writes.
type fakeBackend struct {
	mu          sync.Mutex
	bulkBodies  []map[string]any
	deleted     []string
	loginOK     bool
	invoices    []models.Invoice
	failActions bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/admin/invoices", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.invoices)
	})
	mux.HandleFunc("POST /api/admin/invoices/bulk-action", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failActions {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "backend exploded"})
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.bulkBodies = append(f.bulkBodies, body)
		json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	})
	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.User{
			{Phone: "111", Name: "Dana", Role: "admin", IsApproved: true},
			{Phone: "222", Name: "Sam", Role: "employee"},
		})
	})
	mux.HandleFunc("DELETE /api/admin/users/{phone}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deleted = append(f.deleted, r.PathValue("phone"))
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	mux.HandleFunc("GET /api/admin/requests", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.RegistrationRequest{})
	})
	mux.HandleFunc("GET /api/admin/merchants", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Merchant{
			{Name: "Acme", TotalSpend: 300, InvoiceCount: 3},
		})
	})
	mux.HandleFunc("GET /api/admin/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.AuditLog{})
	})
	mux.HandleFunc("GET /api/admin/bot-activity", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.BotActivity{})
	})
	mux.HandleFunc("GET /api/admin/notifications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Notification{})
	})
	mux.HandleFunc("GET /api/admin/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Stats{Employees: 2, Invoices: 3})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.loginOK {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"token":   "upstream-session",
			"user":    map[string]string{"name": "Admin", "role": "admin"},
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	return mux
}

type fixture struct {
	server  *Server
	backend *fakeBackend
	bus     *events.Bus
	reg     *records.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	backend := &fakeBackend{
		loginOK: true,
		invoices: []models.Invoice{
			{ID: "inv-1", VendorName: "Acme Supplies", UserName: "Dana", Status: "approved", Category: "Office", TotalAmount: 120, Currency: "USD"},
			{ID: "inv-2", VendorName: "Globex", UserName: "Sam", Status: "pending", Category: "Travel", TotalAmount: 480},
			{ID: "inv-3", VendorName: "ACME Catering", UserName: "Lee", Status: "", Category: "", TotalAmount: 65},
		},
	}
	upstreamSrv := httptest.NewServer(backend.handler())
	t.Cleanup(upstreamSrv.Close)

	db, err := database.New(database.Config{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).Run())

	client := upstream.NewClient(upstream.Config{BaseURL: upstreamSrv.URL, Token: "backend-token"}, logger)
	bus := events.NewBus(logger)
	t.Cleanup(bus.Close)
	reg := records.NewRegistry(client, nil, bus, logger)
	reg.RefreshAll(context.Background())

	srv := New(Deps{
		Upstream:    client,
		Registry:    reg,
		Bus:         bus,
		Selections:  selection.NewRegistry(),
		Dispatcher:  bulkaction.NewDispatcher(client, bus, logger),
		Notifier:    notify.NewCenter(0, logger),
		Sessions:    session.NewStore(db.DB, logger),
		Exports:     export.NewBuilder(logger),
		Assistant:   assistant.New(assistant.Config{}, registryView{reg}, logger),
		StaticToken: staticToken,
		Logger:      logger,
	})

	return &fixture{server: srv, backend: backend, bus: bus, reg: reg}
}

type registryView struct{ reg *records.Registry }

func (v registryView) Invoices() []models.Invoice   { return v.reg.Invoices.Snapshot() }
func (v registryView) Users() []models.User         { return v.reg.Users.Snapshot() }
func (v registryView) Merchants() []models.Merchant { return v.reg.Merchants.Snapshot() }

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-API-Token", token)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuth_MissingTokenRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_StaticTokenAccepted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices", nil, staticToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_UnknownTokenRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices", nil, "bogus")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_BearerHeaderAccepted(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+staticToken)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_IssuesUsableSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	token, _ := body["token"].(string)
	require.Equal(t, "upstream-session", token)

	// The issued token now authenticates admin calls.
	rec = f.do(t, http.MethodGet, "/api/admin/invoices", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_BadCredentialsPassThrough(t *testing.T) {
	f := newFixture(t)
	f.backend.loginOK = false

	rec := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
}

func TestLogout_DropsSessionAndSelections(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[map[string]any](t, rec)["token"].(string)

	rec = f.do(t, http.MethodPost, "/api/admin/selection/invoices/toggle",
		map[string]string{"id": "inv-1"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/logout", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/invoices", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListInvoices_ReturnsFullSnapshot(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(3), body["filtered"])
}

func TestListInvoices_SearchFilter(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices?search=acme", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["filtered"])
}

func TestListInvoices_StatusFilterUsesPendingFallback(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices?statuses=pending", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	// inv-2 is pending, inv-3 has no status and counts as pending.
	assert.Equal(t, float64(2), body["filtered"])
}

func TestListInvoices_AmountRange(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices?min_amount=100&max_amount=200", nil, staticToken)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["filtered"])
}

func TestInvoiceSummary(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/invoices/summary", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), body["total_count"])
	assert.Equal(t, float64(665), body["total_spend"])
}

func TestBulkAction_WithExplicitIDs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"invoice_ids": []string{"inv-1", "inv-2"}, "action": "approve"}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, "approve", body["action"])

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	require.Len(t, f.backend.bulkBodies, 1)
	assert.Equal(t, "approve", f.backend.bulkBodies[0]["action"])
}

func TestBulkAction_DeleteWithoutConfirmRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"invoice_ids": []string{"inv-1"}, "action": "delete"}, staticToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirmation")
}

func TestBulkAction_UsesStoredSelection(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/selection/invoices/toggle",
		map[string]string{"id": "inv-3"}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"action": "delete", "confirm": true}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	f.backend.mu.Lock()
	require.Len(t, f.backend.bulkBodies, 1)
	ids := f.backend.bulkBodies[0]["invoice_ids"].([]any)
	f.backend.mu.Unlock()
	assert.Equal(t, []any{"inv-3"}, ids)

	// The stored selection is cleared after dispatch.
	rec = f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), body["count"])
}

func TestBulkAction_EmptySelection(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"action": "approve"}, staticToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkAction_BackendFailurePassesStatusThrough(t *testing.T) {
	f := newFixture(t)
	f.backend.failActions = true

	rec := f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"invoice_ids": []string{"inv-1"}, "action": "approve"}, staticToken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend exploded")
}

func TestSelection_ToggleAndStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/selection/invoices/toggle",
		map[string]string{"id": "inv-1"}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = f.do(t, http.MethodPost, "/api/admin/selection/invoices/toggle",
		map[string]string{"id": "inv-1"}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), body["count"])
}

func TestSelection_SelectAllHonorsFilter(t *testing.T) {
	f := newFixture(t)

	// Select everything matching "acme", then select-all again with a
	// narrower filter: the selection re-derives, it does not union.
	rec := f.do(t, http.MethodPost, "/api/admin/selection/invoices/select-all?search=acme", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["count"])

	rec = f.do(t, http.MethodPost, "/api/admin/selection/invoices/select-all?search=globex", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body = decode[map[string]any](t, rec)
	ids := body["ids"].([]any)
	assert.Equal(t, []any{"inv-2"}, ids)
}

func TestSelection_Clear(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/admin/selection/invoices/select-all", nil, staticToken)
	rec := f.do(t, http.MethodPost, "/api/admin/selection/invoices/clear", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), body["count"])
}

func TestSelection_UnknownScreen(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/selection/nonsense", nil, staticToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelection_PrunedAfterRefetch(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/admin/selection/invoices/select-all", nil, staticToken)

	// inv-2 disappears upstream; the next refetch prunes it everywhere.
	f.backend.mu.Lock()
	f.backend.invoices = []models.Invoice{
		{ID: "inv-1", VendorName: "Acme Supplies"},
		{ID: "inv-3", VendorName: "ACME Catering"},
	}
	f.backend.mu.Unlock()
	f.reg.RefreshAll(context.Background())

	rec := f.do(t, http.MethodGet, "/api/admin/selection/invoices", nil, staticToken)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), body["count"])
	ids := body["ids"].([]any)
	assert.NotContains(t, ids, "inv-2")
}

func TestDeleteUser_RequiresConfirm(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/admin/users/111", nil, staticToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/admin/users/111?confirm=true", nil, staticToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Equal(t, []string{"111"}, f.backend.deleted)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/stats", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["employees"])
}

func TestRefresh_UnknownResource(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/refresh/nonsense", nil, staticToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefresh_KnownResourceAccepted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/refresh/invoices", nil, staticToken)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestExport_Invoices(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/export/invoices", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "damshique_invoices_")
	assert.NotZero(t, rec.Body.Len())
}

func TestExport_UnknownKind(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/admin/export/nonsense", nil, staticToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_AnswersFromSnapshots(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/chat",
		map[string]any{"query": "what is pending review?"}, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "pending_review", body["intent"])
}

func TestChat_RequiresQuery(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/admin/chat", map[string]any{}, staticToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToasts_SurfaceBulkActionOutcomes(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/admin/invoices/bulk-action",
		map[string]any{"invoice_ids": []string{"inv-1"}, "action": "approve"}, staticToken)

	rec := f.do(t, http.MethodGet, "/api/admin/toasts", nil, staticToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 invoices approved")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
