package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

// pendingPayments lets a test finish simulated payments on demand.
type pendingPayments struct {
	mu  sync.Mutex
	fns []func()
}

func (p *pendingPayments) AfterFunc(d time.Duration, f func()) func() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, f)
	return func() bool { return true }
}

func (p *pendingPayments) completeAll() {
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type recordingNotifier struct {
	owner   string
	removed int64
}

func (n *recordingNotifier) HistoryCleared(ctx context.Context, correlationID, ownerID string, removed int64) {
	n.owner = ownerID
	n.removed = removed
}

type testServer struct {
	router   http.Handler
	payments *pendingPayments
	sales    *sales.MemoryRepository
	notifier *recordingNotifier
	registry *checkout.Registry
}

func newTestServer(t *testing.T, verifier *auth.TokenVerifier) *testServer {
	t.Helper()

	payments := &pendingPayments{}
	salesRepo := sales.NewMemoryRepository()
	registry := checkout.NewRegistry(checkout.Deps{
		Store:     salesRepo,
		AfterFunc: payments.AfterFunc,
	})
	t.Cleanup(registry.CloseAll)

	svc := catalog.NewService(catalog.NewMemoryRepository(), zap.NewNop(), catalog.WithObserver(registry))
	notifier := &recordingNotifier{}
	h := NewHandler(HandlerDeps{
		Catalog:   svc,
		Sessions:  registry,
		Sales:     salesRepo,
		Notifier:  notifier,
		StoreName: "Corner Shop",
		Location:  time.UTC,
	})

	return &testServer{
		router:   NewRouter(h, RouterOptions{Verifier: verifier, AllowOrigins: []string{"http://pos.test"}}),
		payments: payments,
		sales:    salesRepo,
		notifier: notifier,
		registry: registry,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(HeaderUserID, "owner-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (s *testServer) createProduct(t *testing.T, name, price, category string) catalog.Product {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/products", map[string]any{"name": name, "price": price, "category": category})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[catalog.Product](t, rec)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestAPIRequiresOwner(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
}

func TestAPIBearerToken(t *testing.T) {
	verifier := auth.NewTokenVerifier("s3cret")
	srv := newTestServer(t, verifier)

	token, err := verifier.Issue("owner-9", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{catalog.Uncategorized}, decodeBody[[]string](t, rec))

	req = httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set(HeaderUserID, "owner-9")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "header identity is ignored when tokens are required")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://pos.test")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://pos.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	p := srv.createProduct(t, "Coffee", "2.50", "Drinks")
	assert.Equal(t, "Drinks", p.Category)

	rec := srv.do(t, http.MethodPost, "/api/products", map[string]any{"name": "", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/products/"+p.ID+"/price", map[string]any{"price": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[catalog.Product](t, rec)
	require.NotNil(t, updated.PreviousPrice)
	assert.Equal(t, "2.50", updated.PreviousPrice.StringFixed(2))

	rec = srv.do(t, http.MethodPut, "/api/categories/Drinks", map[string]any{"name": "Beverages"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/products?category=Beverages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]catalog.Product](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	rec = srv.do(t, http.MethodPut, "/api/categories/"+catalog.Uncategorized, map[string]any{"name": "Misc"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/categories/Beverages", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.Uncategorized, decodeBody[catalog.Product](t, rec).Category)

	rec = srv.do(t, http.MethodDelete, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.createProduct(t, "A", "10", "")
	b := srv.createProduct(t, "B", "5", "")

	rec := srv.do(t, http.MethodPost, "/api/checkouts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeBody[checkout.View](t, rec)
	base := "/api/checkouts/" + view.ID

	for _, id := range []string{a.ID, a.ID, b.ID} {
		rec = srv.do(t, http.MethodPost, base+"/items", map[string]string{"productId": id})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = srv.do(t, http.MethodPut, base+"/discount", map[string]any{"discount": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[checkout.View](t, rec)
	assert.Equal(t, "20.00", view.Total.StringFixed(2))

	rec = srv.do(t, http.MethodPost, base+"/begin", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	confirmed := decodeBody[confirmResponse](t, rec)
	assert.NotEmpty(t, confirmed.Reference)
	assert.Equal(t, checkout.StateProcessing, confirmed.View.State)

	rec = srv.do(t, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, base+"/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	srv.payments.completeAll()

	rec = srv.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[checkout.View](t, rec)
	assert.Equal(t, checkout.StateCompleted, view.State)
	require.NotNil(t, view.LastSale)
	assert.Len(t, view.LastSale.Items, 3)

	rec = srv.do(t, http.MethodGet, "/api/sales/"+view.LastSale.ID+"/receipt?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Corner Shop")
	assert.Contains(t, rec.Body.String(), strings.ToUpper(view.LastSale.ID[:8]))

	rec = srv.do(t, http.MethodGet, "/api/sales/"+view.LastSale.ID+"/receipt?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = srv.do(t, http.MethodGet, "/api/sales/"+view.LastSale.ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ticket := decodeBody[receipt.Ticket](t, rec)
	assert.Equal(t, "5.00", ticket.Discount.StringFixed(2))

	rec = srv.do(t, http.MethodPost, base+"/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkout.StateIdle, decodeBody[checkout.View](t, rec).State)

	rec = srv.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmBlockedReportsReason(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.createProduct(t, "A", "10", "")

	rec := srv.do(t, http.MethodPost, "/api/checkouts", nil)
	base := "/api/checkouts/" + decodeBody[checkout.View](t, rec).ID

	rec = srv.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(checkout.BlockEmptyCart), decodeBody[errorResponse](t, rec).Reason)

	srv.do(t, http.MethodPost, base+"/items", map[string]string{"productId": a.ID})
	srv.do(t, http.MethodPut, base+"/discount", map[string]any{"discount": "30"})

	rec = srv.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(checkout.BlockInvalidTotal), decodeBody[errorResponse](t, rec).Reason)
}

func TestSetQuantityAcceptsRawInput(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.createProduct(t, "A", "10", "")

	rec := srv.do(t, http.MethodPost, "/api/checkouts", nil)
	base := "/api/checkouts/" + decodeBody[checkout.View](t, rec).ID
	srv.do(t, http.MethodPost, base+"/items", map[string]string{"productId": a.ID})

	rec = srv.do(t, http.MethodPut, base+"/items/"+a.ID, map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[checkout.View](t, rec)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 4, view.Lines[0].Quantity)

	rec = srv.do(t, http.MethodPut, base+"/items/"+a.ID, map[string]any{"quantity": "abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[checkout.View](t, rec).Lines)
}

func TestCheckoutSessionsAreOwnerScoped(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := srv.do(t, http.MethodPost, "/api/checkouts", nil)
	id := decodeBody[checkout.View](t, rec).ID

	req := httptest.NewRequest(http.MethodGet, "/api/checkouts/"+id, nil)
	req.Header.Set(HeaderUserID, "owner-2")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSalesEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	s, err := srv.sales.Save(ctx, sales.NewSale{
		OwnerID: "owner-1",
		Items:   []sales.Item{{ProductID: "p", Name: "Tea", Price: mustDecimal("3")}},
		Total:   mustDecimal("3"),
	})
	require.NoError(t, err)
	day := s.CreatedAt.In(time.UTC).Format("2006-01-02")

	rec := srv.do(t, http.MethodGet, "/api/sales?from="+day+"&to="+day, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]sales.Sale](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/api/sales?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/sales/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decodeBody[sales.History](t, rec)
	assert.Equal(t, day, h.SelectedDay)
	assert.Equal(t, "3.00", h.DayTotal.StringFixed(2))

	rec = srv.do(t, http.MethodGet, "/api/sales/export.xlsx?day="+day, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sales-"+day+".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = srv.do(t, http.MethodDelete, "/api/sales", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/sales?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"removed": 1}, decodeBody[map[string]int64](t, rec))
	assert.Equal(t, "owner-1", srv.notifier.owner)
	assert.Equal(t, int64(1), srv.notifier.removed)

	rec = srv.do(t, http.MethodGet, "/api/sales/"+s.ID+"/receipt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingSales struct {
	*sales.MemoryRepository
}

func (failingSales) ClearForOwner(context.Context, string) (int64, error) {
	return 0, errors.New("connection reset")
}

func (failingSales) ListForOwner(context.Context, string, sales.DateRange) ([]sales.Sale, error) {
	return nil, errors.New("connection reset")
}

func TestInternalErrorsNameTheFailedOperation(t *testing.T) {
	registry := checkout.NewRegistry(checkout.Deps{Store: sales.NewMemoryRepository()})
	t.Cleanup(registry.CloseAll)
	h := NewHandler(HandlerDeps{
		Catalog:  catalog.NewService(catalog.NewMemoryRepository(), zap.NewNop()),
		Sessions: registry,
		Sales:    failingSales{sales.NewMemoryRepository()},
	})
	router := NewRouter(h, RouterOptions{})

	tests := []struct {
		method, path, want string
	}{
		{http.MethodDelete, "/api/sales?confirm=true", "could not clear sales history"},
		{http.MethodGet, "/api/sales", "could not load sales"},
		{http.MethodGet, "/api/sales/history", "could not load sales history"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(HeaderUserID, "owner-1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			resp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, tt.want, resp.Error)
			assert.NotContains(t, resp.Error, "connection reset")
		})
	}
}

func TestUpdatePriceRejectsExponentAmounts(t *testing.T) {
	srv := newTestServer(t, nil)
	p := srv.createProduct(t, "Coffee", "2.50", "")

	rec := srv.do(t, http.MethodPut, "/api/products/"+p.ID+"/price", map[string]any{"price": "1e-900000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/products", map[string]any{"name": "Tea", "price": "1e900000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiptHTMLPrintsOnRequestOnly(t *testing.T) {
	srv := newTestServer(t, nil)
	s, err := srv.sales.Save(context.Background(), sales.NewSale{
		OwnerID: "owner-1",
		Items:   []sales.Item{{ProductID: "p", Name: "Tea", Price: mustDecimal("3")}},
		Total:   mustDecimal("3"),
	})
	require.NoError(t, err)

	rec := srv.do(t, http.MethodGet, "/api/sales/"+s.ID+"/receipt?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "onload")
	assert.Contains(t, rec.Body.String(), "Print</button>")

	rec = srv.do(t, http.MethodGet, "/api/sales/"+s.ID+"/receipt?format=html&print=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `onload="window.print()"`)
}
