//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/db"
	httpapi "github.com/andreasstove999/ecommerce-system/pos-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/testutil"
)

func TestHTTP_CheckoutPersistsSale(t *testing.T) {
	pg := testutil.StartPostgres(t)
	testutil.Truncate(t, pg)

	gdb, err := db.OpenGorm(pg.DSN, zap.NewNop())
	require.NoError(t, err)

	salesRepo := sales.NewPostgresRepository(pg.Pool)
	registry := checkout.NewRegistry(checkout.Deps{
		Store:  salesRepo,
		Config: checkout.Config{PaymentDelay: 20 * time.Millisecond},
	})
	t.Cleanup(registry.CloseAll)

	h := httpapi.NewHandler(httpapi.HandlerDeps{
		Catalog:  catalog.NewService(catalog.NewGormRepository(gdb), zap.NewNop(), catalog.WithObserver(registry)),
		Sessions: registry,
		Sales:    salesRepo,
		Location: time.UTC,
	})
	router := httpapi.NewRouter(h, httpapi.RouterOptions{})

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set(httpapi.HeaderUserID, "owner-int")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/products", map[string]any{"name": "Coffee", "price": "2.50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))

	rec = do(http.MethodPost, "/api/checkouts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view checkout.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	base := "/api/checkouts/" + view.ID

	require.Equal(t, http.StatusOK, do(http.MethodPost, base+"/items", map[string]string{"productId": product.ID}).Code)
	require.Equal(t, http.StatusOK, do(http.MethodPut, base+"/items/"+product.ID, map[string]any{"quantity": 2}).Code)
	require.Equal(t, http.StatusAccepted, do(http.MethodPost, base+"/confirm", nil).Code)

	require.Eventually(t, func() bool {
		rec := do(http.MethodGet, base, nil)
		var v checkout.View
		_ = json.Unmarshal(rec.Body.Bytes(), &v)
		return v.State == checkout.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	rec = do(http.MethodGet, "/api/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []sales.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 2)
	require.Equal(t, "5.00", list[0].Total.StringFixed(2))
}
