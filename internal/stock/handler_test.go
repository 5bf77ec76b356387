package stock

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter(t *testing.T) (*gin.Engine, fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := openTestDB(t)
	f := seedFixture(t, db, 5)
	handler := NewHandler(NewLedger(db, nil))

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", f.userID) })
	r.POST("/api/inventory/stock-in", handler.StockIn)
	r.POST("/api/inventory/stock-out", handler.StockOut)
	r.GET("/api/inventory/transactions", handler.Transactions)
	return r, f
}

func post(r *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestStockInAndOutEndpoints(t *testing.T) {
	r, f := setupRouter(t)

	w := post(r, "/api/inventory/stock-in",
		fmt.Sprintf(`{"product_id":%d,"quantity":10,"purchase_price":"0.45","supplier_id":%d}`, f.productID, f.supplierID))
	if w.Code != http.StatusCreated {
		t.Fatalf("stock-in status %d: %s", w.Code, w.Body.String())
	}

	w = post(r, "/api/inventory/stock-out",
		fmt.Sprintf(`{"product_id":%d,"quantity":4,"selling_price":"0.75","reason":"sale"}`, f.productID))
	if w.Code != http.StatusCreated {
		t.Fatalf("stock-out status %d: %s", w.Code, w.Body.String())
	}

	// More than the 6 remaining.
	w = post(r, "/api/inventory/stock-out",
		fmt.Sprintf(`{"product_id":%d,"quantity":7,"selling_price":"0.75","reason":"sale"}`, f.productID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversell, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Insufficient stock") {
		t.Fatalf("unexpected oversell body: %s", w.Body.String())
	}
}

func TestStockInUnknownProductRejected(t *testing.T) {
	r, _ := setupRouter(t)

	w := post(r, "/api/inventory/stock-in", `{"product_id":9999,"quantity":10,"purchase_price":"0.45"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown product, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStockOutRejectsUnknownReason(t *testing.T) {
	r, f := setupRouter(t)

	post(r, "/api/inventory/stock-in",
		fmt.Sprintf(`{"product_id":%d,"quantity":10,"purchase_price":"0.45"}`, f.productID))

	w := post(r, "/api/inventory/stock-out",
		fmt.Sprintf(`{"product_id":%d,"quantity":1,"selling_price":"0.75","reason":"shrinkage"}`, f.productID))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown reason, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTransactionsQueryValidation(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{
		"/api/inventory/transactions?limit=0",
		"/api/inventory/transactions?limit=abc",
		"/api/inventory/transactions?type=sideways",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/transactions", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for default query, got %d", w.Code)
	}
}
