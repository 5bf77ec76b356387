package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sokleng/ics-backend/internal/stock"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDashboardStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)

	user := database.User{Email: "admin@test.local", PasswordHash: "x", Name: "Admin", Role: database.RoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	cola := database.Product{
		Name:                 "Cola 330ml",
		MinStockLevel:        20,
		DefaultPurchasePrice: decimal.RequireFromString("0.50"),
		Unit:                 "pcs",
		Active:               true,
	}
	chips := database.Product{
		Name:                 "Chips 50g",
		MinStockLevel:        5,
		DefaultPurchasePrice: decimal.RequireFromString("1.25"),
		Unit:                 "pcs",
		Active:               true,
	}
	if err := db.Create(&cola).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := db.Create(&chips).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	ledger := stock.NewLedger(db, nil)
	if _, err := ledger.RecordReceipt(stock.ReceiptRequest{
		ProductID:     cola.ID,
		Quantity:      10,
		PurchasePrice: decimal.RequireFromString("0.50"),
		RecordedBy:    user.ID,
	}); err != nil {
		t.Fatalf("record receipt: %v", err)
	}
	if _, err := ledger.RecordReceipt(stock.ReceiptRequest{
		ProductID:     chips.ID,
		Quantity:      8,
		PurchasePrice: decimal.RequireFromString("1.25"),
		RecordedBy:    user.ID,
	}); err != nil {
		t.Fatalf("record receipt: %v", err)
	}
	if _, err := ledger.RecordDispatch(stock.DispatchRequest{
		ProductID:    chips.ID,
		Quantity:     2,
		SellingPrice: decimal.RequireFromString("2.00"),
		Reason:       database.ReasonSale,
		RecordedBy:   user.ID,
	}); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}

	handler := NewHandler(db, ledger)
	r := gin.New()
	r.GET("/api/reports/dashboard", handler.Dashboard)

	fetch := func() DashboardStats {
		t.Helper()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/reports/dashboard", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("dashboard status %d: %s", w.Code, w.Body.String())
		}
		var stats DashboardStats
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode dashboard: %v", err)
		}
		return stats
	}

	stats := fetch()
	if stats.TotalProducts != 2 {
		t.Fatalf("expected 2 products, got %d", stats.TotalProducts)
	}
	// Cola is at 10 against min 20; chips at 6 against min 5.
	if stats.LowStockCount != 1 {
		t.Fatalf("expected 1 low-stock product, got %d", stats.LowStockCount)
	}
	// 10 * 0.50 + 6 * 1.25 = 12.50
	want := decimal.RequireFromString("12.50")
	if !stats.TotalValue.Equal(want) {
		t.Fatalf("expected total value %s, got %s", want, stats.TotalValue)
	}
	if stats.TodayIn != 18 || stats.TodayOut != 2 {
		t.Fatalf("expected today in/out 18/2, got %d/%d", stats.TodayIn, stats.TodayOut)
	}

	// A summary read changes nothing; the second call returns the same numbers.
	again := fetch()
	if again.TotalProducts != stats.TotalProducts ||
		again.LowStockCount != stats.LowStockCount ||
		!again.TotalValue.Equal(stats.TotalValue) ||
		again.TodayIn != stats.TodayIn ||
		again.TodayOut != stats.TodayOut {
		t.Fatalf("dashboard not stable across reads: %+v vs %+v", stats, again)
	}
}

func TestMovementsReportFiltersByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)

	alice := database.User{Email: "alice@test.local", PasswordHash: "x", Name: "Alice", Role: database.RoleStockController}
	bob := database.User{Email: "bob@test.local", PasswordHash: "x", Name: "Bob", Role: database.RoleStockController}
	if err := db.Create(&alice).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Create(&bob).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	product := database.Product{Name: "Cola 330ml", MinStockLevel: 5, Unit: "pcs", Active: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	ledger := stock.NewLedger(db, nil)
	if _, err := ledger.RecordReceipt(stock.ReceiptRequest{
		ProductID:     product.ID,
		Quantity:      10,
		PurchasePrice: decimal.RequireFromString("0.45"),
		RecordedBy:    alice.ID,
	}); err != nil {
		t.Fatalf("record receipt: %v", err)
	}
	if _, err := ledger.RecordReceipt(stock.ReceiptRequest{
		ProductID:     product.ID,
		Quantity:      7,
		PurchasePrice: decimal.RequireFromString("0.45"),
		RecordedBy:    bob.ID,
	}); err != nil {
		t.Fatalf("record receipt: %v", err)
	}
	if _, err := ledger.RecordDispatch(stock.DispatchRequest{
		ProductID:    product.ID,
		Quantity:     3,
		SellingPrice: decimal.RequireFromString("0.75"),
		Reason:       database.ReasonSale,
		RecordedBy:   alice.ID,
	}); err != nil {
		t.Fatalf("record dispatch: %v", err)
	}

	handler := NewHandler(db, ledger)
	r := gin.New()
	r.GET("/api/reports/movements", handler.Movements)

	fetch := func(query string) []Bucket {
		t.Helper()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/reports/movements"+query, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("movements status %d: %s", w.Code, w.Body.String())
		}
		var buckets []Bucket
		if err := json.Unmarshal(w.Body.Bytes(), &buckets); err != nil {
			t.Fatalf("decode buckets: %v", err)
		}
		return buckets
	}

	all := fetch("?period=daily")
	if len(all) != 1 || all[0].In != 17 || all[0].Out != 3 {
		t.Fatalf("unexpected unfiltered buckets: %+v", all)
	}

	aliceOnly := fetch("?period=daily&user_id=" + strconv.Itoa(int(alice.ID)))
	if len(aliceOnly) != 1 || aliceOnly[0].In != 10 || aliceOnly[0].Out != 3 {
		t.Fatalf("unexpected filtered buckets for first user: %+v", aliceOnly)
	}

	bobOnly := fetch("?period=daily&user_id=" + strconv.Itoa(int(bob.ID)))
	if len(bobOnly) != 1 || bobOnly[0].In != 7 || bobOnly[0].Out != 0 {
		t.Fatalf("unexpected filtered buckets for second user: %+v", bobOnly)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/movements?period=daily&user_id=abc", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-integer user_id, got %d", w.Code)
	}
}

func TestMovementsReportRejectsBadPeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	handler := NewHandler(db, stock.NewLedger(db, nil))

	r := gin.New()
	r.GET("/api/reports/movements", handler.Movements)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reports/movements?period=yearly", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad period, got %d", w.Code)
	}
}
