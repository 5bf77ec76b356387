package category

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	handler := NewHandler(db)
	r := gin.New()
	r.GET("/api/categories", handler.List)
	r.POST("/api/categories", handler.Create)
	return r
}

func TestDuplicateCategoryNameConflicts(t *testing.T) {
	r := setup(t)

	payload := `{"name":"Beverages"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d: %s", i+1, want, w.Code, w.Body.String())
		}
	}
}

func TestCreateRequiresName(t *testing.T) {
	r := setup(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", w.Code)
	}
}
