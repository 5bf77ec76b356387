package reports

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sokleng/ics-backend/internal/stock"
	"github.com/sokleng/ics-backend/pkg/database"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// movementWindow caps how much feed the period and export reports read.
const movementWindow = 500

type Handler struct {
	db     *gorm.DB
	ledger *stock.Ledger
}

func NewHandler(db *gorm.DB, ledger *stock.Ledger) *Handler {
	return &Handler{db: db, ledger: ledger}
}

type DashboardStats struct {
	TotalProducts int             `json:"total_products"`
	LowStockCount int             `json:"low_stock_count"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TodayIn       int             `json:"today_in"`
	TodayOut      int             `json:"today_out"`
}

// Dashboard recomputes the summary from scratch on every call; nothing here
// is cached or persisted.
func (h *Handler) Dashboard(c *gin.Context) {
	products, err := h.ledger.ProductsWithStock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to compute dashboard"})
		return
	}

	stats := DashboardStats{
		TotalProducts: len(products),
		TotalValue:    decimal.Zero,
	}
	for _, p := range products {
		if p.LowStock {
			stats.LowStockCount++
		}
		if p.Active {
			value := p.DefaultPurchasePrice.Mul(decimal.NewFromInt(int64(p.CurrentStock)))
			stats.TotalValue = stats.TotalValue.Add(value)
		}
	}

	// Calendar-day boundary in the server's local time zone.
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var todayIn, todayOut int64
	if err := h.db.Model(&database.StockReceipt{}).
		Where("date >= ?", todayStart).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&todayIn).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to compute dashboard"})
		return
	}
	if err := h.db.Model(&database.StockDispatch{}).
		Where("date >= ?", todayStart).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&todayOut).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to compute dashboard"})
		return
	}
	stats.TodayIn = int(todayIn)
	stats.TodayOut = int(todayOut)

	c.JSON(http.StatusOK, stats)
}

// Movements returns the feed grouped into period buckets, optionally
// filtered to one recording user.
func (h *Handler) Movements(c *gin.Context) {
	period := Period(c.DefaultQuery("period", string(PeriodDaily)))
	if period != PeriodDaily && period != PeriodWeekly && period != PeriodMonthly {
		c.JSON(http.StatusBadRequest, gin.H{"message": "period must be daily, weekly or monthly"})
		return
	}

	feed, err := h.ledger.Movements(movementWindow, "all")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch movements"})
		return
	}

	if v := c.Query("user_id"); v != "" {
		userID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "user_id must be an integer"})
			return
		}
		filtered := feed[:0]
		for _, m := range feed {
			if m.RecordedBy == uint(userID) {
				filtered = append(filtered, m)
			}
		}
		feed = filtered
	}

	c.JSON(http.StatusOK, BucketMovements(feed, period))
}

// Export streams the movement feed as an Excel workbook.
func (h *Handler) Export(c *gin.Context) {
	feed, err := h.ledger.Movements(movementWindow, "all")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch movements"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Date", "Type", "Product", "Quantity", "Recorded By", "Fiscal Year", "Details"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, header)
	}

	for rowIdx, m := range feed {
		values := []interface{}{
			m.Date.Format("2006-01-02 15:04"),
			m.Type,
			m.ProductName,
			m.Quantity,
			m.User,
			m.FiscalYear,
			m.Details,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue("Sheet1", cell, value)
		}
	}

	f.SetColWidth("Sheet1", "A", "A", 18)
	f.SetColWidth("Sheet1", "C", "C", 24)
	f.SetColWidth("Sheet1", "E", "G", 14)

	filename := fmt.Sprintf("stock_movements_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate report"})
		return
	}
}
