package stock

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type StockInRequest struct {
	ProductID     uint            `json:"product_id" binding:"required"`
	SupplierID    *uint           `json:"supplier_id"`
	Quantity      int             `json:"quantity" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Date          *time.Time      `json:"date"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	Notes         string          `json:"notes"`
}

type StockOutRequest struct {
	ProductID    uint            `json:"product_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Date         *time.Time      `json:"date"`
	Reason       string          `json:"reason" binding:"required"`
	Notes        string          `json:"notes"`
}

// StockIn records a receipt. The recording user comes from the auth context,
// never from the request body.
func (h *Handler) StockIn(c *gin.Context) {
	var req StockInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.ledger.RecordReceipt(ReceiptRequest{
		ProductID:     req.ProductID,
		SupplierID:    req.SupplierID,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		Date:          req.Date,
		ExpiryDate:    req.ExpiryDate,
		Notes:         req.Notes,
		RecordedBy:    c.GetUint("user_id"),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// StockOut records a dispatch, rejecting it when the derived stock is short.
func (h *Handler) StockOut(c *gin.Context) {
	var req StockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dispatch, err := h.ledger.RecordDispatch(DispatchRequest{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		SellingPrice: req.SellingPrice,
		Date:         req.Date,
		Reason:       req.Reason,
		Notes:        req.Notes,
		RecordedBy:   c.GetUint("user_id"),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispatch)
}

// Transactions returns the merged movement feed.
func (h *Handler) Transactions(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	typeFilter := c.DefaultQuery("type", "all")
	if typeFilter != "in" && typeFilter != "out" && typeFilter != "all" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "type must be in, out or all"})
		return
	}

	feed, err := h.ledger.Movements(limit, typeFilter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch transactions"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// respondLedgerError maps the ledger's typed failures onto HTTP responses.
func respondLedgerError(c *gin.Context, err error) {
	var (
		vErr *ValidationError
		rErr *ReferenceError
		iErr *InsufficientStockError
		nErr *NotFoundError
	)
	switch {
	case errors.As(err, &iErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Insufficient stock"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": vErr.Message})
	case errors.As(err, &rErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": rErr.Error()})
	case errors.As(err, &nErr):
		c.JSON(http.StatusNotFound, gin.H{"message": nErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Unexpected server error"})
	}
}
