package product

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sokleng/ics-backend/internal/stock"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	ledger *stock.Ledger
}

func NewHandler(db *gorm.DB, ledger *stock.Ledger) *Handler {
	return &Handler{db: db, ledger: ledger}
}

type CreateProductRequest struct {
	Name                 string           `json:"name" binding:"required"`
	CategoryID           *uint            `json:"category_id"`
	Barcode              string           `json:"barcode"`
	Description          string           `json:"description"`
	MinStockLevel        *int             `json:"min_stock_level"`
	DefaultPurchasePrice *decimal.Decimal `json:"default_purchase_price"`
	DefaultSellingPrice  *decimal.Decimal `json:"default_selling_price"`
	Unit                 string           `json:"unit"`
	ExpiryDaysDefault    *int             `json:"expiry_days_default"`
}

type UpdateProductRequest struct {
	Name                 *string          `json:"name"`
	CategoryID           *uint            `json:"category_id"`
	Barcode              *string          `json:"barcode"`
	Description          *string          `json:"description"`
	MinStockLevel        *int             `json:"min_stock_level"`
	DefaultPurchasePrice *decimal.Decimal `json:"default_purchase_price"`
	DefaultSellingPrice  *decimal.Decimal `json:"default_selling_price"`
	Unit                 *string          `json:"unit"`
	ExpiryDaysDefault    *int             `json:"expiry_days_default"`
	Active               *bool            `json:"active"`
}

// List returns every product with its derived current stock, low-stock flag
// and category name.
func (h *Handler) List(c *gin.Context) {
	products, err := h.ledger.ProductsWithStock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// Get returns a single product with derived stock
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	product, err := h.ledger.ProductWithStockByID(uint(id))
	if err != nil {
		var nErr *stock.NotFoundError
		if errors.As(err, &nErr) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create adds a new product
func (h *Handler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := database.Product{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Barcode:     req.Barcode,
		Description: req.Description,
		Unit:        "pcs",
		Active:      true,
	}
	product.MinStockLevel = 10
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.DefaultPurchasePrice != nil {
		product.DefaultPurchasePrice = *req.DefaultPurchasePrice
	}
	if req.DefaultSellingPrice != nil {
		product.DefaultSellingPrice = *req.DefaultSellingPrice
	}
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	product.ExpiryDaysDefault = req.ExpiryDaysDefault

	if msg := validateProduct(&product); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	if req.CategoryID != nil {
		var n int64
		h.db.Model(&database.Category{}).Where("id = ?", *req.CategoryID).Count(&n)
		if n == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Category does not exist"})
			return
		}
	}

	if err := h.db.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Update modifies a product via partial update
func (h *Handler) Update(c *gin.Context) {
	var product database.Product
	if err := h.db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if req.Barcode != nil {
		product.Barcode = *req.Barcode
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.MinStockLevel != nil {
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.DefaultPurchasePrice != nil {
		product.DefaultPurchasePrice = *req.DefaultPurchasePrice
	}
	if req.DefaultSellingPrice != nil {
		product.DefaultSellingPrice = *req.DefaultSellingPrice
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.ExpiryDaysDefault != nil {
		product.ExpiryDaysDefault = req.ExpiryDaysDefault
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if msg := validateProduct(&product); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	if err := h.db.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete removes a product. Deletion is restricted once the product has
// ledger entries: movements are permanent and must not be orphaned.
func (h *Handler) Delete(c *gin.Context) {
	var product database.Product
	if err := h.db.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	movements, err := h.ledger.MovementCount(product.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete product"})
		return
	}
	if movements > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Cannot delete a product with recorded stock movements"})
		return
	}

	if err := h.db.Delete(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete product"})
		return
	}
	c.Status(http.StatusNoContent)
}

func validateProduct(p *database.Product) string {
	if p.MinStockLevel < 0 {
		return "Minimum stock level cannot be negative"
	}
	if p.DefaultPurchasePrice.IsNegative() {
		return "Purchase price cannot be negative"
	}
	if p.DefaultSellingPrice.IsNegative() {
		return "Selling price cannot be negative"
	}
	return ""
}
