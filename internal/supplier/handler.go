package supplier

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// UpdateSupplierRequest supports partial updates; nil fields are untouched.
type UpdateSupplierRequest struct {
	Name    *string `json:"name"`
	Contact *string `json:"contact"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
	Active  *bool   `json:"active"`
}

// List returns all suppliers
func (h *Handler) List(c *gin.Context) {
	var suppliers []database.Supplier
	if err := h.db.Order("name ASC").Find(&suppliers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch suppliers"})
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// Get returns a single supplier
func (h *Handler) Get(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Supplier not found"})
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// Create adds a new supplier
func (h *Handler) Create(c *gin.Context) {
	var req CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier := database.Supplier{
		Name:    req.Name,
		Contact: req.Contact,
		Email:   req.Email,
		Address: req.Address,
		Notes:   req.Notes,
		Active:  true,
	}
	if err := h.db.Create(&supplier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create supplier"})
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

// Update modifies a supplier
func (h *Handler) Update(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Supplier not found"})
		return
	}

	var req UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.Contact != nil {
		supplier.Contact = *req.Contact
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}

	if err := h.db.Save(&supplier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update supplier"})
		return
	}
	c.JSON(http.StatusOK, supplier)
}

// Delete removes a supplier. Receipts that referenced it keep their
// supplier_id as a dangling weak reference; that is accepted here.
func (h *Handler) Delete(c *gin.Context) {
	var supplier database.Supplier
	if err := h.db.First(&supplier, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Supplier not found"})
		return
	}

	if err := h.db.Delete(&supplier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete supplier"})
		return
	}
	c.Status(http.StatusNoContent)
}
