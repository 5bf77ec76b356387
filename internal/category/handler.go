package category

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

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// List returns all categories
func (h *Handler) List(c *gin.Context) {
	var categories []database.Category
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Create adds a new category. Names are unique.
func (h *Handler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := database.Category{Name: req.Name}
	if err := h.db.Create(&category).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Category name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create category"})
		return
	}
	c.JSON(http.StatusCreated, category)
}
