package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sokleng/ics-backend/pkg/database"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type CreateUserRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	Name           string `json:"name" binding:"required"`
	Role           string `json:"role" binding:"required,oneof=admin manager stock_controller viewer"`
	TelegramChatID string `json:"telegram_chat_id"`
}

// List returns all users. Password hashes never serialize.
func (h *Handler) List(c *gin.Context) {
	var users []database.User
	if err := h.db.Order("id ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// Create adds a new user
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}

	user := database.User{
		Email:          req.Email,
		PasswordHash:   string(hash),
		Name:           req.Name,
		Role:           req.Role,
		TelegramChatID: req.TelegramChatID,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Delete removes a user
func (h *Handler) Delete(c *gin.Context) {
	var user database.User
	if err := h.db.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if user.ID == c.GetUint("user_id") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot delete your own account"})
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete user"})
		return
	}
	c.Status(http.StatusNoContent)
}
