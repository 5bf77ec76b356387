package database

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed creates the default accounts and sample reference data. It is a no-op
// once any user exists.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("rupp2025"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []User{
		{Email: "admin@ics.com", Name: "Admin User", PasswordHash: string(hash), Role: RoleAdmin},
		{Email: "manager@ics.com", Name: "Manager User", PasswordHash: string(hash), Role: RoleManager},
		{Email: "stock1@ics.com", Name: "Stock Controller 1", PasswordHash: string(hash), Role: RoleStockController},
		{Email: "viewer@ics.com", Name: "Viewer User", PasswordHash: string(hash), Role: RoleViewer},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	categories := []Category{
		{Name: "Beverages"},
		{Name: "Snacks"},
		{Name: "Electronics"},
	}
	if err := db.Create(&categories).Error; err != nil {
		return err
	}

	suppliers := []Supplier{
		{Name: "Global Drinks Ltd", Contact: "John Doe", Email: "john@global.com", Address: "123 Ind Park", Active: true},
		{Name: "Tech Wholesalers", Contact: "Jane Smith", Email: "jane@tech.com", Address: "456 Tech Ave", Active: true},
	}
	if err := db.Create(&suppliers).Error; err != nil {
		return err
	}

	products := []Product{
		{
			Name:                 "Cola 330ml",
			CategoryID:           &categories[0].ID,
			MinStockLevel:        20,
			DefaultPurchasePrice: decimal.RequireFromString("0.50"),
			DefaultSellingPrice:  decimal.RequireFromString("1.00"),
			Unit:                 "can",
			Active:               true,
		},
		{
			Name:                 "Chips 50g",
			CategoryID:           &categories[1].ID,
			MinStockLevel:        15,
			DefaultPurchasePrice: decimal.RequireFromString("0.80"),
			DefaultSellingPrice:  decimal.RequireFromString("1.50"),
			Unit:                 "bag",
			Active:               true,
		},
	}
	return db.Create(&products).Error
}
