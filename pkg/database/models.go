package database

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User roles. Authorization is enforced at the routing layer; the ledger
// itself never looks at roles.
const (
	RoleAdmin           = "admin"
	RoleManager         = "manager"
	RoleStockController = "stock_controller"
	RoleViewer          = "viewer"
)

// Dispatch reasons accepted on stock-out.
const (
	ReasonSale   = "sale"
	ReasonUsage  = "usage"
	ReasonDamage = "damage"
	ReasonReturn = "return"
	ReasonOther  = "other"
)

// User represents a system user
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `gorm:"not null" json:"name"`
	Role           string    `gorm:"not null;default:'viewer'" json:"role"`
	TelegramChatID string    `json:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Category for products. Names are unique; categories are never deleted.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Supplier is a stock source. Deleting a supplier orphans its receipts
// (supplier_id on a receipt is a weak reference).
type Supplier struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
	Active  bool   `gorm:"default:true" json:"active"`
}

// Product is the hub entity of the ledger. It deliberately carries no stock
// counter: current stock is always derived from the movement history so it
// cannot drift from the ledger.
type Product struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	CategoryID           *uint           `gorm:"index" json:"category_id"`
	Name                 string          `gorm:"not null" json:"name"`
	Barcode              string          `json:"barcode"`
	Description          string          `json:"description"`
	MinStockLevel        int             `gorm:"not null;default:10" json:"min_stock_level"`
	DefaultPurchasePrice decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"default_purchase_price"`
	DefaultSellingPrice  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"default_selling_price"`
	Unit                 string          `gorm:"not null;default:'pcs'" json:"unit"`
	ExpiryDaysDefault    *int            `json:"expiry_days_default"`
	Active               bool            `gorm:"default:true" json:"active"`
}

// StockReceipt is an immutable "in" ledger entry. No update or delete path
// exists for it anywhere in the codebase.
type StockReceipt struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	SupplierID    *uint           `json:"supplier_id"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"purchase_price"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	Notes         string          `json:"notes"`
	RecordedBy    uint            `gorm:"not null" json:"recorded_by"`
	FiscalYear    int             `gorm:"not null" json:"fiscal_year"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockDispatch is an immutable "out" ledger entry.
type StockDispatch struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"selling_price"`
	Date         time.Time       `gorm:"not null;index" json:"date"`
	Reason       string          `gorm:"not null" json:"reason"`
	Notes        string          `json:"notes"`
	RecordedBy   uint            `gorm:"not null" json:"recorded_by"`
	FiscalYear   int             `gorm:"not null" json:"fiscal_year"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Supplier{},
		&Product{},
		&StockReceipt{},
		&StockDispatch{},
	)
}
