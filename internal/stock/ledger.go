package stock

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sokleng/ics-backend/pkg/database"
	"gorm.io/gorm"
)

// MaxMovementQuantity caps a single receipt or dispatch.
const MaxMovementQuantity = 100000

var dispatchReasons = map[string]bool{
	database.ReasonSale:   true,
	database.ReasonUsage:  true,
	database.ReasonDamage: true,
	database.ReasonReturn: true,
	database.ReasonOther:  true,
}

// Notifier receives low-stock alerts after a dispatch. Implementations must
// not block; delivery failures never surface to the caller.
type Notifier interface {
	LowStock(product database.Product, currentStock int)
}

// Ledger is the only mutation path into the movement tables. Stock is never
// stored; it is always the fold of receipts minus dispatches.
type Ledger struct {
	db       *gorm.DB
	notifier Notifier

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewLedger(db *gorm.DB, notifier Notifier) *Ledger {
	return &Ledger{
		db:       db,
		notifier: notifier,
		locks:    make(map[uint]*sync.Mutex),
	}
}

// productLock returns the mutex serializing check-and-append for one product.
// Dispatches against different products never contend. Entries are never
// evicted; the map is bounded by the size of the product catalog.
func (l *Ledger) productLock(productID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[productID] = lock
	}
	return lock
}

// CurrentStock derives a product's stock from its full movement history.
func (l *Ledger) CurrentStock(productID uint) (int, error) {
	var totalIn, totalOut int64

	if err := l.db.Model(&database.StockReceipt{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&totalIn).Error; err != nil {
		return 0, fmt.Errorf("sum receipts: %w", err)
	}

	if err := l.db.Model(&database.StockDispatch{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&totalOut).Error; err != nil {
		return 0, fmt.Errorf("sum dispatches: %w", err)
	}

	return int(totalIn - totalOut), nil
}

// ReceiptRequest is a validated stock-in. Date defaults to now when nil.
type ReceiptRequest struct {
	ProductID     uint
	SupplierID    *uint
	Quantity      int
	PurchasePrice decimal.Decimal
	Date          *time.Time
	ExpiryDate    *time.Time
	Notes         string
	RecordedBy    uint
}

// DispatchRequest is a validated stock-out.
type DispatchRequest struct {
	ProductID    uint
	Quantity     int
	SellingPrice decimal.Decimal
	Date         *time.Time
	Reason       string
	Notes        string
	RecordedBy   uint
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "Quantity must be at least 1"}
	}
	if quantity > MaxMovementQuantity {
		return &ValidationError{Field: "quantity", Message: "Cannot move more than 100,000 units at once"}
	}
	return nil
}

func (l *Ledger) getProduct(id uint) (*database.Product, error) {
	var product database.Product
	if err := l.db.First(&product, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ReferenceError{Entity: "product", ID: id}
		}
		return nil, err
	}
	return &product, nil
}

func (l *Ledger) checkSupplier(id uint) error {
	var n int64
	if err := l.db.Model(&database.Supplier{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return &ReferenceError{Entity: "supplier", ID: id}
	}
	return nil
}

func (l *Ledger) checkUser(id uint) error {
	var n int64
	if err := l.db.Model(&database.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return &ReferenceError{Entity: "user", ID: id}
	}
	return nil
}

// RecordReceipt validates and appends a stock-in entry. Receiving stock is
// always allowed; there is no level check on the way in.
func (l *Ledger) RecordReceipt(req ReceiptRequest) (*database.StockReceipt, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.PurchasePrice.IsNegative() {
		return nil, &ValidationError{Field: "purchase_price", Message: "Purchase price cannot be negative"}
	}
	if _, err := l.getProduct(req.ProductID); err != nil {
		return nil, err
	}
	if req.SupplierID != nil {
		if err := l.checkSupplier(*req.SupplierID); err != nil {
			return nil, err
		}
	}
	if err := l.checkUser(req.RecordedBy); err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	receipt := &database.StockReceipt{
		ProductID:     req.ProductID,
		SupplierID:    req.SupplierID,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		Date:          date,
		ExpiryDate:    req.ExpiryDate,
		Notes:         req.Notes,
		RecordedBy:    req.RecordedBy,
		FiscalYear:    date.Year(),
	}
	if err := l.db.Create(receipt).Error; err != nil {
		return nil, fmt.Errorf("append receipt: %w", err)
	}
	return receipt, nil
}

// RecordDispatch validates and appends a stock-out entry. The sufficiency
// check and the append run under the product lock, so two concurrent
// dispatches can never both pass the check on the same remaining stock.
func (l *Ledger) RecordDispatch(req DispatchRequest) (*database.StockDispatch, error) {
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if req.SellingPrice.IsNegative() {
		return nil, &ValidationError{Field: "selling_price", Message: "Selling price cannot be negative"}
	}
	if !dispatchReasons[req.Reason] {
		return nil, &ValidationError{Field: "reason", Message: "Reason must be one of sale, usage, damage, return, other"}
	}

	product, err := l.getProduct(req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := l.checkUser(req.RecordedBy); err != nil {
		return nil, err
	}

	lock := l.productLock(req.ProductID)
	lock.Lock()
	defer lock.Unlock()

	available, err := l.CurrentStock(req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > available {
		return nil, &InsufficientStockError{
			ProductID: req.ProductID,
			Requested: req.Quantity,
			Available: available,
		}
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	dispatch := &database.StockDispatch{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		SellingPrice: req.SellingPrice,
		Date:         date,
		Reason:       req.Reason,
		Notes:        req.Notes,
		RecordedBy:   req.RecordedBy,
		FiscalYear:   date.Year(),
	}
	if err := l.db.Create(dispatch).Error; err != nil {
		return nil, fmt.Errorf("append dispatch: %w", err)
	}

	remaining := available - req.Quantity
	if l.notifier != nil && remaining <= product.MinStockLevel {
		l.notifier.LowStock(*product, remaining)
	}
	return dispatch, nil
}

// Movement is one row of the merged transaction feed.
type Movement struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Date        time.Time `json:"date"`
	User        string    `json:"user"`
	RecordedBy  uint      `json:"recorded_by"`
	FiscalYear  int       `json:"fiscal_year"`
	Details     string    `json:"details"`
}

type movementRow struct {
	ID          uint
	ProductID   uint
	Quantity    int
	Date        time.Time
	RecordedBy  uint
	FiscalYear  int
	ProductName string
	UserName    string
	Reason      string
}

// Movements merges receipts and dispatches into one time-descending feed.
// typeFilter is "in", "out" or "all". Each side is already capped at limit,
// so truncating the merged slice never drops a newer entry.
func (l *Ledger) Movements(limit int, typeFilter string) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}

	feed := make([]Movement, 0, 2*limit)

	if typeFilter != "out" {
		var rows []movementRow
		err := l.db.Table("stock_receipts sr").
			Select("sr.id, sr.product_id, sr.quantity, sr.date, sr.recorded_by, sr.fiscal_year, p.name AS product_name, u.name AS user_name").
			Joins("LEFT JOIN products p ON sr.product_id = p.id").
			Joins("LEFT JOIN users u ON sr.recorded_by = u.id").
			Order("sr.date DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("list receipts: %w", err)
		}
		for _, r := range rows {
			feed = append(feed, Movement{
				ID:          r.ID,
				Type:        "in",
				ProductID:   r.ProductID,
				ProductName: r.ProductName,
				Quantity:    r.Quantity,
				Date:        r.Date,
				User:        r.UserName,
				RecordedBy:  r.RecordedBy,
				FiscalYear:  r.FiscalYear,
				Details:     "Purchase",
			})
		}
	}

	if typeFilter != "in" {
		var rows []movementRow
		err := l.db.Table("stock_dispatches sd").
			Select("sd.id, sd.product_id, sd.quantity, sd.date, sd.recorded_by, sd.fiscal_year, sd.reason, p.name AS product_name, u.name AS user_name").
			Joins("LEFT JOIN products p ON sd.product_id = p.id").
			Joins("LEFT JOIN users u ON sd.recorded_by = u.id").
			Order("sd.date DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("list dispatches: %w", err)
		}
		for _, r := range rows {
			feed = append(feed, Movement{
				ID:          r.ID,
				Type:        "out",
				ProductID:   r.ProductID,
				ProductName: r.ProductName,
				Quantity:    r.Quantity,
				Date:        r.Date,
				User:        r.UserName,
				RecordedBy:  r.RecordedBy,
				FiscalYear:  r.FiscalYear,
				Details:     r.Reason,
			})
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Date.After(feed[j].Date)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// ProductWithStock is a product plus the values derived from its ledger.
type ProductWithStock struct {
	database.Product
	CategoryName string `json:"category_name"`
	CurrentStock int    `json:"current_stock"`
	LowStock     bool   `json:"low_stock"`
}

type productRow struct {
	ID                   uint
	CategoryID           *uint
	Name                 string
	Barcode              string
	Description          string
	MinStockLevel        int
	DefaultPurchasePrice decimal.Decimal
	DefaultSellingPrice  decimal.Decimal
	Unit                 string
	ExpiryDaysDefault    *int
	Active               bool
	CategoryName         *string
	TotalIn              int64
	TotalOut             int64
}

// Scalar subqueries, one aggregate per movement table per product. Joining
// both movement tables at once would produce a Cartesian product and inflate
// every sum.
const productStockQuery = `
SELECT p.*, c.name AS category_name,
  COALESCE((SELECT SUM(quantity) FROM stock_receipts WHERE product_id = p.id), 0) AS total_in,
  COALESCE((SELECT SUM(quantity) FROM stock_dispatches WHERE product_id = p.id), 0) AS total_out
FROM products p
LEFT JOIN categories c ON p.category_id = c.id`

func (r productRow) toProduct() ProductWithStock {
	current := int(r.TotalIn - r.TotalOut)
	p := ProductWithStock{
		Product: database.Product{
			ID:                   r.ID,
			CategoryID:           r.CategoryID,
			Name:                 r.Name,
			Barcode:              r.Barcode,
			Description:          r.Description,
			MinStockLevel:        r.MinStockLevel,
			DefaultPurchasePrice: r.DefaultPurchasePrice,
			DefaultSellingPrice:  r.DefaultSellingPrice,
			Unit:                 r.Unit,
			ExpiryDaysDefault:    r.ExpiryDaysDefault,
			Active:               r.Active,
		},
		CurrentStock: current,
		LowStock:     current <= r.MinStockLevel,
	}
	if r.CategoryName != nil {
		p.CategoryName = *r.CategoryName
	}
	return p
}

// ProductsWithStock lists every product with its derived stock and low-stock
// flag, sorted by name.
func (l *Ledger) ProductsWithStock() ([]ProductWithStock, error) {
	var rows []productRow
	if err := l.db.Raw(productStockQuery + "\nORDER BY p.name ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products with stock: %w", err)
	}
	products := make([]ProductWithStock, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toProduct())
	}
	return products, nil
}

// ProductWithStockByID returns one product with its derived stock.
func (l *Ledger) ProductWithStockByID(id uint) (*ProductWithStock, error) {
	var rows []productRow
	if err := l.db.Raw(productStockQuery+"\nWHERE p.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("get product with stock: %w", err)
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Entity: "product", ID: id}
	}
	product := rows[0].toProduct()
	return &product, nil
}

// MovementCount reports how many ledger entries reference the product. Used
// by the delete-restriction: a product with history cannot be removed.
func (l *Ledger) MovementCount(productID uint) (int64, error) {
	var receipts, dispatches int64
	if err := l.db.Model(&database.StockReceipt{}).Where("product_id = ?", productID).Count(&receipts).Error; err != nil {
		return 0, err
	}
	if err := l.db.Model(&database.StockDispatch{}).Where("product_id = ?", productID).Count(&dispatches).Error; err != nil {
		return 0, err
	}
	return receipts + dispatches, nil
}
