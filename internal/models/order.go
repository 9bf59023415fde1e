package models

import (
	"time"
)

// Order - One marketplace order per merchant per checkout. Linked to the
// merchant's ledger by transaction_id (by convention, not a foreign key).
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	OrderID       string      `gorm:"uniqueIndex;size:50" json:"order_id"`
	TransactionID int64       `json:"transaction_id"`
	MerchantID    uint        `gorm:"index" json:"merchant_id"`
	UserID        *uint       `json:"user_id"`
	GuestUserID   *uint       `json:"guest_user_id"`
	CustomerName  string      `gorm:"size:100" json:"customer_name"`
	CustomerPhone string      `gorm:"size:20" json:"customer_phone"`
	TotalAmount   float64     `json:"total_amount"`
	PaymentMethod string      `gorm:"size:20" json:"payment_method"`
	Status        string      `gorm:"size:20;default:pending" json:"status"` // pending, processing, completed, cancelled
	IsGuestOrder  bool        `gorm:"default:true" json:"is_guest_order"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Items         []OrderItem `gorm:"foreignKey:OrderPK" json:"items"`
}

// OrderItem - Snapshot of one cart line at checkout time. Name, category
// and price are copied, not referenced live, so later inventory edits do
// not rewrite order history.
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderPK      uint      `gorm:"index" json:"-"`
	ItemID       uint      `json:"item_id"`
	ItemName     string    `gorm:"size:200" json:"item_name"`
	ItemCategory string    `gorm:"size:50" json:"item_category"`
	Quantity     int       `json:"quantity"`
	Unit         string    `gorm:"size:20" json:"unit"`
	UnitPrice    float64   `json:"unit_price"`
	TotalPrice   float64   `json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
}
