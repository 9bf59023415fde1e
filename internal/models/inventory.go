package models

import (
	"time"
)

// InventoryItem - Per-merchant stock record.
type InventoryItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MerchantID      uint      `gorm:"index" json:"merchant_id"`
	Name            string    `gorm:"size:255" json:"name"`
	Description     string    `json:"description"`
	Category        string    `gorm:"size:100" json:"category"`
	SKU             string    `gorm:"size:100" json:"sku"` // unique per merchant, enforced in handlers
	CurrentQuantity int       `gorm:"default:0" json:"current_quantity"`
	MinQuantity     int       `gorm:"default:5" json:"min_quantity"`
	UnitPrice       float64   `json:"unit_price"`
	Unit            string    `gorm:"size:50;default:pieces" json:"unit"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i *InventoryItem) IsLowStock() bool {
	return i.CurrentQuantity <= i.MinQuantity
}

// InventoryTransaction - Append-only log of quantity deltas with a
// before/after snapshot, one row per adjustment.
type InventoryTransaction struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	MerchantID       uint      `gorm:"index" json:"merchant_id"`
	InventoryItemID  uint      `gorm:"index" json:"inventory_item_id"`
	TransactionType  string    `gorm:"size:20" json:"transaction_type"` // 'in', 'out', 'adjustment'
	QuantityChange   int       `json:"quantity_change"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	Reason           string    `gorm:"size:255" json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// PurchaseListItem - Reorder suggestion derived from low-stock items.
// At most one open (unpurchased) entry per inventory item per merchant,
// enforced by query-then-upsert in the handlers.
type PurchaseListItem struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	MerchantID      uint          `gorm:"index" json:"merchant_id"`
	InventoryItemID uint          `gorm:"index" json:"inventory_item_id"`
	QuantityNeeded  int           `json:"quantity_needed"`
	IsPurchased     bool          `gorm:"default:false" json:"is_purchased"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	InventoryItem   InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventory_item"`
}
