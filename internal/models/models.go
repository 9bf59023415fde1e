package models

import (
	"time"
)

// Merchant - A store owner. Owns one ledger table, one guest identity,
// inventory and orders.
type Merchant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Phone        string    `gorm:"uniqueIndex;size:20" json:"phone"`
	PasswordHash string    `json:"-"` // Never return this in JSON
	AadharNumber string    `gorm:"uniqueIndex;size:12" json:"aadhar_number"`
	BusinessName string    `gorm:"size:200" json:"business_name"`
	City         string    `gorm:"size:100" json:"city"`
	State        string    `gorm:"size:100" json:"state"`
	ZipCode      string    `gorm:"size:100" json:"zip_code"`
	Country      string    `gorm:"size:100" json:"country"`
	BusinessType string    `gorm:"size:100" json:"business_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User - A registered consumer. Referenced from ledger rows by id and
// may appear against many merchants' ledgers.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Phone        string    `gorm:"uniqueIndex;size:20" json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuestUser - Placeholder identity for walk-in customers. One per merchant,
// created lazily on the first guest transaction and reused thereafter.
// Carries no personal data; it exists so the ledger's user_id column has
// something to point at when no registered user is involved.
type GuestUser struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MerchantID uint      `gorm:"uniqueIndex" json:"merchant_id"`
	CreatedAt  time.Time `json:"created_at"`
}
