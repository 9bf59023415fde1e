package ledger

import (
	"database/sql"
	"errors"
	"time"

	"graminstore-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrGuestPayLater is returned when a guest transaction is recorded as
// pay-later. Credit is restricted to identified users.
var ErrGuestPayLater = errors.New("guest transactions must be paid; pay_later requires a registered user")

// ErrNonPositiveAmount is returned for zero or negative amounts.
var ErrNonPositiveAmount = errors.New("transaction amount must be positive")

// nowFunc is swapped out in tests that pin window boundaries.
var nowFunc = time.Now

// Row is one ledger entry in a merchant's transaction table.
// guest_user_id is non-null iff the row was created as a guest
// transaction, and then equals user_id.
type Row struct {
	TransactionID int64           `gorm:"column:transaction_id;primaryKey" json:"transaction_id"`
	UserID        *int64          `gorm:"column:user_id" json:"user_id"`
	Timestamp     time.Time       `gorm:"column:timestamp" json:"timestamp"`
	Amount        decimal.Decimal `gorm:"column:amount" json:"amount"`
	Type          string          `gorm:"column:type" json:"type"`
	Description   *string         `gorm:"column:description" json:"description"`
	PaymentMethod *string         `gorm:"column:payment_method" json:"payment_method"`
	GuestUserID   *int64          `gorm:"column:guest_user_id" json:"guest_user_id"`
}

// Store performs all reads and writes against per-merchant ledger
// tables, routing through the registry.
type Store struct {
	db  *gorm.DB
	reg *Registry
}

func NewStore(db *gorm.DB, reg *Registry) *Store {
	return &Store{db: db, reg: reg}
}

// Registry exposes the table registry, for callers that only need
// table provisioning (merchant registration).
func (s *Store) Registry() *Registry {
	return s.reg
}

// InsertParams describes one ledger write.
type InsertParams struct {
	MerchantID    uint
	UserID        *int64
	Amount        decimal.Decimal
	Type          Type
	Description   *string
	PaymentMethod *string
	Timestamp     *time.Time // defaults to now (UTC)
	IsGuest       bool
}

// Insert writes one transaction into the merchant's ledger table,
// creating the table on first use. For guest transactions the merchant's
// single guest identity is resolved (or created) and recorded as both
// user_id and guest_user_id, overriding any caller-supplied user id.
// Returns the new transaction id and the resolved user id.
func (s *Store) Insert(p InsertParams) (int64, *int64, error) {
	if !p.Amount.IsPositive() {
		return 0, nil, ErrNonPositiveAmount
	}
	if p.IsGuest && p.Type == TypePayLater {
		return 0, nil, ErrGuestPayLater
	}

	table, err := s.reg.EnsureTable(p.MerchantID)
	if err != nil {
		return 0, nil, err
	}

	ts := nowFunc().UTC()
	if p.Timestamp != nil {
		ts = p.Timestamp.UTC()
	}

	row := Row{
		UserID:        p.UserID,
		Timestamp:     ts,
		Amount:        p.Amount,
		Type:          string(p.Type),
		Description:   p.Description,
		PaymentMethod: p.PaymentMethod,
	}

	if p.IsGuest {
		guestID, err := s.EnsureGuest(p.MerchantID)
		if err != nil {
			return 0, nil, err
		}
		id := int64(guestID)
		row.UserID = &id
		row.GuestUserID = &id
	}

	if err := s.db.Table(table).Create(&row).Error; err != nil {
		return 0, nil, err
	}

	return row.TransactionID, row.UserID, nil
}

// EnsureGuest resolves the merchant's single guest identity, creating it
// on first use. The insert-if-absent runs as one statement against the
// merchant_id uniqueness constraint, so two first-guest transactions
// racing each other still converge on one identity.
func (s *Store) EnsureGuest(merchantID uint) (uint, error) {
	guest := models.GuestUser{MerchantID: merchantID}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}},
		DoNothing: true,
	}).Create(&guest).Error
	if err != nil {
		return 0, err
	}

	if guest.ID == 0 {
		// Insert was a no-op, the identity already exists.
		if err := s.db.Where("merchant_id = ?", merchantID).First(&guest).Error; err != nil {
			return 0, err
		}
	}

	return guest.ID, nil
}

// List returns the merchant's transactions ordered by timestamp
// descending. A merchant with no ledger table yet yields an empty list,
// not an error.
func (s *Store) List(merchantID uint, limit, offset int) ([]Row, error) {
	if !s.reg.Has(merchantID) {
		return []Row{}, nil
	}

	rows := []Row{}
	err := s.db.Table(TableName(merchantID)).
		Order("timestamp desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

// ListByPeriod is List additionally restricted to the last N days. The
// lower bound is inclusive.
func (s *Store) ListByPeriod(merchantID uint, days, limit, offset int) ([]Row, error) {
	if !s.reg.Has(merchantID) {
		return []Row{}, nil
	}

	cutoff := nowFunc().UTC().AddDate(0, 0, -days)
	rows := []Row{}
	err := s.db.Table(TableName(merchantID)).
		Where("timestamp >= ?", cutoff).
		Order("timestamp desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

// Analytics holds the four scalar aggregates over one merchant's ledger.
type Analytics struct {
	TotalSales        float64 `json:"total_sales"`
	TotalTransactions int64   `json:"total_transactions"`
	TotalPending      float64 `json:"total_pending"`
	AvgTransaction    float64 `json:"avg_transaction"`
}

// Analytics computes the aggregates store-side for the last N days. All
// values default to zero when the ledger table does not exist yet or the
// window is empty; this never errors for an un-provisioned merchant.
func (s *Store) Analytics(merchantID uint, days int) (Analytics, error) {
	var a Analytics
	if !s.reg.Has(merchantID) {
		return a, nil
	}

	table := TableName(merchantID)
	cutoff := nowFunc().UTC().AddDate(0, 0, -days)

	err := s.db.Table(table).
		Where("type = ? AND timestamp >= ?", string(TypePaid), cutoff).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&a.TotalSales).Error
	if err != nil {
		return Analytics{}, err
	}

	err = s.db.Table(table).
		Where("timestamp >= ?", cutoff).
		Count(&a.TotalTransactions).Error
	if err != nil {
		return Analytics{}, err
	}

	err = s.db.Table(table).
		Where("type = ? AND timestamp >= ?", string(TypePayLater), cutoff).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&a.TotalPending).Error
	if err != nil {
		return Analytics{}, err
	}

	err = s.db.Table(table).
		Where("timestamp >= ?", cutoff).
		Select("COALESCE(AVG(amount), 0)").
		Scan(&a.AvgTransaction).Error
	if err != nil {
		return Analytics{}, err
	}

	return a, nil
}

// GuestAnalytics summarizes the guest-flagged slice of a merchant's
// ledger: the scalar aggregates plus the last transaction timestamp and
// the three most recent rows.
type GuestAnalytics struct {
	TotalTransactions   int64      `json:"total_transactions"`
	TotalAmountPaid     float64    `json:"total_amount_paid"`
	TotalAmountPending  float64    `json:"total_amount_pending"`
	AvgTransaction      float64    `json:"avg_transaction"`
	LastTransactionDate *time.Time `json:"last_transaction_date"`
	RecentTransactions  []Row      `json:"recent_transactions"`
}

// GuestAnalytics computes the guest-scoped aggregates for one merchant.
func (s *Store) GuestAnalytics(merchantID uint) (GuestAnalytics, error) {
	a := GuestAnalytics{RecentTransactions: []Row{}}
	if !s.reg.Has(merchantID) {
		return a, nil
	}

	table := TableName(merchantID)

	err := s.db.Table(table).
		Where("guest_user_id IS NOT NULL").
		Count(&a.TotalTransactions).Error
	if err != nil {
		return GuestAnalytics{}, err
	}

	err = s.db.Table(table).
		Where("guest_user_id IS NOT NULL AND type = ?", string(TypePaid)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&a.TotalAmountPaid).Error
	if err != nil {
		return GuestAnalytics{}, err
	}

	err = s.db.Table(table).
		Where("guest_user_id IS NOT NULL AND type = ?", string(TypePayLater)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&a.TotalAmountPending).Error
	if err != nil {
		return GuestAnalytics{}, err
	}

	err = s.db.Table(table).
		Where("guest_user_id IS NOT NULL").
		Select("COALESCE(AVG(amount), 0)").
		Scan(&a.AvgTransaction).Error
	if err != nil {
		return GuestAnalytics{}, err
	}

	var last sql.NullTime
	err = s.db.Table(table).
		Where("guest_user_id IS NOT NULL").
		Select("MAX(timestamp)").
		Scan(&last).Error
	if err != nil {
		return GuestAnalytics{}, err
	}
	if last.Valid {
		t := last.Time
		a.LastTransactionDate = &t
	}

	err = s.db.Table(table).
		Where("guest_user_id IS NOT NULL").
		Order("timestamp desc").
		Limit(3).
		Find(&a.RecentTransactions).Error
	if err != nil {
		return GuestAnalytics{}, err
	}

	return a, nil
}
