package ledger

import (
	"errors"
	"testing"
	"time"

	"graminstore-backend/internal/models"

	"github.com/shopspring/decimal"
)

func TestInsertRoundTrip(t *testing.T) {
	store := testStore(t)

	userID := int64(7)
	method := PaymentCash
	txnID, resolved, err := store.Insert(InsertParams{
		MerchantID:    1,
		UserID:        &userID,
		Amount:        decimal.NewFromFloat(25.50),
		Type:          TypePaid,
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if txnID == 0 {
		t.Fatal("Insert returned zero transaction id")
	}
	if resolved == nil || *resolved != 7 {
		t.Fatalf("resolved user id = %v, want 7", resolved)
	}

	rows, err := store.List(1, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if !row.Amount.Equal(decimal.NewFromFloat(25.50)) {
		t.Fatalf("amount = %s, want 25.5", row.Amount)
	}
	if row.Type != string(TypePaid) {
		t.Fatalf("type = %q, want PAYED", row.Type)
	}
	if row.Description != nil {
		t.Fatalf("description = %v, want nil", row.Description)
	}
	if row.GuestUserID != nil {
		t.Fatal("non-guest row must not carry a guest user id")
	}
}

func TestInsertRejectsNonPositiveAmount(t *testing.T) {
	store := testStore(t)

	userID := int64(1)
	_, _, err := store.Insert(InsertParams{
		MerchantID: 1,
		UserID:     &userID,
		Amount:     decimal.Zero,
		Type:       TypePaid,
	})
	if !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("err = %v, want ErrNonPositiveAmount", err)
	}
}

func TestGuestPayLaterRejected(t *testing.T) {
	store := testStore(t)

	_, _, err := store.Insert(InsertParams{
		MerchantID: 1,
		Amount:     decimal.NewFromInt(10),
		Type:       TypePayLater,
		IsGuest:    true,
	})
	if !errors.Is(err, ErrGuestPayLater) {
		t.Fatalf("err = %v, want ErrGuestPayLater", err)
	}

	// The rejected write must not leave a ledger table or a guest
	// identity behind.
	if store.Registry().Has(1) {
		t.Fatal("rejected write should not provision the ledger table")
	}
}

func TestGuestIdentityReused(t *testing.T) {
	store := testStore(t)

	var ids []int64
	for i := 0; i < 2; i++ {
		_, resolved, err := store.Insert(InsertParams{
			MerchantID: 5,
			Amount:     decimal.NewFromInt(20),
			Type:       TypePaid,
			IsGuest:    true,
		})
		if err != nil {
			t.Fatalf("guest insert %d: %v", i, err)
		}
		if resolved == nil {
			t.Fatalf("guest insert %d resolved no user id", i)
		}
		ids = append(ids, *resolved)
	}

	if ids[0] != ids[1] {
		t.Fatalf("guest inserts resolved to different identities: %d vs %d", ids[0], ids[1])
	}

	var count int64
	if err := store.db.Model(&models.GuestUser{}).Where("merchant_id = ?", 5).Count(&count).Error; err != nil {
		t.Fatalf("count guests: %v", err)
	}
	if count != 1 {
		t.Fatalf("merchant has %d guest identities, want 1", count)
	}

	rows, err := store.List(5, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, row := range rows {
		if row.GuestUserID == nil || row.UserID == nil {
			t.Fatal("guest row must carry both id columns")
		}
		if *row.GuestUserID != *row.UserID {
			t.Fatalf("guest row ids differ: user %d, guest %d", *row.UserID, *row.GuestUserID)
		}
	}
}

func TestListMissingTableIsEmpty(t *testing.T) {
	store := testStore(t)

	rows, err := store.List(99, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows for unknown merchant, want 0", len(rows))
	}
}

func TestListByPeriodBoundary(t *testing.T) {
	store := testStore(t)

	fixed := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = time.Now })

	userID := int64(1)
	// One row exactly on the 30-day cutoff, one just past it.
	boundary := fixed.AddDate(0, 0, -30)
	beyond := boundary.Add(-time.Second)
	for _, ts := range []time.Time{boundary, beyond} {
		ts := ts
		_, _, err := store.Insert(InsertParams{
			MerchantID: 2,
			UserID:     &userID,
			Amount:     decimal.NewFromInt(100),
			Type:       TypePaid,
			Timestamp:  &ts,
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	within, err := store.ListByPeriod(2, 30, 10, 0)
	if err != nil {
		t.Fatalf("ListByPeriod(30): %v", err)
	}
	if len(within) != 1 {
		t.Fatalf("30-day window has %d rows, want 1 (boundary row is inclusive)", len(within))
	}
	if !within[0].Timestamp.Equal(boundary) {
		t.Fatalf("window kept row at %v, want the boundary row %v", within[0].Timestamp, boundary)
	}

	outside, err := store.ListByPeriod(2, 5, 10, 0)
	if err != nil {
		t.Fatalf("ListByPeriod(5): %v", err)
	}
	if len(outside) != 0 {
		t.Fatalf("5-day window has %d rows, want 0", len(outside))
	}
}

func TestAnalytics(t *testing.T) {
	store := testStore(t)

	// A merchant with no ledger table yields zeroes, never an error.
	empty, err := store.Analytics(8, 30)
	if err != nil {
		t.Fatalf("Analytics on missing table: %v", err)
	}
	if empty.TotalSales != 0 || empty.TotalTransactions != 0 || empty.TotalPending != 0 || empty.AvgTransaction != 0 {
		t.Fatalf("empty analytics not zeroed: %+v", empty)
	}

	userID := int64(3)
	for _, txn := range []struct {
		amount float64
		typ    Type
	}{
		{100, TypePaid},
		{50, TypePaid},
		{30, TypePayLater},
	} {
		_, _, err := store.Insert(InsertParams{
			MerchantID: 8,
			UserID:     &userID,
			Amount:     decimal.NewFromFloat(txn.amount),
			Type:       txn.typ,
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := store.Analytics(8, 30)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if got.TotalSales != 150 {
		t.Fatalf("total sales = %v, want 150", got.TotalSales)
	}
	if got.TotalTransactions != 3 {
		t.Fatalf("total transactions = %d, want 3", got.TotalTransactions)
	}
	if got.TotalPending != 30 {
		t.Fatalf("total pending = %v, want 30", got.TotalPending)
	}
	if got.AvgTransaction != 60 {
		t.Fatalf("avg transaction = %v, want 60", got.AvgTransaction)
	}
}

func TestGuestAnalytics(t *testing.T) {
	store := testStore(t)

	// Guest-scoped aggregates must ignore registered-user rows.
	userID := int64(4)
	if _, _, err := store.Insert(InsertParams{
		MerchantID: 6,
		UserID:     &userID,
		Amount:     decimal.NewFromInt(500),
		Type:       TypePaid,
	}); err != nil {
		t.Fatalf("user insert: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, _, err := store.Insert(InsertParams{
			MerchantID: 6,
			Amount:     decimal.NewFromInt(10),
			Type:       TypePaid,
			IsGuest:    true,
		}); err != nil {
			t.Fatalf("guest insert %d: %v", i, err)
		}
	}

	got, err := store.GuestAnalytics(6)
	if err != nil {
		t.Fatalf("GuestAnalytics: %v", err)
	}
	if got.TotalTransactions != 4 {
		t.Fatalf("guest transactions = %d, want 4", got.TotalTransactions)
	}
	if got.TotalAmountPaid != 40 {
		t.Fatalf("guest paid = %v, want 40", got.TotalAmountPaid)
	}
	if got.LastTransactionDate == nil {
		t.Fatal("last transaction date missing")
	}
	if len(got.RecentTransactions) != 3 {
		t.Fatalf("recent transactions = %d, want 3", len(got.RecentTransactions))
	}
}
