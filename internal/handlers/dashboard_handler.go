package handlers

import (
	"net/http"
	"sort"
	"time"

	"graminstore-backend/internal/database"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// merchantScanLimit bounds how many merchants a consumer-side dashboard
// scan walks. Ledger tables are per merchant, so user aggregates have
// to visit each one.
const merchantScanLimit = 1000

// MerchantDashboard combines the 30-day ledger aggregates with the
// guest summary and the ten most recent transactions.
func MerchantDashboard(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchant, ok := currentMerchant(c)
		if !ok {
			return
		}

		analytics, err := store.Analytics(merchant.ID, 30)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
			return
		}

		guest, err := store.GuestAnalytics(merchant.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute guest analytics"})
			return
		}

		recent, err := store.List(merchant.ID, 10, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"merchant": gin.H{
				"id":            merchant.ID,
				"name":          merchant.Name,
				"business_name": merchant.BusinessName,
				"business_type": merchant.BusinessType,
			},
			"analytics": gin.H{
				"period_days":        30,
				"total_sales":        analytics.TotalSales,
				"total_transactions": analytics.TotalTransactions,
				"total_pending":      analytics.TotalPending,
				"avg_transaction":    analytics.AvgTransaction,
			},
			"guest_summary": gin.H{
				"total_transactions":    guest.TotalTransactions,
				"total_amount_paid":     guest.TotalAmountPaid,
				"total_amount_pending":  guest.TotalAmountPending,
				"last_transaction_date": guest.LastTransactionDate,
			},
			"recent_transactions": transactionListJSON(recent),
		})
	}
}

// userRows collects a consumer's own (non-guest) rows across every
// merchant ledger, keyed by merchant.
func userRows(store *ledger.Store, userID uint) (map[uint][]ledger.Row, []models.Merchant, error) {
	var merchants []models.Merchant
	if err := database.DB.Limit(merchantScanLimit).Find(&merchants).Error; err != nil {
		return nil, nil, err
	}

	byMerchant := map[uint][]ledger.Row{}
	for _, m := range merchants {
		rows, err := store.List(m.ID, 1000, 0)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			if row.GuestUserID != nil {
				continue
			}
			if row.UserID != nil && *row.UserID == int64(userID) {
				byMerchant[m.ID] = append(byMerchant[m.ID], row)
			}
		}
	}
	return byMerchant, merchants, nil
}

// merchantExpense is one merchant's total inside a time window.
type merchantExpense struct {
	MerchantID   uint    `json:"merchant_id"`
	MerchantName string  `json:"merchant_name"`
	Total        float64 `json:"total"`
	Transactions int     `json:"transactions"`
}

// UserDashboard aggregates a consumer's spending across all merchants:
// lifetime totals plus per-merchant breakdowns for the current calendar
// week (from Monday) and the current calendar month. The window
// breakdowns count paid and pending rows alike; pending amounts are
// money the user owes for that period, not a separate ledger.
func UserDashboard(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		byMerchant, merchants, err := userRows(store, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard"})
			return
		}

		names := map[uint]string{}
		for _, m := range merchants {
			names[m.ID] = m.BusinessName
		}

		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		weekStart := today.AddDate(0, 0, -daysSinceMonday)
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

		var totalSpent, totalPending, weeklySpent, monthlySpent float64
		var count int64
		merchantCount := 0
		weekly := []merchantExpense{}
		monthly := []merchantExpense{}

		for merchantID, rows := range byMerchant {
			if len(rows) == 0 {
				continue
			}
			merchantCount++

			week := merchantExpense{MerchantID: merchantID, MerchantName: names[merchantID]}
			month := merchantExpense{MerchantID: merchantID, MerchantName: names[merchantID]}
			for _, row := range rows {
				amount := row.Amount.InexactFloat64()
				count++
				if row.Type == string(ledger.TypePayLater) {
					totalPending += amount
				} else {
					totalSpent += amount
				}
				if !row.Timestamp.Before(weekStart) {
					week.Total += amount
					week.Transactions++
				}
				if !row.Timestamp.Before(monthStart) {
					month.Total += amount
					month.Transactions++
				}
			}
			if week.Transactions > 0 {
				weeklySpent += week.Total
				weekly = append(weekly, week)
			}
			if month.Transactions > 0 {
				monthlySpent += month.Total
				monthly = append(monthly, month)
			}
		}

		sort.Slice(weekly, func(i, j int) bool { return weekly[i].Total > weekly[j].Total })
		sort.Slice(monthly, func(i, j int) bool { return monthly[i].Total > monthly[j].Total })

		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":   user.ID,
				"name": user.Name,
			},
			"total_spent":        totalSpent,
			"total_pending":      totalPending,
			"weekly_spent":       weeklySpent,
			"monthly_spent":      monthlySpent,
			"weekly_expenses":    weekly,
			"monthly_expenses":   monthly,
			"total_transactions": count,
			"merchants_visited":  merchantCount,
		})
	}
}

// UserExpenses breaks a consumer's spending down per merchant, largest
// first.
func UserExpenses(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		byMerchant, merchants, err := userRows(store, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute expenses"})
			return
		}

		names := map[uint]string{}
		for _, m := range merchants {
			names[m.ID] = m.BusinessName
		}

		type expense struct {
			MerchantID   uint    `json:"merchant_id"`
			MerchantName string  `json:"merchant_name"`
			TotalPaid    float64 `json:"total_paid"`
			TotalPending float64 `json:"total_pending"`
			Transactions int     `json:"transactions"`
		}

		breakdown := []expense{}
		for merchantID, rows := range byMerchant {
			if len(rows) == 0 {
				continue
			}
			e := expense{MerchantID: merchantID, MerchantName: names[merchantID]}
			for _, row := range rows {
				amount := row.Amount.InexactFloat64()
				e.Transactions++
				if row.Type == string(ledger.TypePayLater) {
					e.TotalPending += amount
				} else {
					e.TotalPaid += amount
				}
			}
			breakdown = append(breakdown, e)
		}

		sort.Slice(breakdown, func(i, j int) bool {
			return breakdown[i].TotalPaid+breakdown[i].TotalPending >
				breakdown[j].TotalPaid+breakdown[j].TotalPending
		})

		c.JSON(http.StatusOK, gin.H{
			"expenses": breakdown,
			"count":    len(breakdown),
		})
	}
}

// TopCustomers ranks the merchant's customers by ledger volume. All
// guest rows collapse into one walk-in bucket; guest rows carry both id
// columns, so the guest flag is checked before the user id.
func TopCustomers(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		limit := clamp(queryInt(c, "limit", 10), 1, 50)

		rows, err := store.List(merchantID, 5000, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		type customer struct {
			UserID       *int64  `json:"user_id"`
			Name         string  `json:"name"`
			IsGuest      bool    `json:"is_guest"`
			TotalPaid    float64 `json:"total_paid"`
			TotalPending float64 `json:"total_pending"`
			Transactions int     `json:"transactions"`
		}

		const guestKey = int64(-1)
		byID := map[int64]*customer{}
		for _, row := range rows {
			key := guestKey
			if row.GuestUserID == nil {
				if row.UserID == nil {
					continue
				}
				key = *row.UserID
			}

			entry, ok := byID[key]
			if !ok {
				entry = &customer{IsGuest: key == guestKey}
				if key != guestKey {
					id := key
					entry.UserID = &id
				}
				byID[key] = entry
			}

			amount := row.Amount.InexactFloat64()
			entry.Transactions++
			if row.Type == string(ledger.TypePayLater) {
				entry.TotalPending += amount
			} else {
				entry.TotalPaid += amount
			}
		}

		ranked := make([]*customer, 0, len(byID))
		for _, entry := range byID {
			ranked = append(ranked, entry)
		}

		for _, entry := range ranked {
			if entry.IsGuest {
				entry.Name = "Walk-in Customers"
				continue
			}
			var u models.User
			if err := database.DB.First(&u, *entry.UserID).Error; err == nil {
				entry.Name = u.Name
			} else {
				entry.Name = "Unknown"
			}
		}

		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].TotalPaid+ranked[i].TotalPending >
				ranked[j].TotalPaid+ranked[j].TotalPending
		})
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		c.JSON(http.StatusOK, gin.H{
			"customers": ranked,
			"count":     len(ranked),
		})
	}
}
