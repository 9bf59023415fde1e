package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"graminstore-backend/internal/database"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateTransactionRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	UserID          *int64  `json:"user_id"`
	TransactionType string  `json:"transaction_type" binding:"required"`
	Description     *string `json:"description"`
	PaymentMethod   *string `json:"payment_method"`
	IsGuestUser     bool    `json:"is_guest_user"`
}

// CreateTransaction records one ledger entry for the authenticated
// merchant. A transaction names either a registered user or the
// merchant's guest identity, never neither.
func CreateTransaction(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		var input CreateTransactionRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		if !input.IsGuestUser && input.UserID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required for non-guest transactions"})
			return
		}

		txnType, err := ledger.ParseType(input.TransactionType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.PaymentMethod != nil && !ledger.ValidPaymentMethod(*input.PaymentMethod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_method must be online or cash"})
			return
		}

		txnID, resolvedUserID, err := store.Insert(ledger.InsertParams{
			MerchantID:    merchantID,
			UserID:        input.UserID,
			Amount:        decimal.NewFromFloat(input.Amount),
			Type:          txnType,
			Description:   input.Description,
			PaymentMethod: input.PaymentMethod,
			IsGuest:       input.IsGuestUser,
		})
		if err == ledger.ErrGuestPayLater || err == ledger.ErrNonPositiveAmount {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record transaction"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"transaction_id": txnID,
			"user_id":        resolvedUserID,
			"amount":         input.Amount,
			"type":           ledger.ExternalLabel(string(txnType)),
			"message":        "Transaction recorded successfully",
		})
	}
}

// TransactionHistory lists the merchant's transactions, newest first.
func TransactionHistory(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		limit := clamp(queryInt(c, "limit", 50), 1, 200)
		offset := queryInt(c, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		txns, err := store.List(merchantID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"transactions": transactionListJSON(txns),
			"count":        len(txns),
			"limit":        limit,
			"offset":       offset,
		})
	}
}

// TransactionAnalytics returns the merchant's ledger aggregates for the
// requested trailing window.
func TransactionAnalytics(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		days := clamp(queryInt(c, "days", 30), 1, 365)

		analytics, err := store.Analytics(merchantID, days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"period_days":        days,
			"total_sales":        analytics.TotalSales,
			"total_transactions": analytics.TotalTransactions,
			"total_pending":      analytics.TotalPending,
			"avg_transaction":    analytics.AvgTransaction,
		})
	}
}

// GuestUsers returns the merchant's guest identity, if provisioned,
// together with the guest-scoped ledger aggregates.
func GuestUsers(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		analytics, err := store.GuestAnalytics(merchantID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute guest analytics"})
			return
		}

		analyticsJSON := gin.H{
			"total_transactions":    analytics.TotalTransactions,
			"total_amount_paid":     analytics.TotalAmountPaid,
			"total_amount_pending":  analytics.TotalAmountPending,
			"avg_transaction":       analytics.AvgTransaction,
			"last_transaction_date": analytics.LastTransactionDate,
			"recent_transactions":   transactionListJSON(analytics.RecentTransactions),
		}

		var guest models.GuestUser
		err = database.DB.Where("merchant_id = ?", merchantID).First(&guest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"guest_user": nil,
				"analytics":  analyticsJSON,
			})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch guest user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"guest_user": gin.H{
				"id":          guest.ID,
				"merchant_id": guest.MerchantID,
				"created_at":  guest.CreatedAt,
			},
			"analytics": analyticsJSON,
		})
	}
}

// UserTransactionsWithMerchant lists the authenticated consumer's own
// entries in one merchant's ledger. Guest rows carry the same id space
// as user rows, so rows flagged as guest are excluded here.
func UserTransactionsWithMerchant(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)

		merchantID, err := strconv.ParseUint(c.Param("merchant_id"), 10, 64)
		if err != nil || merchantID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "merchant_id must be a positive integer"})
			return
		}

		var merchant models.Merchant
		if err := database.DB.First(&merchant, merchantID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
			return
		}

		limit := clamp(queryInt(c, "limit", 50), 1, 200)

		rows, err := store.List(uint(merchantID), 1000, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}

		mine := []ledger.Row{}
		for _, row := range rows {
			if row.GuestUserID != nil {
				continue
			}
			if row.UserID != nil && *row.UserID == int64(userID) {
				mine = append(mine, row)
				if len(mine) >= limit {
					break
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"merchant_id":   merchant.ID,
			"merchant_name": merchant.BusinessName,
			"transactions":  transactionListJSON(mine),
			"count":         len(mine),
		})
	}
}
