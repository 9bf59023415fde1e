package handlers

import (
	"net/http"
	"strconv"
	"time"

	"graminstore-backend/internal/database"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// queryInt reads an integer query parameter with a default.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// clamp bounds n to [lo, hi].
func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// currentMerchant loads the authenticated merchant. Writes the error
// response and returns false when the record is gone.
func currentMerchant(c *gin.Context) (models.Merchant, bool) {
	merchantID := c.MustGet("userID").(uint)

	var merchant models.Merchant
	if err := database.DB.First(&merchant, merchantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
		return models.Merchant{}, false
	}
	return merchant, true
}

// currentUser loads the authenticated consumer.
func currentUser(c *gin.Context) (models.User, bool) {
	userID := c.MustGet("userID").(uint)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return models.User{}, false
	}
	return user, true
}

// transactionJSON renders a ledger row in the external API vocabulary.
func transactionJSON(txn ledger.Row) gin.H {
	return gin.H{
		"transaction_id": txn.TransactionID,
		"user_id":        txn.UserID,
		"guest_user_id":  txn.GuestUserID,
		"timestamp":      txn.Timestamp.UTC().Format(time.RFC3339),
		"amount":         txn.Amount.InexactFloat64(),
		"type":           ledger.ExternalLabel(txn.Type),
		"description":    txn.Description,
		"payment_method": txn.PaymentMethod,
	}
}

func transactionListJSON(txns []ledger.Row) []gin.H {
	out := make([]gin.H, 0, len(txns))
	for _, txn := range txns {
		out = append(out, transactionJSON(txn))
	}
	return out
}
