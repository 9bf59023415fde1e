package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"graminstore-backend/internal/auth"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/logger"
	"graminstore-backend/internal/notify"
	"graminstore-backend/internal/orders"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var orderStatuses = map[string]bool{
	"pending":    true,
	"processing": true,
	"completed":  true,
	"cancelled":  true,
}

// ProcessCheckout runs a marketplace checkout. The route is public;
// when a bearer token is present the order is tied to that user,
// otherwise it is recorded against each merchant's guest identity.
func ProcessCheckout(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orders.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		var userID *uint
		if raw, ok := c.Get("userID"); ok {
			if c.GetString("userType") == auth.UserTypeUser {
				id := raw.(uint)
				userID = &id
			}
		}

		result, err := svc.Checkout(req, userID)
		if errors.Is(err, orders.ErrEmptyCart) || errors.Is(err, ledger.ErrNonPositiveAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Get().WithError(err).Error("checkout failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// GetMerchantOrders lists a merchant's orders. Merchants only see
// their own.
func GetMerchantOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		requested, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "merchant id must be an integer"})
			return
		}
		if uint(requested) != merchantID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own orders"})
			return
		}

		limit := clamp(queryInt(c, "limit", 50), 1, 200)
		offset := queryInt(c, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		list, err := svc.MerchantOrders(merchantID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		out := make([]map[string]interface{}, 0, len(list))
		for _, order := range list {
			out = append(out, orders.OrderPayload(order))
		}

		c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
	}
}

// GetUserOrders lists a consumer's orders across all merchants. Users
// only see their own.
func GetUserOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)

		requested, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user id must be an integer"})
			return
		}
		if uint(requested) != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only view your own orders"})
			return
		}

		limit := clamp(queryInt(c, "limit", 50), 1, 200)
		offset := queryInt(c, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		list, err := svc.UserOrders(userID, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		out := make([]map[string]interface{}, 0, len(list))
		for _, order := range list {
			out = append(out, orders.OrderPayload(order))
		}

		c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
	}
}

// UpdateOrderStatus changes the status of one of the merchant's own
// orders.
func UpdateOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		status := c.Query("status")
		if !orderStatuses[status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of pending, processing, completed, cancelled"})
			return
		}

		orderID := c.Param("order_id")
		order, err := svc.GetOrder(orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		if order.MerchantID != merchantID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Order belongs to another merchant"})
			return
		}

		updated, err := svc.UpdateStatus(orderID, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Order status updated",
			"order":   orders.OrderPayload(updated),
		})
	}
}

type PushSubscribeRequest struct {
	Endpoint string            `json:"endpoint" binding:"required"`
	Keys     map[string]string `json:"keys"`
}

// SubscribePush registers the merchant's browser push endpoint.
func SubscribePush(push *notify.PushService) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)

		var input PushSubscribeRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		push.Subscribe(merchantID, input.Endpoint, input.Keys)
		c.JSON(http.StatusOK, gin.H{"message": "Subscribed to order notifications"})
	}
}

// UnsubscribePush drops the merchant's push endpoint.
func UnsubscribePush(push *notify.PushService) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := c.MustGet("userID").(uint)
		push.Unsubscribe(merchantID)
		c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed from order notifications"})
	}
}
