package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/models"
	"graminstore-backend/internal/notify"
	"graminstore-backend/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrEmptyCart is returned when a checkout carries no items.
var ErrEmptyCart = errors.New("cart is empty")

// CartItem is one line of a marketplace cart as sent by the frontend.
type CartItem struct {
	ID           uint    `json:"id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity" binding:"required,gt=0"`
	Unit         string  `json:"unit"`
	MerchantID   uint    `json:"merchant_id" binding:"required"`
	MerchantName string  `json:"merchant_name"`
	Category     string  `json:"category"`
}

// CheckoutRequest groups a multi-merchant cart checkout.
type CheckoutRequest struct {
	CartItems     []CartItem `json:"cart_items" binding:"required"`
	PaymentMethod string     `json:"payment_method"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	IsGuestOrder  bool       `json:"is_guest_order"`
}

// CheckoutResult summarizes one checkout across all involved merchants.
// OrderID and MerchantID are taken from the first merchant partition.
type CheckoutResult struct {
	OrderID       string  `json:"order_id"`
	Message       string  `json:"message"`
	TotalAmount   float64 `json:"total_amount"`
	ItemsCount    int     `json:"items_count"`
	MerchantID    uint    `json:"merchant_id"`
	Timestamp     string  `json:"timestamp"`
	MerchantCount int     `json:"merchant_count"`
}

// Service orchestrates marketplace checkouts: it groups cart lines by
// merchant, writes the ledger transactions and order rows, and fans out
// notifications.
type Service struct {
	db     *gorm.DB
	ledger *ledger.Store
	hub    *ws.Hub
	push   *notify.PushService
}

func NewService(db *gorm.DB, l *ledger.Store, hub *ws.Hub, push *notify.PushService) *Service {
	return &Service{db: db, ledger: l, hub: hub, push: push}
}

// NewOrderID synthesizes a human-readable order id for a merchant.
func NewOrderID(merchantID uint) string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD_%d_%s", merchantID, hex[:8])
}

// Checkout processes one cart. userID is the authenticated consumer, if
// any; guest checkouts pass nil. Each merchant partition commits
// independently: a failure aborts the rest of the checkout but does not
// roll back orders already written for earlier merchants.
func (s *Service) Checkout(req CheckoutRequest, userID *uint) (CheckoutResult, error) {
	if len(req.CartItems) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = ledger.PaymentOnline
	}

	// Partition by merchant, preserving first-appearance order so the
	// "primary" order id of the response is deterministic.
	merchantIDs := []uint{}
	partitions := map[uint][]CartItem{}
	for _, item := range req.CartItems {
		if _, seen := partitions[item.MerchantID]; !seen {
			merchantIDs = append(merchantIDs, item.MerchantID)
		}
		partitions[item.MerchantID] = append(partitions[item.MerchantID], item)
	}

	isGuest := req.IsGuestOrder || userID == nil

	var processed []models.Order
	for _, merchantID := range merchantIDs {
		items := partitions[merchantID]

		subtotal := decimal.Zero
		lines := make([]string, 0, len(items))
		for _, item := range items {
			line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(line)
			lines = append(lines, fmt.Sprintf("%s (%d %s)", item.Name, item.Quantity, item.Unit))
		}
		description := "Marketplace Order: " + strings.Join(lines, ", ")

		var ledgerUserID *int64
		if !isGuest {
			id := int64(*userID)
			ledgerUserID = &id
		}

		// Marketplace orders are not creditable: always recorded paid.
		txnID, resolvedUserID, err := s.ledger.Insert(ledger.InsertParams{
			MerchantID:    merchantID,
			UserID:        ledgerUserID,
			Amount:        subtotal,
			Type:          ledger.TypePaid,
			Description:   &description,
			PaymentMethod: &paymentMethod,
			IsGuest:       isGuest,
		})
		if err != nil {
			return CheckoutResult{}, err
		}

		order, err := s.createOrder(merchantID, txnID, req, items, subtotal, paymentMethod, isGuest, userID, resolvedUserID)
		if err != nil {
			return CheckoutResult{}, err
		}

		s.notify(order, userID)
		processed = append(processed, order)
	}

	total := 0.0
	for _, order := range processed {
		total += order.TotalAmount
	}

	first := processed[0]
	return CheckoutResult{
		OrderID:       first.OrderID,
		Message:       fmt.Sprintf("Order processed successfully for %d merchant(s)", len(processed)),
		TotalAmount:   total,
		ItemsCount:    len(req.CartItems),
		MerchantID:    first.MerchantID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MerchantCount: len(processed),
	}, nil
}

func (s *Service) createOrder(
	merchantID uint,
	txnID int64,
	req CheckoutRequest,
	items []CartItem,
	subtotal decimal.Decimal,
	paymentMethod string,
	isGuest bool,
	userID *uint,
	resolvedUserID *int64,
) (models.Order, error) {
	customerName := req.CustomerName
	if customerName == "" {
		customerName = "Guest Customer"
	}

	order := models.Order{
		OrderID:       NewOrderID(merchantID),
		TransactionID: txnID,
		MerchantID:    merchantID,
		CustomerName:  customerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   subtotal.InexactFloat64(),
		PaymentMethod: paymentMethod,
		Status:        "pending",
		IsGuestOrder:  isGuest,
	}
	if isGuest {
		if resolvedUserID != nil {
			guestID := uint(*resolvedUserID)
			order.GuestUserID = &guestID
		}
	} else {
		order.UserID = userID
	}

	for _, item := range items {
		lineTotal := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ItemID:       item.ID,
			ItemName:     item.Name,
			ItemCategory: item.Category,
			Quantity:     item.Quantity,
			Unit:         item.Unit,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   lineTotal.InexactFloat64(),
		})
	}

	if err := s.db.Create(&order).Error; err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Service) notify(order models.Order, userID *uint) {
	event := ws.Event{
		Type:       "new_order",
		Data:       OrderPayload(order),
		MerchantID: order.MerchantID,
		Timestamp:  order.CreatedAt.UTC().Format(time.RFC3339),
	}

	s.hub.Deliver(ws.RoleMerchant, order.MerchantID, event)
	if userID != nil && !order.IsGuestOrder {
		s.hub.Deliver(ws.RoleUser, *userID, event)
	}

	s.push.SendOrderNotification(order.MerchantID, order.OrderID, order.CustomerName, order.TotalAmount)
}

// OrderPayload renders an order into the wire shape shared by the
// checkout notification and the order listing endpoints.
func OrderPayload(order models.Order) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"id":          item.ItemID,
			"name":        item.ItemName,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice,
			"total_price": item.TotalPrice,
			"category":    item.ItemCategory,
		})
	}

	return map[string]interface{}{
		"order_id":       order.OrderID,
		"transaction_id": order.TransactionID,
		"user_id":        order.UserID,
		"merchant_id":    order.MerchantID,
		"amount":         order.TotalAmount,
		"items":          items,
		"customer_name":  order.CustomerName,
		"customer_phone": order.CustomerPhone,
		"payment_method": order.PaymentMethod,
		"is_guest_order": order.IsGuestOrder,
		"timestamp":      order.CreatedAt.UTC().Format(time.RFC3339),
		"status":         order.Status,
	}
}

// MerchantOrders lists a merchant's orders, newest first, items
// preloaded.
func (s *Service) MerchantOrders(merchantID uint, limit, offset int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.Preload("Items").
		Where("merchant_id = ?", merchantID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, err
}

// UserOrders lists a registered user's orders across merchants.
func (s *Service) UserOrders(userID uint, limit, offset int) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, err
}

// GetOrder fetches one order by its public order id, items preloaded.
func (s *Service) GetOrder(orderID string) (models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	return order, err
}

// UpdateStatus sets an order's status by its public order id. Returns
// gorm.ErrRecordNotFound for unknown orders.
func (s *Service) UpdateStatus(orderID, status string) (models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return models.Order{}, err
	}

	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(&order).Error; err != nil {
		return models.Order{}, err
	}
	return order, nil
}
