package orders

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"graminstore-backend/internal/database"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/models"
	"graminstore-backend/internal/notify"
	"graminstore-backend/internal/ws"

	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testService(t *testing.T) (*Service, *ledger.Store, *gorm.DB, *ws.Hub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := ledger.NewStore(db, ledger.NewRegistry(db))
	hub := ws.NewHub()
	svc := NewService(db, store, hub, notify.NewPushService())
	return svc, store, db, hub
}

func TestNewOrderID(t *testing.T) {
	id := NewOrderID(12)
	if !strings.HasPrefix(id, "ORD_12_") {
		t.Fatalf("order id %q lacks ORD_12_ prefix", id)
	}
	if len(id) != len("ORD_12_")+8 {
		t.Fatalf("order id %q suffix should be 8 characters", id)
	}
	if id == NewOrderID(12) {
		t.Fatal("consecutive order ids should differ")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, _, _ := testService(t)

	_, err := svc.Checkout(CheckoutRequest{}, nil)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutGuestSingleMerchant(t *testing.T) {
	svc, store, db, _ := testService(t)

	req := CheckoutRequest{
		CartItems: []CartItem{
			{ID: 1, Name: "Rice", UnitPrice: 50, Quantity: 2, Unit: "kg", MerchantID: 3, Category: "grocery"},
			{ID: 2, Name: "Dal", UnitPrice: 80, Quantity: 1, Unit: "kg", MerchantID: 3, Category: "grocery"},
		},
		PaymentMethod: "cash",
		IsGuestOrder:  true,
	}

	result, err := svc.Checkout(req, nil)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if result.TotalAmount != 180 {
		t.Fatalf("total = %v, want 180", result.TotalAmount)
	}
	if result.MerchantID != 3 || result.MerchantCount != 1 || result.ItemsCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.HasPrefix(result.OrderID, "ORD_3_") {
		t.Fatalf("order id %q lacks merchant prefix", result.OrderID)
	}

	rows, err := store.List(3, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ledger has %d rows, want 1", len(rows))
	}
	if rows[0].GuestUserID == nil {
		t.Fatal("guest checkout must write a guest-flagged ledger row")
	}
	if rows[0].Type != string(ledger.TypePaid) {
		t.Fatalf("ledger type = %q, want PAYED", rows[0].Type)
	}
	if rows[0].Description == nil || !strings.Contains(*rows[0].Description, "Rice (2 kg)") {
		t.Fatalf("description = %v, want cart summary", rows[0].Description)
	}

	var order models.Order
	if err := db.Preload("Items").Where("order_id = ?", result.OrderID).First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if !order.IsGuestOrder || order.GuestUserID == nil || order.UserID != nil {
		t.Fatalf("guest order ids wrong: %+v", order)
	}
	if order.CustomerName != "Guest Customer" {
		t.Fatalf("customer name = %q, want Guest Customer", order.CustomerName)
	}
	if len(order.Items) != 2 {
		t.Fatalf("order has %d items, want 2", len(order.Items))
	}
	if order.TransactionID != rows[0].TransactionID {
		t.Fatal("order must reference the ledger transaction")
	}
}

func TestCheckoutMultiMerchant(t *testing.T) {
	svc, store, db, _ := testService(t)

	// Cart lines interleave merchants; the response's primary order
	// belongs to the first merchant seen in the cart.
	req := CheckoutRequest{
		CartItems: []CartItem{
			{ID: 1, Name: "Soap", UnitPrice: 30, Quantity: 1, Unit: "pieces", MerchantID: 2},
			{ID: 2, Name: "Milk", UnitPrice: 25, Quantity: 2, Unit: "litre", MerchantID: 1},
			{ID: 3, Name: "Shampoo", UnitPrice: 120, Quantity: 1, Unit: "pieces", MerchantID: 2},
		},
		IsGuestOrder: true,
	}

	result, err := svc.Checkout(req, nil)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if result.MerchantCount != 2 {
		t.Fatalf("merchant count = %d, want 2", result.MerchantCount)
	}
	if result.MerchantID != 2 {
		t.Fatalf("primary merchant = %d, want 2 (first in cart)", result.MerchantID)
	}
	if result.TotalAmount != 200 {
		t.Fatalf("total = %v, want 200", result.TotalAmount)
	}

	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 2 {
		t.Fatalf("created %d orders, want 2", count)
	}

	for merchantID, want := range map[uint]float64{2: 150, 1: 50} {
		rows, err := store.List(merchantID, 10, 0)
		if err != nil {
			t.Fatalf("List(%d): %v", merchantID, err)
		}
		if len(rows) != 1 {
			t.Fatalf("merchant %d has %d ledger rows, want 1", merchantID, len(rows))
		}
		if got := rows[0].Amount.InexactFloat64(); got != want {
			t.Fatalf("merchant %d amount = %v, want %v", merchantID, got, want)
		}
	}
}

func TestCheckoutRegisteredUser(t *testing.T) {
	svc, store, db, _ := testService(t)

	userID := uint(9)
	req := CheckoutRequest{
		CartItems: []CartItem{
			{ID: 1, Name: "Bread", UnitPrice: 40, Quantity: 1, Unit: "pieces", MerchantID: 4},
		},
		CustomerName: "Asha",
	}

	result, err := svc.Checkout(req, &userID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	var order models.Order
	if err := db.Where("order_id = ?", result.OrderID).First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.IsGuestOrder {
		t.Fatal("authenticated checkout must not be a guest order")
	}
	if order.UserID == nil || *order.UserID != 9 {
		t.Fatalf("order user id = %v, want 9", order.UserID)
	}

	rows, err := store.List(4, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if rows[0].UserID == nil || *rows[0].UserID != 9 {
		t.Fatalf("ledger user id = %v, want 9", rows[0].UserID)
	}
	if rows[0].GuestUserID != nil {
		t.Fatal("registered-user row must not be guest flagged")
	}
}

// merchantSocket attaches a live websocket connection for a merchant to
// the hub and returns the consumer end.
func merchantSocket(t *testing.T, hub *ws.Hub, merchantID uint) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-accepted:
		hub.Register(ws.RoleMerchant, merchantID, ws.NewClient(conn))
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	return client
}

func TestSuccessiveCheckoutsNotifyMerchantInOrder(t *testing.T) {
	svc, _, _, hub := testService(t)
	conn := merchantSocket(t, hub, 1)

	cart := func(name string, price float64) CheckoutRequest {
		return CheckoutRequest{
			CartItems:    []CartItem{{ID: 1, Name: name, UnitPrice: price, Quantity: 1, Unit: "pieces", MerchantID: 1}},
			IsGuestOrder: true,
		}
	}

	first, err := svc.Checkout(cart("Tea", 10), nil)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := svc.Checkout(cart("Coffee", 20), nil)
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if first.OrderID == second.OrderID {
		t.Fatalf("checkouts share order id %q", first.OrderID)
	}

	type event struct {
		Type       string                 `json:"type"`
		Data       map[string]interface{} `json:"data"`
		MerchantID uint                   `json:"merchant_id"`
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var events []event
	for i := 0; i < 2; i++ {
		var got event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		events = append(events, got)
	}

	for i, got := range events {
		if got.Type != "new_order" || got.MerchantID != 1 {
			t.Fatalf("event %d = %+v, want new_order for merchant 1", i, got)
		}
	}

	// Events arrive in completion order with distinct ids.
	if events[0].Data["order_id"] != first.OrderID || events[1].Data["order_id"] != second.OrderID {
		t.Fatalf("event order ids %v, %v; want %q then %q",
			events[0].Data["order_id"], events[1].Data["order_id"], first.OrderID, second.OrderID)
	}
	if events[0].Data["transaction_id"] == events[1].Data["transaction_id"] {
		t.Fatalf("checkouts share transaction id %v", events[0].Data["transaction_id"])
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, _, _, _ := testService(t)

	req := CheckoutRequest{
		CartItems:    []CartItem{{ID: 1, Name: "Tea", UnitPrice: 10, Quantity: 1, Unit: "pieces", MerchantID: 5}},
		IsGuestOrder: true,
	}
	result, err := svc.Checkout(req, nil)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	updated, err := svc.UpdateStatus(result.OrderID, "completed")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != "completed" {
		t.Fatalf("status = %q, want completed", updated.Status)
	}

	reloaded, err := svc.GetOrder(result.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.Status != "completed" {
		t.Fatalf("persisted status = %q, want completed", reloaded.Status)
	}

	if _, err := svc.UpdateStatus("ORD_0_MISSING", "completed"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown order err = %v, want gorm.ErrRecordNotFound", err)
	}
}
