package ws

// Event is the wire envelope for everything sent over an order
// websocket. Type discriminates the payload shape: "new_order",
// "orders_update", "pong".
type Event struct {
	Type       string      `json:"type"`
	Data       interface{} `json:"data,omitempty"`
	MerchantID uint        `json:"merchant_id,omitempty"`
	Timestamp  string      `json:"timestamp,omitempty"`
}
