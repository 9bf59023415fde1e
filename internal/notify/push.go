package notify

import (
	"sync"
	"time"

	"graminstore-backend/internal/logger"
)

// Subscription holds the browser push subscription a merchant registered.
type Subscription struct {
	Endpoint     string            `json:"endpoint"`
	Keys         map[string]string `json:"keys"`
	SubscribedAt time.Time         `json:"subscribed_at"`
}

// PushService tracks merchant push subscriptions and logs outgoing
// notifications. Delivery to a real push gateway is stubbed: the payload
// is logged, nothing leaves the process.
type PushService struct {
	mu   sync.Mutex
	subs map[uint]Subscription
}

func NewPushService() *PushService {
	return &PushService{subs: make(map[uint]Subscription)}
}

// Subscribe registers a merchant's push subscription, replacing any
// previous one.
func (p *PushService) Subscribe(merchantID uint, endpoint string, keys map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[merchantID] = Subscription{
		Endpoint:     endpoint,
		Keys:         keys,
		SubscribedAt: time.Now().UTC(),
	}
	logger.Get().WithField("merchant_id", merchantID).Info("merchant subscribed to push notifications")
}

// Unsubscribe removes a merchant's push subscription.
func (p *PushService) Unsubscribe(merchantID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, merchantID)
	logger.Get().WithField("merchant_id", merchantID).Info("merchant unsubscribed from push notifications")
}

// SubscriptionCount returns the number of active subscriptions.
func (p *PushService) SubscriptionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// SendOrderNotification logs a new-order push for the merchant. No-op
// when the merchant has no subscription.
func (p *PushService) SendOrderNotification(merchantID uint, orderID string, customerName string, amount float64) {
	p.mu.Lock()
	_, subscribed := p.subs[merchantID]
	p.mu.Unlock()

	log := logger.Get().WithFields(map[string]interface{}{
		"merchant_id":   merchantID,
		"order_id":      orderID,
		"customer_name": customerName,
		"amount":        amount,
	})

	if !subscribed {
		log.Debug("no push subscription for merchant, skipping")
		return
	}

	log.Info("push notification: new order received")
}
