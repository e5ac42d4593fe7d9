package payments

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventRefundProcessed = "refund.processed"
)

// Transitions is the booking side of a gateway callback. Every method must be
// idempotent per eventID.
type Transitions interface {
	ConfirmPayment(ctx context.Context, provider, orderID, paymentID, eventID string) error
	FailPayment(ctx context.Context, provider, orderID, eventID string) error
	RecordRefund(ctx context.Context, provider, orderID, eventID string) error
}

type WebhookEvent struct {
	ID      string         `json:"id"`
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
	Order *struct {
		Entity OrderEntity `json:"entity"`
	} `json:"order,omitempty"`
	Refund *struct {
		Entity RefundEntity `json:"entity"`
	} `json:"refund,omitempty"`
}

type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

type OrderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type webhookHandler func(ctx context.Context, evt WebhookEvent) error

// Webhook verifies and dispatches gateway callbacks by event type.
type Webhook struct {
	provider    string
	secret      string
	transitions Transitions
	handlers    map[string]webhookHandler
}

func NewWebhook(provider, secret string, transitions Transitions) *Webhook {
	w := &Webhook{
		provider:    provider,
		secret:      secret,
		transitions: transitions,
	}
	w.handlers = map[string]webhookHandler{
		EventPaymentCaptured: w.handleCaptured,
		EventOrderPaid:       w.handleCaptured,
		EventPaymentFailed:   w.handleFailed,
		EventRefundProcessed: w.handleRefund,
	}
	return w
}

// Handle verifies the signature over the raw body and runs the handler for
// the event type. Unknown event types are logged and ignored.
func (w *Webhook) Handle(ctx context.Context, body []byte, signature string) error {
	logger := log.Ctx(ctx)

	if !VerifyWebhookSignature(body, signature, w.secret) {
		return apperr.Validation("Invalid webhook signature")
	}

	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return apperr.Validation("Invalid webhook payload")
	}
	if evt.ID == "" || evt.Event == "" {
		return apperr.Validation("Webhook event id and type are required")
	}

	handler, ok := w.handlers[evt.Event]
	if !ok {
		logger.Info().Str("event", evt.Event).Str("event_id", evt.ID).Msg("Ignoring unhandled webhook event")
		return nil
	}

	logger.Info().Str("event", evt.Event).Str("event_id", evt.ID).Msg("Processing webhook event")
	return handler(ctx, evt)
}

func (w *Webhook) handleCaptured(ctx context.Context, evt WebhookEvent) error {
	orderID, paymentID := evt.orderAndPayment()
	if orderID == "" {
		return apperr.Validation("Webhook payload is missing the order id")
	}
	return w.transitions.ConfirmPayment(ctx, w.provider, orderID, paymentID, evt.ID)
}

func (w *Webhook) handleFailed(ctx context.Context, evt WebhookEvent) error {
	orderID, _ := evt.orderAndPayment()
	if orderID == "" {
		return apperr.Validation("Webhook payload is missing the order id")
	}
	return w.transitions.FailPayment(ctx, w.provider, orderID, evt.ID)
}

func (w *Webhook) handleRefund(ctx context.Context, evt WebhookEvent) error {
	orderID, _ := evt.orderAndPayment()
	if orderID == "" {
		refundID := ""
		if evt.Payload.Refund != nil {
			refundID = evt.Payload.Refund.Entity.ID
		}
		log.Ctx(ctx).Warn().Str("event_id", evt.ID).Str("refund_id", refundID).Msg("Refund webhook without order id")
		return nil
	}
	return w.transitions.RecordRefund(ctx, w.provider, orderID, evt.ID)
}

func (evt WebhookEvent) orderAndPayment() (orderID, paymentID string) {
	if p := evt.Payload.Payment; p != nil {
		orderID = p.Entity.OrderID
		paymentID = p.Entity.ID
	}
	if o := evt.Payload.Order; o != nil && orderID == "" {
		orderID = o.Entity.ID
	}
	return orderID, paymentID
}
