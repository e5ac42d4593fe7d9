// Package payments adapts an external payment gateway: orders, captures,
// refunds and signed webhook callbacks.
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/codr1/courtbook/internal/pricing"
)

const (
	ProviderInternal = "internal"
	ProviderSandbox  = "sandbox"

	StatusPending   = "PENDING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

var ErrUnknownPayment = errors.New("unknown payment")

type Order struct {
	ID       string        `json:"id"`
	Amount   pricing.Cents `json:"amount"`
	Currency string        `json:"currency"`
	Receipt  string        `json:"receipt"`
}

type PaymentInfo struct {
	ID      string        `json:"id"`
	OrderID string        `json:"orderId"`
	Amount  pricing.Cents `json:"amount"`
	// Status is the gateway's own vocabulary: created, captured, failed, refunded.
	Status string `json:"status"`
}

type Refund struct {
	ID        string        `json:"id"`
	PaymentID string        `json:"paymentId"`
	Amount    pricing.Cents `json:"amount"`
	Status    string        `json:"status"`
}

// Gateway is the opaque payment provider. Calls are network round trips and
// must never run inside a database transaction.
type Gateway interface {
	Provider() string
	CreateOrder(ctx context.Context, amount pricing.Cents, currency, receipt string) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error)
	Refund(ctx context.Context, paymentID string, amount pricing.Cents) (Refund, error)
}

// SandboxGateway is an in-memory gateway for development and tests.
type SandboxGateway struct {
	mu        sync.Mutex
	orders    map[string]Order
	payments  map[string]PaymentInfo
	refunds   []Refund
	createErr error
	refundErr error
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		orders:   make(map[string]Order),
		payments: make(map[string]PaymentInfo),
	}
}

func (g *SandboxGateway) Provider() string {
	return ProviderSandbox
}

// FailCreateOrders makes CreateOrder return err until called again with nil.
func (g *SandboxGateway) FailCreateOrders(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createErr = err
}

// FailRefunds makes Refund return err until called again with nil.
func (g *SandboxGateway) FailRefunds(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundErr = err
}

func (g *SandboxGateway) CreateOrder(ctx context.Context, amount pricing.Cents, currency, receipt string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return Order{}, g.createErr
	}
	if amount <= 0 {
		return Order{}, fmt.Errorf("sandbox: amount must be positive")
	}
	order := Order{
		ID:       "order_" + uuid.NewString(),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}
	g.orders[order.ID] = order
	return order, nil
}

// Capture simulates the customer paying an order and returns the captured payment.
func (g *SandboxGateway) Capture(orderID string) (PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return PaymentInfo{}, fmt.Errorf("sandbox: unknown order %s", orderID)
	}
	payment := PaymentInfo{
		ID:      "pay_" + uuid.NewString(),
		OrderID: order.ID,
		Amount:  order.Amount,
		Status:  "captured",
	}
	g.payments[payment.ID] = payment
	return payment, nil
}

func (g *SandboxGateway) FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error) {
	if err := ctx.Err(); err != nil {
		return PaymentInfo{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	payment, ok := g.payments[paymentID]
	if !ok {
		return PaymentInfo{}, ErrUnknownPayment
	}
	return payment, nil
}

func (g *SandboxGateway) Refund(ctx context.Context, paymentID string, amount pricing.Cents) (Refund, error) {
	if err := ctx.Err(); err != nil {
		return Refund{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return Refund{}, g.refundErr
	}
	payment, ok := g.payments[paymentID]
	if !ok {
		return Refund{}, ErrUnknownPayment
	}
	payment.Status = "refunded"
	g.payments[paymentID] = payment
	refund := Refund{
		ID:        "rfnd_" + uuid.NewString(),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    "processed",
	}
	g.refunds = append(g.refunds, refund)
	return refund, nil
}

// Refunds returns the refunds issued so far.
func (g *SandboxGateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Refund(nil), g.refunds...)
}
