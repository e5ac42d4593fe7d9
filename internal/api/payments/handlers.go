// internal/api/payments/handlers.go
package payments

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/payments"
)

const (
	paymentsTimeout     = 15 * time.Second
	maxWebhookBodyBytes = 1 << 20

	SignatureHeader = "X-Webhook-Signature"
)

type Handler struct {
	svc     *booking.Service
	webhook *payments.Webhook
}

func NewHandler(svc *booking.Service, webhook *payments.Webhook) *Handler {
	return &Handler{svc: svc, webhook: webhook}
}

type createOrderRequest struct {
	BookingID int64 `json:"bookingId" validate:"required,gt=0"`
}

type verifyRequest struct {
	BookingID int64  `json:"bookingId" validate:"required,gt=0"`
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// POST /api/v1/payments/orders
func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	var req createOrderRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentsTimeout)
	defer cancel()

	order, err := h.svc.CreateOrder(ctx, user, req.BookingID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/payments/verify
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	var req verifyRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentsTimeout)
	defer cancel()

	status, err := h.svc.VerifyPayment(ctx, user, booking.VerifyRequest{
		BookingID: req.BookingID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, status)
}

// GET /api/v1/payments/bookings/{id}
func (h *Handler) HandleBookingPayment(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentsTimeout)
	defer cancel()

	status, err := h.svc.PaymentStatus(ctx, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, status)
}

// POST /api/v1/payments/webhook
//
// Unauthenticated; the signature over the raw body is the credential.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if h.webhook == nil {
		apiutil.WriteError(w, r, apperr.NotFound("Webhooks are not enabled"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read webhook body")
		apiutil.WriteError(w, r, apperr.Validation("Invalid webhook body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentsTimeout)
	defer cancel()

	if err := h.webhook.Handle(ctx, body, r.Header.Get(SignatureHeader)); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
