package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/events"
	"github.com/codr1/courtbook/internal/payments"
	"github.com/codr1/courtbook/internal/pricing"
)

type OrderResult struct {
	OrderID  string        `json:"orderId"`
	Amount   pricing.Cents `json:"amount"`
	Currency string        `json:"currency"`
	Receipt  string        `json:"receipt"`
	Booking  Booking       `json:"booking"`
}

// CreateOrder returns the gateway order for the caller's PENDING booking,
// opening one if the booking has no payment yet.
func (s *Service) CreateOrder(ctx context.Context, caller *authz.AuthUser, bookingID int64) (OrderResult, error) {
	if caller == nil {
		return OrderResult{}, apperr.Unauthenticated("Authentication required")
	}
	if s.gateway == nil {
		return OrderResult{}, apperr.Validation("Gateway payments are not enabled")
	}

	detail, err := s.loadDetail(ctx, s.db.Queries, bookingID)
	if err != nil {
		return OrderResult{}, err
	}
	if detail.UserID != caller.ID || detail.Status != StatusPending {
		return OrderResult{}, apperr.NotFound("Booking not found or already processed")
	}
	b := fromDetail(detail, s.now())
	receipt := fmt.Sprintf("booking:%d", bookingID)

	existing, err := s.db.Queries.GetPaymentByBooking(ctx, bookingID)
	switch {
	case err == nil:
		if existing.Status != payments.StatusPending || existing.Provider != s.gateway.Provider() {
			return OrderResult{}, apperr.InvalidState("Payment already processed for this booking")
		}
		return OrderResult{
			OrderID:  existing.ProviderRef,
			Amount:   pricing.Cents(existing.AmountCents),
			Currency: existing.Currency,
			Receipt:  receipt,
			Booking:  b,
		}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return OrderResult{}, apperr.Internal("load payment", err)
	}

	order, _, err := s.openGatewayOrder(ctx, dbgen.Booking{ID: bookingID}, b.Price)
	if err != nil {
		return OrderResult{}, err
	}
	return OrderResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Booking:  b,
	}, nil
}

type VerifyRequest struct {
	BookingID int64
	OrderID   string
	PaymentID string
	Signature string
}

type PaymentStatus struct {
	BookingID     int64   `json:"bookingId"`
	BookingStatus string  `json:"bookingStatus"`
	Payment       Payment `json:"payment"`
}

// VerifyPayment handles the client-side confirmation after checkout. The
// signature proves the gateway issued the payment id for the order; the
// capture status is then read back from the gateway before confirming.
func (s *Service) VerifyPayment(ctx context.Context, caller *authz.AuthUser, req VerifyRequest) (PaymentStatus, error) {
	if caller == nil {
		return PaymentStatus{}, apperr.Unauthenticated("Authentication required")
	}
	if s.gateway == nil {
		return PaymentStatus{}, apperr.Validation("Gateway payments are not enabled")
	}
	if !payments.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature, s.opts.KeySecret) {
		return PaymentStatus{}, apperr.Validation("Invalid payment signature")
	}

	detail, err := s.loadDetail(ctx, s.db.Queries, req.BookingID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if detail.UserID != caller.ID {
		return PaymentStatus{}, apperr.NotFound("Booking not found")
	}
	payment, err := s.db.Queries.GetPaymentByBooking(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PaymentStatus{}, apperr.NotFound("Payment record not found")
		}
		return PaymentStatus{}, apperr.Internal("load payment", err)
	}
	if payment.ProviderRef != req.OrderID {
		return PaymentStatus{}, apperr.Validation("Order ID mismatch")
	}

	info, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		return PaymentStatus{}, apperr.Upstream("Failed to fetch payment from gateway", err)
	}
	if info.OrderID != "" && info.OrderID != req.OrderID {
		return PaymentStatus{}, apperr.Validation("Order ID mismatch")
	}
	if info.Status == "captured" {
		if err := s.ConfirmPayment(ctx, payment.Provider, req.OrderID, req.PaymentID, "verify:"+req.PaymentID); err != nil {
			return PaymentStatus{}, err
		}
	}
	return s.PaymentStatus(ctx, caller, req.BookingID)
}

// PaymentStatus reports the payment attached to one of the caller's bookings.
func (s *Service) PaymentStatus(ctx context.Context, caller *authz.AuthUser, bookingID int64) (PaymentStatus, error) {
	if caller == nil {
		return PaymentStatus{}, apperr.Unauthenticated("Authentication required")
	}
	detail, err := s.loadDetail(ctx, s.db.Queries, bookingID)
	if err != nil {
		return PaymentStatus{}, err
	}
	if detail.UserID != caller.ID && !authz.CanManageFacility(caller, detail.OwnerID) {
		return PaymentStatus{}, apperr.NotFound("Payment not found")
	}
	payment, err := s.db.Queries.GetPaymentByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PaymentStatus{}, apperr.NotFound("Payment not found")
		}
		return PaymentStatus{}, apperr.Internal("load payment", err)
	}
	return PaymentStatus{
		BookingID:     bookingID,
		BookingStatus: EffectiveStatus(detail.Status, detail.EndTime, s.now()),
		Payment:       paymentFromRow(payment),
	}, nil
}

type transition int

const (
	transitionConfirm transition = iota
	transitionFail
	transitionRefund
)

func (t transition) eventType() string {
	switch t {
	case transitionConfirm:
		return "payment.confirm"
	case transitionFail:
		return "payment.fail"
	default:
		return "payment.refund"
	}
}

type transitionOutcome struct {
	applied       bool
	lateCapture   bool
	booking       dbgen.BookingDetailRow
	payment       dbgen.Payment
	gatewayPayRef string
}

// ConfirmPayment applies a verified capture: payment PENDING -> SUCCEEDED and
// booking PENDING -> CONFIRMED. A repeated eventID or an already settled
// payment changes nothing.
func (s *Service) ConfirmPayment(ctx context.Context, provider, orderID, paymentID, eventID string) error {
	out, err := s.applyTransition(ctx, transitionConfirm, provider, orderID, paymentID, eventID)
	if err != nil || !out.applied {
		if err == nil && out.lateCapture {
			s.refundLateCapture(ctx, out)
		}
		return err
	}
	b := fromDetail(out.booking, s.now())
	s.publish(ctx, events.TopicBookingConfirmed, events.UserRoom(b.UserID), b)
	s.awardPoints(ctx, b)
	return nil
}

// FailPayment applies a verified failure: payment PENDING -> FAILED and
// booking PENDING -> CANCELLED, releasing the slot.
func (s *Service) FailPayment(ctx context.Context, provider, orderID, eventID string) error {
	out, err := s.applyTransition(ctx, transitionFail, provider, orderID, "", eventID)
	if err != nil || !out.applied {
		return err
	}
	b := fromDetail(out.booking, s.now())
	s.publish(ctx, events.TopicBookingCancelled, events.OwnerRoom(b.ownerID), b)
	s.publish(ctx, events.TopicBookingCancelled, events.UserRoom(b.UserID), b)
	return nil
}

// RecordRefund marks a SUCCEEDED payment REFUNDED when the gateway reports a
// processed refund. The booking itself is left alone.
func (s *Service) RecordRefund(ctx context.Context, provider, orderID, eventID string) error {
	_, err := s.applyTransition(ctx, transitionRefund, provider, orderID, "", eventID)
	return err
}

func (s *Service) applyTransition(ctx context.Context, t transition, provider, orderID, paymentID, eventID string) (out transitionOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.payment_transition", trace.WithAttributes(
		attribute.String("payment.event", t.eventType()),
		attribute.String("payment.order_id", orderID),
	))
	defer func() { endSpan(span, err) }()

	if eventID == "" {
		return out, apperr.Validation("event id is required")
	}
	logger := log.Ctx(ctx)
	now := s.now()
	stamp := storageTime(now)

	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		recorded, err := qtx.RecordWebhookEvent(ctx, dbgen.RecordWebhookEventParams{
			Provider:   provider,
			EventID:    eventID,
			EventType:  t.eventType(),
			ReceivedAt: stamp,
		})
		if err != nil {
			return apperr.Internal("record webhook event", err)
		}
		if recorded == 0 {
			logger.Info().Str("event_id", eventID).Str("order_id", orderID).Msg("Duplicate payment event ignored")
			return nil
		}

		payment, err := qtx.GetPaymentByProviderRef(ctx, dbgen.GetPaymentByProviderRefParams{Provider: provider, ProviderRef: orderID})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Payment not found")
			}
			return apperr.Internal("load payment", err)
		}
		out.payment = payment

		switch t {
		case transitionConfirm:
			if payment.Status == payments.StatusFailed {
				// The booking already expired or failed; the money has to go back.
				// FAILED -> REFUNDED is claimed here so only one capture signal
				// per order reaches the gateway refund.
				if paymentID == "" {
					logger.Warn().Str("order_id", orderID).Msg("Late capture without a gateway payment id")
					return nil
				}
				if err := s.casPayment(ctx, qtx, payment.ID, payments.StatusFailed, payments.StatusRefunded, paymentID, stamp); err != nil {
					return err
				}
				out.lateCapture = true
				out.gatewayPayRef = paymentID
				return nil
			}
			if payment.Status != payments.StatusPending {
				return nil
			}
			if err := s.casPayment(ctx, qtx, payment.ID, payments.StatusPending, payments.StatusSucceeded, paymentID, stamp); err != nil {
				return err
			}
			if err := s.casBooking(ctx, qtx, payment.BookingID, StatusPending, StatusConfirmed, stamp); err != nil {
				return err
			}
		case transitionFail:
			if payment.Status != payments.StatusPending {
				return nil
			}
			if err := s.casPayment(ctx, qtx, payment.ID, payments.StatusPending, payments.StatusFailed, "", stamp); err != nil {
				return err
			}
			if err := s.casBooking(ctx, qtx, payment.BookingID, StatusPending, StatusCancelled, stamp); err != nil {
				return err
			}
		case transitionRefund:
			if payment.Status != payments.StatusSucceeded {
				return nil
			}
			if err := s.casPayment(ctx, qtx, payment.ID, payments.StatusSucceeded, payments.StatusRefunded, "", stamp); err != nil {
				return err
			}
		}

		out.booking, err = s.loadDetail(ctx, qtx, payment.BookingID)
		if err != nil {
			return err
		}
		out.applied = true
		return nil
	})
	if err != nil {
		return transitionOutcome{}, err
	}
	if out.applied {
		logger.Info().
			Str("event", t.eventType()).
			Str("event_id", eventID).
			Int64("booking_id", out.booking.ID).
			Str("booking_status", out.booking.Status).
			Msg("Payment transition applied")
	}
	return out, nil
}

func (s *Service) casPayment(ctx context.Context, q *dbgen.Queries, id int64, from, to, gatewayPaymentID string, stamp time.Time) error {
	updated, err := q.UpdatePaymentStatus(ctx, dbgen.UpdatePaymentStatusParams{
		Status:            to,
		ProviderPaymentID: sql.NullString{String: gatewayPaymentID, Valid: gatewayPaymentID != ""},
		UpdatedAt:         stamp,
		ID:                id,
		FromStatus:        from,
	})
	if err != nil {
		return apperr.Internal("update payment", err)
	}
	if updated == 0 {
		return apperr.InvalidState("Payment status changed concurrently")
	}
	return nil
}

func (s *Service) casBooking(ctx context.Context, q *dbgen.Queries, id int64, from, to string, stamp time.Time) error {
	updated, err := q.UpdateBookingStatus(ctx, dbgen.UpdateBookingStatusParams{
		Status:     to,
		UpdatedAt:  stamp,
		ID:         id,
		FromStatus: from,
	})
	if err != nil {
		return apperr.Internal("update booking", err)
	}
	if updated == 0 {
		return apperr.InvalidState("Booking is no longer pending")
	}
	return nil
}

func (s *Service) refundLateCapture(ctx context.Context, out transitionOutcome) {
	log.Ctx(ctx).Warn().
		Int64("booking_id", out.payment.BookingID).
		Str("order_id", out.payment.ProviderRef).
		Msg("Capture arrived for a failed payment, refunding")
	if out.gatewayPayRef == "" {
		return
	}
	p := out.payment
	p.Status = payments.StatusSucceeded
	p.ProviderPaymentID = sql.NullString{String: out.gatewayPayRef, Valid: true}
	s.refundAtGateway(ctx, p)
}
