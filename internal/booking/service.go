package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/events"
	"github.com/codr1/courtbook/internal/loyalty"
	"github.com/codr1/courtbook/internal/obs"
	"github.com/codr1/courtbook/internal/payments"
	"github.com/codr1/courtbook/internal/pricing"
	"github.com/codr1/courtbook/internal/timerange"
)

const (
	cleanupTimeout  = 5 * time.Second
	defaultListSize = 100
	maxListSize     = 500
)

// PointsAwarder is the loyalty side effect of a confirmed booking.
type PointsAwarder interface {
	AddPoints(ctx context.Context, userID, delta int64, source, reference string, meta map[string]any) (loyalty.Entry, bool, error)
	RecordActivity(ctx context.Context, userID int64, at time.Time) (int64, error)
}

type Options struct {
	PointsPerHour      int64
	CancelGrace        time.Duration
	PendingTTL         time.Duration
	MaxDuration        time.Duration
	DefaultPaymentMode string
	Currency           string
	// KeySecret signs client-side payment confirmations.
	KeySecret string
	Now       func() time.Time
}

func (o *Options) applyDefaults() {
	if o.PointsPerHour <= 0 {
		o.PointsPerHour = 10
	}
	if o.CancelGrace <= 0 {
		o.CancelGrace = 30 * time.Minute
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = 15 * time.Minute
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 24 * time.Hour
	}
	if o.DefaultPaymentMode == "" {
		o.DefaultPaymentMode = PaymentModeDirect
	}
	if o.Currency == "" {
		o.Currency = "INR"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type Service struct {
	db        *appdb.DB
	gateway   payments.Gateway
	publisher events.Publisher
	points    PointsAwarder
	opts      Options
	tracer    trace.Tracer
}

func NewService(database *appdb.DB, gateway payments.Gateway, publisher events.Publisher, points PointsAwarder, opts Options) *Service {
	opts.applyDefaults()
	return &Service{
		db:        database,
		gateway:   gateway,
		publisher: publisher,
		points:    points,
		opts:      opts,
		tracer:    obs.Tracer(),
	}
}

func (s *Service) now() time.Time {
	return s.opts.Now()
}

type CreateRequest struct {
	CourtID   int64
	StartTime time.Time
	EndTime   time.Time
	// PaymentMode is "direct" or "gateway"; empty uses the configured default.
	PaymentMode string
}

type CreateResult struct {
	Booking Booking         `json:"booking"`
	Payment Payment         `json:"payment"`
	Order   *payments.Order `json:"order,omitempty"`
}

// Create reserves [StartTime, EndTime) on the court. The overlap check and the
// insert run in one write-locked transaction, so of two concurrent requests
// for overlapping ranges at most one succeeds and the other gets
// apperr.ErrSlotUnavailable.
func (s *Service) Create(ctx context.Context, caller *authz.AuthUser, req CreateRequest) (result CreateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(attribute.Int64("court.id", req.CourtID)))
	defer func() { endSpan(span, err) }()

	if caller == nil {
		return CreateResult{}, apperr.Unauthenticated("Authentication required")
	}

	mode := req.PaymentMode
	if mode == "" {
		mode = s.opts.DefaultPaymentMode
	}
	if mode != PaymentModeDirect && mode != PaymentModeGateway {
		return CreateResult{}, apperr.Validation("paymentMode must be direct or gateway")
	}
	if mode == PaymentModeGateway && s.gateway == nil {
		return CreateResult{}, apperr.Validation("Gateway payments are not enabled")
	}

	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return CreateResult{}, apperr.Validation("startTime and endTime are required")
	}
	window, err := timerange.New(storageTime(req.StartTime), storageTime(req.EndTime))
	if err != nil {
		return CreateResult{}, apperr.Validation("Invalid time range")
	}
	if window.Duration() > s.opts.MaxDuration {
		return CreateResult{}, apperr.Validation(fmt.Sprintf("Booking cannot be longer than %s", s.opts.MaxDuration))
	}
	now := s.now()
	if !window.End.After(now) {
		return CreateResult{}, apperr.Validation("Booking must end in the future")
	}

	court, err := s.db.Queries.GetCourtDetail(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreateResult{}, apperr.NotFound("Court not found")
		}
		return CreateResult{}, apperr.Internal("load court", err)
	}
	if court.FacilityStatus != facilityApproved && !authz.CanManageFacility(caller, court.OwnerID) {
		return CreateResult{}, apperr.Forbidden("Facility is not open for bookings")
	}

	price := pricing.Price(window.Duration(), pricing.Cents(court.PricePerHourCents))
	status := StatusConfirmed
	if mode == PaymentModeGateway {
		status = StatusPending
	}
	stamp := storageTime(now)

	var created dbgen.Booking
	var payment dbgen.Payment
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries

		overlapping, err := qtx.CountOverlappingBookings(ctx, dbgen.CountOverlappingBookingsParams{
			CourtID:   court.ID,
			EndTime:   window.End,
			StartTime: window.Start,
		})
		if err != nil {
			return apperr.Internal("check overlap", err)
		}
		if overlapping > 0 {
			return apperr.ErrSlotUnavailable
		}

		created, err = qtx.CreateBooking(ctx, dbgen.CreateBookingParams{
			CourtID:    court.ID,
			UserID:     caller.ID,
			StartTime:  window.Start,
			EndTime:    window.End,
			Status:     status,
			PriceCents: int64(price),
			CreatedAt:  stamp,
			UpdatedAt:  stamp,
		})
		if err != nil {
			if appdb.IsOverlapViolation(err) {
				return apperr.ErrSlotUnavailable
			}
			return apperr.Internal("create booking", err)
		}

		if mode != PaymentModeDirect {
			return nil
		}
		payment, err = qtx.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:   created.ID,
			AmountCents: int64(price),
			Currency:    s.opts.Currency,
			Provider:    payments.ProviderInternal,
			ProviderRef: fmt.Sprintf("bk_%d", created.ID),
			Status:      payments.StatusSucceeded,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		})
		if err != nil {
			return apperr.Internal("record payment", err)
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	logger := log.Ctx(ctx)
	result.Booking = fromRow(created, now)
	result.Booking.CourtName = court.Name
	result.Booking.FacilityID = court.FacilityID
	result.Booking.ownerID = court.OwnerID

	if mode == PaymentModeGateway {
		order, payment, err := s.openGatewayOrder(ctx, created, price)
		if err != nil {
			s.discardTentative(ctx, created.ID)
			return CreateResult{}, err
		}
		result.Order = &order
		result.Payment = paymentFromRow(payment)
	} else {
		result.Payment = paymentFromRow(payment)
	}

	logger.Info().
		Int64("booking_id", created.ID).
		Int64("court_id", court.ID).
		Int64("user_id", caller.ID).
		Str("status", created.Status).
		Str("price", price.String()).
		Msg("Booking created")

	s.publish(ctx, events.TopicBookingNew, events.OwnerRoom(court.OwnerID), result.Booking)
	if created.Status == StatusConfirmed {
		s.publish(ctx, events.TopicBookingConfirmed, events.UserRoom(caller.ID), result.Booking)
		s.awardPoints(ctx, result.Booking)
	}
	return result, nil
}

// openGatewayOrder creates the gateway order with no transaction open, then
// records the PENDING payment.
func (s *Service) openGatewayOrder(ctx context.Context, b dbgen.Booking, price pricing.Cents) (payments.Order, dbgen.Payment, error) {
	order, err := s.gateway.CreateOrder(ctx, price, s.opts.Currency, fmt.Sprintf("booking:%d", b.ID))
	if err != nil {
		return payments.Order{}, dbgen.Payment{}, apperr.Upstream("Payment gateway unavailable", err)
	}

	stamp := storageTime(s.now())
	var payment dbgen.Payment
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		var err error
		payment, err = txdb.Queries.CreatePayment(ctx, dbgen.CreatePaymentParams{
			BookingID:   b.ID,
			AmountCents: int64(price),
			Currency:    s.opts.Currency,
			Provider:    s.gateway.Provider(),
			ProviderRef: order.ID,
			Status:      payments.StatusPending,
			CreatedAt:   stamp,
			UpdatedAt:   stamp,
		})
		return err
	})
	if err != nil {
		return payments.Order{}, dbgen.Payment{}, apperr.Upstream("Failed to record payment", err)
	}
	return order, payment, nil
}

// discardTentative removes a PENDING booking whose payment could not be set
// up. It runs on a detached context so a cancelled request still cleans up.
func (s *Service) discardTentative(ctx context.Context, bookingID int64) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := s.db.RunInTx(cleanupCtx, func(txdb *appdb.DB) error {
		_, err := txdb.Queries.DeleteBooking(cleanupCtx, bookingID)
		return err
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to discard tentative booking")
		return
	}
	log.Ctx(ctx).Warn().Int64("booking_id", bookingID).Msg("Discarded tentative booking after payment setup failure")
}

// Cancel moves a CONFIRMED booking to CANCELLED and marks its payments
// REFUNDED. The booker may not cancel inside the grace window before start;
// the facility owner and admins may.
func (s *Service) Cancel(ctx context.Context, caller *authz.AuthUser, bookingID int64) (result Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel", trace.WithAttributes(attribute.Int64("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	if caller == nil {
		return Booking{}, apperr.Unauthenticated("Authentication required")
	}

	detail, err := s.loadDetail(ctx, s.db.Queries, bookingID)
	if err != nil {
		return Booking{}, err
	}

	isBooker := detail.UserID == caller.ID
	isManager := authz.CanManageFacility(caller, detail.OwnerID)
	if !isBooker && !isManager {
		return Booking{}, apperr.Forbidden("Not authorized to cancel this booking")
	}

	now := s.now()
	if EffectiveStatus(detail.Status, detail.EndTime, now) != StatusConfirmed {
		return Booking{}, apperr.InvalidState("Only confirmed bookings can be cancelled")
	}
	if !isManager && detail.StartTime.Sub(now) <= s.opts.CancelGrace {
		return Booking{}, apperr.InvalidState(fmt.Sprintf("Cannot cancel within %d minutes of start time", int(s.opts.CancelGrace.Minutes())))
	}

	stamp := storageTime(now)
	var payment *dbgen.Payment
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries
		updated, err := qtx.UpdateBookingStatus(ctx, dbgen.UpdateBookingStatusParams{
			Status:     StatusCancelled,
			UpdatedAt:  stamp,
			ID:         bookingID,
			FromStatus: StatusConfirmed,
		})
		if err != nil {
			return apperr.Internal("cancel booking", err)
		}
		if updated == 0 {
			return apperr.InvalidState("Only confirmed bookings can be cancelled")
		}

		p, err := qtx.GetPaymentByBooking(ctx, bookingID)
		switch {
		case err == nil:
			payment = &p
		case !errors.Is(err, sql.ErrNoRows):
			return apperr.Internal("load payment", err)
		}

		if _, err := qtx.RefundBookingPayments(ctx, dbgen.RefundBookingPaymentsParams{UpdatedAt: stamp, BookingID: bookingID}); err != nil {
			return apperr.Internal("refund payments", err)
		}
		return nil
	})
	if err != nil {
		return Booking{}, err
	}

	if payment != nil {
		s.refundAtGateway(ctx, *payment)
	}

	detail.Status = StatusCancelled
	detail.UpdatedAt = stamp
	result = fromDetail(detail, now)

	log.Ctx(ctx).Info().
		Int64("booking_id", bookingID).
		Int64("cancelled_by", caller.ID).
		Bool("manager", isManager).
		Msg("Booking cancelled")

	s.publish(ctx, events.TopicBookingCancelled, events.OwnerRoom(detail.OwnerID), result)
	s.publish(ctx, events.TopicBookingCancelled, events.UserRoom(detail.UserID), result)
	return result, nil
}

// refundAtGateway is best effort. The local payment row is already REFUNDED.
func (s *Service) refundAtGateway(ctx context.Context, p dbgen.Payment) {
	if s.gateway == nil || p.Provider == payments.ProviderInternal || p.Status != payments.StatusSucceeded || !p.ProviderPaymentID.Valid {
		return
	}
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	refund, err := s.gateway.Refund(refundCtx, p.ProviderPaymentID.String, pricing.Cents(p.AmountCents))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", p.BookingID).Str("payment_ref", p.ProviderPaymentID.String).Msg("Gateway refund failed")
		return
	}
	log.Ctx(ctx).Info().Int64("booking_id", p.BookingID).Str("refund_id", refund.ID).Msg("Gateway refund issued")
}

// Delete removes a CANCELLED or COMPLETED booking and its payment rows. Only
// the booker or an admin may delete.
func (s *Service) Delete(ctx context.Context, caller *authz.AuthUser, bookingID int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "booking.delete", trace.WithAttributes(attribute.Int64("booking.id", bookingID)))
	defer func() { endSpan(span, err) }()

	if caller == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	now := s.now()

	return s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries
		existing, err := qtx.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Booking not found")
			}
			return apperr.Internal("load booking", err)
		}
		if existing.UserID != caller.ID && !authz.IsAdmin(caller) {
			return apperr.Forbidden("Not authorized")
		}
		switch EffectiveStatus(existing.Status, existing.EndTime, now) {
		case StatusCancelled, StatusCompleted:
		default:
			return apperr.InvalidState("Only cancelled or completed bookings can be deleted")
		}
		if _, err := qtx.DeleteBooking(ctx, bookingID); err != nil {
			return apperr.Internal("delete booking", err)
		}
		log.Ctx(ctx).Info().Int64("booking_id", bookingID).Int64("deleted_by", caller.ID).Msg("Booking deleted")
		return nil
	})
}

// Get returns a booking visible to its booker, the facility owner or an admin.
func (s *Service) Get(ctx context.Context, caller *authz.AuthUser, bookingID int64) (Booking, error) {
	if caller == nil {
		return Booking{}, apperr.Unauthenticated("Authentication required")
	}
	detail, err := s.loadDetail(ctx, s.db.Queries, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if detail.UserID != caller.ID && !authz.CanManageFacility(caller, detail.OwnerID) {
		return Booking{}, apperr.Forbidden("Not authorized")
	}
	return fromDetail(detail, s.now()), nil
}

// ListForUser returns the caller's bookings, latest start first.
func (s *Service) ListForUser(ctx context.Context, caller *authz.AuthUser, limit int) ([]Booking, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	if limit <= 0 {
		limit = defaultListSize
	}
	if limit > maxListSize {
		limit = maxListSize
	}
	rows, err := s.db.Queries.ListBookingsByUser(ctx, dbgen.ListBookingsByUserParams{UserID: caller.ID, Limit: int64(limit)})
	if err != nil {
		return nil, apperr.Internal("list bookings", err)
	}
	now := s.now()
	out := make([]Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromDetail(row, now))
	}
	return out, nil
}

type OwnerStats struct {
	TotalBookings     int64            `json:"totalBookings"`
	UpcomingBookings  int64            `json:"upcomingBookings"`
	CompletedBookings int64            `json:"completedBookings"`
	PendingBookings   int64            `json:"pendingBookings"`
	CancelledBookings int64            `json:"cancelledBookings"`
	Payments          OwnerPaymentStat `json:"payments"`
}

type OwnerPaymentStat struct {
	Succeeded pricing.Cents `json:"succeeded"`
	Refunded  pricing.Cents `json:"refunded"`
	Net       pricing.Cents `json:"net"`
}

// OwnerStats summarizes bookings across the caller's facilities. TotalBookings
// counts confirmed bookings, upcoming and completed.
func (s *Service) OwnerStats(ctx context.Context, caller *authz.AuthUser) (OwnerStats, error) {
	if caller == nil {
		return OwnerStats{}, apperr.Unauthenticated("Authentication required")
	}
	if caller.Role != authz.RoleOwner && !authz.IsAdmin(caller) {
		return OwnerStats{}, apperr.Forbidden("Owner access required")
	}
	row, err := s.db.Queries.GetOwnerBookingStats(ctx, dbgen.GetOwnerBookingStatsParams{
		Now:     storageTime(s.now()),
		OwnerID: caller.ID,
	})
	if err != nil {
		return OwnerStats{}, apperr.Internal("owner stats", err)
	}
	net := row.SucceededCents - row.RefundedCents
	if net < 0 {
		net = 0
	}
	return OwnerStats{
		TotalBookings:     row.UpcomingBookings + row.CompletedBookings,
		UpcomingBookings:  row.UpcomingBookings,
		CompletedBookings: row.CompletedBookings,
		PendingBookings:   row.PendingBookings,
		CancelledBookings: row.CancelledBookings,
		Payments: OwnerPaymentStat{
			Succeeded: pricing.Cents(row.SucceededCents),
			Refunded:  pricing.Cents(row.RefundedCents),
			Net:       pricing.Cents(net),
		},
	}, nil
}

func (s *Service) loadDetail(ctx context.Context, q *dbgen.Queries, bookingID int64) (dbgen.BookingDetailRow, error) {
	detail, err := q.GetBookingDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.BookingDetailRow{}, apperr.NotFound("Booking not found")
		}
		return dbgen.BookingDetailRow{}, apperr.Internal("load booking", err)
	}
	return detail, nil
}

func (s *Service) publish(ctx context.Context, topic, room string, b Booking) {
	if s.publisher == nil {
		return
	}
	env := events.Envelope{
		Topic: topic,
		Room:  room,
		Payload: events.BookingPayload{
			BookingID:  b.ID,
			CourtID:    b.CourtID,
			StartTime:  b.StartTime,
			EndTime:    b.EndTime,
			FacilityID: b.FacilityID,
		},
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("topic", topic).Str("room", room).Msg("Failed to publish booking event")
	}
}

// awardPoints runs after the confirming transaction has committed. Failures
// are logged and never undo the booking.
func (s *Service) awardPoints(ctx context.Context, b Booking) {
	if s.points == nil {
		return
	}
	logger := log.Ctx(ctx)
	duration := b.EndTime.Sub(b.StartTime)
	points := pricing.Points(duration, s.opts.PointsPerHour)
	_, _, err := s.points.AddPoints(ctx, b.UserID, points, loyalty.SourceBooking, fmt.Sprintf("booking:%d", b.ID), map[string]any{
		"bookingId": b.ID,
		"hours":     duration.Hours(),
	})
	if err != nil {
		logger.Warn().Err(err).Int64("booking_id", b.ID).Int64("user_id", b.UserID).Msg("Loyalty award failed")
		return
	}
	if _, err := s.points.RecordActivity(ctx, b.UserID, s.now()); err != nil {
		logger.Warn().Err(err).Int64("user_id", b.UserID).Msg("Streak update failed")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
	}
	span.End()
}
