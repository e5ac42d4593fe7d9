package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/events"
	"github.com/codr1/courtbook/internal/payments"
)

const expiryBatchSize = 100

// ExpirePending cancels PENDING bookings older than the pending TTL and fails
// their payments, releasing the slots. It returns how many were expired.
// Bookings confirmed concurrently are skipped.
func (s *Service) ExpirePending(ctx context.Context) (expired int, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.expire_pending")
	defer func() { endSpan(span, err) }()

	now := s.now()
	rows, err := s.db.Queries.ListExpiredPendingBookings(ctx, dbgen.ListExpiredPendingBookingsParams{
		CreatedBefore: storageTime(now.Add(-s.opts.PendingTTL)),
		Limit:         expiryBatchSize,
	})
	if err != nil {
		return 0, apperr.Internal("list expired bookings", err)
	}

	logger := log.Ctx(ctx)
	stamp := storageTime(now)
	for _, row := range rows {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.expireOne(ctx, row.ID, stamp)
		if err != nil {
			logger.Error().Err(err).Int64("booking_id", row.ID).Msg("Failed to expire pending booking")
			continue
		}
		if !ok {
			continue
		}
		expired++
		row.Status = StatusCancelled
		row.UpdatedAt = stamp
		b := fromDetail(row, now)
		s.publish(ctx, events.TopicBookingCancelled, events.OwnerRoom(row.OwnerID), b)
		s.publish(ctx, events.TopicBookingCancelled, events.UserRoom(row.UserID), b)
	}
	if expired > 0 {
		logger.Info().Int("expired", expired).Msg("Expired pending bookings")
	}
	return expired, nil
}

func (s *Service) expireOne(ctx context.Context, bookingID int64, stamp time.Time) (bool, error) {
	applied := false
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		qtx := txdb.Queries
		updated, err := qtx.UpdateBookingStatus(ctx, dbgen.UpdateBookingStatusParams{
			Status:     StatusCancelled,
			UpdatedAt:  stamp,
			ID:         bookingID,
			FromStatus: StatusPending,
		})
		if err != nil {
			return err
		}
		if updated == 0 {
			return nil
		}
		applied = true

		payment, err := qtx.GetPaymentByBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		_, err = qtx.UpdatePaymentStatus(ctx, dbgen.UpdatePaymentStatusParams{
			Status:     payments.StatusFailed,
			UpdatedAt:  stamp,
			ID:         payment.ID,
			FromStatus: payments.StatusPending,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
