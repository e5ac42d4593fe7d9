package email

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/events"
)

const notificationEmailTimeout = 5 * time.Second

// Notifier emails the booker when one of their bookings is confirmed or
// cancelled. It is registered as an events.Publisher and only reacts to
// user rooms, so owner notifications never produce mail.
type Notifier struct {
	q      *dbgen.Queries
	sender EmailSender
	wg     sync.WaitGroup
}

func NewNotifier(q *dbgen.Queries, sender EmailSender) *Notifier {
	return &Notifier{q: q, sender: sender}
}

// Publish looks up the recipient synchronously and sends in the background.
// Lookup failures are logged; the returned error is always nil.
func (n *Notifier) Publish(ctx context.Context, env events.Envelope) error {
	if n == nil || n.sender == nil || n.q == nil {
		return nil
	}
	if !strings.HasPrefix(env.Room, "user:") {
		return nil
	}

	var build func(BookingDetails) Message
	switch env.Topic {
	case events.TopicBookingConfirmed:
		build = BuildConfirmation
	case events.TopicBookingCancelled:
		build = BuildCancellation
	default:
		return nil
	}

	logger := log.Ctx(ctx)
	booking, err := n.q.GetBookingDetail(ctx, env.Payload.BookingID)
	if err != nil {
		logger.Error().Err(err).Int64("booking_id", env.Payload.BookingID).Msg("Failed to load booking for notification email")
		return nil
	}
	user, err := n.q.GetUser(ctx, booking.UserID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", booking.UserID).Msg("Failed to load user for notification email")
		return nil
	}
	recipient := strings.TrimSpace(user.Email)
	if recipient == "" {
		return nil
	}

	loc := time.UTC
	if facility, err := n.q.GetFacility(ctx, booking.FacilityID); err == nil {
		if l, err := time.LoadLocation(facility.Timezone); err == nil {
			loc = l
		}
	}
	msg := build(BookingDetails{
		UserName:     user.Name,
		FacilityName: booking.FacilityName,
		CourtName:    booking.CourtName,
		Start:        booking.StartTime.In(loc),
		End:          booking.EndTime.In(loc),
	})

	sendCtx, cancel := newEmailContext(ctx, notificationEmailTimeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.sender.Send(sendCtx, recipient, msg.Subject, msg.Body); err != nil {
			logger.Error().Err(err).Str("recipient", recipient).Str("topic", env.Topic).Msg("Failed to send notification email")
		}
	}()
	return nil
}

// Wait blocks until in-flight sends finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
