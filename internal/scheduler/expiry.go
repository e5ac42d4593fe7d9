package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const (
	ExpiryJobName = "expire_pending_bookings"
	expiryCron    = "* * * * *"
	expiryTimeout = 50 * time.Second
)

// PendingExpirer cancels PENDING bookings whose payment window has lapsed.
type PendingExpirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

// RegisterExpiryJob runs the pending-booking sweep once a minute.
func RegisterExpiryJob(s *Service, expirer PendingExpirer) (gocron.Job, error) {
	if expirer == nil {
		return nil, fmt.Errorf("expiry job requires an expirer")
	}
	return s.AddJob(ExpiryJobName, expiryCron, expiryTask(expirer))
}

func expiryTask(expirer PendingExpirer) func() {
	jobLogger := log.With().
		Str("component", "pending_expiry_job").
		Str("job_name", ExpiryJobName).
		Logger()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := expirer.ExpirePending(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Int("expired", expired).Msg("Pending booking sweep failed")
			return
		}
		if expired > 0 {
			jobLogger.Info().Int("expired", expired).Msg("Pending booking sweep completed")
		}
	}
}
