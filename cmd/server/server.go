// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api"
	"github.com/codr1/courtbook/internal/api/auth"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/config"
	"github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/email"
	"github.com/codr1/courtbook/internal/events"
	"github.com/codr1/courtbook/internal/loyalty"
	"github.com/codr1/courtbook/internal/payments"
	"github.com/codr1/courtbook/internal/ratelimit"
	"github.com/codr1/courtbook/internal/scheduler"
)

const devTokenSecret = "courtbook-development-secret"

type app struct {
	server    *http.Server
	database  *db.DB
	publisher *events.Fanout
	notifier  *email.Notifier
	scheduler *scheduler.Service
	limiter   *ratelimit.Limiter
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{database: database}

	fanout, _, err := events.Build(ctx, cfg.Events)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build event publishers: %w", err)
	}
	a.publisher = fanout

	if cfg.Email.Enabled {
		sender, err := email.NewSESClient(ctx, cfg.Email)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create email client: %w", err)
		}
		a.notifier = email.NewNotifier(database.Queries, sender)
		fanout.Add(a.notifier)
		log.Info().Str("region", cfg.Email.Region).Msg("Booking emails enabled")
	}

	gateway, err := payments.NewGateway(cfg.Payments)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create payment gateway: %w", err)
	}

	now := time.Now
	points := loyalty.NewService(database, cfg.Booking.LoyaltyLocation(), now)
	bookings := booking.NewService(database, gateway, fanout, points, booking.Options{
		PointsPerHour:      cfg.Booking.PointsPerHour,
		CancelGrace:        cfg.Booking.CancelGrace,
		PendingTTL:         cfg.Booking.PendingTTL,
		MaxDuration:        cfg.Booking.MaxDuration,
		DefaultPaymentMode: cfg.Booking.DefaultPaymentMode,
		Currency:           cfg.Payments.Currency,
		KeySecret:          cfg.Payments.KeySecret,
		Now:                now,
	})

	a.scheduler, err = scheduler.New()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := scheduler.RegisterExpiryJob(a.scheduler, bookings); err != nil {
		a.close()
		return nil, fmt.Errorf("register expiry job: %w", err)
	}
	a.scheduler.Start()

	secret := cfg.App.SecretKey
	if secret == "" {
		log.Warn().Msg("APP_SECRET_KEY not set, using development token secret")
		secret = devTokenSecret
	}

	a.limiter = ratelimit.New(&ratelimit.Config{PerMinute: cfg.Booking.CreatePerMinute})

	handler := api.NewRouter(api.Services{
		DB:            database,
		Bookings:      bookings,
		Availability:  availability.NewService(database, cfg.Booking.SlotMinutes, now),
		Loyalty:       points,
		Webhook:       payments.NewWebhook(gateway.Provider(), cfg.Payments.WebhookSecret, bookings),
		Verifier:      auth.NewTokenVerifier(secret),
		CreateLimiter: a.limiter,
		TrustProxy:    cfg.App.Environment != "development",
		Now:           now,
	})

	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// close releases everything except the HTTP server, in dependency order.
func (a *app) close() {
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.notifier != nil {
		a.notifier.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publishers")
		}
	}
	if err := a.database.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
