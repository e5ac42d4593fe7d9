// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/codr1/courtbook/internal/api/auth"
	"github.com/codr1/courtbook/internal/api/bookings"
	"github.com/codr1/courtbook/internal/api/courts"
	"github.com/codr1/courtbook/internal/api/facilities"
	loyaltyapi "github.com/codr1/courtbook/internal/api/loyalty"
	paymentsapi "github.com/codr1/courtbook/internal/api/payments"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/booking"
	appdb "github.com/codr1/courtbook/internal/db"
	"github.com/codr1/courtbook/internal/loyalty"
	"github.com/codr1/courtbook/internal/payments"
	"github.com/codr1/courtbook/internal/ratelimit"
)

const createBookingScope = "booking_create"

// Services holds everything the HTTP layer depends on.
type Services struct {
	DB            *appdb.DB
	Bookings      *booking.Service
	Availability  *availability.Service
	Loyalty       *loyalty.Service
	Webhook       *payments.Webhook
	Verifier      *auth.TokenVerifier
	CreateLimiter *ratelimit.Limiter
	TrustProxy    bool
	Now           func() time.Time
}

// NewRouter registers every route and wraps the mux in the shared middleware
// chain. The request id middleware runs outermost so the access log carries it.
func NewRouter(svc Services) http.Handler {
	mux := http.NewServeMux()
	registerRoutes(mux, svc)

	return ChainMiddleware(
		mux,
		WithAuth(svc.Verifier),
		WithRecovery,
		WithLogging,
		WithRequestID,
	)
}

func registerRoutes(mux *http.ServeMux, svc Services) {
	now := svc.Now
	if now == nil {
		now = time.Now
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Booking routes
	bookingHandler := bookings.NewHandler(svc.Bookings)
	create := http.Handler(http.HandlerFunc(bookingHandler.HandleCreate))
	if svc.CreateLimiter != nil {
		create = WithRateLimit(svc.CreateLimiter, createBookingScope, svc.TrustProxy)(create)
	}
	mux.Handle("POST /api/v1/bookings", create)
	mux.HandleFunc("GET /api/v1/bookings/my", bookingHandler.HandleMine)
	mux.HandleFunc("GET /api/v1/bookings/owner/stats", bookingHandler.HandleOwnerStats)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookingHandler.HandleGet)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/cancel", bookingHandler.HandleCancel)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", bookingHandler.HandleDelete)
	mux.HandleFunc("POST /api/v1/bookings/{id}/invites", bookingHandler.HandleCreateInvites)
	mux.HandleFunc("GET /api/v1/bookings/{id}/invites", bookingHandler.HandleListInvites)
	mux.HandleFunc("POST /api/v1/bookings/invites/{token}/respond", bookingHandler.HandleRespondInvite)
	mux.HandleFunc("POST /api/v1/bookings/{id}/share-link", bookingHandler.HandleShareLink)
	mux.HandleFunc("GET /api/v1/bookings/public/slug/{slug}", bookingHandler.HandleShared)

	// Facility and court routes
	facilityHandler := facilities.NewHandler(svc.DB.Queries, svc.Availability)
	mux.HandleFunc("POST /api/v1/facilities", facilityHandler.HandleCreate)
	mux.HandleFunc("PUT /api/v1/facilities/{id}/status", facilityHandler.HandleSetStatus)
	mux.HandleFunc("GET /api/v1/facilities/{id}/availability", facilityHandler.HandleAvailability)
	mux.HandleFunc("GET /api/v1/facilities/{id}/courts", facilityHandler.HandleCourts)

	courtHandler := courts.NewHandler(svc.DB.Queries, now)
	mux.HandleFunc("POST /api/v1/courts", courtHandler.HandleCreate)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courtHandler.HandleUpdate)

	// Payment routes
	paymentHandler := paymentsapi.NewHandler(svc.Bookings, svc.Webhook)
	mux.HandleFunc("POST /api/v1/payments/orders", paymentHandler.HandleCreateOrder)
	mux.HandleFunc("POST /api/v1/payments/verify", paymentHandler.HandleVerify)
	mux.HandleFunc("GET /api/v1/payments/bookings/{id}", paymentHandler.HandleBookingPayment)
	mux.HandleFunc("POST /api/v1/payments/webhook", paymentHandler.HandleWebhook)

	// Loyalty routes
	loyaltyHandler := loyaltyapi.NewHandler(svc.Loyalty)
	mux.HandleFunc("GET /api/v1/loyalty/me", loyaltyHandler.HandleMe)
	mux.HandleFunc("GET /api/v1/loyalty/ledger", loyaltyHandler.HandleLedger)
	mux.HandleFunc("POST /api/v1/loyalty/adjust", loyaltyHandler.HandleAdjust)
}
