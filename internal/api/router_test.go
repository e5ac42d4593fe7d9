package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/api/auth"
	"github.com/codr1/courtbook/internal/api/authz"
	paymentsapi "github.com/codr1/courtbook/internal/api/payments"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/events"
	"github.com/codr1/courtbook/internal/loyalty"
	"github.com/codr1/courtbook/internal/payments"
	"github.com/codr1/courtbook/internal/ratelimit"
	"github.com/codr1/courtbook/internal/testutil"
)

const (
	testTokenSecret   = "token_secret"
	testWebhookSecret = "whsec_router"
	testKeySecret     = "key_secret"
)

type routerHarness struct {
	handler  http.Handler
	fixture  testutil.Fixture
	gateway  *payments.SandboxGateway
	verifier *auth.TokenVerifier
}

func newRouterHarness(t *testing.T, createPerMinute int) *routerHarness {
	t.Helper()
	database := testutil.NewTestDB(t)
	now := func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	h := &routerHarness{
		fixture:  testutil.SeedFixture(t, database, testutil.FixtureOptions{}),
		gateway:  payments.NewSandboxGateway(),
		verifier: auth.NewTokenVerifier(testTokenSecret),
	}
	points := loyalty.NewService(database, time.UTC, now)
	bookings := booking.NewService(database, h.gateway, events.NewMemoryBus(), points, booking.Options{
		PointsPerHour: 10,
		KeySecret:     testKeySecret,
		Now:           now,
	})

	limiterCfg := ratelimit.DefaultConfig()
	if createPerMinute > 0 {
		limiterCfg.PerMinute = createPerMinute
		limiterCfg.Burst = createPerMinute
	}
	limiter := ratelimit.New(limiterCfg)
	t.Cleanup(limiter.Close)

	h.handler = NewRouter(Services{
		DB:            database,
		Bookings:      bookings,
		Availability:  availability.NewService(database, 60, now),
		Loyalty:       points,
		Webhook:       payments.NewWebhook(payments.ProviderSandbox, testWebhookSecret, bookings),
		Verifier:      h.verifier,
		CreateLimiter: limiter,
		Now:           now,
	})
	return h
}

func (h *routerHarness) token(t *testing.T, id int64, role string) string {
	t.Helper()
	token, err := h.verifier.Issue(authz.AuthUser{ID: id, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (h *routerHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *routerHarness) createBooking(t *testing.T, token string, startHour, endHour int, mode string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(t, http.MethodPost, "/api/v1/bookings", token, map[string]any{
		"courtId":     h.fixture.Court.ID,
		"startTime":   time.Date(2026, 3, 10, startHour, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"endTime":     time.Date(2026, 3, 10, endHour, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"paymentMode": mode,
	})
}

type bookingBody struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Order  *struct {
		ID string `json:"id"`
	} `json:"order"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newRouterHarness(t, 0)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestCreateBookingRoutes(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)

	rec := h.createBooking(t, player, 10, 11, "direct")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body.String())
	}
	created := decode[bookingBody](t, rec)
	if created.Status != booking.StatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", created.Status)
	}

	rec = h.createBooking(t, player, 10, 11, "direct")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overlap status = %d, want 400", rec.Code)
	}
	errBody := decode[map[string]string](t, rec)
	if errBody["code"] != "slot_unavailable" || errBody["message"] != "Slot unavailable" {
		t.Fatalf("overlap body = %v", errBody)
	}

	rec = h.createBooking(t, player, 12, 11, "direct")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["code"]; got != "validation" {
		t.Fatalf("inverted range code = %q", got)
	}
}

func TestRequestsWithoutTokenAreUnauthenticated(t *testing.T) {
	h := newRouterHarness(t, 0)

	rec := h.createBooking(t, "", 10, 11, "direct")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["code"]; got != "unauthenticated" {
		t.Fatalf("code = %q", got)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/bookings/my", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rec.Code)
	}
}

func TestCancelAndDeleteRoutes(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)
	stranger := h.token(t, h.fixture.Player.ID+1000, authz.RoleUser)

	created := decode[bookingBody](t, h.createBooking(t, player, 10, 11, "direct"))
	path := fmt.Sprintf("/api/v1/bookings/%d", created.ID)

	if rec := h.do(t, http.MethodDelete, path, player, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete confirmed status = %d, want 400", rec.Code)
	}
	if rec := h.do(t, http.MethodPut, path+"/cancel", stranger, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger cancel status = %d, want 403", rec.Code)
	}

	rec := h.do(t, http.MethodPut, path+"/cancel", player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[bookingBody](t, rec).Status; got != booking.StatusCancelled {
		t.Fatalf("cancel status = %s", got)
	}

	rec = h.do(t, http.MethodDelete, path, player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]bool](t, rec); !got["success"] {
		t.Fatalf("delete body = %v", got)
	}
	if rec := h.do(t, http.MethodGet, path, player, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestAvailabilityRoute(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)
	h.createBooking(t, player, 10, 11, "direct")

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/facilities/%d/availability?date=2026-03-10", h.fixture.Facility.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	slots := decode[[]availability.Slot](t, rec)
	if len(slots) != 12 {
		t.Fatalf("slots = %d, want 12", len(slots))
	}
	for _, slot := range slots {
		wantAvailable := slot.StartTime != "10:00"
		if slot.IsAvailable != wantAvailable {
			t.Fatalf("slot %s available = %v, want %v", slot.StartTime, slot.IsAvailable, wantAvailable)
		}
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/facilities/%d/availability?date=10-03-2026", h.fixture.Facility.ID), "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", rec.Code)
	}
}

func TestWebhookRouteConfirmsGatewayBooking(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)

	created := decode[bookingBody](t, h.createBooking(t, player, 10, 11, "gateway"))
	if created.Status != booking.StatusPending || created.Order == nil {
		t.Fatalf("gateway booking = %+v", created)
	}
	captured, err := h.gateway.Capture(created.Order.ID)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	body := []byte(fmt.Sprintf(`{"id":"evt_router","event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`,
		captured.ID, created.Order.ID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(paymentsapi.SignatureHeader, "bad")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad signature status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(paymentsapi.SignatureHeader, payments.SignWebhook(body, testWebhookSecret))
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), player, nil)
	if got := decode[bookingBody](t, rec).Status; got != booking.StatusConfirmed {
		t.Fatalf("status after webhook = %s, want CONFIRMED", got)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/loyalty/me", player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("loyalty status = %d", rec.Code)
	}
}

func TestCreateBookingIsRateLimited(t *testing.T) {
	h := newRouterHarness(t, 1)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)

	if rec := h.createBooking(t, player, 10, 11, "direct"); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := h.createBooking(t, player, 12, 13, "direct")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second create status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRecoveryWritesJSON(t *testing.T) {
	handler := ChainMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecovery, WithRequestID)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["code"] != "internal" || body["message"] != "Internal server error" {
		t.Fatalf("body = %v", body)
	}
}

func TestPaymentOrderAndVerifyRoutes(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)
	stranger := h.token(t, h.fixture.Player.ID+1000, authz.RoleUser)

	created := decode[bookingBody](t, h.createBooking(t, player, 10, 11, "gateway"))
	if created.Order == nil {
		t.Fatalf("gateway booking has no order")
	}
	orderReq := map[string]any{"bookingId": created.ID}

	rec := h.do(t, http.MethodPost, "/api/v1/payments/orders", player, orderReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("create order status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[booking.OrderResult](t, rec).OrderID; got != created.Order.ID {
		t.Fatalf("order id = %q, want existing %q", got, created.Order.ID)
	}
	if rec := h.do(t, http.MethodPost, "/api/v1/payments/orders", stranger, orderReq); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger create order status = %d, want 404", rec.Code)
	}

	captured, err := h.gateway.Capture(created.Order.ID)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	verify := map[string]any{
		"bookingId": created.ID,
		"orderId":   created.Order.ID,
		"paymentId": captured.ID,
		"signature": "00",
	}
	if rec := h.do(t, http.MethodPost, "/api/v1/payments/verify", player, verify); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad signature verify status = %d, want 400", rec.Code)
	}

	verify["signature"] = payments.SignPayment(created.Order.ID, captured.ID, testKeySecret)
	rec = h.do(t, http.MethodPost, "/api/v1/payments/verify", player, verify)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[booking.PaymentStatus](t, rec); got.BookingStatus != booking.StatusConfirmed {
		t.Fatalf("booking status after verify = %s", got.BookingStatus)
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/api/v1/payments/bookings/%d", created.ID), player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("payment status = %d", rec.Code)
	}
	if got := decode[booking.PaymentStatus](t, rec).Payment.Status; got != payments.StatusSucceeded {
		t.Fatalf("payment status = %s, want SUCCEEDED", got)
	}

	// The order is settled now, so a new one cannot be opened.
	if rec := h.do(t, http.MethodPost, "/api/v1/payments/orders", player, orderReq); rec.Code != http.StatusNotFound {
		t.Fatalf("create order after confirm status = %d, want 404", rec.Code)
	}
}

func TestLoyaltyRoutes(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)
	admin := h.token(t, h.fixture.Admin.ID, authz.RoleAdmin)

	if rec := h.createBooking(t, player, 10, 11, "direct"); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/loyalty/ledger", player, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger status = %d", rec.Code)
	}
	entries := decode[[]loyalty.Entry](t, rec)
	if len(entries) != 1 || entries[0].Delta != 10 || entries[0].Source != loyalty.SourceBooking {
		t.Fatalf("ledger = %+v", entries)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/loyalty/ledger?limit=0", player, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("ledger limit=0 status = %d, want 400", rec.Code)
	}

	adjust := map[string]any{"userId": h.fixture.Player.ID, "delta": 5, "reason": "tournament win", "reference": "cup-2026"}
	if rec := h.do(t, http.MethodPost, "/api/v1/loyalty/adjust", "", adjust); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous adjust status = %d, want 401", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/api/v1/loyalty/adjust", player, adjust); rec.Code != http.StatusForbidden {
		t.Fatalf("player adjust status = %d, want 403", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/loyalty/adjust", admin, adjust)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin adjust status = %d body %s", rec.Code, rec.Body.String())
	}
	type adjustBody struct {
		Applied bool          `json:"applied"`
		Entry   loyalty.Entry `json:"entry"`
	}
	if got := decode[adjustBody](t, rec); !got.Applied || got.Entry.BalanceAfter != 15 {
		t.Fatalf("adjust body = %+v", got)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/loyalty/adjust", admin, adjust)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeated adjust status = %d, want 200", rec.Code)
	}
	if got := decode[adjustBody](t, rec); got.Applied {
		t.Fatalf("repeated adjust applied again")
	}

	rec = h.do(t, http.MethodGet, "/api/v1/loyalty/me", player, nil)
	if got := decode[loyalty.Balance](t, rec); got.Points != 15 {
		t.Fatalf("balance = %d, want 15", got.Points)
	}
}

func TestInviteAndShareRoutes(t *testing.T) {
	h := newRouterHarness(t, 0)
	player := h.token(t, h.fixture.Player.ID, authz.RoleUser)
	guest := h.token(t, h.fixture.Owner.ID, authz.RoleOwner)

	created := decode[bookingBody](t, h.createBooking(t, player, 10, 11, "direct"))
	invitesPath := fmt.Sprintf("/api/v1/bookings/%d/invites", created.ID)

	if rec := h.do(t, http.MethodPost, invitesPath, player, map[string]any{"emails": []string{"not-an-email"}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad email status = %d, want 400", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, invitesPath, guest, map[string]any{"emails": []string{"a@example.com"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-booker invite status = %d, want 403", rec.Code)
	}
	rec := h.do(t, http.MethodPost, invitesPath, player, map[string]any{"emails": []string{"a@example.com"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invites status = %d body %s", rec.Code, rec.Body.String())
	}
	invites := decode[[]booking.Invite](t, rec)
	if len(invites) != 1 || invites[0].Token == "" {
		t.Fatalf("invites = %+v", invites)
	}

	respondPath := "/api/v1/bookings/invites/" + invites[0].Token + "/respond"
	if rec := h.do(t, http.MethodPost, respondPath, "", map[string]string{"action": "ACCEPT"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous respond status = %d, want 401", rec.Code)
	}
	rec = h.do(t, http.MethodPost, respondPath, guest, map[string]string{"action": "ACCEPT"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := decode[booking.Invite](t, rec); got.Status != booking.InviteStatusAccepted {
		t.Fatalf("invite status = %s", got.Status)
	}
	if rec := h.do(t, http.MethodPost, respondPath, guest, map[string]string{"action": "DECLINE"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("second respond status = %d, want 400", rec.Code)
	}

	rec = h.do(t, http.MethodGet, invitesPath, player, nil)
	if got := decode[[]booking.Invite](t, rec); rec.Code != http.StatusOK || len(got) != 1 || got[0].Status != booking.InviteStatusAccepted {
		t.Fatalf("list invites = %d %+v", rec.Code, got)
	}

	sharePath := fmt.Sprintf("/api/v1/bookings/%d/share-link", created.ID)
	first := decode[map[string]string](t, h.do(t, http.MethodPost, sharePath, player, nil))
	second := decode[map[string]string](t, h.do(t, http.MethodPost, sharePath, player, nil))
	if first["slug"] == "" || first["slug"] != second["slug"] {
		t.Fatalf("share slugs = %q, %q", first["slug"], second["slug"])
	}

	rec = h.do(t, http.MethodGet, "/api/v1/bookings/public/slug/"+first["slug"], "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public view status = %d", rec.Code)
	}
	shared := decode[map[string]any](t, rec)
	if _, ok := shared["userId"]; ok {
		t.Fatalf("public view exposes the booker: %v", shared)
	}
	if _, ok := shared["price"]; ok {
		t.Fatalf("public view exposes the price: %v", shared)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/bookings/public/slug/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown slug status = %d, want 404", rec.Code)
	}
}
