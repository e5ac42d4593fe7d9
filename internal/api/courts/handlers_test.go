package courts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/pricing"
	"github.com/codr1/courtbook/internal/testutil"
)

func fixedNow() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

func withUser(req *http.Request, id int64, role string) *http.Request {
	return req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: id, Role: role}))
}

func TestHandleCreate(t *testing.T) {
	database := testutil.NewTestDB(t)
	fixture := testutil.SeedFixture(t, database, testutil.FixtureOptions{})
	h := NewHandler(database.Queries, fixedNow)

	body := func(price string, open, close int) string {
		return fmt.Sprintf(`{"facilityId":%d,"name":"Court B","pricePerHour":%s,"openMinute":%d,"closeMinute":%d}`,
			fixture.Facility.ID, price, open, close)
	}
	tests := []struct {
		name       string
		userID     int64
		role       string
		body       string
		wantStatus int
	}{
		{name: "owner", userID: fixture.Owner.ID, role: authz.RoleOwner, body: body("650.50", 360, 1320), wantStatus: http.StatusCreated},
		{name: "admin", userID: fixture.Admin.ID, role: authz.RoleAdmin, body: body("400", 0, 1439), wantStatus: http.StatusCreated},
		{name: "player", userID: fixture.Player.ID, role: authz.RoleUser, body: body("400", 360, 1320), wantStatus: http.StatusForbidden},
		{name: "close before open", userID: fixture.Owner.ID, role: authz.RoleOwner, body: body("400", 600, 600), wantStatus: http.StatusBadRequest},
		{name: "minute out of range", userID: fixture.Owner.ID, role: authz.RoleOwner, body: body("400", 0, 1440), wantStatus: http.StatusBadRequest},
		{name: "zero price", userID: fixture.Owner.ID, role: authz.RoleOwner, body: body("0", 360, 1320), wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/courts", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleCreate(rec, withUser(req, tt.userID, tt.role))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courts", strings.NewReader(body("650.50", 360, 1320)))
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, withUser(req, fixture.Owner.ID, authz.RoleOwner))
	var got Court
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PricePerHour != pricing.Cents(65050) || got.OpenMinute != 360 || got.CloseMinute != 1320 {
		t.Fatalf("unexpected court %+v", got)
	}
}

func TestHandleUpdate(t *testing.T) {
	database := testutil.NewTestDB(t)
	fixture := testutil.SeedFixture(t, database, testutil.FixtureOptions{})
	h := NewHandler(database.Queries, fixedNow)
	id := fmt.Sprint(fixture.Court.ID)

	update := func(userID int64, role, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/"+id, strings.NewReader(body))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.HandleUpdate(rec, withUser(req, userID, role))
		return rec
	}

	payload := `{"name":"Centre Court","pricePerHour":800,"openMinute":420,"closeMinute":1380}`
	if rec := update(fixture.Player.ID, authz.RoleUser, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("player update = %d, want 403", rec.Code)
	}
	rec := update(fixture.Owner.ID, authz.RoleOwner, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update = %d body %s", rec.Code, rec.Body.String())
	}
	var got Court
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Centre Court" || got.PricePerHour != pricing.Cents(80000) {
		t.Fatalf("unexpected court %+v", got)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/courts/999", strings.NewReader(payload))
	req.SetPathValue("id", "999")
	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, withUser(req, fixture.Owner.ID, authz.RoleOwner))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing court = %d, want 404", rec.Code)
	}
}
