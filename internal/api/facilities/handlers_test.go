package facilities

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/availability"
	"github.com/codr1/courtbook/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, testutil.Fixture) {
	t.Helper()
	database := testutil.NewTestDB(t)
	fixture := testutil.SeedFixture(t, database, testutil.FixtureOptions{FacilityStatus: "PENDING"})
	now := func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }
	return NewHandler(database.Queries, availability.NewService(database, 60, now)), fixture
}

func asUser(req *http.Request, id int64, role string) *http.Request {
	return req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: id, Role: role}))
}

func TestHandleCreate(t *testing.T) {
	h, fixture := newTestHandler(t)

	tests := []struct {
		name       string
		role       string
		body       string
		wantStatus int
	}{
		{name: "owner", role: authz.RoleOwner, body: `{"name":"Harbour Club","timezone":"Asia/Kolkata"}`, wantStatus: http.StatusCreated},
		{name: "default timezone", role: authz.RoleOwner, body: `{"name":"Harbour Club"}`, wantStatus: http.StatusCreated},
		{name: "player", role: authz.RoleUser, body: `{"name":"Harbour Club"}`, wantStatus: http.StatusForbidden},
		{name: "bad timezone", role: authz.RoleOwner, body: `{"name":"Harbour Club","timezone":"Mars/Olympus"}`, wantStatus: http.StatusBadRequest},
		{name: "missing name", role: authz.RoleOwner, body: `{"timezone":"UTC"}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleCreate(rec, asUser(req, fixture.Owner.ID, tt.role))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if rec.Code != http.StatusCreated {
				return
			}
			var got Facility
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != "PENDING" || got.OwnerID != fixture.Owner.ID || got.Timezone == "" {
				t.Fatalf("unexpected facility %+v", got)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/facilities", strings.NewReader(`{"name":"x"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestApprovalGatesPlayerVisibility(t *testing.T) {
	h, fixture := newTestHandler(t)
	id := fmt.Sprint(fixture.Facility.ID)

	courtsReq := func(userID int64, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/"+id+"/courts", nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.HandleCourts(rec, asUser(req, userID, role))
		return rec
	}
	availabilityReq := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/"+id+"/availability?date=2026-03-10", nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.HandleAvailability(rec, req)
		return rec
	}

	if rec := courtsReq(fixture.Player.ID, authz.RoleUser); rec.Code != http.StatusForbidden {
		t.Fatalf("player courts on pending facility = %d, want 403", rec.Code)
	}
	if rec := courtsReq(fixture.Owner.ID, authz.RoleOwner); rec.Code != http.StatusOK {
		t.Fatalf("owner courts on pending facility = %d, want 200", rec.Code)
	}
	if rec := availabilityReq(); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous availability on pending facility = %d, want 403", rec.Code)
	}

	approve := func(userID int64, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/facilities/"+id+"/status", strings.NewReader(`{"status":"APPROVED"}`))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.HandleSetStatus(rec, asUser(req, userID, role))
		return rec
	}
	if rec := approve(fixture.Owner.ID, authz.RoleOwner); rec.Code != http.StatusForbidden {
		t.Fatalf("owner approve = %d, want 403", rec.Code)
	}
	if rec := approve(fixture.Admin.ID, authz.RoleAdmin); rec.Code != http.StatusOK {
		t.Fatalf("admin approve = %d body %s", rec.Code, rec.Body.String())
	}

	rec := courtsReq(fixture.Player.ID, authz.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("player courts after approval = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Court A"`) {
		t.Fatalf("courts body = %s", rec.Body.String())
	}
	if rec := availabilityReq(); rec.Code != http.StatusOK {
		t.Fatalf("availability after approval = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestHandleSetStatusUnknownFacility(t *testing.T) {
	h, fixture := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/facilities/999/status", strings.NewReader(`{"status":"REJECTED"}`))
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.HandleSetStatus(rec, asUser(req, fixture.Admin.ID, authz.RoleAdmin))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
