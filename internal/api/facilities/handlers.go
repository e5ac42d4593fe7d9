// internal/api/facilities/handlers.go
package facilities

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/api/courts"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/availability"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
)

const (
	facilitiesQueryTimeout = 5 * time.Second

	statusPending  = "PENDING"
	statusRejected = "REJECTED"
)

type Handler struct {
	q            *dbgen.Queries
	availability *availability.Service
}

func NewHandler(q *dbgen.Queries, availabilitySvc *availability.Service) *Handler {
	return &Handler{q: q, availability: availabilitySvc}
}

type Facility struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"ownerId"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Timezone string `json:"timezone"`
}

type createFacilityRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Timezone string `json:"timezone" validate:"omitempty,max=64"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED PENDING"`
}

// POST /api/v1/facilities
//
// New facilities start PENDING and are hidden from players until an admin
// approves them.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authz.RequireRole(r.Context(), authz.RoleOwner); err != nil {
		writeAuthzError(w, r, err, "Owner access required")
		return
	}
	user := authz.UserFromContext(r.Context())

	var req createFacilityRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		apiutil.WriteError(w, r, apperr.Validation("timezone must be an IANA zone name"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilitiesQueryTimeout)
	defer cancel()

	facility, err := h.q.CreateFacility(ctx, dbgen.CreateFacilityParams{
		OwnerID:  user.ID,
		Name:     strings.TrimSpace(req.Name),
		Status:   statusPending,
		Timezone: timezone,
	})
	if err != nil {
		apiutil.WriteError(w, r, apperr.Internal("create facility", err))
		return
	}
	log.Ctx(r.Context()).Info().Int64("facility_id", facility.ID).Msg("Facility created")
	apiutil.WriteJSON(w, http.StatusCreated, toFacility(facility))
}

// PUT /api/v1/facilities/{id}/status
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	if err := authz.RequireRole(r.Context(), authz.RoleAdmin); err != nil {
		writeAuthzError(w, r, err, "Admin access required")
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req statusRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilitiesQueryTimeout)
	defer cancel()

	facility, err := h.loadFacility(ctx, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := h.q.UpdateFacilityStatus(ctx, dbgen.UpdateFacilityStatusParams{Status: req.Status, ID: id}); err != nil {
		apiutil.WriteError(w, r, apperr.Internal("update facility status", err))
		return
	}
	facility.Status = req.Status

	logEvent := log.Ctx(r.Context()).Info()
	if req.Status == statusRejected {
		logEvent = log.Ctx(r.Context()).Warn()
	}
	logEvent.Int64("facility_id", id).Str("status", req.Status).Msg("Facility status changed")
	apiutil.WriteJSON(w, http.StatusOK, toFacility(facility))
}

// GET /api/v1/facilities/{id}/availability?date=YYYY-MM-DD
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.ParseDate(r.URL.Query().Get("date"), "date")
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilitiesQueryTimeout)
	defer cancel()

	slots, err := h.availability.ForFacility(ctx, authz.UserFromContext(r.Context()), id, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, slots)
}

// GET /api/v1/facilities/{id}/courts
func (h *Handler) HandleCourts(w http.ResponseWriter, r *http.Request) {
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilitiesQueryTimeout)
	defer cancel()

	facility, err := h.loadFacility(ctx, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if facility.Status != availability.FacilityApproved && !authz.CanManageFacility(authz.UserFromContext(r.Context()), facility.OwnerID) {
		apiutil.WriteError(w, r, apperr.Forbidden("Facility is not approved"))
		return
	}
	rows, err := h.q.ListCourtsByFacility(ctx, id)
	if err != nil {
		apiutil.WriteError(w, r, apperr.Internal("list courts", err))
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, courts.ToCourts(rows))
}

func (h *Handler) loadFacility(ctx context.Context, id int64) (dbgen.Facility, error) {
	facility, err := h.q.GetFacility(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Facility{}, apperr.NotFound("Facility not found")
		}
		return dbgen.Facility{}, apperr.Internal("load facility", err)
	}
	return facility, nil
}

func writeAuthzError(w http.ResponseWriter, r *http.Request, err error, forbidden string) {
	if errors.Is(err, authz.ErrUnauthenticated) {
		apiutil.WriteError(w, r, apperr.Unauthenticated("Authentication required"))
		return
	}
	apiutil.WriteError(w, r, apperr.Forbidden(forbidden))
}

func toFacility(f dbgen.Facility) Facility {
	return Facility{
		ID:       f.ID,
		OwnerID:  f.OwnerID,
		Name:     f.Name,
		Status:   f.Status,
		Timezone: f.Timezone,
	}
}
