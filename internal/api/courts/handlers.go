// internal/api/courts/handlers.go
package courts

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
	"github.com/codr1/courtbook/internal/apperr"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/pricing"
)

const courtsQueryTimeout = 5 * time.Second

type Handler struct {
	q   *dbgen.Queries
	now func() time.Time
}

func NewHandler(q *dbgen.Queries, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{q: q, now: now}
}

// Court is the public view of a court. OpenMinute and CloseMinute are
// minutes after local midnight in the facility's timezone.
type Court struct {
	ID           int64         `json:"id"`
	FacilityID   int64         `json:"facilityId"`
	Name         string        `json:"name"`
	PricePerHour pricing.Cents `json:"pricePerHour"`
	OpenMinute   int64         `json:"openMinute"`
	CloseMinute  int64         `json:"closeMinute"`
}

type courtFields struct {
	Name         string        `json:"name" validate:"required,max=100"`
	PricePerHour pricing.Cents `json:"pricePerHour" validate:"gt=0"`
	OpenMinute   int64         `json:"openMinute" validate:"gte=0,lte=1439"`
	CloseMinute  int64         `json:"closeMinute" validate:"gte=0,lte=1439"`
}

type createCourtRequest struct {
	FacilityID int64 `json:"facilityId" validate:"required,gt=0"`
	courtFields
}

func (f courtFields) check() error {
	if f.CloseMinute <= f.OpenMinute {
		return apperr.Validation("closeMinute must be after openMinute")
	}
	return nil
}

// POST /api/v1/courts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req createCourtRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := req.check(); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	facility, err := h.q.GetFacility(ctx, req.FacilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, r, apperr.NotFound("Facility not found"))
			return
		}
		apiutil.WriteError(w, r, apperr.Internal("load facility", err))
		return
	}
	if !authz.CanManageFacility(user, facility.OwnerID) {
		apiutil.WriteError(w, r, apperr.Forbidden("Only the facility owner can add courts"))
		return
	}

	stamp := h.now().UTC().Truncate(time.Second)
	court, err := h.q.CreateCourt(ctx, dbgen.CreateCourtParams{
		FacilityID:        facility.ID,
		Name:              strings.TrimSpace(req.Name),
		PricePerHourCents: int64(req.PricePerHour),
		OpenMinute:        req.OpenMinute,
		CloseMinute:       req.CloseMinute,
		CreatedAt:         stamp,
		UpdatedAt:         stamp,
	})
	if err != nil {
		apiutil.WriteError(w, r, apperr.Internal("create court", err))
		return
	}

	logger.Info().Int64("court_id", court.ID).Int64("facility_id", facility.ID).Msg("Court created")
	apiutil.WriteJSON(w, http.StatusCreated, toCourt(court))
}

// PUT /api/v1/courts/{id}
//
// The new rate applies to bookings made afterwards; existing bookings keep
// the price they were created with.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req courtFields
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if err := req.check(); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	existing, err := h.q.GetCourtDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, r, apperr.NotFound("Court not found"))
			return
		}
		apiutil.WriteError(w, r, apperr.Internal("load court", err))
		return
	}
	if !authz.CanManageFacility(user, existing.OwnerID) {
		apiutil.WriteError(w, r, apperr.Forbidden("Only the facility owner can edit courts"))
		return
	}

	court, err := h.q.UpdateCourt(ctx, dbgen.UpdateCourtParams{
		Name:              strings.TrimSpace(req.Name),
		PricePerHourCents: int64(req.PricePerHour),
		OpenMinute:        req.OpenMinute,
		CloseMinute:       req.CloseMinute,
		UpdatedAt:         h.now().UTC().Truncate(time.Second),
		ID:                id,
	})
	if err != nil {
		apiutil.WriteError(w, r, apperr.Internal("update court", err))
		return
	}

	logger.Info().Int64("court_id", court.ID).Msg("Court updated")
	apiutil.WriteJSON(w, http.StatusOK, toCourt(court))
}

func toCourt(c dbgen.Court) Court {
	return Court{
		ID:           c.ID,
		FacilityID:   c.FacilityID,
		Name:         c.Name,
		PricePerHour: pricing.Cents(c.PricePerHourCents),
		OpenMinute:   c.OpenMinute,
		CloseMinute:  c.CloseMinute,
	}
}

// ToCourts converts rows for other handlers listing courts.
func ToCourts(rows []dbgen.Court) []Court {
	out := make([]Court, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCourt(row))
	}
	return out
}
