package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/pricing"
	"github.com/codr1/courtbook/internal/timerange"
)

const FacilityApproved = "APPROVED"

// Service loads facility state from storage and runs the Engine over it.
type Service struct {
	db          *appdb.DB
	engine      Engine
	slotMinutes int
	now         func() time.Time
}

func NewService(database *appdb.DB, slotMinutes int, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: database, slotMinutes: slotMinutes, now: now}
}

// ForFacility returns the slots of every court in the facility for the calendar
// date, interpreted in the facility's timezone. Unapproved facilities are only
// visible to their owner and admins.
func (s *Service) ForFacility(ctx context.Context, caller *authz.AuthUser, facilityID int64, date time.Time) ([]Slot, error) {
	q := s.db.Queries

	facility, err := q.GetFacility(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Facility not found")
		}
		return nil, apperr.Internal("load facility", err)
	}
	if facility.Status != FacilityApproved && !authz.CanManageFacility(caller, facility.OwnerID) {
		return nil, apperr.Forbidden("Facility is not approved")
	}

	loc, err := FacilityLocation(facility)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("facility_id", facilityID).Str("timezone", facility.Timezone).Msg("Invalid facility timezone, using UTC")
	}

	courts, err := q.ListCourtsByFacility(ctx, facilityID)
	if err != nil {
		return nil, apperr.Internal("load courts", err)
	}

	day := timerange.DayBounds(date, loc)
	rows, err := q.ListActiveBookingsForFacility(ctx, dbgen.ListActiveBookingsForFacilityParams{
		FacilityID:  facilityID,
		WindowEnd:   day.End.UTC(),
		WindowStart: day.Start.UTC(),
	})
	if err != nil {
		return nil, apperr.Internal("load bookings", err)
	}

	in := Input{
		Date:        day.Start,
		Location:    loc,
		Now:         s.now(),
		SlotMinutes: s.slotMinutes,
	}
	for _, c := range courts {
		in.Courts = append(in.Courts, Court{
			ID:          c.ID,
			Name:        c.Name,
			OpenMinute:  int(c.OpenMinute),
			CloseMinute: int(c.CloseMinute),
			RatePerHour: pricing.Cents(c.PricePerHourCents),
		})
	}
	for _, b := range rows {
		in.Bookings = append(in.Bookings, Booking{
			CourtID: b.CourtID,
			Range:   timerange.Range{Start: b.StartTime, End: b.EndTime},
		})
	}

	return s.engine.Compute(in), nil
}

// FacilityLocation resolves the facility's IANA timezone. On error it returns
// UTC together with the error.
func FacilityLocation(f dbgen.Facility) (*time.Location, error) {
	if f.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load location %q: %w", f.Timezone, err)
	}
	return loc, nil
}
