package booking

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
)

const (
	InviteStatusPending  = "PENDING"
	InviteStatusAccepted = "ACCEPTED"
	InviteStatusDeclined = "DECLINED"
	InviteStatusExpired  = "EXPIRED"

	InviteActionAccept  = "ACCEPT"
	InviteActionDecline = "DECLINE"

	InviteTTL      = 24 * time.Hour
	MaxInvitesSent = 10
)

type Invite struct {
	ID          int64      `json:"id"`
	BookingID   int64      `json:"bookingId"`
	InviterID   int64      `json:"inviterId"`
	Email       string     `json:"email"`
	Token       string     `json:"token"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SharedBooking is the public view behind a share link. It leaves out the
// booker and the price.
type SharedBooking struct {
	ID        int64          `json:"id"`
	CourtID   int64          `json:"courtId"`
	CourtName string         `json:"courtName"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Status    string         `json:"status"`
	Facility  SharedFacility `json:"facility"`
}

type SharedFacility struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func inviteFromRow(i dbgen.BookingInvite) Invite {
	out := Invite{
		ID:        i.ID,
		BookingID: i.BookingID,
		InviterID: i.InviterID,
		Email:     i.InviteeEmail,
		Token:     i.Token,
		Status:    i.Status,
		ExpiresAt: i.ExpiresAt.UTC(),
		CreatedAt: i.CreatedAt.UTC(),
	}
	if i.RespondedAt.Valid {
		at := i.RespondedAt.Time.UTC()
		out.RespondedAt = &at
	}
	return out
}

func randomToken(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// ownedBooking loads a booking the caller booked themselves.
func (s *Service) ownedBooking(ctx context.Context, caller *authz.AuthUser, bookingID int64) (dbgen.BookingDetailRow, error) {
	if caller == nil {
		return dbgen.BookingDetailRow{}, apperr.Unauthenticated("Authentication required")
	}
	detail, err := s.loadDetail(ctx, s.db.Queries, bookingID)
	if err != nil {
		return dbgen.BookingDetailRow{}, err
	}
	if detail.UserID != caller.ID {
		return dbgen.BookingDetailRow{}, apperr.Forbidden("Not owner of booking")
	}
	return detail, nil
}

// CreateInvites issues one invite per email for the caller's active booking.
// Each invite carries its own token and expires after InviteTTL.
func (s *Service) CreateInvites(ctx context.Context, caller *authz.AuthUser, bookingID int64, emails []string) ([]Invite, error) {
	if len(emails) == 0 || len(emails) > MaxInvitesSent {
		return nil, apperr.Validation("Between 1 and 10 emails are required")
	}
	detail, err := s.ownedBooking(ctx, caller, bookingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch EffectiveStatus(detail.Status, detail.EndTime, now) {
	case StatusPending, StatusConfirmed:
	default:
		return nil, apperr.InvalidState("Only upcoming bookings accept invites")
	}

	stamp := storageTime(now)
	created := make([]Invite, 0, len(emails))
	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		for _, email := range emails {
			row, err := txdb.Queries.CreateBookingInvite(ctx, dbgen.CreateBookingInviteParams{
				BookingID:    bookingID,
				InviterID:    caller.ID,
				InviteeEmail: strings.ToLower(strings.TrimSpace(email)),
				Token:        randomToken(32),
				ExpiresAt:    stamp.Add(InviteTTL),
				CreatedAt:    stamp,
			})
			if err != nil {
				return apperr.Internal("create invite", err)
			}
			created = append(created, inviteFromRow(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Int64("booking_id", bookingID).
		Int64("inviter_id", caller.ID).
		Int("count", len(created)).
		Msg("Booking invites created")
	return created, nil
}

// ListInvites returns the invites of the caller's booking, newest first.
func (s *Service) ListInvites(ctx context.Context, caller *authz.AuthUser, bookingID int64) ([]Invite, error) {
	if _, err := s.ownedBooking(ctx, caller, bookingID); err != nil {
		return nil, err
	}
	rows, err := s.db.Queries.ListBookingInvites(ctx, bookingID)
	if err != nil {
		return nil, apperr.Internal("list invites", err)
	}
	out := make([]Invite, 0, len(rows))
	for _, row := range rows {
		out = append(out, inviteFromRow(row))
	}
	return out, nil
}

// RespondInvite accepts or declines an invite by token. An invite past its
// expiry is marked EXPIRED and can no longer be answered.
func (s *Service) RespondInvite(ctx context.Context, caller *authz.AuthUser, token, action string) (Invite, error) {
	if caller == nil {
		return Invite{}, apperr.Unauthenticated("Authentication required")
	}
	var status string
	switch action {
	case InviteActionAccept:
		status = InviteStatusAccepted
	case InviteActionDecline:
		status = InviteStatusDeclined
	default:
		return Invite{}, apperr.Validation("action must be ACCEPT or DECLINE")
	}

	invite, err := s.db.Queries.GetBookingInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invite{}, apperr.NotFound("Invite not found")
		}
		return Invite{}, apperr.Internal("load invite", err)
	}

	now := s.now()
	if invite.Status == InviteStatusPending && invite.ExpiresAt.Before(now) {
		if err := s.db.Queries.ExpireBookingInvite(ctx, invite.ID); err != nil {
			return Invite{}, apperr.Internal("expire invite", err)
		}
		return Invite{}, apperr.InvalidState("Invite expired")
	}
	if invite.Status == InviteStatusExpired {
		return Invite{}, apperr.InvalidState("Invite expired")
	}

	stamp := storageTime(now)
	n, err := s.db.Queries.RespondBookingInvite(ctx, dbgen.RespondBookingInviteParams{
		Status:      status,
		ResponderID: caller.ID,
		RespondedAt: stamp,
		ID:          invite.ID,
	})
	if err != nil {
		return Invite{}, apperr.Internal("respond invite", err)
	}
	if n == 0 {
		return Invite{}, apperr.InvalidState("Invite already responded")
	}

	log.Ctx(ctx).Info().
		Int64("invite_id", invite.ID).
		Int64("booking_id", invite.BookingID).
		Int64("responder_id", caller.ID).
		Str("status", status).
		Msg("Booking invite answered")

	invite.Status = status
	invite.ResponderID = sql.NullInt64{Int64: caller.ID, Valid: true}
	invite.RespondedAt = sql.NullTime{Time: stamp, Valid: true}
	return inviteFromRow(invite), nil
}

// ShareLink returns the public slug for the caller's booking, creating it on
// first use. Repeated calls return the same slug.
func (s *Service) ShareLink(ctx context.Context, caller *authz.AuthUser, bookingID int64) (string, error) {
	if _, err := s.ownedBooking(ctx, caller, bookingID); err != nil {
		return "", err
	}
	err := s.db.Queries.CreateBookingShareLink(ctx, dbgen.CreateBookingShareLinkParams{
		BookingID: bookingID,
		Slug:      randomToken(12),
		CreatedAt: storageTime(s.now()),
	})
	if err != nil {
		return "", apperr.Internal("create share link", err)
	}
	link, err := s.db.Queries.GetBookingShareLink(ctx, bookingID)
	if err != nil {
		return "", apperr.Internal("load share link", err)
	}
	return link.Slug, nil
}

// Shared resolves a share slug without authentication.
func (s *Service) Shared(ctx context.Context, slug string) (SharedBooking, error) {
	row, err := s.db.Queries.GetSharedBookingBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SharedBooking{}, apperr.NotFound("Not found")
		}
		return SharedBooking{}, apperr.Internal("load shared booking", err)
	}
	return SharedBooking{
		ID:        row.ID,
		CourtID:   row.CourtID,
		CourtName: row.CourtName,
		StartTime: row.StartTime.UTC(),
		EndTime:   row.EndTime.UTC(),
		Status:    EffectiveStatus(row.Status, row.EndTime, s.now()),
		Facility:  SharedFacility{ID: row.FacilityID, Name: row.FacilityName},
	}, nil
}
