package dbgen

import (
	"context"
	"time"
)

const inviteColumns = `id, booking_id, inviter_id, invitee_email, token, status, responder_id, expires_at, responded_at, created_at`

func (i *BookingInvite) scanTargets() []any {
	return []any{
		&i.ID,
		&i.BookingID,
		&i.InviterID,
		&i.InviteeEmail,
		&i.Token,
		&i.Status,
		&i.ResponderID,
		&i.ExpiresAt,
		&i.RespondedAt,
		&i.CreatedAt,
	}
}

const createBookingInvite = `-- name: CreateBookingInvite :one
INSERT INTO booking_invites (booking_id, inviter_id, invitee_email, token, status, expires_at, created_at)
VALUES (?, ?, ?, ?, 'PENDING', ?, ?)
RETURNING ` + inviteColumns

type CreateBookingInviteParams struct {
	BookingID    int64     `json:"booking_id"`
	InviterID    int64     `json:"inviter_id"`
	InviteeEmail string    `json:"invitee_email"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (q *Queries) CreateBookingInvite(ctx context.Context, arg CreateBookingInviteParams) (BookingInvite, error) {
	row := q.db.QueryRowContext(ctx, createBookingInvite,
		arg.BookingID,
		arg.InviterID,
		arg.InviteeEmail,
		arg.Token,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	var i BookingInvite
	err := row.Scan(i.scanTargets()...)
	return i, err
}

const getBookingInviteByToken = `-- name: GetBookingInviteByToken :one
SELECT ` + inviteColumns + `
FROM booking_invites
WHERE token = ?
`

func (q *Queries) GetBookingInviteByToken(ctx context.Context, token string) (BookingInvite, error) {
	row := q.db.QueryRowContext(ctx, getBookingInviteByToken, token)
	var i BookingInvite
	err := row.Scan(i.scanTargets()...)
	return i, err
}

const listBookingInvites = `-- name: ListBookingInvites :many
SELECT ` + inviteColumns + `
FROM booking_invites
WHERE booking_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListBookingInvites(ctx context.Context, bookingID int64) ([]BookingInvite, error) {
	rows, err := q.db.QueryContext(ctx, listBookingInvites, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BookingInvite{}
	for rows.Next() {
		var i BookingInvite
		if err := rows.Scan(i.scanTargets()...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const respondBookingInvite = `-- name: RespondBookingInvite :execrows
UPDATE booking_invites
SET status = ?, responder_id = ?, responded_at = ?
WHERE id = ? AND status = 'PENDING'
`

type RespondBookingInviteParams struct {
	Status      string    `json:"status"`
	ResponderID int64     `json:"responder_id"`
	RespondedAt time.Time `json:"responded_at"`
	ID          int64     `json:"id"`
}

// RespondBookingInvite returns 0 when the invite is no longer PENDING.
func (q *Queries) RespondBookingInvite(ctx context.Context, arg RespondBookingInviteParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, respondBookingInvite, arg.Status, arg.ResponderID, arg.RespondedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const expireBookingInvite = `-- name: ExpireBookingInvite :exec
UPDATE booking_invites
SET status = 'EXPIRED'
WHERE id = ? AND status = 'PENDING'
`

func (q *Queries) ExpireBookingInvite(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, expireBookingInvite, id)
	return err
}

const createBookingShareLink = `-- name: CreateBookingShareLink :exec
INSERT INTO booking_share_links (booking_id, slug, created_at)
VALUES (?, ?, ?)
ON CONFLICT (booking_id) DO NOTHING
`

type CreateBookingShareLinkParams struct {
	BookingID int64     `json:"booking_id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateBookingShareLink(ctx context.Context, arg CreateBookingShareLinkParams) error {
	_, err := q.db.ExecContext(ctx, createBookingShareLink, arg.BookingID, arg.Slug, arg.CreatedAt)
	return err
}

const getBookingShareLink = `-- name: GetBookingShareLink :one
SELECT id, booking_id, slug, created_at
FROM booking_share_links
WHERE booking_id = ?
`

func (q *Queries) GetBookingShareLink(ctx context.Context, bookingID int64) (BookingShareLink, error) {
	row := q.db.QueryRowContext(ctx, getBookingShareLink, bookingID)
	var i BookingShareLink
	err := row.Scan(
		&i.ID,
		&i.BookingID,
		&i.Slug,
		&i.CreatedAt,
	)
	return i, err
}

const getSharedBookingBySlug = `-- name: GetSharedBookingBySlug :one
SELECT b.id, b.court_id, b.user_id, b.start_time, b.end_time, b.status, b.price_cents, b.created_at, b.updated_at,
       c.name AS court_name, c.facility_id, f.owner_id, f.name AS facility_name
FROM booking_share_links l
JOIN bookings b ON b.id = l.booking_id
JOIN courts c ON c.id = b.court_id
JOIN facilities f ON f.id = c.facility_id
WHERE l.slug = ?
`

func (q *Queries) GetSharedBookingBySlug(ctx context.Context, slug string) (BookingDetailRow, error) {
	row := q.db.QueryRowContext(ctx, getSharedBookingBySlug, slug)
	var i BookingDetailRow
	err := row.Scan(i.scanTargets()...)
	return i, err
}
