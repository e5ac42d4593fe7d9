package dbgen

import (
	"context"
	"time"
)

const bookingColumns = `id, court_id, user_id, start_time, end_time, status, price_cents, created_at, updated_at`

const createBooking = `-- name: CreateBooking :one
INSERT INTO bookings (court_id, user_id, start_time, end_time, status, price_cents, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + bookingColumns

type CreateBookingParams struct {
	CourtID    int64     `json:"court_id"`
	UserID     int64     `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, createBooking,
		arg.CourtID,
		arg.UserID,
		arg.StartTime,
		arg.EndTime,
		arg.Status,
		arg.PriceCents,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.CourtID,
		&i.UserID,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.PriceCents,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getBooking = `-- name: GetBooking :one
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBooking, id)
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.CourtID,
		&i.UserID,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.PriceCents,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getBookingDetail = `-- name: GetBookingDetail :one
SELECT b.id, b.court_id, b.user_id, b.start_time, b.end_time, b.status, b.price_cents, b.created_at, b.updated_at,
       c.name AS court_name, c.facility_id, f.owner_id, f.name AS facility_name
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN facilities f ON f.id = c.facility_id
WHERE b.id = ?
`

type BookingDetailRow struct {
	ID           int64     `json:"id"`
	CourtID      int64     `json:"court_id"`
	UserID       int64     `json:"user_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CourtName    string    `json:"court_name"`
	FacilityID   int64     `json:"facility_id"`
	OwnerID      int64     `json:"owner_id"`
	FacilityName string    `json:"facility_name"`
}

func (r *BookingDetailRow) scanTargets() []interface{} {
	return []interface{}{
		&r.ID,
		&r.CourtID,
		&r.UserID,
		&r.StartTime,
		&r.EndTime,
		&r.Status,
		&r.PriceCents,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.CourtName,
		&r.FacilityID,
		&r.OwnerID,
		&r.FacilityName,
	}
}

func (q *Queries) GetBookingDetail(ctx context.Context, id int64) (BookingDetailRow, error) {
	row := q.db.QueryRowContext(ctx, getBookingDetail, id)
	var i BookingDetailRow
	err := row.Scan(i.scanTargets()...)
	return i, err
}

const countOverlappingBookings = `-- name: CountOverlappingBookings :one
SELECT COUNT(*)
FROM bookings
WHERE court_id = ?
  AND status IN ('PENDING', 'CONFIRMED')
  AND start_time < ?
  AND end_time > ?
`

type CountOverlappingBookingsParams struct {
	CourtID   int64     `json:"court_id"`
	EndTime   time.Time `json:"end_time"`
	StartTime time.Time `json:"start_time"`
}

func (q *Queries) CountOverlappingBookings(ctx context.Context, arg CountOverlappingBookingsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countOverlappingBookings, arg.CourtID, arg.EndTime, arg.StartTime)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listActiveBookingsForFacility = `-- name: ListActiveBookingsForFacility :many
SELECT b.id, b.court_id, b.user_id, b.start_time, b.end_time, b.status, b.price_cents, b.created_at, b.updated_at
FROM bookings b
JOIN courts c ON c.id = b.court_id
WHERE c.facility_id = ?
  AND b.status IN ('PENDING', 'CONFIRMED')
  AND b.start_time < ?
  AND b.end_time > ?
ORDER BY b.court_id, b.start_time
`

type ListActiveBookingsForFacilityParams struct {
	FacilityID  int64     `json:"facility_id"`
	WindowEnd   time.Time `json:"window_end"`
	WindowStart time.Time `json:"window_start"`
}

func (q *Queries) ListActiveBookingsForFacility(ctx context.Context, arg ListActiveBookingsForFacilityParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listActiveBookingsForFacility, arg.FacilityID, arg.WindowEnd, arg.WindowStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Booking{}
	for rows.Next() {
		var i Booking
		if err := rows.Scan(
			&i.ID,
			&i.CourtID,
			&i.UserID,
			&i.StartTime,
			&i.EndTime,
			&i.Status,
			&i.PriceCents,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
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

const updateBookingStatus = `-- name: UpdateBookingStatus :execrows
UPDATE bookings
SET status = ?,
    updated_at = ?
WHERE id = ?
  AND status = ?
`

type UpdateBookingStatusParams struct {
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
}

func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBookingStatus, arg.Status, arg.UpdatedAt, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteBooking = `-- name: DeleteBooking :execrows
DELETE FROM bookings
WHERE id = ?
`

func (q *Queries) DeleteBooking(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBooking, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listBookingsByUser = `-- name: ListBookingsByUser :many
SELECT b.id, b.court_id, b.user_id, b.start_time, b.end_time, b.status, b.price_cents, b.created_at, b.updated_at,
       c.name AS court_name, c.facility_id, f.owner_id, f.name AS facility_name
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN facilities f ON f.id = c.facility_id
WHERE b.user_id = ?
ORDER BY b.start_time DESC, b.id DESC
LIMIT ?
`

type ListBookingsByUserParams struct {
	UserID int64 `json:"user_id"`
	Limit  int64 `json:"limit"`
}

func (q *Queries) ListBookingsByUser(ctx context.Context, arg ListBookingsByUserParams) ([]BookingDetailRow, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BookingDetailRow{}
	for rows.Next() {
		var i BookingDetailRow
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

const listExpiredPendingBookings = `-- name: ListExpiredPendingBookings :many
SELECT b.id, b.court_id, b.user_id, b.start_time, b.end_time, b.status, b.price_cents, b.created_at, b.updated_at,
       c.name AS court_name, c.facility_id, f.owner_id, f.name AS facility_name
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN facilities f ON f.id = c.facility_id
WHERE b.status = 'PENDING'
  AND b.created_at < ?
ORDER BY b.created_at
LIMIT ?
`

type ListExpiredPendingBookingsParams struct {
	CreatedBefore time.Time `json:"created_before"`
	Limit         int64     `json:"limit"`
}

func (q *Queries) ListExpiredPendingBookings(ctx context.Context, arg ListExpiredPendingBookingsParams) ([]BookingDetailRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredPendingBookings, arg.CreatedBefore, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []BookingDetailRow{}
	for rows.Next() {
		var i BookingDetailRow
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

const getOwnerBookingStats = `-- name: GetOwnerBookingStats :one
SELECT
    COUNT(b.id) AS total_bookings,
    COALESCE(SUM(CASE WHEN b.status = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending_bookings,
    COALESCE(SUM(CASE WHEN b.status = 'CONFIRMED' AND b.end_time > ? THEN 1 ELSE 0 END), 0) AS upcoming_bookings,
    COALESCE(SUM(CASE WHEN b.status = 'COMPLETED' OR (b.status = 'CONFIRMED' AND b.end_time <= ?) THEN 1 ELSE 0 END), 0) AS completed_bookings,
    COALESCE(SUM(CASE WHEN b.status = 'CANCELLED' THEN 1 ELSE 0 END), 0) AS cancelled_bookings,
    COALESCE(SUM(CASE WHEN p.status = 'SUCCEEDED' THEN p.amount_cents ELSE 0 END), 0) AS succeeded_cents,
    COALESCE(SUM(CASE WHEN p.status = 'REFUNDED' THEN p.amount_cents ELSE 0 END), 0) AS refunded_cents
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN facilities f ON f.id = c.facility_id
LEFT JOIN payments p ON p.booking_id = b.id
WHERE f.owner_id = ?
`

type GetOwnerBookingStatsParams struct {
	Now     time.Time `json:"now"`
	OwnerID int64     `json:"owner_id"`
}

type GetOwnerBookingStatsRow struct {
	TotalBookings     int64 `json:"total_bookings"`
	PendingBookings   int64 `json:"pending_bookings"`
	UpcomingBookings  int64 `json:"upcoming_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	CancelledBookings int64 `json:"cancelled_bookings"`
	SucceededCents    int64 `json:"succeeded_cents"`
	RefundedCents     int64 `json:"refunded_cents"`
}

func (q *Queries) GetOwnerBookingStats(ctx context.Context, arg GetOwnerBookingStatsParams) (GetOwnerBookingStatsRow, error) {
	row := q.db.QueryRowContext(ctx, getOwnerBookingStats, arg.Now, arg.Now, arg.OwnerID)
	var i GetOwnerBookingStatsRow
	err := row.Scan(
		&i.TotalBookings,
		&i.PendingBookings,
		&i.UpcomingBookings,
		&i.CompletedBookings,
		&i.CancelledBookings,
		&i.SucceededCents,
		&i.RefundedCents,
	)
	return i, err
}
