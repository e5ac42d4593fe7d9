package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (booking_id, amount_cents, currency, provider, provider_ref, provider_payment_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, booking_id, amount_cents, currency, provider, provider_ref, provider_payment_id, status, created_at, updated_at
`

type CreatePaymentParams struct {
	BookingID         int64          `json:"booking_id"`
	AmountCents       int64          `json:"amount_cents"`
	Currency          string         `json:"currency"`
	Provider          string         `json:"provider"`
	ProviderRef       string         `json:"provider_ref"`
	ProviderPaymentID sql.NullString `json:"provider_payment_id"`
	Status            string         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, createPayment,
		arg.BookingID,
		arg.AmountCents,
		arg.Currency,
		arg.Provider,
		arg.ProviderRef,
		arg.ProviderPaymentID,
		arg.Status,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPayment(row)
}

const getPaymentByBooking = `-- name: GetPaymentByBooking :one
SELECT id, booking_id, amount_cents, currency, provider, provider_ref, provider_payment_id, status, created_at, updated_at
FROM payments
WHERE booking_id = ?
`

func (q *Queries) GetPaymentByBooking(ctx context.Context, bookingID int64) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentByBooking, bookingID)
	return scanPayment(row)
}

const getPaymentByProviderRef = `-- name: GetPaymentByProviderRef :one
SELECT id, booking_id, amount_cents, currency, provider, provider_ref, provider_payment_id, status, created_at, updated_at
FROM payments
WHERE provider = ?
  AND provider_ref = ?
`

type GetPaymentByProviderRefParams struct {
	Provider    string `json:"provider"`
	ProviderRef string `json:"provider_ref"`
}

func (q *Queries) GetPaymentByProviderRef(ctx context.Context, arg GetPaymentByProviderRefParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentByProviderRef, arg.Provider, arg.ProviderRef)
	return scanPayment(row)
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :execrows
UPDATE payments
SET status = ?,
    provider_payment_id = COALESCE(?, provider_payment_id),
    updated_at = ?
WHERE id = ?
  AND status = ?
`

type UpdatePaymentStatusParams struct {
	Status            string         `json:"status"`
	ProviderPaymentID sql.NullString `json:"provider_payment_id"`
	UpdatedAt         time.Time      `json:"updated_at"`
	ID                int64          `json:"id"`
	FromStatus        string         `json:"from_status"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePaymentStatus,
		arg.Status,
		arg.ProviderPaymentID,
		arg.UpdatedAt,
		arg.ID,
		arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const refundBookingPayments = `-- name: RefundBookingPayments :execrows
UPDATE payments
SET status = 'REFUNDED',
    updated_at = ?
WHERE booking_id = ?
  AND status IN ('PENDING', 'SUCCEEDED')
`

type RefundBookingPaymentsParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	BookingID int64     `json:"booking_id"`
}

func (q *Queries) RefundBookingPayments(ctx context.Context, arg RefundBookingPaymentsParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, refundBookingPayments, arg.UpdatedAt, arg.BookingID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanPayment(row *sql.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.BookingID,
		&i.AmountCents,
		&i.Currency,
		&i.Provider,
		&i.ProviderRef,
		&i.ProviderPaymentID,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
