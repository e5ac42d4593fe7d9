package dbgen

import (
	"context"
	"time"
)

const createCourt = `-- name: CreateCourt :one
INSERT INTO courts (facility_id, name, price_per_hour_cents, open_minute, close_minute, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, facility_id, name, price_per_hour_cents, open_minute, close_minute, created_at, updated_at
`

type CreateCourtParams struct {
	FacilityID        int64     `json:"facility_id"`
	Name              string    `json:"name"`
	PricePerHourCents int64     `json:"price_per_hour_cents"`
	OpenMinute        int64     `json:"open_minute"`
	CloseMinute       int64     `json:"close_minute"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt,
		arg.FacilityID,
		arg.Name,
		arg.PricePerHourCents,
		arg.OpenMinute,
		arg.CloseMinute,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var i Court
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.Name,
		&i.PricePerHourCents,
		&i.OpenMinute,
		&i.CloseMinute,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateCourt = `-- name: UpdateCourt :one
UPDATE courts
SET name = ?,
    price_per_hour_cents = ?,
    open_minute = ?,
    close_minute = ?,
    updated_at = ?
WHERE id = ?
RETURNING id, facility_id, name, price_per_hour_cents, open_minute, close_minute, created_at, updated_at
`

type UpdateCourtParams struct {
	Name              string    `json:"name"`
	PricePerHourCents int64     `json:"price_per_hour_cents"`
	OpenMinute        int64     `json:"open_minute"`
	CloseMinute       int64     `json:"close_minute"`
	UpdatedAt         time.Time `json:"updated_at"`
	ID                int64     `json:"id"`
}

func (q *Queries) UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, updateCourt,
		arg.Name,
		arg.PricePerHourCents,
		arg.OpenMinute,
		arg.CloseMinute,
		arg.UpdatedAt,
		arg.ID,
	)
	var i Court
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.Name,
		&i.PricePerHourCents,
		&i.OpenMinute,
		&i.CloseMinute,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCourtDetail = `-- name: GetCourtDetail :one
SELECT c.id, c.facility_id, c.name, c.price_per_hour_cents, c.open_minute, c.close_minute,
       f.owner_id, f.status AS facility_status, f.timezone
FROM courts c
JOIN facilities f ON f.id = c.facility_id
WHERE c.id = ?
`

type GetCourtDetailRow struct {
	ID                int64  `json:"id"`
	FacilityID        int64  `json:"facility_id"`
	Name              string `json:"name"`
	PricePerHourCents int64  `json:"price_per_hour_cents"`
	OpenMinute        int64  `json:"open_minute"`
	CloseMinute       int64  `json:"close_minute"`
	OwnerID           int64  `json:"owner_id"`
	FacilityStatus    string `json:"facility_status"`
	Timezone          string `json:"timezone"`
}

func (q *Queries) GetCourtDetail(ctx context.Context, id int64) (GetCourtDetailRow, error) {
	row := q.db.QueryRowContext(ctx, getCourtDetail, id)
	var i GetCourtDetailRow
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.Name,
		&i.PricePerHourCents,
		&i.OpenMinute,
		&i.CloseMinute,
		&i.OwnerID,
		&i.FacilityStatus,
		&i.Timezone,
	)
	return i, err
}

const listCourtsByFacility = `-- name: ListCourtsByFacility :many
SELECT id, facility_id, name, price_per_hour_cents, open_minute, close_minute, created_at, updated_at
FROM courts
WHERE facility_id = ?
ORDER BY name, id
`

func (q *Queries) ListCourtsByFacility(ctx context.Context, facilityID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourtsByFacility, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Court{}
	for rows.Next() {
		var i Court
		if err := rows.Scan(
			&i.ID,
			&i.FacilityID,
			&i.Name,
			&i.PricePerHourCents,
			&i.OpenMinute,
			&i.CloseMinute,
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
