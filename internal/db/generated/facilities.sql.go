package dbgen

import (
	"context"
)

const createFacility = `-- name: CreateFacility :one
INSERT INTO facilities (owner_id, name, status, timezone)
VALUES (?, ?, ?, ?)
RETURNING id, owner_id, name, status, timezone, created_at
`

type CreateFacilityParams struct {
	OwnerID  int64  `json:"owner_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Timezone string `json:"timezone"`
}

func (q *Queries) CreateFacility(ctx context.Context, arg CreateFacilityParams) (Facility, error) {
	row := q.db.QueryRowContext(ctx, createFacility, arg.OwnerID, arg.Name, arg.Status, arg.Timezone)
	var i Facility
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.Status,
		&i.Timezone,
		&i.CreatedAt,
	)
	return i, err
}

const getFacility = `-- name: GetFacility :one
SELECT id, owner_id, name, status, timezone, created_at
FROM facilities
WHERE id = ?
`

func (q *Queries) GetFacility(ctx context.Context, id int64) (Facility, error) {
	row := q.db.QueryRowContext(ctx, getFacility, id)
	var i Facility
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.Status,
		&i.Timezone,
		&i.CreatedAt,
	)
	return i, err
}

const updateFacilityStatus = `-- name: UpdateFacilityStatus :exec
UPDATE facilities
SET status = ?
WHERE id = ?
`

type UpdateFacilityStatusParams struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

func (q *Queries) UpdateFacilityStatus(ctx context.Context, arg UpdateFacilityStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateFacilityStatus, arg.Status, arg.ID)
	return err
}
