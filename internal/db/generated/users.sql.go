package dbgen

import (
	"context"
	"database/sql"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, name, role)
VALUES (?, ?, ?)
RETURNING id, email, name, role, status, loyalty_points, current_streak, last_activity_date, created_at
`

type CreateUserParams struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Email, arg.Name, arg.Role)
	return scanUser(row)
}

const getUser = `-- name: GetUser :one
SELECT id, email, name, role, status, loyalty_points, current_streak, last_activity_date, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	return scanUser(row)
}

const addLoyaltyPoints = `-- name: AddLoyaltyPoints :one
UPDATE users
SET loyalty_points = loyalty_points + ?
WHERE id = ?
RETURNING loyalty_points
`

type AddLoyaltyPointsParams struct {
	Delta int64 `json:"delta"`
	ID    int64 `json:"id"`
}

func (q *Queries) AddLoyaltyPoints(ctx context.Context, arg AddLoyaltyPointsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, addLoyaltyPoints, arg.Delta, arg.ID)
	var loyaltyPoints int64
	err := row.Scan(&loyaltyPoints)
	return loyaltyPoints, err
}

const updateUserStreak = `-- name: UpdateUserStreak :exec
UPDATE users
SET current_streak = ?,
    last_activity_date = ?
WHERE id = ?
`

type UpdateUserStreakParams struct {
	CurrentStreak    int64          `json:"current_streak"`
	LastActivityDate sql.NullString `json:"last_activity_date"`
	ID               int64          `json:"id"`
}

func (q *Queries) UpdateUserStreak(ctx context.Context, arg UpdateUserStreakParams) error {
	_, err := q.db.ExecContext(ctx, updateUserStreak, arg.CurrentStreak, arg.LastActivityDate, arg.ID)
	return err
}

func scanUser(row *sql.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Role,
		&i.Status,
		&i.LoyaltyPoints,
		&i.CurrentStreak,
		&i.LastActivityDate,
		&i.CreatedAt,
	)
	return i, err
}
