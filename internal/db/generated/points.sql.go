package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const insertLedgerEntry = `-- name: InsertLedgerEntry :one
INSERT INTO points_ledger (user_id, delta, balance_after, source, reference, meta, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, user_id, delta, balance_after, source, reference, meta, created_at
`

type InsertLedgerEntryParams struct {
	UserID       int64          `json:"user_id"`
	Delta        int64          `json:"delta"`
	BalanceAfter int64          `json:"balance_after"`
	Source       string         `json:"source"`
	Reference    sql.NullString `json:"reference"`
	Meta         string         `json:"meta"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) (PointsLedger, error) {
	row := q.db.QueryRowContext(ctx, insertLedgerEntry,
		arg.UserID,
		arg.Delta,
		arg.BalanceAfter,
		arg.Source,
		arg.Reference,
		arg.Meta,
		arg.CreatedAt,
	)
	var i PointsLedger
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Delta,
		&i.BalanceAfter,
		&i.Source,
		&i.Reference,
		&i.Meta,
		&i.CreatedAt,
	)
	return i, err
}

const ledgerReferenceExists = `-- name: LedgerReferenceExists :one
SELECT EXISTS (
    SELECT 1 FROM points_ledger
    WHERE source = ?
      AND reference = ?
)
`

type LedgerReferenceExistsParams struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

func (q *Queries) LedgerReferenceExists(ctx context.Context, arg LedgerReferenceExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, ledgerReferenceExists, arg.Source, arg.Reference)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listLedgerEntries = `-- name: ListLedgerEntries :many
SELECT id, user_id, delta, balance_after, source, reference, meta, created_at
FROM points_ledger
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?
`

type ListLedgerEntriesParams struct {
	UserID int64 `json:"user_id"`
	Limit  int64 `json:"limit"`
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]PointsLedger, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEntries, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PointsLedger{}
	for rows.Next() {
		var i PointsLedger
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Delta,
			&i.BalanceAfter,
			&i.Source,
			&i.Reference,
			&i.Meta,
			&i.CreatedAt,
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

const sumLedgerDeltas = `-- name: SumLedgerDeltas :one
SELECT COALESCE(SUM(delta), 0)
FROM points_ledger
WHERE user_id = ?
`

func (q *Queries) SumLedgerDeltas(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumLedgerDeltas, userID)
	var total int64
	err := row.Scan(&total)
	return total, err
}
