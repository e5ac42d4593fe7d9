// Package loyalty maintains the per-user points ledger and activity streaks.
package loyalty

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/apperr"
	appdb "github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
)

const (
	SourceBooking    = "BOOKING"
	SourceAdjustment = "ADMIN_ADJUSTMENT"

	dateLayout      = "2006-01-02"
	maxLedgerLimit  = 200
	defaultLedgerSz = 50
)

type Entry struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	Delta        int64           `json:"delta"`
	BalanceAfter int64           `json:"balanceAfter"`
	Source       string          `json:"source"`
	Reference    string          `json:"reference,omitempty"`
	Meta         json.RawMessage `json:"meta"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Balance struct {
	UserID           int64  `json:"userId"`
	Points           int64  `json:"points"`
	CurrentStreak    int64  `json:"currentStreak"`
	LastActivityDate string `json:"lastActivityDate,omitempty"`
}

type Service struct {
	db  *appdb.DB
	loc *time.Location
	now func() time.Time
}

// NewService builds a ledger whose streak calendar days are taken in loc.
func NewService(database *appdb.DB, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: database, loc: loc, now: now}
}

// AddPoints applies delta to the user's balance and appends a ledger entry
// holding the new balance, in one transaction. A zero delta is a no-op. When
// reference is set, a second award with the same source and reference is a
// no-op too; applied reports whether anything was written.
func (s *Service) AddPoints(ctx context.Context, userID, delta int64, source, reference string, meta map[string]any) (entry Entry, applied bool, err error) {
	if delta == 0 {
		return Entry{}, false, nil
	}
	if source == "" {
		return Entry{}, false, apperr.Validation("source is required")
	}

	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		entry, applied, err = s.addPointsTx(ctx, txdb.Queries, userID, delta, source, reference, meta)
		return err
	})
	if errors.Is(err, errDuplicateReference) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if applied {
		log.Ctx(ctx).Info().
			Int64("user_id", userID).
			Int64("delta", delta).
			Int64("balance_after", entry.BalanceAfter).
			Str("source", source).
			Msg("Points ledger updated")
	}
	return entry, applied, nil
}

func (s *Service) addPointsTx(ctx context.Context, q *dbgen.Queries, userID, delta int64, source, reference string, meta map[string]any) (Entry, bool, error) {
	ref := sql.NullString{String: reference, Valid: reference != ""}
	if ref.Valid {
		exists, err := q.LedgerReferenceExists(ctx, dbgen.LedgerReferenceExistsParams{Source: source, Reference: reference})
		if err != nil {
			return Entry{}, false, apperr.Internal("check ledger reference", err)
		}
		if exists {
			return Entry{}, false, nil
		}
	}

	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return Entry{}, false, apperr.Validation("meta must be JSON encodable")
	}

	balance, err := q.AddLoyaltyPoints(ctx, dbgen.AddLoyaltyPointsParams{Delta: delta, ID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, apperr.NotFound("User not found")
		}
		return Entry{}, false, apperr.Internal("update balance", err)
	}

	row, err := q.InsertLedgerEntry(ctx, dbgen.InsertLedgerEntryParams{
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: balance,
		Source:       source,
		Reference:    ref,
		Meta:         string(metaJSON),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	})
	if err != nil {
		if appdb.IsUniqueViolation(err) {
			// Lost a race on the same reference; the caller's tx rolls back the balance update.
			return Entry{}, false, errDuplicateReference
		}
		return Entry{}, false, apperr.Internal("append ledger entry", err)
	}
	return toEntry(row), true, nil
}

var errDuplicateReference = errors.New("duplicate ledger reference")

// RecordActivity updates the user's streak for activity at the given instant.
// Same calendar day is a no-op, the next day extends the streak and any larger
// gap (or no prior activity) resets it to 1.
func (s *Service) RecordActivity(ctx context.Context, userID int64, at time.Time) (int64, error) {
	var streak int64
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries
		user, err := q.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("User not found")
			}
			return apperr.Internal("load user", err)
		}

		today := at.In(s.loc)
		todayKey := today.Format(dateLayout)
		streak = nextStreak(user.CurrentStreak, user.LastActivityDate, today, s.loc)
		if user.LastActivityDate.Valid && user.LastActivityDate.String == todayKey {
			return nil
		}

		return q.UpdateUserStreak(ctx, dbgen.UpdateUserStreakParams{
			CurrentStreak:    streak,
			LastActivityDate: sql.NullString{String: todayKey, Valid: true},
			ID:               userID,
		})
	})
	if err != nil {
		return 0, err
	}
	return streak, nil
}

func nextStreak(current int64, last sql.NullString, today time.Time, loc *time.Location) int64 {
	if !last.Valid || last.String == "" {
		return 1
	}
	lastDay, err := time.ParseInLocation(dateLayout, last.String, loc)
	if err != nil {
		return 1
	}
	y, m, d := today.Date()
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch {
	case lastDay.Equal(todayStart):
		return current
	case lastDay.AddDate(0, 0, 1).Equal(todayStart):
		return current + 1
	default:
		return 1
	}
}

func (s *Service) Balance(ctx context.Context, userID int64) (Balance, error) {
	user, err := s.db.Queries.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, apperr.NotFound("User not found")
		}
		return Balance{}, apperr.Internal("load user", err)
	}
	return Balance{
		UserID:           user.ID,
		Points:           user.LoyaltyPoints,
		CurrentStreak:    user.CurrentStreak,
		LastActivityDate: user.LastActivityDate.String,
	}, nil
}

// Ledger returns the newest entries first.
func (s *Service) Ledger(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLedgerSz
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	rows, err := s.db.Queries.ListLedgerEntries(ctx, dbgen.ListLedgerEntriesParams{UserID: userID, Limit: int64(limit)})
	if err != nil {
		return nil, apperr.Internal("list ledger", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toEntry(row))
	}
	return entries, nil
}

// Verify checks that the stored balance equals the ledger sum and the newest
// entry's snapshot.
func (s *Service) Verify(ctx context.Context, userID int64) error {
	q := s.db.Queries
	user, err := q.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	sum, err := q.SumLedgerDeltas(ctx, userID)
	if err != nil {
		return fmt.Errorf("sum ledger: %w", err)
	}
	if sum != user.LoyaltyPoints {
		return fmt.Errorf("balance %d does not match ledger sum %d", user.LoyaltyPoints, sum)
	}
	latest, err := q.ListLedgerEntries(ctx, dbgen.ListLedgerEntriesParams{UserID: userID, Limit: 1})
	if err != nil {
		return fmt.Errorf("load latest entry: %w", err)
	}
	if len(latest) == 1 && latest[0].BalanceAfter != user.LoyaltyPoints {
		return fmt.Errorf("balance %d does not match latest snapshot %d", user.LoyaltyPoints, latest[0].BalanceAfter)
	}
	return nil
}

func toEntry(row dbgen.PointsLedger) Entry {
	meta := json.RawMessage(row.Meta)
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	return Entry{
		ID:           row.ID,
		UserID:       row.UserID,
		Delta:        row.Delta,
		BalanceAfter: row.BalanceAfter,
		Source:       row.Source,
		Reference:    row.Reference.String,
		Meta:         meta,
		CreatedAt:    row.CreatedAt,
	}
}
