package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/db"
	dbgen "github.com/codr1/courtbook/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// Fixture is a small facility with one owner, one court and one player.
type Fixture struct {
	Owner    dbgen.User
	Player   dbgen.User
	Admin    dbgen.User
	Facility dbgen.Facility
	Court    dbgen.Court
}

// FixtureOptions tweaks SeedFixture. Zero values mean an approved UTC facility
// with a 09:00-21:00 court at 500.00 per hour.
type FixtureOptions struct {
	FacilityStatus string
	Timezone       string
	OpenMinute     int64
	CloseMinute    int64
	RateCents      int64
}

// SeedFixture inserts an owner, player, admin, facility and court.
func SeedFixture(t *testing.T, database *db.DB, opts FixtureOptions) Fixture {
	t.Helper()
	ctx := context.Background()
	q := database.Queries

	if opts.FacilityStatus == "" {
		opts.FacilityStatus = "APPROVED"
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	if opts.CloseMinute == 0 {
		opts.OpenMinute, opts.CloseMinute = 540, 1260
	}
	if opts.RateCents == 0 {
		opts.RateCents = 50000
	}

	var f Fixture
	var err error
	if f.Owner, err = q.CreateUser(ctx, dbgen.CreateUserParams{Email: "owner@example.com", Name: "Olivia Owner", Role: "OWNER"}); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if f.Player, err = q.CreateUser(ctx, dbgen.CreateUserParams{Email: "player@example.com", Name: "Pat Player", Role: "USER"}); err != nil {
		t.Fatalf("create player: %v", err)
	}
	if f.Admin, err = q.CreateUser(ctx, dbgen.CreateUserParams{Email: "admin@example.com", Name: "Ada Admin", Role: "ADMIN"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if f.Facility, err = q.CreateFacility(ctx, dbgen.CreateFacilityParams{
		OwnerID:  f.Owner.ID,
		Name:     "Riverside Sports",
		Status:   opts.FacilityStatus,
		Timezone: opts.Timezone,
	}); err != nil {
		t.Fatalf("create facility: %v", err)
	}
	f.Court = SeedCourt(t, database, f.Facility.ID, "Court A", opts.OpenMinute, opts.CloseMinute, opts.RateCents)
	return f
}

// SeedCourt inserts a court on an existing facility.
func SeedCourt(t *testing.T, database *db.DB, facilityID int64, name string, open, close, rateCents int64) dbgen.Court {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	court, err := database.Queries.CreateCourt(context.Background(), dbgen.CreateCourtParams{
		FacilityID:        facilityID,
		Name:              name,
		PricePerHourCents: rateCents,
		OpenMinute:        open,
		CloseMinute:       close,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return court
}

// SeedUser inserts an extra user.
func SeedUser(t *testing.T, database *db.DB, email, role string) dbgen.User {
	t.Helper()
	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{Email: email, Name: email, Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
