package loyalty

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/testutil"
)

func TestAddPointsKeepsBalanceConsistent(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "p@example.com", "USER")
	svc := NewService(database, time.UTC, nil)
	ctx := context.Background()

	deltas := []int64{10, 25, -5, 0, 40, -12}
	var want int64
	for _, d := range deltas {
		if _, _, err := svc.AddPoints(ctx, user.ID, d, SourceAdjustment, "", nil); err != nil {
			t.Fatalf("AddPoints(%d): %v", d, err)
		}
		want += d
	}

	balance, err := svc.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Points != want {
		t.Fatalf("balance = %d, want %d", balance.Points, want)
	}

	entries, err := svc.Ledger(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	// Zero delta writes nothing.
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	if entries[0].BalanceAfter != want {
		t.Fatalf("latest balanceAfter = %d, want %d", entries[0].BalanceAfter, want)
	}
	if err := svc.Verify(ctx, user.ID); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestAddPointsConcurrentSameUser(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "p@example.com", "USER")
	svc := NewService(database, time.UTC, nil)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, _, err := svc.AddPoints(ctx, user.ID, 5, SourceAdjustment, "", nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddPoints: %v", err)
	}

	balance, err := svc.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Points != 100 {
		t.Fatalf("balance = %d, want 100", balance.Points)
	}
	if err := svc.Verify(ctx, user.ID); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestAddPointsIdempotentReference(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "p@example.com", "USER")
	svc := NewService(database, time.UTC, nil)
	ctx := context.Background()

	var mu sync.Mutex
	appliedCount := 0
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, applied, err := svc.AddPoints(ctx, user.ID, 10, SourceBooking, "booking:42", map[string]any{"bookingId": 42})
			if applied {
				mu.Lock()
				appliedCount++
				mu.Unlock()
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if appliedCount != 1 {
		t.Fatalf("applied %d times, want 1", appliedCount)
	}

	balance, err := svc.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Points != 10 {
		t.Fatalf("balance = %d, want 10", balance.Points)
	}
}

func TestAddPointsUnknownUser(t *testing.T) {
	database := testutil.NewTestDB(t)
	svc := NewService(database, time.UTC, nil)

	_, _, err := svc.AddPoints(context.Background(), 404, 5, SourceAdjustment, "", nil)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRecordActivityStreak(t *testing.T) {
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "p@example.com", "USER")
	svc := NewService(database, time.UTC, nil)
	ctx := context.Background()

	day1 := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	steps := []struct {
		at   time.Time
		want int64
	}{
		{day1, 1},
		{day1.Add(5 * time.Hour), 1},
		{day1.AddDate(0, 0, 1), 2},
		{day1.AddDate(0, 0, 2).Add(14 * time.Hour), 3},
		{day1.AddDate(0, 0, 5), 1},
		{day1.AddDate(0, 0, 6), 2},
	}
	for i, step := range steps {
		got, err := svc.RecordActivity(ctx, user.ID, step.at)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != step.want {
			t.Fatalf("step %d streak = %d, want %d", i, got, step.want)
		}
	}

	balance, err := svc.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.CurrentStreak != 2 || balance.LastActivityDate != "2030-01-07" {
		t.Fatalf("unexpected balance %+v", balance)
	}
}

func TestRecordActivityUsesCalendarLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	database := testutil.NewTestDB(t)
	user := testutil.SeedUser(t, database, "p@example.com", "USER")
	svc := NewService(database, loc, nil)
	ctx := context.Background()

	// 23:00 and 01:00 UTC are the same New York evening.
	if _, err := svc.RecordActivity(ctx, user.ID, time.Date(2030, 1, 1, 23, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("first activity: %v", err)
	}
	got, err := svc.RecordActivity(ctx, user.ID, time.Date(2030, 1, 2, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second activity: %v", err)
	}
	if got != 1 {
		t.Fatalf("streak = %d, want 1", got)
	}
}
