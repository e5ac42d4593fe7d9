package timerange

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestOverlapsHalfOpen(t *testing.T) {
	base := Range{Start: at(10, 0), End: at(11, 0)}

	cases := []struct {
		name  string
		other Range
		want  bool
	}{
		{"identical", Range{Start: at(10, 0), End: at(11, 0)}, true},
		{"touching end", Range{Start: at(11, 0), End: at(12, 0)}, false},
		{"touching start", Range{Start: at(9, 0), End: at(10, 0)}, false},
		{"inside", Range{Start: at(10, 15), End: at(10, 45)}, true},
		{"spanning", Range{Start: at(9, 0), End: at(12, 0)}, true},
		{"partial tail", Range{Start: at(10, 59), End: at(11, 30)}, true},
	}
	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Errorf("%s: overlaps=%v want %v", tc.name, got, tc.want)
		}
		if got := tc.other.Overlaps(base); got != tc.want {
			t.Errorf("%s (reversed): overlaps=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewRejectsEmptyRange(t *testing.T) {
	if _, err := New(at(10, 0), at(10, 0)); err != ErrEmptyRange {
		t.Fatalf("expected ErrEmptyRange, got %v", err)
	}
	if _, err := New(at(11, 0), at(10, 0)); err != ErrEmptyRange {
		t.Fatalf("expected ErrEmptyRange, got %v", err)
	}
}

func TestSlotsDropsPartialTrailingSlot(t *testing.T) {
	slots := Slots(540, 1290, 60)
	if len(slots) != 12 {
		t.Fatalf("slots: %d", len(slots))
	}
	last := slots[len(slots)-1]
	if last.Start != 1200 || last.End != 1260 {
		t.Fatalf("last slot: %+v", last)
	}
}

func TestSlotsEmptyWhenClosed(t *testing.T) {
	if slots := Slots(600, 600, 60); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
	if slots := Slots(600, 630, 60); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestClipToDay(t *testing.T) {
	day := DayBounds(at(0, 0), time.UTC)
	overnight := Range{Start: at(23, 0), End: at(23, 0).Add(2 * time.Hour)}

	clipped, ok := overnight.Clip(day)
	if !ok {
		t.Fatalf("expected overlap")
	}
	if !clipped.End.Equal(day.End) {
		t.Fatalf("clipped end: %v", clipped.End)
	}
	if !overnight.End.Equal(at(23, 0).Add(2 * time.Hour)) {
		t.Fatalf("source range mutated")
	}
}

func TestDayBoundsAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	day := DayBounds(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), loc)
	if day.Duration() != 23*time.Hour {
		t.Fatalf("spring-forward day length: %v", day.Duration())
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := FormatMinutes(545); got != "09:05" {
		t.Fatalf("format: %s", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Fatalf("format: %s", got)
	}
}
