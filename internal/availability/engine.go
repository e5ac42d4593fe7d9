// Package availability computes bookable slots for a facility's courts on a
// calendar day.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/codr1/courtbook/internal/pricing"
	"github.com/codr1/courtbook/internal/timerange"
)

const DefaultSlotMinutes = 60

type Court struct {
	ID          int64
	Name        string
	OpenMinute  int
	CloseMinute int
	RatePerHour pricing.Cents
}

// Booking is an active (PENDING or CONFIRMED) reservation occupying a court.
type Booking struct {
	CourtID int64
	Range   timerange.Range
}

type Input struct {
	Courts []Court
	// Date is read as a calendar date; only its year, month and day matter.
	Date     time.Time
	Location *time.Location
	Now      time.Time
	// SlotMinutes defaults to DefaultSlotMinutes when zero.
	SlotMinutes int
	Bookings    []Booking
}

type Slot struct {
	ID          string        `json:"id"`
	StartTime   string        `json:"startTime"`
	EndTime     string        `json:"endTime"`
	Price       pricing.Cents `json:"price"`
	IsAvailable bool          `json:"isAvailable"`
	CourtID     int64         `json:"courtId"`
	CourtName   string        `json:"courtName"`

	StartMinute int `json:"-"`
	EndMinute   int `json:"-"`
}

// Engine is stateless; the zero value is ready to use.
type Engine struct{}

// Compute returns every slot of every court for the day. A slot is available
// when no booking overlaps it and it has not already ended at Now.
func (Engine) Compute(in Input) []Slot {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	step := in.SlotMinutes
	if step <= 0 {
		step = DefaultSlotMinutes
	}
	day := timerange.DayBounds(in.Date, loc)
	dateKey := day.Start.Format("2006-01-02")

	// Bookings are clipped to the day for the overlap test only.
	busy := make(map[int64][]timerange.Range, len(in.Courts))
	for _, b := range in.Bookings {
		clipped, ok := b.Range.Clip(day)
		if !ok {
			continue
		}
		busy[b.CourtID] = append(busy[b.CourtID], clipped)
	}

	var slots []Slot
	for _, court := range in.Courts {
		price := pricing.Price(time.Duration(step)*time.Minute, court.RatePerHour)
		for _, ms := range timerange.Slots(court.OpenMinute, court.CloseMinute, step) {
			window := timerange.Range{
				Start: timerange.AtMinute(day.Start, loc, ms.Start),
				End:   timerange.AtMinute(day.Start, loc, ms.End),
			}
			slots = append(slots, Slot{
				ID:          fmt.Sprintf("%d-%s-%d", court.ID, dateKey, ms.Start),
				StartTime:   timerange.FormatMinutes(ms.Start),
				EndTime:     timerange.FormatMinutes(ms.End),
				Price:       price,
				IsAvailable: window.End.After(in.Now) && !overlapsAny(window, busy[court.ID]),
				CourtID:     court.ID,
				CourtName:   court.Name,
				StartMinute: ms.Start,
				EndMinute:   ms.End,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.StartMinute != b.StartMinute {
			return a.StartMinute < b.StartMinute
		}
		if a.CourtName != b.CourtName {
			return a.CourtName < b.CourtName
		}
		return a.CourtID < b.CourtID
	})
	return slots
}

func overlapsAny(window timerange.Range, ranges []timerange.Range) bool {
	for _, r := range ranges {
		if window.Overlaps(r) {
			return true
		}
	}
	return false
}
