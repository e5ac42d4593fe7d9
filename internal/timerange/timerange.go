// Package timerange implements half-open time interval arithmetic used by
// availability and booking.
package timerange

import (
	"errors"
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrEmptyRange = errors.New("end must be after start")

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Range, error) {
	if !end.After(start) {
		return Range{}, ErrEmptyRange
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether r and other share any instant.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether t lies inside r.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Clip returns the part of r inside bounds. ok is false when they do not overlap.
func (r Range) Clip(bounds Range) (Range, bool) {
	if !r.Overlaps(bounds) {
		return Range{}, false
	}
	clipped := r
	if clipped.Start.Before(bounds.Start) {
		clipped.Start = bounds.Start
	}
	if clipped.End.After(bounds.End) {
		clipped.End = bounds.End
	}
	return clipped, true
}

// DayBounds returns midnight-to-midnight of the calendar date in loc. The
// range is built from wall-clock dates so it is 23 or 25 hours long on DST
// transition days.
func DayBounds(date time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: end}
}

// AtMinute returns the instant minute minutes after midnight of the date in loc,
// using wall-clock construction.
func AtMinute(date time.Time, loc *time.Location, minute int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, loc)
}

// MinuteSlot is a slot expressed in minutes from midnight.
type MinuteSlot struct {
	Start int
	End   int
}

// Slots splits [open, close) into consecutive step-minute slots. A trailing
// slot shorter than step is dropped.
func Slots(open, close, step int) []MinuteSlot {
	if step <= 0 || open < 0 || close > MinutesPerDay || close <= open {
		return nil
	}
	slots := make([]MinuteSlot, 0, (close-open)/step)
	for start := open; start+step <= close; start += step {
		slots = append(slots, MinuteSlot{Start: start, End: start + step})
	}
	return slots
}

// FormatMinutes renders minutes from midnight as HH:mm.
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidMinuteOfDay reports whether m is within 0..1439.
func ValidMinuteOfDay(m int) bool {
	return m >= 0 && m < MinutesPerDay
}
