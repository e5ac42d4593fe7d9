// Package pricing computes reservation prices and loyalty awards using
// fixed-point integer cents.
package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const msPerHour = int64(time.Hour / time.Millisecond)

// Cents is an amount of money in the smallest currency unit.
type Cents int64

// String renders c as a plain decimal with two places, e.g. "12.50".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes c as a JSON number with two decimal places.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := ParseCents(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCents parses a decimal amount with at most two fractional digits.
func ParseCents(raw string) (Cents, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("amount is required")
	}
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	fraction, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	total := units*100 + fraction
	if negative {
		total = -total
	}
	return Cents(total), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Price returns duration × ratePerHour rounded half-up to the cent.
// Sub-millisecond precision is ignored.
func Price(duration time.Duration, ratePerHour Cents) Cents {
	if duration <= 0 || ratePerHour <= 0 {
		return 0
	}
	ms := duration.Milliseconds()
	return Cents((ms*int64(ratePerHour) + msPerHour/2) / msPerHour)
}

// Points returns the loyalty award for a booking of the given duration:
// round(hours × perHour), never less than 1.
func Points(duration time.Duration, perHour int64) int64 {
	if perHour <= 0 {
		return 1
	}
	ms := duration.Milliseconds()
	points := (ms*perHour + msPerHour/2) / msPerHour
	if points < 1 {
		return 1
	}
	return points
}
