package email

import (
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Subject string
	Body    string
}

type BookingDetails struct {
	UserName     string
	FacilityName string
	CourtName    string
	Start        time.Time
	End          time.Time
}

// FormatDateTimeRange renders start and end in their own location.
func FormatDateTimeRange(start, end time.Time) (string, string) {
	date := start.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s %s", start.Format("3:04 PM"), end.Format("3:04 PM"), start.Format("MST"))
	return date, timeRange
}

func BuildConfirmation(details BookingDetails) Message {
	facility := fallback(details.FacilityName, "your facility")
	date, timeRange := FormatDateTimeRange(details.Start, details.End)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", fallback(details.UserName, "there"))
	fmt.Fprintf(&body, "Your booking at %s is confirmed.\n\n", facility)
	fmt.Fprintf(&body, "Court: %s\n", fallback(details.CourtName, "Court"))
	fmt.Fprintf(&body, "Date: %s\n", date)
	fmt.Fprintf(&body, "Time: %s\n", timeRange)
	body.WriteString("\nSee you on the court!\n")

	return Message{
		Subject: fmt.Sprintf("Booking confirmed at %s", facility),
		Body:    body.String(),
	}
}

func BuildCancellation(details BookingDetails) Message {
	facility := fallback(details.FacilityName, "your facility")
	date, timeRange := FormatDateTimeRange(details.Start, details.End)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", fallback(details.UserName, "there"))
	fmt.Fprintf(&body, "Your booking at %s has been cancelled.\n\n", facility)
	fmt.Fprintf(&body, "Court: %s\n", fallback(details.CourtName, "Court"))
	fmt.Fprintf(&body, "Date: %s\n", date)
	fmt.Fprintf(&body, "Time: %s\n", timeRange)
	body.WriteString("\nAny payment for this booking has been refunded.\n")

	return Message{
		Subject: fmt.Sprintf("Booking cancelled at %s", facility),
		Body:    body.String(),
	}
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
