package dbgen

import (
	"database/sql"
	"time"
)

type User struct {
	ID               int64          `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	Role             string         `json:"role"`
	Status           string         `json:"status"`
	LoyaltyPoints    int64          `json:"loyalty_points"`
	CurrentStreak    int64          `json:"current_streak"`
	LastActivityDate sql.NullString `json:"last_activity_date"`
	CreatedAt        time.Time      `json:"created_at"`
}

type Facility struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

type Court struct {
	ID                int64     `json:"id"`
	FacilityID        int64     `json:"facility_id"`
	Name              string    `json:"name"`
	PricePerHourCents int64     `json:"price_per_hour_cents"`
	OpenMinute        int64     `json:"open_minute"`
	CloseMinute       int64     `json:"close_minute"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Booking struct {
	ID         int64     `json:"id"`
	CourtID    int64     `json:"court_id"`
	UserID     int64     `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Payment struct {
	ID                int64          `json:"id"`
	BookingID         int64          `json:"booking_id"`
	AmountCents       int64          `json:"amount_cents"`
	Currency          string         `json:"currency"`
	Provider          string         `json:"provider"`
	ProviderRef       string         `json:"provider_ref"`
	ProviderPaymentID sql.NullString `json:"provider_payment_id"`
	Status            string         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type PointsLedger struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	Delta        int64          `json:"delta"`
	BalanceAfter int64          `json:"balance_after"`
	Source       string         `json:"source"`
	Reference    sql.NullString `json:"reference"`
	Meta         string         `json:"meta"`
	CreatedAt    time.Time      `json:"created_at"`
}

type WebhookEvent struct {
	ID         int64     `json:"id"`
	Provider   string    `json:"provider"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at"`
}

type BookingInvite struct {
	ID           int64         `json:"id"`
	BookingID    int64         `json:"booking_id"`
	InviterID    int64         `json:"inviter_id"`
	InviteeEmail string        `json:"invitee_email"`
	Token        string        `json:"token"`
	Status       string        `json:"status"`
	ResponderID  sql.NullInt64 `json:"responder_id"`
	ExpiresAt    time.Time     `json:"expires_at"`
	RespondedAt  sql.NullTime  `json:"responded_at"`
	CreatedAt    time.Time     `json:"created_at"`
}

type BookingShareLink struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
