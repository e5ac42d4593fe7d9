// Package booking owns the booking lifecycle: creation with the no-overlap
// guarantee, cancellation, deletion and the gateway-driven payment transitions.
package booking

import (
	"time"

	dbgen "github.com/codr1/courtbook/internal/db/generated"
	"github.com/codr1/courtbook/internal/pricing"
)

const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"

	PaymentModeDirect  = "direct"
	PaymentModeGateway = "gateway"

	facilityApproved = "APPROVED"
)

type Booking struct {
	ID           int64         `json:"id"`
	CourtID      int64         `json:"courtId"`
	UserID       int64         `json:"userId"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	Status       string        `json:"status"`
	Price        pricing.Cents `json:"price"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CourtName    string        `json:"courtName,omitempty"`
	FacilityID   int64         `json:"facilityId,omitempty"`
	FacilityName string        `json:"facilityName,omitempty"`

	ownerID int64
}

type Payment struct {
	ID                int64         `json:"id"`
	BookingID         int64         `json:"bookingId"`
	Amount            pricing.Cents `json:"amount"`
	Currency          string        `json:"currency"`
	Provider          string        `json:"provider"`
	ProviderRef       string        `json:"providerRef"`
	ProviderPaymentID string        `json:"providerPaymentId,omitempty"`
	Status            string        `json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// EffectiveStatus derives COMPLETED at read time: a CONFIRMED booking whose
// end is not after now is reported as COMPLETED. Stored rows are never
// rewritten for this.
func EffectiveStatus(status string, end, now time.Time) string {
	if status == StatusConfirmed && !end.After(now) {
		return StatusCompleted
	}
	return status
}

// storageTime normalizes instants before they reach SQLite. Stored times are
// compared as text, so every value must share the UTC second-precision form.
func storageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func fromRow(b dbgen.Booking, now time.Time) Booking {
	return Booking{
		ID:        b.ID,
		CourtID:   b.CourtID,
		UserID:    b.UserID,
		StartTime: b.StartTime.UTC(),
		EndTime:   b.EndTime.UTC(),
		Status:    EffectiveStatus(b.Status, b.EndTime, now),
		Price:     pricing.Cents(b.PriceCents),
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
}

func fromDetail(b dbgen.BookingDetailRow, now time.Time) Booking {
	out := fromRow(dbgen.Booking{
		ID:         b.ID,
		CourtID:    b.CourtID,
		UserID:     b.UserID,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     b.Status,
		PriceCents: b.PriceCents,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}, now)
	out.CourtName = b.CourtName
	out.FacilityID = b.FacilityID
	out.FacilityName = b.FacilityName
	out.ownerID = b.OwnerID
	return out
}

func paymentFromRow(p dbgen.Payment) Payment {
	return Payment{
		ID:                p.ID,
		BookingID:         p.BookingID,
		Amount:            pricing.Cents(p.AmountCents),
		Currency:          p.Currency,
		Provider:          p.Provider,
		ProviderRef:       p.ProviderRef,
		ProviderPaymentID: p.ProviderPaymentID.String,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}
