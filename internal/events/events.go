// Package events publishes booking lifecycle events to room-scoped subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	TopicBookingNew       = "booking:new"
	TopicBookingConfirmed = "booking:confirmed"
	TopicBookingCancelled = "booking:cancelled"
)

func UserRoom(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func OwnerRoom(ownerID int64) string {
	return fmt.Sprintf("owner:%d", ownerID)
}

type BookingPayload struct {
	BookingID  int64     `json:"bookingId"`
	CourtID    int64     `json:"courtId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	FacilityID int64     `json:"facilityId"`
}

type Envelope struct {
	Topic      string         `json:"topic"`
	Room       string         `json:"room"`
	Payload    BookingPayload `json:"payload"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Fanout delivers each envelope to every publisher. Failures are logged and
// never reported to the caller.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Add(p Publisher) {
	f.publishers = append(f.publishers, p)
}

func (f *Fanout) Publish(ctx context.Context, env Envelope) error {
	for _, p := range f.publishers {
		if err := p.Publish(ctx, env); err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Str("topic", env.Topic).
				Str("room", env.Room).
				Int64("booking_id", env.Payload.BookingID).
				Str("publisher", fmt.Sprintf("%T", p)).
				Msg("Failed to publish booking event")
		}
	}
	return nil
}

// Close closes every publisher that holds a connection.
func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DefaultHistoryLimit is how many envelopes NewMemoryBus keeps for Published.
const DefaultHistoryLimit = 256

// MemoryBus delivers envelopes synchronously to in-process handlers and keeps
// the most recent envelopes up to its history limit.
type MemoryBus struct {
	mu           sync.RWMutex
	handlers     []func(context.Context, Envelope)
	history      []Envelope
	historyLimit int
}

func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithHistory(DefaultHistoryLimit)
}

// NewMemoryBusWithHistory returns a bus retaining at most limit envelopes.
// A limit of zero retains nothing.
func NewMemoryBusWithHistory(limit int) *MemoryBus {
	if limit < 0 {
		limit = 0
	}
	return &MemoryBus{historyLimit: limit}
}

func (b *MemoryBus) Subscribe(handler func(context.Context, Envelope)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	b.mu.Lock()
	if b.historyLimit > 0 {
		if len(b.history) >= b.historyLimit {
			n := copy(b.history, b.history[len(b.history)-b.historyLimit+1:])
			b.history = b.history[:n]
		}
		b.history = append(b.history, env)
	}
	handlers := append([]func(context.Context, Envelope){}, b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, env)
	}
	return nil
}

// Published returns a copy of the retained envelopes, oldest first.
func (b *MemoryBus) Published() []Envelope {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Envelope(nil), b.history...)
}
