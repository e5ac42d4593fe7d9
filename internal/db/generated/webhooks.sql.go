package dbgen

import (
	"context"
	"time"
)

const recordWebhookEvent = `-- name: RecordWebhookEvent :execrows
INSERT INTO webhook_events (provider, event_id, event_type, received_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (provider, event_id) DO NOTHING
`

type RecordWebhookEventParams struct {
	Provider   string    `json:"provider"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at"`
}

// RecordWebhookEvent returns 0 when the event was already recorded.
func (q *Queries) RecordWebhookEvent(ctx context.Context, arg RecordWebhookEventParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, recordWebhookEvent, arg.Provider, arg.EventID, arg.EventType, arg.ReceivedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
