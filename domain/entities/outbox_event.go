package entities

import "time"

// OutboxEventType names a durable handoff written inside a business transaction
type OutboxEventType string

const (
	// OutboxRoundFilled hands a freshly filled round to the draw worker
	OutboxRoundFilled OutboxEventType = "round_filled"
)

// OutboxEvent is a pending handoff consumed by a background worker
type OutboxEvent struct {
	ID          int64           `db:"id"`
	EventType   OutboxEventType `db:"event_type"`
	AggregateID string          `db:"aggregate_id"`
	Payload     []byte          `db:"payload"`
	AvailableAt time.Time       `db:"available_at"`
	Attempts    int             `db:"attempts"`
	LastError   *string         `db:"last_error"`
	ProcessedAt *time.Time      `db:"processed_at"`
	CreatedAt   time.Time       `db:"created_at"`
}
