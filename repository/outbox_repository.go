package repository

import (
	"context"
	"fmt"
	"time"

	"drawpool/database"
	"drawpool/domain/entities"
)

// OutboxRepository stores handoffs written inside business transactions and
// consumed by background workers
type OutboxRepository struct {
	q Queryable
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *database.DB) *OutboxRepository {
	return &OutboxRepository{q: db.Pool}
}

func newOutboxRepositoryWithTx(tx Queryable) *OutboxRepository {
	return &OutboxRepository{q: tx}
}

// Enqueue inserts a pending event
func (r *OutboxRepository) Enqueue(ctx context.Context, event *entities.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (event_type, aggregate_id, payload, available_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		event.EventType,
		event.AggregateID,
		event.Payload,
		event.AvailableAt,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s for %s: %w", event.EventType, event.AggregateID, err)
	}
	return nil
}

// ClaimDue locks up to limit due events. Rows already locked by another worker are
// skipped, so concurrent workers never receive the same event.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, available_at, attempts, last_error, processed_at, created_at
		FROM outbox_events
		WHERE processed_at IS NULL AND available_at <= $1
		ORDER BY available_at ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due outbox events: %w", err)
	}
	defer rows.Close()

	var events []*entities.OutboxEvent
	for rows.Next() {
		var event entities.OutboxEvent
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.AggregateID,
			&event.Payload,
			&event.AvailableAt,
			&event.Attempts,
			&event.LastError,
			&event.ProcessedAt,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// MarkProcessed marks an event done
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64, now time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE outbox_events SET processed_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d processed: %w", id, err)
	}
	return nil
}

// MarkFailed records a failure and pushes the event back to retryAt
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string, retryAt time.Time) error {
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $2, available_at = $3
		WHERE id = $1
	`
	_, err := r.q.Exec(ctx, query, id, errMsg, retryAt)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d failed: %w", id, err)
	}
	return nil
}
