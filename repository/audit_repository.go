package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"drawpool/database"
	"drawpool/domain/entities"
)

// DrawAuditRepository records one row per draw attempt
type DrawAuditRepository struct {
	q Queryable
}

// NewDrawAuditRepository creates a new draw audit repository
func NewDrawAuditRepository(db *database.DB) *DrawAuditRepository {
	return &DrawAuditRepository{q: db.Pool}
}

func newDrawAuditRepositoryWithTx(tx Queryable) *DrawAuditRepository {
	return &DrawAuditRepository{q: tx}
}

// Record appends a draw attempt
func (r *DrawAuditRepository) Record(ctx context.Context, record *entities.DrawAuditRecord) error {
	query := `
		INSERT INTO draw_audit (round_id, trigger_source, actor, reason, outcome, error)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.RoundID,
		record.Trigger,
		record.Actor,
		record.Reason,
		record.Outcome,
		record.Error,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record draw audit for round %s: %w", record.RoundID, err)
	}
	return nil
}

// ListByRound returns the draw attempts of a round, oldest first
func (r *DrawAuditRepository) ListByRound(ctx context.Context, roundID string) ([]*entities.DrawAuditRecord, error) {
	query := `
		SELECT id, round_id, trigger_source, COALESCE(actor, ''), COALESCE(reason, ''),
		       outcome, COALESCE(error, ''), created_at
		FROM draw_audit
		WHERE round_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw audit of round %s: %w", roundID, err)
	}
	defer rows.Close()

	var records []*entities.DrawAuditRecord
	for rows.Next() {
		var record entities.DrawAuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.RoundID,
			&record.Trigger,
			&record.Actor,
			&record.Reason,
			&record.Outcome,
			&record.Error,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan draw audit: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// CorrectionAuditRepository records before/after values of corrective writes
type CorrectionAuditRepository struct {
	q Queryable
}

// NewCorrectionAuditRepository creates a new correction audit repository
func NewCorrectionAuditRepository(db *database.DB) *CorrectionAuditRepository {
	return &CorrectionAuditRepository{q: db.Pool}
}

func newCorrectionAuditRepositoryWithTx(tx Queryable) *CorrectionAuditRepository {
	return &CorrectionAuditRepository{q: tx}
}

// Record appends a correction
func (r *CorrectionAuditRepository) Record(ctx context.Context, record *entities.CorrectionRecord) error {
	query := `
		INSERT INTO correction_audit (target_type, target_id, field, old_value, new_value, operator_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.TargetType,
		record.TargetID,
		record.Field,
		record.OldValue,
		record.NewValue,
		record.OperatorID,
		record.Reason,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record correction of %s %s: %w", record.TargetType, record.TargetID, err)
	}
	return nil
}

// ListByTarget returns the corrections applied to one record, oldest first
func (r *CorrectionAuditRepository) ListByTarget(ctx context.Context, targetType entities.CorrectionTarget, targetID string) ([]*entities.CorrectionRecord, error) {
	query := `
		SELECT id, target_type, target_id, field, COALESCE(old_value, ''), COALESCE(new_value, ''),
		       operator_id, reason, created_at
		FROM correction_audit
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections of %s %s: %w", targetType, targetID, err)
	}
	defer rows.Close()

	var records []*entities.CorrectionRecord
	for rows.Next() {
		var record entities.CorrectionRecord
		if err := rows.Scan(
			&record.ID,
			&record.TargetType,
			&record.TargetID,
			&record.Field,
			&record.OldValue,
			&record.NewValue,
			&record.OperatorID,
			&record.Reason,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// RoundAuditRepository records administrative lifecycle actions
type RoundAuditRepository struct {
	q Queryable
}

// NewRoundAuditRepository creates a new round audit repository
func NewRoundAuditRepository(db *database.DB) *RoundAuditRepository {
	return &RoundAuditRepository{q: db.Pool}
}

func newRoundAuditRepositoryWithTx(tx Queryable) *RoundAuditRepository {
	return &RoundAuditRepository{q: tx}
}

// Record appends a lifecycle action
func (r *RoundAuditRepository) Record(ctx context.Context, record *entities.RoundAuditRecord) error {
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal round audit metadata: %w", err)
	}

	query := `
		INSERT INTO round_audit (round_id, action, actor, reason, old_status, new_status, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		record.RoundID,
		record.Action,
		record.Actor,
		record.Reason,
		record.OldStatus,
		record.NewStatus,
		metadataJSON,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s of round %s: %w", record.Action, record.RoundID, err)
	}
	return nil
}
