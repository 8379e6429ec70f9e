package application

import (
	"context"
	"fmt"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"
)

// CorrectionHandler applies operator corrections, one field per transaction
type CorrectionHandler struct {
	uowFactory UnitOfWorkFactory
	gate       interfaces.AuthorizationGate
	metrics    Metrics
}

// NewCorrectionHandler creates a new correction handler
func NewCorrectionHandler(uowFactory UnitOfWorkFactory, gate interfaces.AuthorizationGate, metrics Metrics) *CorrectionHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &CorrectionHandler{
		uowFactory: uowFactory,
		gate:       gate,
		metrics:    metrics,
	}
}

// ApplyCorrection overwrites one whitelisted field and writes its audit record.
// Dry runs are rolled back and not counted.
func (h *CorrectionHandler) ApplyCorrection(ctx context.Context, req entities.CorrectionRequest) (*entities.CorrectionRecord, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	correction := services.NewCorrectionService(
		uow.RoundRepository(),
		uow.ParticipationRepository(),
		uow.CorrectionAuditRepository(),
		h.gate,
		uow.EventBus(),
	)

	record, err := correction.ApplyCorrection(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.DryRun {
		return record, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit correction: %w", err)
	}

	h.metrics.RecordCorrection(record.TargetType, record.Field)
	return record, nil
}

// History returns the corrections applied to one record, oldest first
func (h *CorrectionHandler) History(ctx context.Context, targetType entities.CorrectionTarget, targetID string) ([]*entities.CorrectionRecord, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.CorrectionAuditRepository().ListByTarget(ctx, targetType, targetID)
}
