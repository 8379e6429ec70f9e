package application

import (
	"context"
	"fmt"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"

	log "github.com/sirupsen/logrus"
)

// RoundHandler runs administrative round lifecycle operations
type RoundHandler struct {
	uowFactory UnitOfWorkFactory
	gate       interfaces.AuthorizationGate
	numberBase int64
}

// NewRoundHandler creates a new round handler
func NewRoundHandler(uowFactory UnitOfWorkFactory, gate interfaces.AuthorizationGate, numberBase int64) *RoundHandler {
	return &RoundHandler{
		uowFactory: uowFactory,
		gate:       gate,
		numberBase: numberBase,
	}
}

func (h *RoundHandler) roundService(uow UnitOfWork) interfaces.RoundService {
	wallet := services.NewWalletService(uow.UserRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
	return services.NewRoundService(
		uow.RoundRepository(),
		uow.ParticipationRepository(),
		uow.RoundAuditRepository(),
		wallet,
		h.gate,
		uow.EventBus(),
		h.numberBase,
	)
}

// CreateRound opens the next numbered round of a product
func (h *RoundHandler) CreateRound(ctx context.Context, req interfaces.CreateRoundRequest) (*entities.Round, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := h.roundService(uow).CreateRound(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round: %w", err)
	}
	return round, nil
}

// VoidRound withdraws a round and refunds its paid participations in one transaction
func (h *RoundHandler) VoidRound(ctx context.Context, req interfaces.VoidRoundRequest) (*interfaces.VoidRoundResult, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := h.roundService(uow).VoidRound(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit void: %w", err)
	}

	log.WithFields(log.Fields{
		"roundID":        result.Round.ID,
		"operatorID":     req.OperatorID,
		"refundedCount":  result.RefundedCount,
		"refundedAmount": result.RefundedAmount,
	}).Warn("Round voided")

	return result, nil
}

// GetRound returns a round by id
func (h *RoundHandler) GetRound(ctx context.Context, id string) (*entities.Round, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return h.roundService(uow).GetRound(ctx, id)
}

// ListParticipations returns the ledger of a round
func (h *RoundHandler) ListParticipations(ctx context.Context, roundID string) ([]*entities.Participation, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round, err := uow.RoundRepository().GetByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, services.ErrRoundNotFound
	}
	return uow.ParticipationRepository().ListByRound(ctx, roundID)
}
