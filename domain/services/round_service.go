package services

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SystemActor is recorded when no operator drove an action
const SystemActor = "system"

// roundService covers the administrative edges of the round lifecycle:
// creating rounds and voiding them. The hot-path edges belong to the allocator and
// the draw engine.
type roundService struct {
	roundRepo         interfaces.RoundRepository
	participationRepo interfaces.ParticipationRepository
	roundAuditRepo    interfaces.RoundAuditRepository
	wallet            interfaces.WalletService
	gate              interfaces.AuthorizationGate
	eventPublisher    interfaces.EventPublisher
	numberBase        int64
	now               func() time.Time
}

// NewRoundService creates a new round lifecycle service
func NewRoundService(
	roundRepo interfaces.RoundRepository,
	participationRepo interfaces.ParticipationRepository,
	roundAuditRepo interfaces.RoundAuditRepository,
	wallet interfaces.WalletService,
	gate interfaces.AuthorizationGate,
	eventPublisher interfaces.EventPublisher,
	numberBase int64,
) interfaces.RoundService {
	return &roundService{
		roundRepo:         roundRepo,
		participationRepo: participationRepo,
		roundAuditRepo:    roundAuditRepo,
		wallet:            wallet,
		gate:              gate,
		eventPublisher:    eventPublisher,
		numberBase:        numberBase,
		now:               time.Now,
	}
}

// CreateRound opens the next round of a product
func (s *roundService) CreateRound(ctx context.Context, req interfaces.CreateRoundRequest) (*entities.Round, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if req.TotalShares <= 0 {
		return nil, fmt.Errorf("%w: total shares must be positive", ErrValidation)
	}
	if req.SharePrice < 0 {
		return nil, fmt.Errorf("%w: share price cannot be negative", ErrValidation)
	}
	if err := s.gate.Authorize(ctx, req.OperatorID, interfaces.ActionCreateRound); err != nil {
		return nil, err
	}

	latest, err := s.roundRepo.GetLatestForProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	return s.open(ctx, latest, req.ProductID, req.TotalShares, req.SharePrice, req.OperatorID)
}

// OpenNextRound opens a follow-up round with the same shape as previous. If a newer
// round of the product already exists it is returned instead.
func (s *roundService) OpenNextRound(ctx context.Context, previous *entities.Round) (*entities.Round, error) {
	if previous == nil {
		return nil, fmt.Errorf("%w: previous round is required", ErrValidation)
	}

	latest, err := s.roundRepo.GetLatestForProduct(ctx, previous.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	if latest != nil && latest.RoundNumber > previous.RoundNumber {
		return latest, nil
	}

	return s.open(ctx, latest, previous.ProductID, previous.TotalShares, previous.SharePrice, SystemActor)
}

// open inserts round latest.RoundNumber+1 of the product
func (s *roundService) open(ctx context.Context, latest *entities.Round, productID string, totalShares int, sharePrice int64, actor string) (*entities.Round, error) {
	roundNumber := 1
	if latest != nil {
		roundNumber = latest.RoundNumber + 1
	}

	now := s.now()
	round := &entities.Round{
		ID:          uuid.New().String(),
		ProductID:   productID,
		RoundNumber: roundNumber,
		TotalShares: totalShares,
		SharePrice:  sharePrice,
		NumberBase:  s.numberBase,
		Status:      entities.RoundStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roundRepo.Create(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	if err := s.roundAuditRepo.Record(ctx, &entities.RoundAuditRecord{
		RoundID:   round.ID,
		Action:    entities.RoundActionCreate,
		Actor:     actor,
		NewStatus: entities.RoundStatusOpen,
		Metadata: map[string]any{
			"total_shares": totalShares,
			"share_price":  sharePrice,
			"round_number": roundNumber,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record round audit: %w", err)
	}

	if err := s.eventPublisher.Publish(events.RoundCreatedEvent{
		RoundID:     round.ID,
		ProductID:   productID,
		RoundNumber: roundNumber,
		TotalShares: totalShares,
		SharePrice:  sharePrice,
	}); err != nil {
		log.WithError(err).Error("Failed to publish round created event")
	}

	log.WithFields(log.Fields{
		"roundID":     round.ID,
		"productID":   productID,
		"roundNumber": roundNumber,
		"totalShares": totalShares,
		"actor":       actor,
	}).Info("Opened round")

	return round, nil
}

// VoidRound withdraws an open or full round and refunds every paid participation
func (s *roundService) VoidRound(ctx context.Context, req interfaces.VoidRoundRequest) (*interfaces.VoidRoundResult, error) {
	if req.RoundID == "" {
		return nil, fmt.Errorf("%w: round id is required", ErrValidation)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: voiding a round requires a reason", ErrValidation)
	}
	if err := s.gate.Authorize(ctx, req.OperatorID, interfaces.ActionVoidRound); err != nil {
		return nil, err
	}

	round, err := s.roundRepo.GetByIDForUpdate(ctx, req.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	if !round.Status.CanTransitionTo(entities.RoundStatusVoid) {
		return nil, fmt.Errorf("%w: cannot void a %s round", ErrInvalidTransition, round.Status)
	}

	voided, err := s.roundRepo.TransitionStatus(ctx, round.ID,
		[]entities.RoundStatus{entities.RoundStatusOpen, entities.RoundStatusFull}, entities.RoundStatusVoid)
	if err != nil {
		return nil, fmt.Errorf("failed to void round: %w", err)
	}
	if voided == nil {
		return nil, fmt.Errorf("%w: round %s changed while voiding", ErrConcurrencyConflict, round.ID)
	}

	participations, err := s.participationRepo.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	result := &interfaces.VoidRoundResult{Round: voided}
	for _, p := range participations {
		if p.Kind != entities.ParticipationKindPaid || p.Cost <= 0 {
			continue
		}
		if _, err := s.wallet.Credit(ctx, p.UserID, p.Cost, interfaces.LedgerEntry{
			TransactionType: entities.TransactionTypeRoundRefund,
			RelatedID:       p.ID,
			RelatedType:     entities.RelatedTypeParticipation,
			Metadata: map[string]any{
				"round_id": round.ID,
				"reason":   req.Reason,
			},
		}); err != nil {
			return nil, fmt.Errorf("failed to refund participation %s: %w", p.ID, err)
		}
		result.RefundedCount++
		result.RefundedAmount += p.Cost
	}

	if err := s.roundAuditRepo.Record(ctx, &entities.RoundAuditRecord{
		RoundID:   round.ID,
		Action:    entities.RoundActionVoid,
		Actor:     req.OperatorID,
		Reason:    req.Reason,
		OldStatus: round.Status,
		NewStatus: entities.RoundStatusVoid,
		Metadata: map[string]any{
			"refunded_count":  result.RefundedCount,
			"refunded_amount": result.RefundedAmount,
		},
		CreatedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record round audit: %w", err)
	}

	if err := s.eventPublisher.Publish(events.RoundVoidedEvent{
		RoundID:        round.ID,
		OperatorID:     req.OperatorID,
		Reason:         req.Reason,
		RefundedCount:  result.RefundedCount,
		RefundedAmount: result.RefundedAmount,
	}); err != nil {
		log.WithError(err).Error("Failed to publish round voided event")
	}

	log.WithFields(log.Fields{
		"roundID":        round.ID,
		"operatorID":     req.OperatorID,
		"reason":         req.Reason,
		"previousStatus": round.Status,
		"refundedCount":  result.RefundedCount,
		"refundedAmount": result.RefundedAmount,
	}).Warn("Round voided")

	return result, nil
}

// GetRound returns a round by id
func (s *roundService) GetRound(ctx context.Context, id string) (*entities.Round, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: round id is required", ErrValidation)
	}
	round, err := s.roundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	return round, nil
}
