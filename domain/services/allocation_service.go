package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AllocationSettings are the tunables the allocator reads from configuration
type AllocationSettings struct {
	FreeMaxSharesPerClaim int
	DrawMinDelay          time.Duration
}

// roundFilledPayload is the outbox payload handed to the draw worker
type roundFilledPayload struct {
	RoundID   string    `json:"roundId"`
	ProductID string    `json:"productId"`
	FilledAt  time.Time `json:"filledAt"`
}

// allocationService reserves contiguous number blocks. It must run inside a unit of
// work: every write it issues commits or rolls back together.
type allocationService struct {
	roundRepo         interfaces.RoundRepository
	participationRepo interfaces.ParticipationRepository
	outboxRepo        interfaces.OutboxRepository
	wallet            interfaces.WalletService
	allowance         interfaces.AllowanceService
	eventPublisher    interfaces.EventPublisher
	settings          AllocationSettings
	now               func() time.Time
}

// NewAllocationService creates a new share allocator
func NewAllocationService(
	roundRepo interfaces.RoundRepository,
	participationRepo interfaces.ParticipationRepository,
	outboxRepo interfaces.OutboxRepository,
	wallet interfaces.WalletService,
	allowance interfaces.AllowanceService,
	eventPublisher interfaces.EventPublisher,
	settings AllocationSettings,
) interfaces.AllocationService {
	return &allocationService{
		roundRepo:         roundRepo,
		participationRepo: participationRepo,
		outboxRepo:        outboxRepo,
		wallet:            wallet,
		allowance:         allowance,
		eventPublisher:    eventPublisher,
		settings:          settings,
		now:               time.Now,
	}
}

// Allocate reserves req.SharesCount numbers for the caller and charges for them
func (s *allocationService) Allocate(ctx context.Context, req interfaces.AllocationRequest) (*interfaces.AllocationResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	now := s.now()

	round, err := s.roundRepo.GetByID(ctx, req.RoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	if !round.IsOpen() {
		return nil, fmt.Errorf("%w: round %s is %s", ErrRoundNotOpen, round.ID, round.Status)
	}
	if req.SharesCount > round.RemainingShares() {
		return nil, fmt.Errorf("%w: requested %d, %d remaining", ErrCapacityExceeded, req.SharesCount, round.RemainingShares())
	}

	// Resource checks run before the conditional write so a rejected request never
	// touches the counters. The charge itself is re-checked by a conditional write below.
	var cost int64
	switch req.Kind {
	case entities.ParticipationKindFree:
		if req.SharesCount > s.settings.FreeMaxSharesPerClaim {
			return nil, fmt.Errorf("%w: a free claim covers at most %d shares", ErrValidation, s.settings.FreeMaxSharesPerClaim)
		}
		status, err := s.allowance.Status(ctx, req.UserID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to get free allowance: %w", err)
		}
		if status.Remaining <= 0 {
			return nil, fmt.Errorf("%w: resets at %s", ErrInsufficientFreeAllowance, status.ResetsAt.Format(time.RFC3339))
		}
	case entities.ParticipationKindPaid:
		cost = round.SharePrice * int64(req.SharesCount)
		balance, err := s.wallet.Balance(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		if balance < cost {
			return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, cost)
		}
	}

	updated, err := s.roundRepo.IncrementSold(ctx, round.ID, req.SharesCount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to increment sold shares: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: round %s changed while allocating", ErrConcurrencyConflict, round.ID)
	}

	participation := &entities.Participation{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		RoundID:     updated.ID,
		ProductID:   updated.ProductID,
		Numbers:     entities.NumberBlock(updated.NumberBase, updated.SoldShares-req.SharesCount, req.SharesCount),
		SharesCount: req.SharesCount,
		Kind:        req.Kind,
		Cost:        cost,
		CreatedAt:   now,
	}

	result := &interfaces.AllocationResult{
		Participation: participation,
		Round:         updated,
		RoundFilled:   updated.Status == entities.RoundStatusFull,
	}

	switch req.Kind {
	case entities.ParticipationKindPaid:
		charged, err := s.wallet.Debit(ctx, req.UserID, cost, interfaces.LedgerEntry{
			TransactionType: entities.TransactionTypeSharePurchase,
			RelatedID:       participation.ID,
			RelatedType:     entities.RelatedTypeParticipation,
			Metadata: map[string]any{
				"round_id":     updated.ID,
				"shares_count": req.SharesCount,
				"share_price":  updated.SharePrice,
			},
		})
		if err != nil {
			return nil, err
		}
		result.BalanceAfter = charged.BalanceAfter
	case entities.ParticipationKindFree:
		status, err := s.allowance.Consume(ctx, req.UserID, now)
		if err != nil {
			return nil, err
		}
		result.FreeClaimsRemaining = status.Remaining
		result.AllowanceResetsAt = status.ResetsAt
	}

	previous, err := s.participationRepo.CountByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participations: %w", err)
	}
	result.FirstParticipation = previous == 0

	if err := s.participationRepo.Create(ctx, participation); err != nil {
		return nil, fmt.Errorf("failed to create participation: %w", err)
	}

	if result.RoundFilled {
		if err := s.enqueueDraw(ctx, updated, now); err != nil {
			return nil, err
		}
	}

	s.publish(result)

	log.WithFields(log.Fields{
		"roundID":         updated.ID,
		"participationID": participation.ID,
		"userID":          req.UserID,
		"kind":            req.Kind,
		"shares":          req.SharesCount,
		"soldShares":      updated.SoldShares,
		"totalShares":     updated.TotalShares,
		"roundFilled":     result.RoundFilled,
	}).Debug("Allocated shares")

	return result, nil
}

func (s *allocationService) validate(req interfaces.AllocationRequest) error {
	if req.RoundID == "" {
		return fmt.Errorf("%w: round id is required", ErrValidation)
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if req.SharesCount <= 0 {
		return fmt.Errorf("%w: shares count must be positive", ErrValidation)
	}
	if !req.Kind.IsValid() {
		return fmt.Errorf("%w: unknown participation kind %q", ErrValidation, req.Kind)
	}
	return nil
}

// enqueueDraw writes the durable handoff to the draw worker in the same transaction
// that filled the round
func (s *allocationService) enqueueDraw(ctx context.Context, round *entities.Round, now time.Time) error {
	filledAt := now
	if round.FilledAt != nil {
		filledAt = *round.FilledAt
	}

	payload, err := json.Marshal(roundFilledPayload{
		RoundID:   round.ID,
		ProductID: round.ProductID,
		FilledAt:  filledAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal round filled payload: %w", err)
	}

	event := &entities.OutboxEvent{
		EventType:   entities.OutboxRoundFilled,
		AggregateID: round.ID,
		Payload:     payload,
		AvailableAt: filledAt.Add(s.settings.DrawMinDelay),
	}
	if err := s.outboxRepo.Enqueue(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue draw: %w", err)
	}
	return nil
}

func (s *allocationService) publish(result *interfaces.AllocationResult) {
	p := result.Participation
	r := result.Round

	if err := s.eventPublisher.Publish(events.ParticipationAllocatedEvent{
		ParticipationID: p.ID,
		RoundID:         r.ID,
		ProductID:       r.ProductID,
		UserID:          p.UserID,
		Kind:            p.Kind,
		Numbers:         p.Numbers,
		SoldShares:      r.SoldShares,
		TotalShares:     r.TotalShares,
	}); err != nil {
		log.WithError(err).Error("Failed to publish participation allocated event")
	}

	if result.FirstParticipation {
		if err := s.eventPublisher.Publish(events.FirstParticipationEvent{
			UserID:          p.UserID,
			ParticipationID: p.ID,
			RoundID:         r.ID,
		}); err != nil {
			log.WithError(err).Error("Failed to publish first participation event")
		}
	}

	if result.RoundFilled {
		filledAt := p.CreatedAt
		if r.FilledAt != nil {
			filledAt = *r.FilledAt
		}
		if err := s.eventPublisher.Publish(events.RoundFilledEvent{
			RoundID:          r.ID,
			ProductID:        r.ProductID,
			ParticipantCount: r.ParticipantCount,
			FilledAt:         filledAt,
		}); err != nil {
			log.WithError(err).Error("Failed to publish round filled event")
		}
	}
}
