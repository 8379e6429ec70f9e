package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"drawpool/domain/commitment"
	"drawpool/domain/entities"
	"drawpool/domain/entropy"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DrawSettings bound the window in which a non-forced draw is valid
type DrawSettings struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// drawService runs the draw engine inside a unit of work. Every call site (fill
// handoff, sweep, manual, forced) goes through the same full → drawing claim.
type drawService struct {
	roundRepo         interfaces.RoundRepository
	participationRepo interfaces.ParticipationRepository
	drawResultRepo    interfaces.DrawResultRepository
	drawAuditRepo     interfaces.DrawAuditRepository
	algorithm         *DrawAlgorithm
	entropySource     entropy.Source
	gate              interfaces.AuthorizationGate
	eventPublisher    interfaces.EventPublisher
	settings          DrawSettings
	now               func() time.Time
}

// NewDrawService creates a new draw engine
func NewDrawService(
	roundRepo interfaces.RoundRepository,
	participationRepo interfaces.ParticipationRepository,
	drawResultRepo interfaces.DrawResultRepository,
	drawAuditRepo interfaces.DrawAuditRepository,
	algorithm *DrawAlgorithm,
	entropySource entropy.Source,
	gate interfaces.AuthorizationGate,
	eventPublisher interfaces.EventPublisher,
	settings DrawSettings,
) interfaces.DrawService {
	return &drawService{
		roundRepo:         roundRepo,
		participationRepo: participationRepo,
		drawResultRepo:    drawResultRepo,
		drawAuditRepo:     drawAuditRepo,
		algorithm:         algorithm,
		entropySource:     entropySource,
		gate:              gate,
		eventPublisher:    eventPublisher,
		settings:          settings,
		now:               time.Now,
	}
}

// CheckDrawWindow reports whether a non-forced draw may run now for a round that
// filled at filledAt
func CheckDrawWindow(filledAt, now time.Time, settings DrawSettings) error {
	waited := now.Sub(filledAt)
	if waited < settings.MinDelay {
		return fmt.Errorf("%w: filled %s ago, minimum delay is %s", ErrDrawWindowNotReached, waited.Truncate(time.Millisecond), settings.MinDelay)
	}
	if waited > settings.MaxDelay {
		return fmt.Errorf("%w: filled %s ago, maximum delay is %s", ErrDrawWindowExpired, waited.Truncate(time.Second), settings.MaxDelay)
	}
	return nil
}

// TriggerDraw claims and resolves a round. A round already past full returns the
// persisted result with Executed=false.
func (s *drawService) TriggerDraw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error) {
	if req.Forced {
		req.Trigger = entities.DrawTriggerForced
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req); err != nil {
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

	switch round.Status {
	case entities.RoundStatusDrawing, entities.RoundStatusCompleted:
		return s.existing(ctx, round, req)
	case entities.RoundStatusVoid:
		return nil, fmt.Errorf("%w: round %s is void", ErrInvalidTransition, round.ID)
	case entities.RoundStatusOpen:
		if !req.Forced {
			return nil, fmt.Errorf("%w: round %s is still open", ErrLedgerNotFinalized, round.ID)
		}
		// A forced draw closes the ledger first; numbers beyond the sold range stay unheld.
		closed, err := s.roundRepo.TransitionStatus(ctx, round.ID, []entities.RoundStatus{entities.RoundStatusOpen}, entities.RoundStatusFull)
		if err != nil {
			return nil, fmt.Errorf("failed to close round: %w", err)
		}
		if closed == nil {
			return nil, fmt.Errorf("%w: round %s changed while closing", ErrConcurrencyConflict, round.ID)
		}
		round = closed
	case entities.RoundStatusFull:
		if !req.Forced {
			filledAt := round.UpdatedAt
			if round.FilledAt != nil {
				filledAt = *round.FilledAt
			}
			if err := CheckDrawWindow(filledAt, now, s.settings); err != nil {
				return nil, err
			}
		}
	}

	claimed, err := s.roundRepo.ClaimForDraw(ctx, round.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim round for draw: %w", err)
	}
	if claimed == nil {
		// Another caller won the claim between our read and our write
		current, err := s.roundRepo.GetByID(ctx, round.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get round: %w", err)
		}
		if current != nil && current.Status.IsPastFull() {
			return s.existing(ctx, current, req)
		}
		return nil, fmt.Errorf("%w: round %s could not be claimed", ErrConcurrencyConflict, round.ID)
	}

	participations, err := s.participationRepo.ListByRound(ctx, claimed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	seed, err := s.entropySource.Seed(ctx, claimed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain entropy seed: %w", err)
	}

	computation, err := s.algorithm.Compute(DrawInput{
		Participations: participations,
		ProductID:      claimed.ProductID,
		EntropySeed:    seed,
		MinNumber:      claimed.MinNumber(),
		MaxNumber:      claimed.MaxNumber(),
	})
	if err != nil {
		return nil, fmt.Errorf("round %s: %w", claimed.ID, err)
	}

	if err := s.participationRepo.SetWinner(ctx, computation.Winner.ID, true); err != nil {
		return nil, fmt.Errorf("failed to flag winner: %w", err)
	}

	result := &entities.DrawResult{
		RoundID:                 claimed.ID,
		WinningNumber:           computation.WinningNumber,
		WinnerParticipationID:   computation.Winner.ID,
		WinnerUserID:            computation.Winner.UserID,
		ParticipationCommitment: computation.ParticipationCommitment.Hex(),
		ProductCommitment:       computation.ProductCommitment.Hex(),
		EntropyCommitment:       computation.EntropyCommitment.Hex(),
		EntropySeed:             hex.EncodeToString(seed),
		AlgorithmVersion:        s.algorithm.Version(),
		SchemaVersion:           s.algorithm.SchemaVersion(),
		MinNumber:               claimed.MinNumber(),
		MaxNumber:               claimed.MaxNumber(),
		ParticipationCount:      len(participations),
		Forced:                  req.Forced,
		DrawnAt:                 now,
	}
	if err := s.drawResultRepo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist draw result: %w", err)
	}

	completed, err := s.roundRepo.CompleteDraw(ctx, claimed.ID, computation.Winner.ID, computation.WinningNumber, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete draw: %w", err)
	}
	if completed == nil {
		return nil, fmt.Errorf("%w: round %s left drawing state", ErrConcurrencyConflict, claimed.ID)
	}

	if err := s.audit(ctx, req, completed.ID, entities.DrawOutcomeCompleted, ""); err != nil {
		return nil, err
	}

	s.publishCompleted(completed, result)

	logger := log.WithFields(log.Fields{
		"roundID":                 completed.ID,
		"productID":               completed.ProductID,
		"trigger":                 req.Trigger,
		"winningNumber":           result.WinningNumber,
		"winnerParticipationID":   result.WinnerParticipationID,
		"participationCommitment": result.ParticipationCommitment,
		"entropyCommitment":       result.EntropyCommitment,
		"entropySource":           s.entropySource.Name(),
	})
	if req.Forced {
		logger.WithFields(log.Fields{
			"operatorID": req.OperatorID,
			"reason":     req.Reason,
		}).Warn("Forced draw completed")
	} else {
		logger.Info("Draw completed")
	}

	return &interfaces.DrawResponse{Result: result, Round: completed, Executed: true}, nil
}

// VerifyDraw replays a completed round from its persisted ledger and commitments
func (s *drawService) VerifyDraw(ctx context.Context, roundID string) (*interfaces.DrawVerification, error) {
	if roundID == "" {
		return nil, fmt.Errorf("%w: round id is required", ErrValidation)
	}

	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}

	result, err := s.drawResultRepo.GetByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	if result == nil {
		return nil, ErrDrawResultNotFound
	}

	participations, err := s.participationRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations: %w", err)
	}

	persistedEntropy, err := commitment.ParseHex(result.EntropyCommitment)
	if err != nil {
		return nil, fmt.Errorf("persisted entropy commitment is malformed: %w", err)
	}
	seed, err := hex.DecodeString(result.EntropySeed)
	if err != nil {
		return nil, fmt.Errorf("persisted entropy seed is malformed: %w", err)
	}

	pc, err := s.algorithm.ParticipationCommitment(participations)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute participation commitment: %w", err)
	}
	prc, err := ProductCommitment(round.ProductID, result.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute product commitment: %w", err)
	}

	number, _, err := WinningNumber(pc, round.ProductID, persistedEntropy, result.AlgorithmVersion, result.MinNumber, result.MaxNumber)
	if err != nil {
		return nil, err
	}

	verification := &interfaces.DrawVerification{
		RoundID:                        roundID,
		ParticipationCommitmentMatches: pc.Hex() == result.ParticipationCommitment,
		ProductCommitmentMatches:       prc.Hex() == result.ProductCommitment,
		EntropyCommitmentMatches:       EntropyCommitment(seed).Equal(persistedEntropy),
		RecomputedWinningNumber:        number,
		PersistedWinningNumber:         result.WinningNumber,
	}
	if winner, err := ResolveWinner(participations, number); err == nil {
		verification.WinnerMatches = winner.ID == result.WinnerParticipationID
	}
	verification.Valid = verification.ParticipationCommitmentMatches &&
		verification.ProductCommitmentMatches &&
		verification.EntropyCommitmentMatches &&
		verification.WinnerMatches &&
		number == result.WinningNumber

	if !verification.Valid {
		log.WithFields(log.Fields{
			"roundID":       roundID,
			"recomputed":    number,
			"persisted":     result.WinningNumber,
			"pcMatches":     verification.ParticipationCommitmentMatches,
			"prcMatches":    verification.ProductCommitmentMatches,
			"ecMatches":     verification.EntropyCommitmentMatches,
			"winnerMatches": verification.WinnerMatches,
		}).Warn("Draw verification failed")
	}

	return verification, nil
}

func (s *drawService) validate(req interfaces.DrawRequest) error {
	if req.RoundID == "" {
		return fmt.Errorf("%w: round id is required", ErrValidation)
	}
	switch req.Trigger {
	case entities.DrawTriggerFill, entities.DrawTriggerSweep, entities.DrawTriggerManual, entities.DrawTriggerForced:
	default:
		return fmt.Errorf("%w: unknown draw trigger %q", ErrValidation, req.Trigger)
	}
	if req.Forced && req.Reason == "" {
		return fmt.Errorf("%w: a forced draw requires a reason", ErrValidation)
	}
	return nil
}

func (s *drawService) authorize(ctx context.Context, req interfaces.DrawRequest) error {
	switch {
	case req.Forced:
		return s.gate.Authorize(ctx, req.OperatorID, interfaces.ActionForceDraw)
	case req.Trigger == entities.DrawTriggerManual:
		return s.gate.Authorize(ctx, req.OperatorID, interfaces.ActionManualDraw)
	}
	return nil
}

// existing returns the persisted result of a round some other caller already claimed
func (s *drawService) existing(ctx context.Context, round *entities.Round, req interfaces.DrawRequest) (*interfaces.DrawResponse, error) {
	result, err := s.drawResultRepo.GetByRoundID(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	if result == nil {
		// Claimed but not yet committed by the other caller
		return nil, fmt.Errorf("%w: draw for round %s is in progress", ErrConcurrencyConflict, round.ID)
	}

	if err := s.audit(ctx, req, round.ID, entities.DrawOutcomeNoop, ""); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"roundID": round.ID,
		"status":  round.Status,
		"trigger": req.Trigger,
	}).Debug("Draw already resolved, returning existing result")

	return &interfaces.DrawResponse{Result: result, Round: round, Executed: false}, nil
}

func (s *drawService) audit(ctx context.Context, req interfaces.DrawRequest, roundID string, outcome entities.DrawOutcome, errMsg string) error {
	actor := req.OperatorID
	if actor == "" {
		actor = "system"
	}
	record := &entities.DrawAuditRecord{
		RoundID:   roundID,
		Trigger:   req.Trigger,
		Actor:     actor,
		Reason:    req.Reason,
		Outcome:   outcome,
		Error:     errMsg,
		CreatedAt: s.now(),
	}
	if err := s.drawAuditRepo.Record(ctx, record); err != nil {
		return fmt.Errorf("failed to record draw audit: %w", err)
	}
	return nil
}

func (s *drawService) publishCompleted(round *entities.Round, result *entities.DrawResult) {
	if err := s.eventPublisher.Publish(events.DrawCompletedEvent{
		RoundID:                 round.ID,
		ProductID:               round.ProductID,
		WinningNumber:           result.WinningNumber,
		WinnerParticipationID:   result.WinnerParticipationID,
		ParticipationCommitment: result.ParticipationCommitment,
		ProductCommitment:       result.ProductCommitment,
		EntropyCommitment:       result.EntropyCommitment,
		AlgorithmVersion:        result.AlgorithmVersion,
		Forced:                  result.Forced,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw completed event")
	}

	if err := s.eventPublisher.Publish(events.WinnerSelectedEvent{
		RoundID:         round.ID,
		ProductID:       round.ProductID,
		UserID:          result.WinnerUserID,
		ParticipationID: result.WinnerParticipationID,
		WinningNumber:   result.WinningNumber,
	}); err != nil {
		log.WithError(err).Error("Failed to publish winner selected event")
	}
}
