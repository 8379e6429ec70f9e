package application

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/entropy"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"

	log "github.com/sirupsen/logrus"
)

// DrawSettings configures the draw handler
type DrawSettings struct {
	Window       services.DrawSettings
	AutoRollover bool
	NumberBase   int64
}

// DrawHandler runs the draw engine in a unit of work. A failed draw rolls back, then
// the failure is audited and alerted in a second unit of work so the record survives.
type DrawHandler struct {
	uowFactory    UnitOfWorkFactory
	algorithm     *services.DrawAlgorithm
	entropySource entropy.Source
	gate          interfaces.AuthorizationGate
	metrics       Metrics
	settings      DrawSettings
}

// NewDrawHandler creates a new draw handler
func NewDrawHandler(
	uowFactory UnitOfWorkFactory,
	algorithm *services.DrawAlgorithm,
	entropySource entropy.Source,
	gate interfaces.AuthorizationGate,
	metrics Metrics,
	settings DrawSettings,
) *DrawHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &DrawHandler{
		uowFactory:    uowFactory,
		algorithm:     algorithm,
		entropySource: entropySource,
		gate:          gate,
		metrics:       metrics,
		settings:      settings,
	}
}

func (h *DrawHandler) drawService(uow UnitOfWork) interfaces.DrawService {
	return services.NewDrawService(
		uow.RoundRepository(),
		uow.ParticipationRepository(),
		uow.DrawResultRepository(),
		uow.DrawAuditRepository(),
		h.algorithm,
		h.entropySource,
		h.gate,
		uow.EventBus(),
		h.settings.Window,
	)
}

// TriggerDraw resolves a round. Concurrent callers for the same round all return the
// one persisted result.
func (h *DrawHandler) TriggerDraw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error) {
	start := time.Now()
	trigger := req.Trigger
	if req.Forced {
		trigger = entities.DrawTriggerForced
	}

	response, err := h.draw(ctx, req)
	if err != nil {
		h.metrics.RecordDraw(trigger, outcomeFor(err), time.Since(start))
		switch services.Classify(err) {
		case services.KindDrawComputation, services.KindInternal:
			h.recordFailure(ctx, req, trigger, err)
		}
		return nil, err
	}

	outcome := string(entities.DrawOutcomeNoop)
	if response.Executed {
		outcome = string(entities.DrawOutcomeCompleted)
	}
	h.metrics.RecordDraw(trigger, outcome, time.Since(start))

	if response.Executed && h.settings.AutoRollover {
		if _, err := h.openNextRound(ctx, response.Round); err != nil {
			log.WithError(err).WithField("roundID", response.Round.ID).Error("Failed to open next round")
		}
	}

	return response, nil
}

func (h *DrawHandler) draw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	response, err := h.drawService(uow).TriggerDraw(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit draw: %w", err)
	}
	return response, nil
}

// recordFailure writes the failed attempt and raises the alert. The round itself was
// rolled back to its prior state.
func (h *DrawHandler) recordFailure(ctx context.Context, req interfaces.DrawRequest, trigger entities.DrawTrigger, drawErr error) {
	actor := req.OperatorID
	if actor == "" {
		actor = services.SystemActor
	}

	logger := log.WithFields(log.Fields{
		"roundID": req.RoundID,
		"trigger": trigger,
		"actor":   actor,
	})
	logger.WithError(drawErr).Error("Draw failed, round left unresolved")

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		logger.WithError(err).Error("Failed to begin draw failure audit")
		return
	}
	defer uow.Rollback()

	if err := uow.DrawAuditRepository().Record(ctx, &entities.DrawAuditRecord{
		RoundID:   req.RoundID,
		Trigger:   trigger,
		Actor:     actor,
		Reason:    req.Reason,
		Outcome:   entities.DrawOutcomeFailed,
		Error:     drawErr.Error(),
		CreatedAt: time.Now(),
	}); err != nil {
		logger.WithError(err).Error("Failed to record draw failure")
		return
	}

	if err := uow.EventBus().Publish(events.DrawFailedEvent{
		RoundID: req.RoundID,
		Trigger: trigger,
		Actor:   actor,
		Error:   drawErr.Error(),
	}); err != nil {
		logger.WithError(err).Error("Failed to publish draw failed event")
	}

	if err := uow.Commit(); err != nil {
		logger.WithError(err).Error("Failed to commit draw failure audit")
	}
}

func (h *DrawHandler) openNextRound(ctx context.Context, previous *entities.Round) (*entities.Round, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet := services.NewWalletService(uow.UserRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
	roundService := services.NewRoundService(
		uow.RoundRepository(),
		uow.ParticipationRepository(),
		uow.RoundAuditRepository(),
		wallet,
		h.gate,
		uow.EventBus(),
		h.settings.NumberBase,
	)

	next, err := roundService.OpenNextRound(ctx, previous)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit next round: %w", err)
	}
	return next, nil
}

// VerifyDraw replays a completed draw from its persisted inputs
func (h *DrawHandler) VerifyDraw(ctx context.Context, roundID string) (*interfaces.DrawVerification, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return h.drawService(uow).VerifyDraw(ctx, roundID)
}
