package application

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/services"

	log "github.com/sirupsen/logrus"
)

// ParticipationSettings configures the allocator and its collaborators
type ParticipationSettings struct {
	Allocation          services.AllocationSettings
	FreeClaimsPerPeriod int
	AllowanceLocation   *time.Location
	// Gate admits operators to open accounts; nil rejects every operator
	Gate                interfaces.AuthorizationGate
}

// ParticipationHandler runs each allocation in its own unit of work and nudges the
// draw worker once the allocation that filled a round has committed
type ParticipationHandler struct {
	uowFactory UnitOfWorkFactory
	scheduler  interfaces.DrawScheduler
	metrics    Metrics
	settings   ParticipationSettings
}

// NewParticipationHandler creates a new participation handler
func NewParticipationHandler(uowFactory UnitOfWorkFactory, scheduler interfaces.DrawScheduler, metrics Metrics, settings ParticipationSettings) *ParticipationHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &ParticipationHandler{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		metrics:    metrics,
		settings:   settings,
	}
}

// Allocate reserves shares for a user. A lost conditional write is returned as a
// conflict; the caller decides whether to retry.
func (h *ParticipationHandler) Allocate(ctx context.Context, req interfaces.AllocationRequest) (*interfaces.AllocationResult, error) {
	start := time.Now()

	result, err := h.allocateOnce(ctx, req)
	if err != nil {
		h.metrics.RecordAllocation(req.Kind, outcomeFor(err), req.SharesCount, time.Since(start))
		log.WithFields(log.Fields{
			"roundID":   req.RoundID,
			"userID":    req.UserID,
			"kind":      req.Kind,
			"shares":    req.SharesCount,
			"reason":    services.Classify(err),
			"retryable": services.IsRetryable(err),
		}).WithError(err).Info("Allocation rejected")
		return nil, err
	}

	h.metrics.RecordAllocation(req.Kind, "success", req.SharesCount, time.Since(start))
	if result.RoundFilled && h.scheduler != nil {
		h.scheduler.Notify()
	}
	return result, nil
}

func (h *ParticipationHandler) allocateOnce(ctx context.Context, req interfaces.AllocationRequest) (*interfaces.AllocationResult, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet := services.NewWalletService(uow.UserRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
	allowance := services.NewAllowanceService(uow.UserRepository(), h.settings.FreeClaimsPerPeriod, h.settings.AllowanceLocation)
	allocator := services.NewAllocationService(
		uow.RoundRepository(),
		uow.ParticipationRepository(),
		uow.OutboxRepository(),
		wallet,
		allowance,
		uow.EventBus(),
		h.settings.Allocation,
	)

	result, err := allocator.Allocate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return result, nil
}

// OpenAccount creates a wallet for a new user on behalf of an authorized operator
func (h *ParticipationHandler) OpenAccount(ctx context.Context, operatorID, userID string, initialBalance int64) (*entities.User, error) {
	if h.settings.Gate == nil {
		return nil, fmt.Errorf("%w: no operators are configured", services.ErrUnauthorized)
	}
	if err := h.settings.Gate.Authorize(ctx, operatorID, interfaces.ActionOpenAccount); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet := services.NewWalletService(uow.UserRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
	user, err := wallet.OpenAccount(ctx, userID, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account: %w", err)
	}
	return user, nil
}

// AllowanceStatus reports the free claims a user has left in the current period
func (h *ParticipationHandler) AllowanceStatus(ctx context.Context, userID string) (*interfaces.AllowanceStatus, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	allowance := services.NewAllowanceService(uow.UserRepository(), h.settings.FreeClaimsPerPeriod, h.settings.AllowanceLocation)
	return allowance.Status(ctx, userID, time.Now())
}

// outcomeFor labels a failed operation for metrics
func outcomeFor(err error) string {
	switch services.Classify(err) {
	case services.KindInternal, services.KindDrawComputation:
		return "error"
	}
	return "rejected"
}
