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

const (
	drawBatchSize       = 50
	maxHandoffAttempts  = 5
	handoffRetryBackoff = 2 * time.Second
)

// DrawRunner is the part of the draw handler the worker drives
type DrawRunner interface {
	TriggerDraw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error)
}

// DrawWorkerSettings configures the worker's cadence and the draw window it sweeps
type DrawWorkerSettings struct {
	SweepInterval time.Duration
	MinDelay      time.Duration
	MaxDelay      time.Duration
}

// DrawWorker consumes round_filled handoffs from the outbox and sweeps full rounds
// whose handoff was lost. Both paths call the same draw handler, whose full → drawing
// claim makes a duplicate trigger a no-op.
type DrawWorker struct {
	uowFactory UnitOfWorkFactory
	runner     DrawRunner
	settings   DrawWorkerSettings
	wake       chan struct{}
	now        func() time.Time
}

// NewDrawWorker creates a new draw worker
func NewDrawWorker(uowFactory UnitOfWorkFactory, runner DrawRunner, settings DrawWorkerSettings) *DrawWorker {
	return &DrawWorker{
		uowFactory: uowFactory,
		runner:     runner,
		settings:   settings,
		wake:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Notify wakes the worker. It never blocks; notifications that arrive while one is
// pending are coalesced.
func (w *DrawWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start begins the draw worker
func (w *DrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("sweepInterval", w.settings.SweepInterval).Info("Draw worker started")

		ticker := time.NewTicker(w.settings.SweepInterval)
		defer ticker.Stop()

		w.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Info("Draw worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Draw worker shutting down (stop requested)...")
				return
			case <-w.wake:
				// The fill handoff only becomes due after the minimum delay
				select {
				case <-time.After(w.settings.MinDelay):
				case <-ctx.Done():
					return
				case <-stopChan:
					return
				}
				w.tick(ctx)
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (w *DrawWorker) tick(ctx context.Context) {
	if err := w.ProcessHandoffs(ctx); err != nil {
		log.WithError(err).Error("Error processing draw handoffs")
	}
	if err := w.Sweep(ctx); err != nil {
		log.WithError(err).Error("Error sweeping full rounds")
	}
}

// ProcessHandoffs runs the draw for every due round_filled event. The claimed rows
// stay locked until the batch commits so a second worker skips them.
func (w *DrawWorker) ProcessHandoffs(ctx context.Context) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	outbox := uow.OutboxRepository()
	due, err := outbox.ClaimDue(ctx, w.now(), drawBatchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	var completed, failed int
	for _, event := range due {
		if event.EventType != entities.OutboxRoundFilled {
			log.WithFields(log.Fields{
				"eventID":   event.ID,
				"eventType": event.EventType,
			}).Warn("Skipping outbox event of unknown type")
			if err := outbox.MarkProcessed(ctx, event.ID, w.now()); err != nil {
				return err
			}
			continue
		}

		_, drawErr := w.runner.TriggerDraw(ctx, interfaces.DrawRequest{
			RoundID: event.AggregateID,
			Trigger: entities.DrawTriggerFill,
		})
		if err := w.settle(ctx, outbox, event, drawErr); err != nil {
			return err
		}
		if drawErr == nil {
			completed++
		} else {
			failed++
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox batch: %w", err)
	}

	log.WithFields(log.Fields{
		"handoffs":  len(due),
		"completed": completed,
		"failed":    failed,
	}).Info("Processed draw handoffs")
	return nil
}

// settle decides what happens to a handoff after its draw attempt
func (w *DrawWorker) settle(ctx context.Context, outbox interfaces.OutboxRepository, event *entities.OutboxEvent, drawErr error) error {
	now := w.now()
	if drawErr == nil {
		return outbox.MarkProcessed(ctx, event.ID, now)
	}

	kind := services.Classify(drawErr)
	logger := log.WithFields(log.Fields{
		"eventID":  event.ID,
		"roundID":  event.AggregateID,
		"attempts": event.Attempts + 1,
		"kind":     kind,
	}).WithError(drawErr)

	retry := services.IsRetryable(drawErr) || kind == services.KindInternal
	if retry && event.Attempts+1 < maxHandoffAttempts {
		backoff := handoffRetryBackoff * time.Duration(1<<event.Attempts)
		logger.WithField("retryIn", backoff).Warn("Draw handoff failed, will retry")
		return outbox.MarkFailed(ctx, event.ID, drawErr.Error(), now.Add(backoff))
	}

	// Record the last error, then retire the handoff. A round still full from here on
	// is reported by the consistency monitor as overdue.
	if err := outbox.MarkFailed(ctx, event.ID, drawErr.Error(), now); err != nil {
		return err
	}
	if retry {
		logger.Error("Draw handoff exhausted its retries")
	} else {
		logger.Warn("Draw handoff abandoned")
	}
	return outbox.MarkProcessed(ctx, event.ID, now)
}

// Sweep draws full rounds still inside their draw window. It recovers rounds whose
// handoff never reached the outbox worker.
func (w *DrawWorker) Sweep(ctx context.Context) error {
	now := w.now()

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	rounds, err := uow.RoundRepository().ListFull(ctx, now.Add(-w.settings.MaxDelay), now.Add(-w.settings.MinDelay), drawBatchSize)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to list full rounds: %w", err)
	}

	for _, round := range rounds {
		response, err := w.runner.TriggerDraw(ctx, interfaces.DrawRequest{
			RoundID: round.ID,
			Trigger: entities.DrawTriggerSweep,
		})
		if err != nil {
			log.WithFields(log.Fields{
				"roundID": round.ID,
				"kind":    services.Classify(err),
			}).WithError(err).Warn("Sweep draw failed")
			continue
		}
		if response.Executed {
			log.WithField("roundID", round.ID).Info("Sweep recovered a full round")
		}
	}
	return nil
}
