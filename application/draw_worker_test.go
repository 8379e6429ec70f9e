package application

import (
	"context"
	"testing"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var workerNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestDrawWorker(uow *fakeUnitOfWork, runner *fakeDrawRunner) *DrawWorker {
	w := NewDrawWorker(&fakeUnitOfWorkFactory{uow: uow}, runner, DrawWorkerSettings{
		SweepInterval: 30 * time.Second,
		MinDelay:      5 * time.Second,
		MaxDelay:      30 * time.Minute,
	})
	w.now = func() time.Time { return workerNow }
	return w
}

func handoff(id int64, roundID string, attempts int) *entities.OutboxEvent {
	return &entities.OutboxEvent{
		ID:          id,
		EventType:   entities.OutboxRoundFilled,
		AggregateID: roundID,
		AvailableAt: workerNow.Add(-time.Second),
		Attempts:    attempts,
	}
}

func TestDrawWorker_NotifyNeverBlocks(t *testing.T) {
	w := newTestDrawWorker(newFakeUnitOfWork(), &fakeDrawRunner{})

	w.Notify()
	w.Notify()
	w.Notify()

	assert.Len(t, w.wake, 1)
}

func TestDrawWorker_ProcessHandoffs(t *testing.T) {
	tests := []struct {
		name          string
		attempts      int
		drawErr       error
		wantRetryAt   *time.Time
		wantProcessed bool
	}{
		{
			name:          "successful draw marks the handoff processed",
			wantProcessed: true,
		},
		{
			name:        "conflict is retried with backoff",
			attempts:    1,
			drawErr:     services.ErrConcurrencyConflict,
			wantRetryAt: timePtr(workerNow.Add(4 * time.Second)),
		},
		{
			name:          "retries are capped",
			attempts:      maxHandoffAttempts - 1,
			drawErr:       services.ErrConcurrencyConflict,
			wantRetryAt:   timePtr(workerNow),
			wantProcessed: true,
		},
		{
			name:          "expired window is abandoned",
			drawErr:       services.ErrDrawWindowExpired,
			wantRetryAt:   timePtr(workerNow),
			wantProcessed: true,
		},
		{
			name:          "void round is abandoned",
			drawErr:       services.ErrInvalidTransition,
			wantRetryAt:   timePtr(workerNow),
			wantProcessed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			uow := newFakeUnitOfWork()
			runner := &fakeDrawRunner{errs: map[string]error{"round-1": tt.drawErr}}
			w := newTestDrawWorker(uow, runner)

			uow.Outbox.On("ClaimDue", ctx, workerNow, drawBatchSize).Return([]*entities.OutboxEvent{handoff(7, "round-1", tt.attempts)}, nil)
			if tt.wantRetryAt != nil {
				uow.Outbox.On("MarkFailed", ctx, int64(7), tt.drawErr.Error(), *tt.wantRetryAt).Return(nil).Once()
			}
			if tt.wantProcessed {
				uow.Outbox.On("MarkProcessed", ctx, int64(7), workerNow).Return(nil).Once()
			}

			err := w.ProcessHandoffs(ctx)

			require.NoError(t, err)
			require.Len(t, runner.requests, 1)
			assert.Equal(t, entities.DrawTriggerFill, runner.requests[0].Trigger)
			assert.Equal(t, 1, uow.Committed)
			uow.Outbox.AssertExpectations(t)
			if !tt.wantProcessed {
				uow.Outbox.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDrawWorker_ProcessHandoffs_NothingDue(t *testing.T) {
	ctx := context.Background()
	uow := newFakeUnitOfWork()
	runner := &fakeDrawRunner{}
	w := newTestDrawWorker(uow, runner)

	uow.Outbox.On("ClaimDue", ctx, workerNow, drawBatchSize).Return([]*entities.OutboxEvent{}, nil)

	require.NoError(t, w.ProcessHandoffs(ctx))
	assert.Empty(t, runner.requests)
	assert.Equal(t, 0, uow.Committed)
}

func TestDrawWorker_Sweep(t *testing.T) {
	ctx := context.Background()
	uow := newFakeUnitOfWork()
	runner := &fakeDrawRunner{errs: map[string]error{"round-a": services.ErrDrawComputation}}
	w := newTestDrawWorker(uow, runner)

	full := func(id string) *entities.Round {
		r := openRound(id, 10, 10)
		r.Status = entities.RoundStatusFull
		return r
	}
	uow.Rounds.On("ListFull", ctx, workerNow.Add(-30*time.Minute), workerNow.Add(-5*time.Second), drawBatchSize).
		Return([]*entities.Round{full("round-a"), full("round-b")}, nil)

	require.NoError(t, w.Sweep(ctx))

	require.Len(t, runner.requests, 2)
	assert.Equal(t, "round-a", runner.requests[0].RoundID)
	assert.Equal(t, "round-b", runner.requests[1].RoundID)
	for _, req := range runner.requests {
		assert.Equal(t, entities.DrawTriggerSweep, req.Trigger)
	}
}

func TestDrawWorker_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uow := newFakeUnitOfWork()
	w := newTestDrawWorker(uow, &fakeDrawRunner{})

	ticked := make(chan struct{}, 1)
	uow.Outbox.On("ClaimDue", mock.Anything, workerNow, drawBatchSize).Return([]*entities.OutboxEvent{}, nil)
	uow.Rounds.On("ListFull", mock.Anything, mock.Anything, mock.Anything, drawBatchSize).
		Return([]*entities.Round{}, nil).
		Run(func(mock.Arguments) {
			select {
			case ticked <- struct{}{}:
			default:
			}
		})

	stop := w.Start(ctx)
	defer stop()

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not run its first pass")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
