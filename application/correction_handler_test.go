package application

import (
	"context"
	"testing"

	"drawpool/domain/entities"
	"drawpool/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func soldSharesCorrection(dryRun bool) entities.CorrectionRequest {
	return entities.CorrectionRequest{
		TargetType: entities.CorrectionTargetRound,
		TargetID:   "round-1",
		Field:      entities.FieldSoldShares,
		NewValue:   "4",
		OperatorID: "operator-1",
		Reason:     "ledger says 4",
		DryRun:     dryRun,
	}
}

func TestCorrectionHandler_ApplyCorrection(t *testing.T) {
	ctx := context.Background()
	gate := services.NewOperatorGate([]string{"operator-1"})

	t.Run("dry run is rolled back and not counted", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		metrics := &recordingMetrics{}
		handler := NewCorrectionHandler(&fakeUnitOfWorkFactory{uow: uow}, gate, metrics)

		uow.Rounds.On("GetByIDForUpdate", ctx, "round-1").Return(openRound("round-1", 10, 6), nil)

		record, err := handler.ApplyCorrection(ctx, soldSharesCorrection(true))

		require.NoError(t, err)
		assert.True(t, record.DryRun)
		assert.Equal(t, "6", record.OldValue)
		assert.Equal(t, "4", record.NewValue)
		assert.Equal(t, 0, uow.Committed)
		assert.Equal(t, 1, uow.RolledBack)
		assert.Empty(t, metrics.corrections)
		uow.Rounds.AssertNotCalled(t, "ApplyCorrection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		uow.CorrectionAudit.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		uow.Bus.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("applied correction commits", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		metrics := &recordingMetrics{}
		handler := NewCorrectionHandler(&fakeUnitOfWorkFactory{uow: uow}, gate, metrics)

		uow.Rounds.On("GetByIDForUpdate", ctx, "round-1").Return(openRound("round-1", 10, 6), nil)
		uow.Rounds.On("ApplyCorrection", ctx, "round-1", entities.FieldSoldShares, 4).Return(nil)
		uow.CorrectionAudit.On("Record", ctx, mock.Anything).Return(nil)
		uow.Bus.On("Publish", mock.Anything).Return(nil)

		record, err := handler.ApplyCorrection(ctx, soldSharesCorrection(false))

		require.NoError(t, err)
		assert.False(t, record.DryRun)
		assert.Equal(t, 1, uow.Committed)
		assert.Equal(t, []string{"round:sold_shares"}, metrics.corrections)
		uow.Rounds.AssertExpectations(t)
		uow.CorrectionAudit.AssertExpectations(t)
	})
}
