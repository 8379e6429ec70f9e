package services

import (
	"context"
	"testing"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestWalletService(m *TestMocks) *walletService {
	s := NewWalletService(m.UserRepo, m.BalanceHistoryRepo, m.EventPublisher).(*walletService)
	s.now = fixedClock
	return s
}

func TestWalletService_Debit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	entry := interfaces.LedgerEntry{
		TransactionType: entities.TransactionTypeSharePurchase,
		RelatedID:       "p-1",
		RelatedType:     entities.RelatedTypeParticipation,
	}

	t.Run("records history", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		m.UserRepo.On("DebitBalance", ctx, testUserID, int64(300)).Return(&entities.User{ID: testUserID, Balance: 700}, nil)
		m.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
			return h.BalanceBefore == 1000 && h.BalanceAfter == 700 && h.ChangeAmount == -300 &&
				h.RelatedID != nil && *h.RelatedID == "p-1"
		})).Return(nil)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil)

		result, err := service.Debit(ctx, testUserID, 300, entry)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), result.BalanceBefore)
		assert.Equal(t, int64(700), result.BalanceAfter)
		m.AssertAllExpectations(t)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		m.UserRepo.On("DebitBalance", ctx, testUserID, int64(300)).Return(nil, nil)
		m.UserRepo.On("GetByID", ctx, testUserID).Return(&entities.User{ID: testUserID, Balance: 100}, nil)

		_, err := service.Debit(ctx, testUserID, 300, entry)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		m.BalanceHistoryRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		m.UserRepo.On("DebitBalance", ctx, "ghost", int64(300)).Return(nil, nil)
		m.UserRepo.On("GetByID", ctx, "ghost").Return(nil, nil)

		_, err := service.Debit(ctx, "ghost", 300, entry)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		_, err := service.Debit(ctx, testUserID, 0, entry)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestWalletService_Credit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewTestMocks()
	service := newTestWalletService(m)

	m.UserRepo.On("CreditBalance", ctx, testUserID, int64(500)).Return(&entities.User{ID: testUserID, Balance: 500}, nil)
	m.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeRoundRefund && h.ChangeAmount == 500 && h.BalanceBefore == 0
	})).Return(nil)
	m.EventPublisher.On("Publish", mock.Anything).Return(nil)

	result, err := service.Credit(ctx, testUserID, 500, interfaces.LedgerEntry{TransactionType: entities.TransactionTypeRoundRefund})
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.BalanceAfter)
	m.AssertAllExpectations(t)
}

func TestWalletService_OpenAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("new user with initial balance", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		m.UserRepo.On("GetByID", ctx, testUserID).Return(nil, nil)
		m.UserRepo.On("Create", ctx, testUserID, int64(1000)).Return(&entities.User{ID: testUserID, Balance: 1000}, nil)
		m.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
			return h.TransactionType == entities.TransactionTypeInitial && h.BalanceAfter == 1000
		})).Return(nil)
		m.EventPublisher.On("Publish", mock.Anything).Return(nil)

		user, err := service.OpenAccount(ctx, testUserID, 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), user.Balance)
		m.AssertAllExpectations(t)
	})

	t.Run("existing user", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := newTestWalletService(m)

		m.UserRepo.On("GetByID", ctx, testUserID).Return(&entities.User{ID: testUserID}, nil)

		_, err := service.OpenAccount(ctx, testUserID, 1000)
		assert.ErrorIs(t, err, ErrValidation)
		m.UserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}
