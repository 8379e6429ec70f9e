package testhelpers

import (
	"context"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockWalletService is a mock implementation of WalletService
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) OpenAccount(ctx context.Context, userID string, initialBalance int64) (*entities.User, error) {
	args := m.Called(ctx, userID, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockWalletService) Debit(ctx context.Context, userID string, amount int64, entry interfaces.LedgerEntry) (*interfaces.WalletResult, error) {
	args := m.Called(ctx, userID, amount, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.WalletResult), args.Error(1)
}

func (m *MockWalletService) Credit(ctx context.Context, userID string, amount int64, entry interfaces.LedgerEntry) (*interfaces.WalletResult, error) {
	args := m.Called(ctx, userID, amount, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.WalletResult), args.Error(1)
}

func (m *MockWalletService) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAllowanceService is a mock implementation of AllowanceService
type MockAllowanceService struct {
	mock.Mock
}

func (m *MockAllowanceService) Status(ctx context.Context, userID string, now time.Time) (*interfaces.AllowanceStatus, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.AllowanceStatus), args.Error(1)
}

func (m *MockAllowanceService) Consume(ctx context.Context, userID string, now time.Time) (*interfaces.AllowanceStatus, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.AllowanceStatus), args.Error(1)
}

// MockAuthorizationGate is a mock implementation of AuthorizationGate
type MockAuthorizationGate struct {
	mock.Mock
}

func (m *MockAuthorizationGate) Authorize(ctx context.Context, operatorID string, action interfaces.OperatorAction) error {
	args := m.Called(ctx, operatorID, action)
	return args.Error(0)
}

// MockDrawScheduler is a mock implementation of DrawScheduler
type MockDrawScheduler struct {
	mock.Mock
}

func (m *MockDrawScheduler) Notify() {
	m.Called()
}
