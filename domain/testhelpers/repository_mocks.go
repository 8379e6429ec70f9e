package testhelpers

import (
	"context"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, id string, initialBalance int64) (*entities.User, error) {
	args := m.Called(ctx, id, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) DebitBalance(ctx context.Context, id string, amount int64) (*entities.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) CreditBalance(ctx context.Context, id string, amount int64) (*entities.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) ConsumeFreeClaim(ctx context.Context, id string, periodStart time.Time, claimsPerPeriod int) (*entities.User, error) {
	args := m.Called(ctx, id, periodStart, claimsPerPeriod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) Create(ctx context.Context, round *entities.Round) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id string) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByIDForUpdate(ctx context.Context, id string) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetLatestForProduct(ctx context.Context, productID string) (*entities.Round, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) IncrementSold(ctx context.Context, id string, shares int, now time.Time) (*entities.Round, error) {
	args := m.Called(ctx, id, shares, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) ClaimForDraw(ctx context.Context, id string, now time.Time) (*entities.Round, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) CompleteDraw(ctx context.Context, id string, winnerParticipationID string, winningNumber int64, drawTime time.Time) (*entities.Round, error) {
	args := m.Called(ctx, id, winnerParticipationID, winningNumber, drawTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) TransitionStatus(ctx context.Context, id string, from []entities.RoundStatus, to entities.RoundStatus) (*entities.Round, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) ListFull(ctx context.Context, filledFrom, filledTo time.Time, limit int) ([]*entities.Round, error) {
	args := m.Called(ctx, filledFrom, filledTo, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) ApplyCorrection(ctx context.Context, id string, field string, value any) error {
	args := m.Called(ctx, id, field, value)
	return args.Error(0)
}

// MockParticipationRepository is a mock implementation of ParticipationRepository
type MockParticipationRepository struct {
	mock.Mock
}

func (m *MockParticipationRepository) Create(ctx context.Context, participation *entities.Participation) error {
	args := m.Called(ctx, participation)
	return args.Error(0)
}

func (m *MockParticipationRepository) GetByID(ctx context.Context, id string) (*entities.Participation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Participation), args.Error(1)
}

func (m *MockParticipationRepository) GetByIDForUpdate(ctx context.Context, id string) (*entities.Participation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Participation), args.Error(1)
}

func (m *MockParticipationRepository) ListByRound(ctx context.Context, roundID string) ([]*entities.Participation, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Participation), args.Error(1)
}

func (m *MockParticipationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipationRepository) SetWinner(ctx context.Context, id string, isWinner bool) error {
	args := m.Called(ctx, id, isWinner)
	return args.Error(0)
}

// MockDrawResultRepository is a mock implementation of DrawResultRepository
type MockDrawResultRepository struct {
	mock.Mock
}

func (m *MockDrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDrawResultRepository) GetByRoundID(ctx context.Context, roundID string) (*entities.DrawResult, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DrawResult), args.Error(1)
}

// MockDrawAuditRepository is a mock implementation of DrawAuditRepository
type MockDrawAuditRepository struct {
	mock.Mock
}

func (m *MockDrawAuditRepository) Record(ctx context.Context, record *entities.DrawAuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDrawAuditRepository) ListByRound(ctx context.Context, roundID string) ([]*entities.DrawAuditRecord, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DrawAuditRecord), args.Error(1)
}

// MockCorrectionAuditRepository is a mock implementation of CorrectionAuditRepository
type MockCorrectionAuditRepository struct {
	mock.Mock
}

func (m *MockCorrectionAuditRepository) Record(ctx context.Context, record *entities.CorrectionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCorrectionAuditRepository) ListByTarget(ctx context.Context, targetType entities.CorrectionTarget, targetID string) ([]*entities.CorrectionRecord, error) {
	args := m.Called(ctx, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CorrectionRecord), args.Error(1)
}

// MockRoundAuditRepository is a mock implementation of RoundAuditRepository
type MockRoundAuditRepository struct {
	mock.Mock
}

func (m *MockRoundAuditRepository) Record(ctx context.Context, record *entities.RoundAuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockOutboxRepository is a mock implementation of OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, event *entities.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.OutboxEvent, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string, retryAt time.Time) error {
	args := m.Called(ctx, id, errMsg, retryAt)
	return args.Error(0)
}

// MockConsistencyRepository is a mock implementation of ConsistencyRepository
type MockConsistencyRepository struct {
	mock.Mock
}

func (m *MockConsistencyRepository) Snapshots(ctx context.Context, roundID string) ([]*entities.RoundLedgerSnapshot, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RoundLedgerSnapshot), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
