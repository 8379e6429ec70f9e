package services

import (
	"testing"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/testhelpers"
)

const (
	testRoundID    = "round-1"
	testUserID     = "user-1"
	testOperatorID = "operator-1"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// newTestRound returns an open 10-share round of testProductID priced at 100
func newTestRound(opts ...func(*entities.Round)) *entities.Round {
	round := &entities.Round{
		ID:          testRoundID,
		ProductID:   testProductID,
		RoundNumber: 1,
		TotalShares: 10,
		SharePrice:  100,
		NumberBase:  testNumberBase,
		Status:      entities.RoundStatusOpen,
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(round)
	}
	return round
}

func withStatus(status entities.RoundStatus) func(*entities.Round) {
	return func(r *entities.Round) { r.Status = status }
}

func withSold(sold, participants int) func(*entities.Round) {
	return func(r *entities.Round) {
		r.SoldShares = sold
		r.ParticipantCount = participants
	}
}

func filledAgo(d time.Duration) func(*entities.Round) {
	return func(r *entities.Round) {
		filledAt := testNow.Add(-d)
		r.Status = entities.RoundStatusFull
		r.SoldShares = r.TotalShares
		r.FilledAt = &filledAt
	}
}

func withWinner(participationID string, number int64) func(*entities.Round) {
	return func(r *entities.Round) {
		r.WinnerParticipationID = &participationID
		r.WinningNumber = &number
	}
}

// TestMocks aggregates the repository and collaborator mocks used by service tests
type TestMocks struct {
	UserRepo            *testhelpers.MockUserRepository
	BalanceHistoryRepo  *testhelpers.MockBalanceHistoryRepository
	RoundRepo           *testhelpers.MockRoundRepository
	ParticipationRepo   *testhelpers.MockParticipationRepository
	DrawResultRepo      *testhelpers.MockDrawResultRepository
	DrawAuditRepo       *testhelpers.MockDrawAuditRepository
	CorrectionAuditRepo *testhelpers.MockCorrectionAuditRepository
	RoundAuditRepo      *testhelpers.MockRoundAuditRepository
	OutboxRepo          *testhelpers.MockOutboxRepository
	ConsistencyRepo     *testhelpers.MockConsistencyRepository
	Wallet              *testhelpers.MockWalletService
	Allowance           *testhelpers.MockAllowanceService
	Gate                *testhelpers.MockAuthorizationGate
	EventPublisher      *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		UserRepo:            new(testhelpers.MockUserRepository),
		BalanceHistoryRepo:  new(testhelpers.MockBalanceHistoryRepository),
		RoundRepo:           new(testhelpers.MockRoundRepository),
		ParticipationRepo:   new(testhelpers.MockParticipationRepository),
		DrawResultRepo:      new(testhelpers.MockDrawResultRepository),
		DrawAuditRepo:       new(testhelpers.MockDrawAuditRepository),
		CorrectionAuditRepo: new(testhelpers.MockCorrectionAuditRepository),
		RoundAuditRepo:      new(testhelpers.MockRoundAuditRepository),
		OutboxRepo:          new(testhelpers.MockOutboxRepository),
		ConsistencyRepo:     new(testhelpers.MockConsistencyRepository),
		Wallet:              new(testhelpers.MockWalletService),
		Allowance:           new(testhelpers.MockAllowanceService),
		Gate:                new(testhelpers.MockAuthorizationGate),
		EventPublisher:      new(testhelpers.MockEventPublisher),
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	t.Helper()
	m.UserRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
	m.RoundRepo.AssertExpectations(t)
	m.ParticipationRepo.AssertExpectations(t)
	m.DrawResultRepo.AssertExpectations(t)
	m.DrawAuditRepo.AssertExpectations(t)
	m.CorrectionAuditRepo.AssertExpectations(t)
	m.RoundAuditRepo.AssertExpectations(t)
	m.OutboxRepo.AssertExpectations(t)
	m.ConsistencyRepo.AssertExpectations(t)
	m.Wallet.AssertExpectations(t)
	m.Allowance.AssertExpectations(t)
	m.Gate.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}
