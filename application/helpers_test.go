package application

import (
	"context"
	"sync"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/testhelpers"
)

// fakeUnitOfWork hands out testify mocks and counts transaction calls. Every Create
// on fakeUnitOfWorkFactory returns the same instance, so expectations span all the
// units of work a handler opens.
type fakeUnitOfWork struct {
	Users           *testhelpers.MockUserRepository
	BalanceHistory  *testhelpers.MockBalanceHistoryRepository
	Rounds          *testhelpers.MockRoundRepository
	Participations  *testhelpers.MockParticipationRepository
	DrawResults     *testhelpers.MockDrawResultRepository
	DrawAudits      *testhelpers.MockDrawAuditRepository
	CorrectionAudit *testhelpers.MockCorrectionAuditRepository
	RoundAudits     *testhelpers.MockRoundAuditRepository
	Outbox          *testhelpers.MockOutboxRepository
	Bus             *testhelpers.MockEventPublisher

	BeginErr   error
	Begun      int
	Committed  int
	RolledBack int
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{
		Users:           new(testhelpers.MockUserRepository),
		BalanceHistory:  new(testhelpers.MockBalanceHistoryRepository),
		Rounds:          new(testhelpers.MockRoundRepository),
		Participations:  new(testhelpers.MockParticipationRepository),
		DrawResults:     new(testhelpers.MockDrawResultRepository),
		DrawAudits:      new(testhelpers.MockDrawAuditRepository),
		CorrectionAudit: new(testhelpers.MockCorrectionAuditRepository),
		RoundAudits:     new(testhelpers.MockRoundAuditRepository),
		Outbox:          new(testhelpers.MockOutboxRepository),
		Bus:             new(testhelpers.MockEventPublisher),
	}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	if u.BeginErr != nil {
		return u.BeginErr
	}
	u.Begun++
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.Committed++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.RolledBack++
	return nil
}

func (u *fakeUnitOfWork) UserRepository() interfaces.UserRepository { return u.Users }
func (u *fakeUnitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	return u.BalanceHistory
}
func (u *fakeUnitOfWork) RoundRepository() interfaces.RoundRepository { return u.Rounds }
func (u *fakeUnitOfWork) ParticipationRepository() interfaces.ParticipationRepository {
	return u.Participations
}
func (u *fakeUnitOfWork) DrawResultRepository() interfaces.DrawResultRepository { return u.DrawResults }
func (u *fakeUnitOfWork) DrawAuditRepository() interfaces.DrawAuditRepository   { return u.DrawAudits }
func (u *fakeUnitOfWork) CorrectionAuditRepository() interfaces.CorrectionAuditRepository {
	return u.CorrectionAudit
}
func (u *fakeUnitOfWork) RoundAuditRepository() interfaces.RoundAuditRepository { return u.RoundAudits }
func (u *fakeUnitOfWork) OutboxRepository() interfaces.OutboxRepository         { return u.Outbox }
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher                   { return u.Bus }

type fakeUnitOfWorkFactory struct {
	uow     *fakeUnitOfWork
	created int
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	f.created++
	return f.uow
}

// recordingMetrics keeps the labels of every call
type recordingMetrics struct {
	mu          sync.Mutex
	allocations []string
	draws       []string
	corrections []string
	reports     []*entities.ConsistencyReport
}

func (m *recordingMetrics) RecordAllocation(kind entities.ParticipationKind, outcome string, shares int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations = append(m.allocations, string(kind)+":"+outcome)
}

func (m *recordingMetrics) RecordDraw(trigger entities.DrawTrigger, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draws = append(m.draws, string(trigger)+":"+outcome)
}

func (m *recordingMetrics) RecordCorrection(targetType entities.CorrectionTarget, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections = append(m.corrections, string(targetType)+":"+field)
}

func (m *recordingMetrics) RecordConsistencyReport(report *entities.ConsistencyReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
}

func (m *recordingMetrics) RecordNATSMessagePublished(eventType string) {}

// fakeDrawRunner answers TriggerDraw from a per-round error table
type fakeDrawRunner struct {
	mu       sync.Mutex
	errs     map[string]error
	requests []interfaces.DrawRequest
}

func (r *fakeDrawRunner) TriggerDraw(ctx context.Context, req interfaces.DrawRequest) (*interfaces.DrawResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if err := r.errs[req.RoundID]; err != nil {
		return nil, err
	}
	return &interfaces.DrawResponse{
		Round:    &entities.Round{ID: req.RoundID, Status: entities.RoundStatusCompleted},
		Executed: true,
	}, nil
}

const testNumberBase = int64(10000000)

func openRound(id string, total, sold int) *entities.Round {
	return &entities.Round{
		ID:               id,
		ProductID:        "prod-1",
		RoundNumber:      1,
		TotalShares:      total,
		SoldShares:       sold,
		ParticipantCount: sold,
		SharePrice:       100,
		NumberBase:       testNumberBase,
		Status:           entities.RoundStatusOpen,
	}
}
