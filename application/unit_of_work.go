package application

import (
	"context"

	"drawpool/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes the events published inside it
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	RoundRepository() interfaces.RoundRepository
	ParticipationRepository() interfaces.ParticipationRepository
	DrawResultRepository() interfaces.DrawResultRepository
	DrawAuditRepository() interfaces.DrawAuditRepository
	CorrectionAuditRepository() interfaces.CorrectionAuditRepository
	RoundAuditRepository() interfaces.RoundAuditRepository
	OutboxRepository() interfaces.OutboxRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
