package repository

import (
	"context"
	"fmt"

	"drawpool/application"
	"drawpool/database"
	"drawpool/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the application.UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	userRepo               interfaces.UserRepository
	balanceHistoryRepo     interfaces.BalanceHistoryRepository
	roundRepo              interfaces.RoundRepository
	participationRepo      interfaces.ParticipationRepository
	drawResultRepo         interfaces.DrawResultRepository
	drawAuditRepo          interfaces.DrawAuditRepository
	correctionAuditRepo    interfaces.CorrectionAuditRepository
	roundAuditRepo         interfaces.RoundAuditRepository
	outboxRepo             interfaces.OutboxRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{db: db}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork that flushes transactionalPublisher on commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = newUserRepositoryWithTx(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepositoryWithTx(tx)
	u.roundRepo = newRoundRepositoryWithTx(tx)
	u.participationRepo = newParticipationRepositoryWithTx(tx)
	u.drawResultRepo = newDrawResultRepositoryWithTx(tx)
	u.drawAuditRepo = newDrawAuditRepositoryWithTx(tx)
	u.correctionAuditRepo = newCorrectionAuditRepositoryWithTx(tx)
	u.roundAuditRepo = newRoundAuditRepositoryWithTx(tx)
	u.outboxRepo = newOutboxRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

func (u *unitOfWork) mustBegin() {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	u.mustBegin()
	return u.userRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	u.mustBegin()
	return u.balanceHistoryRepo
}

// RoundRepository returns the round repository for this unit of work
func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	u.mustBegin()
	return u.roundRepo
}

// ParticipationRepository returns the participation repository for this unit of work
func (u *unitOfWork) ParticipationRepository() interfaces.ParticipationRepository {
	u.mustBegin()
	return u.participationRepo
}

// DrawResultRepository returns the draw result repository for this unit of work
func (u *unitOfWork) DrawResultRepository() interfaces.DrawResultRepository {
	u.mustBegin()
	return u.drawResultRepo
}

// DrawAuditRepository returns the draw audit repository for this unit of work
func (u *unitOfWork) DrawAuditRepository() interfaces.DrawAuditRepository {
	u.mustBegin()
	return u.drawAuditRepo
}

// CorrectionAuditRepository returns the correction audit repository for this unit of work
func (u *unitOfWork) CorrectionAuditRepository() interfaces.CorrectionAuditRepository {
	u.mustBegin()
	return u.correctionAuditRepo
}

// RoundAuditRepository returns the round audit repository for this unit of work
func (u *unitOfWork) RoundAuditRepository() interfaces.RoundAuditRepository {
	u.mustBegin()
	return u.roundAuditRepo
}

// OutboxRepository returns the outbox repository for this unit of work
func (u *unitOfWork) OutboxRepository() interfaces.OutboxRepository {
	u.mustBegin()
	return u.outboxRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work has no transactional publisher")
	}
	return u.transactionalPublisher
}
