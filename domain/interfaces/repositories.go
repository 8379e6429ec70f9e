package interfaces

import (
	"context"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, returning nil when absent
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, id string, initialBalance int64) (*entities.User, error)

	// DebitBalance subtracts amount only if the balance still covers it.
	// Returns nil when the conditional write matched no row.
	DebitBalance(ctx context.Context, id string, amount int64) (*entities.User, error)

	// CreditBalance adds amount to the balance
	CreditBalance(ctx context.Context, id string, amount int64) (*entities.User, error)

	// ConsumeFreeClaim takes one claim from the allowance, first resetting it to
	// claimsPerPeriod if the stored period began before periodStart.
	// Returns nil when no claim was left.
	ConsumeFreeClaim(ctx context.Context, id string, periodStart time.Time, claimsPerPeriod int) (*entities.User, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID string, limit int) ([]*entities.BalanceHistory, error)
}

// RoundRepository defines the interface for round data access. Every status or
// counter change is a conditional write; methods return nil when the condition failed.
type RoundRepository interface {
	// Create inserts a new round. (product_id, round_number) is unique.
	Create(ctx context.Context, round *entities.Round) error

	// GetByID retrieves a round by id
	GetByID(ctx context.Context, id string) (*entities.Round, error)

	// GetByIDForUpdate retrieves a round with a row lock
	GetByIDForUpdate(ctx context.Context, id string) (*entities.Round, error)

	// GetLatestForProduct returns the highest numbered round of a product
	GetLatestForProduct(ctx context.Context, productID string) (*entities.Round, error)

	// IncrementSold adds shares to sold_shares and one to participant_count, only while
	// the round is open and capacity remains. Flips status to full when capacity is reached.
	IncrementSold(ctx context.Context, id string, shares int, now time.Time) (*entities.Round, error)

	// ClaimForDraw moves a full round to drawing
	ClaimForDraw(ctx context.Context, id string, now time.Time) (*entities.Round, error)

	// CompleteDraw writes the winner fields and moves a drawing round to completed
	CompleteDraw(ctx context.Context, id string, winnerParticipationID string, winningNumber int64, drawTime time.Time) (*entities.Round, error)

	// TransitionStatus moves a round to `to` only if its current status is one of `from`
	TransitionStatus(ctx context.Context, id string, from []entities.RoundStatus, to entities.RoundStatus) (*entities.Round, error)

	// ListFull returns full rounds whose filled_at lies in [filledFrom, filledTo], oldest first
	ListFull(ctx context.Context, filledFrom, filledTo time.Time, limit int) ([]*entities.Round, error)

	// ApplyCorrection overwrites one whitelisted column. A nil value stores NULL.
	ApplyCorrection(ctx context.Context, id string, field string, value any) error
}

// ParticipationRepository defines the interface for the participation ledger
type ParticipationRepository interface {
	// Create appends a participation
	Create(ctx context.Context, participation *entities.Participation) error

	// GetByID retrieves a participation by id
	GetByID(ctx context.Context, id string) (*entities.Participation, error)

	// GetByIDForUpdate retrieves a participation with a row lock
	GetByIDForUpdate(ctx context.Context, id string) (*entities.Participation, error)

	// ListByRound returns every participation of a round ordered by id
	ListByRound(ctx context.Context, roundID string) ([]*entities.Participation, error)

	// CountByUser returns how many participations a user holds across all rounds
	CountByUser(ctx context.Context, userID string) (int, error)

	// SetWinner sets is_winner on a participation
	SetWinner(ctx context.Context, id string, isWinner bool) error
}

// DrawResultRepository stores immutable draw results
type DrawResultRepository interface {
	// Create persists a draw result; a second insert for the same round fails
	Create(ctx context.Context, result *entities.DrawResult) error

	// GetByRoundID returns the result of a round, or nil if it was never drawn
	GetByRoundID(ctx context.Context, roundID string) (*entities.DrawResult, error)
}

// DrawAuditRepository stores one row per draw attempt
type DrawAuditRepository interface {
	Record(ctx context.Context, record *entities.DrawAuditRecord) error
	ListByRound(ctx context.Context, roundID string) ([]*entities.DrawAuditRecord, error)
}

// CorrectionAuditRepository stores before/after records of corrective writes
type CorrectionAuditRepository interface {
	Record(ctx context.Context, record *entities.CorrectionRecord) error
	ListByTarget(ctx context.Context, targetType entities.CorrectionTarget, targetID string) ([]*entities.CorrectionRecord, error)
}

// RoundAuditRepository stores administrative lifecycle actions
type RoundAuditRepository interface {
	Record(ctx context.Context, record *entities.RoundAuditRecord) error
}

// OutboxRepository stores durable handoffs between transactions and workers
type OutboxRepository interface {
	// Enqueue inserts a pending event
	Enqueue(ctx context.Context, event *entities.OutboxEvent) error

	// ClaimDue locks up to limit due events, skipping rows locked by other workers
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*entities.OutboxEvent, error)

	// MarkProcessed marks an event done
	MarkProcessed(ctx context.Context, id int64, now time.Time) error

	// MarkFailed records a failure and pushes the event back to retryAt
	MarkFailed(ctx context.Context, id int64, errMsg string, retryAt time.Time) error
}

// ConsistencyRepository is the read side of the consistency monitor. Its queries run
// outside any transaction and never take row locks.
type ConsistencyRepository interface {
	// Snapshots returns ledger aggregates per round, optionally scoped to one round
	Snapshots(ctx context.Context, roundID string) ([]*entities.RoundLedgerSnapshot, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the owning transaction resolves
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
