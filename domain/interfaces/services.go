package interfaces

import (
	"context"
	"time"

	"drawpool/domain/entities"
)

// AllocationRequest asks for a block of shares in one round
type AllocationRequest struct {
	RoundID     string
	UserID      string
	SharesCount int
	Kind        entities.ParticipationKind
}

// AllocationResult is returned after a committed allocation
type AllocationResult struct {
	Participation       *entities.Participation
	Round               *entities.Round
	BalanceAfter        int64
	FreeClaimsRemaining int
	AllowanceResetsAt   time.Time
	RoundFilled         bool
	FirstParticipation  bool
}

// AllocationService reserves numbered shares for a participant
type AllocationService interface {
	Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error)
}

// DrawRequest asks the draw engine to resolve a round
type DrawRequest struct {
	RoundID    string
	Trigger    entities.DrawTrigger
	Forced     bool
	OperatorID string
	Reason     string
}

// DrawResponse carries the persisted result. Executed is false when the call was a
// no-op on a round that another caller had already claimed.
type DrawResponse struct {
	Result   *entities.DrawResult
	Round    *entities.Round
	Executed bool
}

// DrawVerification compares a fresh replay of a round against its persisted result
type DrawVerification struct {
	RoundID                        string `json:"roundId"`
	Valid                          bool   `json:"valid"`
	ParticipationCommitmentMatches bool   `json:"participationCommitmentMatches"`
	ProductCommitmentMatches       bool   `json:"productCommitmentMatches"`
	EntropyCommitmentMatches       bool   `json:"entropyCommitmentMatches"`
	WinnerMatches                  bool   `json:"winnerMatches"`
	RecomputedWinningNumber        int64  `json:"recomputedWinningNumber"`
	PersistedWinningNumber         int64  `json:"persistedWinningNumber"`
}

// DrawService runs and verifies draws
type DrawService interface {
	TriggerDraw(ctx context.Context, req DrawRequest) (*DrawResponse, error)
	VerifyDraw(ctx context.Context, roundID string) (*DrawVerification, error)
}

// CreateRoundRequest opens a new round for a product
type CreateRoundRequest struct {
	ProductID   string
	TotalShares int
	SharePrice  int64
	OperatorID  string
}

// VoidRoundRequest withdraws an open or full round
type VoidRoundRequest struct {
	RoundID    string
	OperatorID string
	Reason     string
}

// VoidRoundResult summarizes the refunds issued by a void
type VoidRoundResult struct {
	Round          *entities.Round
	RefundedCount  int
	RefundedAmount int64
}

// RoundService covers administrative lifecycle operations
type RoundService interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (*entities.Round, error)
	OpenNextRound(ctx context.Context, previous *entities.Round) (*entities.Round, error)
	VoidRound(ctx context.Context, req VoidRoundRequest) (*VoidRoundResult, error)
	GetRound(ctx context.Context, id string) (*entities.Round, error)
}

// ConsistencyService produces audit reports without mutating anything
type ConsistencyService interface {
	Report(ctx context.Context, roundID string) (*entities.ConsistencyReport, error)
}

// CorrectionService applies one audited corrective write
type CorrectionService interface {
	ApplyCorrection(ctx context.Context, req entities.CorrectionRequest) (*entities.CorrectionRecord, error)
}

// LedgerEntry describes the transaction entry recorded next to a wallet movement
type LedgerEntry struct {
	TransactionType entities.TransactionType
	RelatedID       string
	RelatedType     entities.RelatedType
	Metadata        map[string]any
}

// WalletResult reports a balance movement
type WalletResult struct {
	UserID        string
	BalanceBefore int64
	BalanceAfter  int64
}

// WalletService is the balance collaborator used by the allocator
type WalletService interface {
	OpenAccount(ctx context.Context, userID string, initialBalance int64) (*entities.User, error)
	Debit(ctx context.Context, userID string, amount int64, entry LedgerEntry) (*WalletResult, error)
	Credit(ctx context.Context, userID string, amount int64, entry LedgerEntry) (*WalletResult, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// AllowanceStatus is the free-claim state of a user
type AllowanceStatus struct {
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// AllowanceService is the free-claim time-window collaborator
type AllowanceService interface {
	Status(ctx context.Context, userID string, now time.Time) (*AllowanceStatus, error)
	Consume(ctx context.Context, userID string, now time.Time) (*AllowanceStatus, error)
}

// OperatorAction names an operation guarded by the authorization gate
type OperatorAction string

const (
	ActionForceDraw       OperatorAction = "force_draw"
	ActionManualDraw      OperatorAction = "manual_draw"
	ActionVoidRound       OperatorAction = "void_round"
	ActionCreateRound     OperatorAction = "create_round"
	ActionApplyCorrection OperatorAction = "apply_correction"
	ActionOpenAccount     OperatorAction = "open_account"
)

// AuthorizationGate decides who may run operator actions
type AuthorizationGate interface {
	Authorize(ctx context.Context, operatorID string, action OperatorAction) error
}

// DrawScheduler is nudged after a round fills; it must never block
type DrawScheduler interface {
	Notify()
}
