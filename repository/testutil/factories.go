package testutil

import (
	"time"

	"drawpool/domain/entities"

	"github.com/google/uuid"
)

// TestNumberBase is the number base used by test rounds
const TestNumberBase = int64(10000000)

// CreateTestRound creates an open round with sensible defaults
func CreateTestRound(productID string, totalShares int) *entities.Round {
	return &entities.Round{
		ID:          uuid.New().String(),
		ProductID:   productID,
		RoundNumber: 1,
		TotalShares: totalShares,
		SharePrice:  100,
		NumberBase:  TestNumberBase,
		Status:      entities.RoundStatusOpen,
	}
}

// CreateTestRoundWithNumber creates an open round with a specific round number
func CreateTestRoundWithNumber(productID string, roundNumber, totalShares int) *entities.Round {
	round := CreateTestRound(productID, totalShares)
	round.RoundNumber = roundNumber
	return round
}

// CreateTestParticipation creates a paid participation holding the block after soldBefore
func CreateTestParticipation(round *entities.Round, userID string, soldBefore, shares int) *entities.Participation {
	return &entities.Participation{
		ID:          uuid.New().String(),
		UserID:      userID,
		RoundID:     round.ID,
		ProductID:   round.ProductID,
		Numbers:     entities.NumberBlock(round.NumberBase, soldBefore, shares),
		SharesCount: shares,
		Kind:        entities.ParticipationKindPaid,
		Cost:        round.SharePrice * int64(shares),
		CreatedAt:   time.Now(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID string, transactionType entities.TransactionType) *entities.BalanceHistory {
	return &entities.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   100000,
		BalanceAfter:    90000,
		ChangeAmount:    -10000,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}
