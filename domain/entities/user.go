package entities

import (
	"errors"
	"time"
)

// User is a participant with a wallet balance and a daily free-claim allowance
type User struct {
	ID                  string     `db:"id"`
	Balance             int64      `db:"balance"`
	TotalSpent          int64      `db:"total_spent"`
	FreeClaimsRemaining int        `db:"free_claims_remaining"`
	FreePeriodStart     *time.Time `db:"free_period_start"` // NULL until the first free claim
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// HasSufficientBalance checks if the user has sufficient balance for an amount
func (u *User) HasSufficientBalance(amount int64) bool {
	return u.Balance >= amount
}

// ValidateAmount checks if an amount is valid (positive and affordable)
func (u *User) ValidateAmount(amount int64) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	if !u.HasSufficientBalance(amount) {
		return errors.New("insufficient balance")
	}
	return nil
}

// CalculateNewBalance calculates what the balance would be after a change
func (u *User) CalculateNewBalance(changeAmount int64) int64 {
	return u.Balance + changeAmount
}
