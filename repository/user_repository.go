package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawpool/database"
	"drawpool/domain/entities"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, balance, total_spent, free_claims_remaining, free_period_start, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.Balance,
		&user.TotalSpent,
		&user.FreeClaimsRemaining,
		&user.FreePeriodStart,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, id string, initialBalance int64) (*entities.User, error) {
	query := `
		INSERT INTO users (id, balance)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", id, err)
	}
	return user, nil
}

// DebitBalance subtracts amount only while the balance still covers it
func (r *UserRepository) DebitBalance(ctx context.Context, id string, amount int64) (*entities.User, error) {
	query := `
		UPDATE users
		SET balance = balance - $2,
		    total_spent = total_spent + $2,
		    updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit user %s: %w", id, err)
	}
	return user, nil
}

// CreditBalance adds amount to the balance
func (r *UserRepository) CreditBalance(ctx context.Context, id string, amount int64) (*entities.User, error) {
	query := `
		UPDATE users
		SET balance = balance + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit user %s: %w", id, err)
	}
	return user, nil
}

// ConsumeFreeClaim resets a stale allowance and takes one claim in a single statement
func (r *UserRepository) ConsumeFreeClaim(ctx context.Context, id string, periodStart time.Time, claimsPerPeriod int) (*entities.User, error) {
	query := `
		UPDATE users
		SET free_claims_remaining = CASE
		        WHEN free_period_start IS NULL OR free_period_start < $2 THEN $3 - 1
		        ELSE free_claims_remaining - 1
		    END,
		    free_period_start = $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND (
		        ((free_period_start IS NULL OR free_period_start < $2) AND $3 > 0)
		     OR (free_period_start >= $2 AND free_claims_remaining > 0)
		  )
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, periodStart, claimsPerPeriod))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume free claim for user %s: %w", id, err)
	}
	return user, nil
}
