package services

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
	"drawpool/domain/utils"

	log "github.com/sirupsen/logrus"
)

// walletService moves balances with conditional writes and records every movement
type walletService struct {
	userRepo           interfaces.UserRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	now                func() time.Time
}

// NewWalletService creates a new wallet service
func NewWalletService(
	userRepo interfaces.UserRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.WalletService {
	return &walletService{
		userRepo:           userRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		now:                time.Now,
	}
}

// OpenAccount creates a user with an initial balance
func (s *walletService) OpenAccount(ctx context.Context, userID string, initialBalance int64) (*entities.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", ErrValidation)
	}

	existing, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user %s already exists", ErrValidation, userID)
	}

	user, err := s.userRepo.Create(ctx, userID, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if initialBalance > 0 {
		history := &entities.BalanceHistory{
			UserID:          userID,
			BalanceBefore:   0,
			BalanceAfter:    initialBalance,
			ChangeAmount:    initialBalance,
			TransactionType: entities.TransactionTypeInitial,
			CreatedAt:       s.now(),
		}
		if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"userID":         userID,
		"initialBalance": initialBalance,
	}).Info("Opened wallet account")

	return user, nil
}

// Debit removes amount from the balance. The write only lands if the balance still
// covers the amount at commit time.
func (s *walletService) Debit(ctx context.Context, userID string, amount int64, entry interfaces.LedgerEntry) (*interfaces.WalletResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}

	user, err := s.userRepo.DebitBalance(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}
	if user == nil {
		existing, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if existing == nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, existing.Balance, amount)
	}

	result := &interfaces.WalletResult{
		UserID:        userID,
		BalanceBefore: user.Balance + amount,
		BalanceAfter:  user.Balance,
	}
	if err := s.record(ctx, result, -amount, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Credit adds amount to the balance
func (s *walletService) Credit(ctx context.Context, userID string, amount int64, entry interfaces.LedgerEntry) (*interfaces.WalletResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}

	user, err := s.userRepo.CreditBalance(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	result := &interfaces.WalletResult{
		UserID:        userID,
		BalanceBefore: user.Balance - amount,
		BalanceAfter:  user.Balance,
	}
	if err := s.record(ctx, result, amount, entry); err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the current balance of a user
func (s *walletService) Balance(ctx context.Context, userID string) (int64, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	return user.Balance, nil
}

func (s *walletService) record(ctx context.Context, result *interfaces.WalletResult, change int64, entry interfaces.LedgerEntry) error {
	history := &entities.BalanceHistory{
		UserID:              result.UserID,
		BalanceBefore:       result.BalanceBefore,
		BalanceAfter:        result.BalanceAfter,
		ChangeAmount:        change,
		TransactionType:     entry.TransactionType,
		TransactionMetadata: entry.Metadata,
		CreatedAt:           s.now(),
	}
	if entry.RelatedID != "" {
		relatedID := entry.RelatedID
		relatedType := entry.RelatedType
		history.RelatedID = &relatedID
		history.RelatedType = &relatedType
	}
	return utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history)
}
