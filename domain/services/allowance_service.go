package services

import (
	"context"
	"fmt"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
)

// allowanceService tracks the free claims a user may make per calendar day. The day
// boundary is local midnight in the configured location.
type allowanceService struct {
	userRepo        interfaces.UserRepository
	claimsPerPeriod int
	location        *time.Location
}

// NewAllowanceService creates a new allowance service
func NewAllowanceService(userRepo interfaces.UserRepository, claimsPerPeriod int, location *time.Location) interfaces.AllowanceService {
	if location == nil {
		location = time.UTC
	}
	return &allowanceService{
		userRepo:        userRepo,
		claimsPerPeriod: claimsPerPeriod,
		location:        location,
	}
}

// PeriodStart returns local midnight of the day containing now
func PeriodStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// NextPeriodStart returns the local midnight that ends the period containing now
func NextPeriodStart(now time.Time, loc *time.Location) time.Time {
	start := PeriodStart(now, loc)
	return time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
}

// Status returns the remaining claims without consuming one
func (s *allowanceService) Status(ctx context.Context, userID string, now time.Time) (*interfaces.AllowanceStatus, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &interfaces.AllowanceStatus{
		Remaining: s.remaining(user, now),
		ResetsAt:  NextPeriodStart(now, s.location),
	}, nil
}

// Consume takes one claim. The reset and the decrement happen in one conditional write.
func (s *allowanceService) Consume(ctx context.Context, userID string, now time.Time) (*interfaces.AllowanceStatus, error) {
	user, err := s.userRepo.ConsumeFreeClaim(ctx, userID, PeriodStart(now, s.location), s.claimsPerPeriod)
	if err != nil {
		return nil, fmt.Errorf("failed to consume free claim: %w", err)
	}
	if user == nil {
		existing, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if existing == nil {
			return nil, ErrUserNotFound
		}
		return nil, ErrInsufficientFreeAllowance
	}

	return &interfaces.AllowanceStatus{
		Remaining: user.FreeClaimsRemaining,
		ResetsAt:  NextPeriodStart(now, s.location),
	}, nil
}

func (s *allowanceService) remaining(user *entities.User, now time.Time) int {
	if user.FreePeriodStart == nil || user.FreePeriodStart.Before(PeriodStart(now, s.location)) {
		return s.claimsPerPeriod
	}
	return user.FreeClaimsRemaining
}
