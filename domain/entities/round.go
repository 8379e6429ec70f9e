package entities

import (
	"time"
)

// RoundStatus represents the lifecycle state of a round
type RoundStatus string

const (
	RoundStatusOpen      RoundStatus = "open"
	RoundStatusFull      RoundStatus = "full"
	RoundStatusDrawing   RoundStatus = "drawing"
	RoundStatusCompleted RoundStatus = "completed"
	RoundStatusVoid      RoundStatus = "void"
)

// roundTransitions lists the only forward edges of the lifecycle. Nothing leaves a terminal state.
var roundTransitions = map[RoundStatus][]RoundStatus{
	RoundStatusOpen:    {RoundStatusFull, RoundStatusVoid},
	RoundStatusFull:    {RoundStatusDrawing, RoundStatusVoid},
	RoundStatusDrawing: {RoundStatusCompleted},
}

// IsValid returns true if the status is one of the known lifecycle states
func (s RoundStatus) IsValid() bool {
	switch s {
	case RoundStatusOpen, RoundStatusFull, RoundStatusDrawing, RoundStatusCompleted, RoundStatusVoid:
		return true
	}
	return false
}

// IsTerminal returns true for states that can never be left
func (s RoundStatus) IsTerminal() bool {
	return s == RoundStatusCompleted || s == RoundStatusVoid
}

// CanTransitionTo reports whether next is a legal single-step transition from s
func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	for _, allowed := range roundTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsPastFull returns true once the round has been claimed by the draw engine or finished
func (s RoundStatus) IsPastFull() bool {
	return s == RoundStatusDrawing || s == RoundStatusCompleted
}

func (s RoundStatus) String() string {
	return string(s)
}

// Round is one pool of numbered shares sold for a single product cycle
type Round struct {
	ID                    string      `db:"id"`
	ProductID             string      `db:"product_id"`
	RoundNumber           int         `db:"round_number"`
	TotalShares           int         `db:"total_shares"`
	SoldShares            int         `db:"sold_shares"`
	ParticipantCount      int         `db:"participant_count"`
	SharePrice            int64       `db:"share_price"`
	NumberBase            int64       `db:"number_base"`
	Status                RoundStatus `db:"status"`
	WinnerParticipationID *string     `db:"winner_participation_id"` // NULL until draw completes
	WinningNumber         *int64      `db:"winning_number"`          // NULL until draw completes
	FilledAt              *time.Time  `db:"filled_at"`               // When the round reached capacity
	DrawTime              *time.Time  `db:"draw_time"`
	CreatedAt             time.Time   `db:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at"`
}

// MinNumber returns the lowest share number of the round
func (r *Round) MinNumber() int64 {
	return r.NumberBase + 1
}

// MaxNumber returns the highest share number of the round
func (r *Round) MaxNumber() int64 {
	return r.NumberBase + int64(r.TotalShares)
}

// InRange returns true if n is a valid share number for this round
func (r *Round) InRange(n int64) bool {
	return n >= r.MinNumber() && n <= r.MaxNumber()
}

// RemainingShares returns how many shares are still unsold
func (r *Round) RemainingShares() int {
	remaining := r.TotalShares - r.SoldShares
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOpen returns true if shares can still be allocated
func (r *Round) IsOpen() bool {
	return r.Status == RoundStatusOpen
}

// IsSoldOut returns true if every share has been allocated
func (r *Round) IsSoldOut() bool {
	return r.SoldShares >= r.TotalShares
}

// HasWinner returns true if either winner field is populated
func (r *Round) HasWinner() bool {
	return r.WinningNumber != nil || r.WinnerParticipationID != nil
}

// FullSince returns how long the round has been waiting in the full state
func (r *Round) FullSince(now time.Time) time.Duration {
	if r.Status != RoundStatusFull || r.FilledAt == nil {
		return 0
	}
	return now.Sub(*r.FilledAt)
}

// NumberBlock returns the contiguous block of share numbers that follows soldBefore
func NumberBlock(base int64, soldBefore, count int) []int64 {
	numbers := make([]int64, count)
	for i := 0; i < count; i++ {
		numbers[i] = base + int64(soldBefore) + int64(i) + 1
	}
	return numbers
}
