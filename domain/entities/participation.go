package entities

import (
	"sort"
	"time"
)

// ParticipationKind distinguishes paid purchases from free claims
type ParticipationKind string

const (
	ParticipationKindPaid ParticipationKind = "paid"
	ParticipationKindFree ParticipationKind = "free"
)

// IsValid returns true for known participation kinds
func (k ParticipationKind) IsValid() bool {
	return k == ParticipationKindPaid || k == ParticipationKindFree
}

// Participation is one user's purchase or free claim of shares in a round.
// Participations are append-only; only IsWinner is ever updated after insert.
type Participation struct {
	ID          string            `db:"id"`
	UserID      string            `db:"user_id"`
	RoundID     string            `db:"round_id"`
	ProductID   string            `db:"product_id"`
	Numbers     []int64           `db:"numbers"`
	SharesCount int               `db:"shares_count"`
	Kind        ParticipationKind `db:"kind"`
	Cost        int64             `db:"cost"`
	IsWinner    bool              `db:"is_winner"`
	CreatedAt   time.Time         `db:"created_at"`
}

// HasNumber returns true if the participation holds share number n
func (p *Participation) HasNumber(n int64) bool {
	for _, num := range p.Numbers {
		if num == n {
			return true
		}
	}
	return false
}

// SortedNumbers returns a copy of the assigned numbers in ascending order
func (p *Participation) SortedNumbers() []int64 {
	sorted := make([]int64, len(p.Numbers))
	copy(sorted, p.Numbers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// TotalShares sums the shares held across a set of participations
func TotalShares(participations []*Participation) int {
	total := 0
	for _, p := range participations {
		total += p.SharesCount
	}
	return total
}
