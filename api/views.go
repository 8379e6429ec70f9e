package api

import (
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"
)

type roundView struct {
	ID                    string     `json:"id"`
	ProductID             string     `json:"productId"`
	RoundNumber           int        `json:"roundNumber"`
	Status                string     `json:"status"`
	TotalShares           int        `json:"totalShares"`
	SoldShares            int        `json:"soldShares"`
	RemainingShares       int        `json:"remainingShares"`
	ParticipantCount      int        `json:"participantCount"`
	SharePrice            int64      `json:"sharePrice"`
	MinNumber             int64      `json:"minNumber"`
	MaxNumber             int64      `json:"maxNumber"`
	WinnerParticipationID *string    `json:"winnerParticipationId,omitempty"`
	WinningNumber         *int64     `json:"winningNumber,omitempty"`
	FilledAt              *time.Time `json:"filledAt,omitempty"`
	DrawTime              *time.Time `json:"drawTime,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

func newRoundView(r *entities.Round) roundView {
	return roundView{
		ID:                    r.ID,
		ProductID:             r.ProductID,
		RoundNumber:           r.RoundNumber,
		Status:                r.Status.String(),
		TotalShares:           r.TotalShares,
		SoldShares:            r.SoldShares,
		RemainingShares:       r.RemainingShares(),
		ParticipantCount:      r.ParticipantCount,
		SharePrice:            r.SharePrice,
		MinNumber:             r.MinNumber(),
		MaxNumber:             r.MaxNumber(),
		WinnerParticipationID: r.WinnerParticipationID,
		WinningNumber:         r.WinningNumber,
		FilledAt:              r.FilledAt,
		DrawTime:              r.DrawTime,
		CreatedAt:             r.CreatedAt,
	}
}

type participationView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	RoundID     string    `json:"roundId"`
	Kind        string    `json:"kind"`
	SharesCount int       `json:"sharesCount"`
	Numbers     []int64   `json:"numbers"`
	Cost        int64     `json:"cost"`
	IsWinner    bool      `json:"isWinner"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newParticipationView(p *entities.Participation) participationView {
	return participationView{
		ID:          p.ID,
		UserID:      p.UserID,
		RoundID:     p.RoundID,
		Kind:        string(p.Kind),
		SharesCount: p.SharesCount,
		Numbers:     p.SortedNumbers(),
		Cost:        p.Cost,
		IsWinner:    p.IsWinner,
		CreatedAt:   p.CreatedAt,
	}
}

type allocationView struct {
	Participation       participationView `json:"participation"`
	Round               roundView         `json:"round"`
	RoundFilled         bool              `json:"roundFilled"`
	BalanceAfter        *int64            `json:"balanceAfter,omitempty"`
	FreeClaimsRemaining *int              `json:"freeClaimsRemaining,omitempty"`
	AllowanceResetsAt   *time.Time        `json:"allowanceResetsAt,omitempty"`
}

func newAllocationView(res *interfaces.AllocationResult) allocationView {
	view := allocationView{
		Participation: newParticipationView(res.Participation),
		Round:         newRoundView(res.Round),
		RoundFilled:   res.RoundFilled,
	}
	switch res.Participation.Kind {
	case entities.ParticipationKindPaid:
		balance := res.BalanceAfter
		view.BalanceAfter = &balance
	case entities.ParticipationKindFree:
		remaining := res.FreeClaimsRemaining
		resetsAt := res.AllowanceResetsAt
		view.FreeClaimsRemaining = &remaining
		view.AllowanceResetsAt = &resetsAt
	}
	return view
}

type drawView struct {
	Executed bool                 `json:"executed"`
	Round    *roundView           `json:"round,omitempty"`
	Result   *entities.DrawResult `json:"result,omitempty"`
}

func newDrawView(res *interfaces.DrawResponse) drawView {
	view := drawView{Executed: res.Executed, Result: res.Result}
	if res.Round != nil {
		round := newRoundView(res.Round)
		view.Round = &round
	}
	return view
}

type voidView struct {
	Round          roundView `json:"round"`
	RefundedCount  int       `json:"refundedCount"`
	RefundedAmount int64     `json:"refundedAmount"`
}

type userView struct {
	ID                  string    `json:"id"`
	Balance             int64     `json:"balance"`
	FreeClaimsRemaining int       `json:"freeClaimsRemaining"`
	CreatedAt           time.Time `json:"createdAt"`
}
