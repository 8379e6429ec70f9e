package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to RoundStatus
		allowed  bool
	}{
		{RoundStatusOpen, RoundStatusFull, true},
		{RoundStatusOpen, RoundStatusVoid, true},
		{RoundStatusOpen, RoundStatusDrawing, false},
		{RoundStatusOpen, RoundStatusCompleted, false},
		{RoundStatusFull, RoundStatusDrawing, true},
		{RoundStatusFull, RoundStatusVoid, true},
		{RoundStatusFull, RoundStatusOpen, false},
		{RoundStatusDrawing, RoundStatusCompleted, true},
		{RoundStatusDrawing, RoundStatusFull, false},
		{RoundStatusDrawing, RoundStatusVoid, false},
		{RoundStatusCompleted, RoundStatusOpen, false},
		{RoundStatusCompleted, RoundStatusVoid, false},
		{RoundStatusVoid, RoundStatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRoundStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, RoundStatusCompleted.IsTerminal())
	assert.True(t, RoundStatusVoid.IsTerminal())
	assert.False(t, RoundStatusOpen.IsTerminal())
	assert.False(t, RoundStatusFull.IsTerminal())
	assert.False(t, RoundStatusDrawing.IsTerminal())
	assert.False(t, RoundStatus("bogus").IsValid())
}

func TestRound_NumberRange(t *testing.T) {
	t.Parallel()

	round := &Round{NumberBase: 10000000, TotalShares: 10, SoldShares: 4}

	assert.Equal(t, int64(10000001), round.MinNumber())
	assert.Equal(t, int64(10000010), round.MaxNumber())
	assert.Equal(t, 6, round.RemainingShares())
	assert.True(t, round.InRange(10000001))
	assert.True(t, round.InRange(10000010))
	assert.False(t, round.InRange(10000000))
	assert.False(t, round.InRange(10000011))
}

func TestNumberBlock(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int64{10000005, 10000006, 10000007}, NumberBlock(10000000, 4, 3))
	assert.Equal(t, []int64{1}, NumberBlock(0, 0, 1))
	assert.Empty(t, NumberBlock(0, 0, 0))
}

func TestRound_FullSince(t *testing.T) {
	t.Parallel()

	now := time.Now()
	filled := now.Add(-7 * time.Minute)
	round := &Round{Status: RoundStatusFull, FilledAt: &filled}
	assert.Equal(t, 7*time.Minute, round.FullSince(now))

	round.Status = RoundStatusCompleted
	assert.Zero(t, round.FullSince(now))
}

func TestParticipation_SortedNumbers(t *testing.T) {
	t.Parallel()

	p := &Participation{Numbers: []int64{9, 3, 5}}
	assert.Equal(t, []int64{3, 5, 9}, p.SortedNumbers())
	assert.Equal(t, []int64{9, 3, 5}, p.Numbers, "original order untouched")
	assert.True(t, p.HasNumber(5))
	assert.False(t, p.HasNumber(4))
}

func TestConsistencyReport_Summary(t *testing.T) {
	t.Parallel()

	report := &ConsistencyReport{}
	assert.True(t, report.IsHealthy())
	assert.Equal(t, IssueSeverity(""), report.HighestSeverity())

	report.Add(ConsistencyIssue{Kind: IssueOutOfRangeNumbers, Severity: SeverityMedium})
	report.Add(ConsistencyIssue{Kind: IssueDuplicateWinners, Severity: SeverityCritical})
	report.Add(ConsistencyIssue{Kind: IssueOutOfRangeNumbers, Severity: SeverityMedium})

	assert.False(t, report.IsHealthy())
	assert.Equal(t, SeverityCritical, report.HighestSeverity())
	assert.Equal(t, 2, report.Summary[SeverityMedium])
	assert.Len(t, report.ByKind(IssueOutOfRangeNumbers), 2)
}

func TestIsCorrectable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCorrectable(CorrectionTargetRound, FieldSoldShares))
	assert.True(t, IsCorrectable(CorrectionTargetParticipation, FieldIsWinner))
	assert.False(t, IsCorrectable(CorrectionTargetParticipation, "numbers"))
	assert.False(t, IsCorrectable(CorrectionTargetRound, "total_shares"))
	assert.False(t, IsCorrectable("user", "balance"))
}
