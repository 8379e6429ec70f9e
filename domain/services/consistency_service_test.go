package services

import (
	"context"
	"testing"
	"time"

	"drawpool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testThresholds = OverdueThresholds{
	Low:      time.Minute,
	Medium:   5 * time.Minute,
	High:     10 * time.Minute,
	Critical: 30 * time.Minute,
}

// healthySnapshot returns a snapshot whose ledger agrees with the round
func healthySnapshot(round *entities.Round) *entities.RoundLedgerSnapshot {
	snap := &entities.RoundLedgerSnapshot{
		Round:                round,
		LedgerShares:         round.SoldShares,
		LedgerParticipations: round.ParticipantCount,
	}
	if round.Status == entities.RoundStatusCompleted && round.WinnerParticipationID != nil {
		snap.WinnerParticipationIDs = []string{*round.WinnerParticipationID}
		snap.HasDrawResult = true
	}
	return snap
}

func TestAuditSnapshots_HealthyRounds(t *testing.T) {
	t.Parallel()

	snapshots := []*entities.RoundLedgerSnapshot{
		healthySnapshot(newTestRound(withSold(4, 2))),
		healthySnapshot(newTestRound(withSold(10, 3), filledAgo(30*time.Second))),
		healthySnapshot(newTestRound(withSold(10, 2), filledAgo(time.Hour), withStatus(entities.RoundStatusCompleted), withWinner("p-b", 10000007))),
	}

	report := AuditSnapshots(snapshots, testNow, testThresholds)
	assert.True(t, report.IsHealthy(), "unexpected issues: %+v", report.Issues)
	assert.Equal(t, 3, report.RoundsChecked)
	assert.Equal(t, testNow, report.GeneratedAt)
}

func TestAuditSnapshots_SoldSharesMismatch(t *testing.T) {
	t.Parallel()

	// soldShares manually set to 8 while the ledger sums to 5
	snap := healthySnapshot(newTestRound(withSold(8, 2)))
	snap.LedgerShares = 5

	report := AuditSnapshots([]*entities.RoundLedgerSnapshot{snap}, testNow, testThresholds)

	issues := report.ByKind(entities.IssueSoldSharesMismatch)
	require.Len(t, issues, 1)
	assert.Equal(t, entities.SeverityHigh, issues[0].Severity)
	assert.Equal(t, testRoundID, issues[0].RoundID)
	assert.Contains(t, issues[0].Description, "8 sold shares")
	assert.Contains(t, issues[0].Description, "sum to 5")
	assert.Equal(t, 1, report.Summary[entities.SeverityHigh])
}

func TestAuditSnapshots_Checks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		snapshot func() *entities.RoundLedgerSnapshot
		kind     entities.IssueKind
		severity entities.IssueSeverity
	}{
		{
			name: "participant count mismatch",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(4, 3)))
				snap.LedgerParticipations = 2
				return snap
			},
			kind:     entities.IssueParticipantCountMismatch,
			severity: entities.SeverityMedium,
		},
		{
			name: "two winners in one round",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(time.Hour), withStatus(entities.RoundStatusCompleted), withWinner("p-b", 10000007)))
				snap.WinnerParticipationIDs = []string{"p-a", "p-b"}
				return snap
			},
			kind:     entities.IssueDuplicateWinners,
			severity: entities.SeverityCritical,
		},
		{
			name: "completed without winner",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(time.Hour), withStatus(entities.RoundStatusCompleted)))
				snap.HasDrawResult = true
				return snap
			},
			kind:     entities.IssueWinnerStatusMismatch,
			severity: entities.SeverityHigh,
		},
		{
			name: "winner set on open round",
			snapshot: func() *entities.RoundLedgerSnapshot {
				return healthySnapshot(newTestRound(withSold(4, 2), withWinner("p-a", 10000001)))
			},
			kind:     entities.IssueWinnerStatusMismatch,
			severity: entities.SeverityHigh,
		},
		{
			name: "completed without persisted draw result",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(time.Hour), withStatus(entities.RoundStatusCompleted), withWinner("p-b", 10000007)))
				snap.HasDrawResult = false
				return snap
			},
			kind:     entities.IssueWinnerStatusMismatch,
			severity: entities.SeverityHigh,
		},
		{
			name: "numbers out of range",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(4, 2)))
				snap.OutOfRangeParticipationIDs = []string{"p-x"}
				return snap
			},
			kind:     entities.IssueOutOfRangeNumbers,
			severity: entities.SeverityMedium,
		},
		{
			name: "number assigned twice",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(withSold(4, 2)))
				snap.DuplicateNumbers = []int64{10000002}
				return snap
			},
			kind:     entities.IssueDuplicateNumbers,
			severity: entities.SeverityHigh,
		},
		{
			name: "full round with no participations",
			snapshot: func() *entities.RoundLedgerSnapshot {
				snap := healthySnapshot(newTestRound(filledAgo(10 * time.Second)))
				snap.LedgerShares = 10
				snap.LedgerParticipations = 0
				return snap
			},
			kind:     entities.IssueOrphanedFullRound,
			severity: entities.SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			report := AuditSnapshots([]*entities.RoundLedgerSnapshot{tt.snapshot()}, testNow, testThresholds)
			issues := report.ByKind(tt.kind)
			require.NotEmpty(t, issues, "expected %s, got %+v", tt.kind, report.Issues)
			assert.Equal(t, tt.severity, issues[0].Severity)
		})
	}
}

func TestAuditSnapshots_OverdueTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		waited   time.Duration
		severity entities.IssueSeverity
	}{
		{waited: 30 * time.Second, severity: ""},
		{waited: time.Minute, severity: entities.SeverityLow},
		{waited: 7 * time.Minute, severity: entities.SeverityMedium},
		{waited: 10 * time.Minute, severity: entities.SeverityHigh},
		{waited: 2 * time.Hour, severity: entities.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.waited.String(), func(t *testing.T) {
			t.Parallel()
			snap := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(tt.waited)))
			snap.LedgerShares = 10
			snap.LedgerParticipations = 2

			report := AuditSnapshots([]*entities.RoundLedgerSnapshot{snap}, testNow, testThresholds)
			issues := report.ByKind(entities.IssueOverdueDraw)
			if tt.severity == "" {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, tt.severity, issues[0].Severity)
		})
	}
}

func TestAuditSnapshots_OrdersBySeverity(t *testing.T) {
	t.Parallel()

	low := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(2*time.Minute)))
	critical := healthySnapshot(newTestRound(withSold(10, 2), filledAgo(time.Hour), withStatus(entities.RoundStatusCompleted), withWinner("p-b", 10000007)))
	critical.Round.ID = "round-2"
	critical.WinnerParticipationIDs = []string{"p-a", "p-b"}

	report := AuditSnapshots([]*entities.RoundLedgerSnapshot{low, critical}, testNow, testThresholds)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, entities.SeverityCritical, report.Issues[0].Severity)
	assert.Equal(t, entities.SeverityLow, report.Issues[len(report.Issues)-1].Severity)
	assert.Equal(t, entities.SeverityCritical, report.HighestSeverity())
}

func TestConsistencyService_Report(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("scoped to a round", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := NewConsistencyService(m.ConsistencyRepo, testThresholds).(*consistencyService)
		service.now = fixedClock

		snap := healthySnapshot(newTestRound(withSold(8, 2)))
		snap.LedgerShares = 5
		m.ConsistencyRepo.On("Snapshots", ctx, testRoundID).Return([]*entities.RoundLedgerSnapshot{snap}, nil)

		report, err := service.Report(ctx, testRoundID)
		require.NoError(t, err)
		assert.Equal(t, testRoundID, report.RoundID)
		assert.Len(t, report.ByKind(entities.IssueSoldSharesMismatch), 1)
		m.AssertAllExpectations(t)
	})

	t.Run("unknown round", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := NewConsistencyService(m.ConsistencyRepo, testThresholds)

		m.ConsistencyRepo.On("Snapshots", ctx, "missing").Return([]*entities.RoundLedgerSnapshot{}, nil)

		_, err := service.Report(ctx, "missing")
		assert.ErrorIs(t, err, ErrRoundNotFound)
	})

	t.Run("empty store is healthy", func(t *testing.T) {
		t.Parallel()
		m := NewTestMocks()
		service := NewConsistencyService(m.ConsistencyRepo, testThresholds)

		m.ConsistencyRepo.On("Snapshots", ctx, "").Return([]*entities.RoundLedgerSnapshot{}, nil)

		report, err := service.Report(ctx, "")
		require.NoError(t, err)
		assert.True(t, report.IsHealthy())
		assert.Zero(t, report.RoundsChecked)
	})
}
