package entities

import (
	"time"
)

// IssueSeverity ranks how urgently a consistency issue needs attention
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// Rank orders severities so reports can be sorted most urgent first
func (s IssueSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// IssueKind names the invariant that was found broken
type IssueKind string

const (
	IssueSoldSharesMismatch       IssueKind = "sold_shares_mismatch"
	IssueParticipantCountMismatch IssueKind = "participant_count_mismatch"
	IssueDuplicateWinners         IssueKind = "duplicate_winners"
	IssueWinnerStatusMismatch     IssueKind = "winner_status_mismatch"
	IssueOutOfRangeNumbers        IssueKind = "out_of_range_numbers"
	IssueDuplicateNumbers         IssueKind = "duplicate_numbers"
	IssueOrphanedFullRound        IssueKind = "orphaned_full_round"
	IssueOverdueDraw              IssueKind = "overdue_draw"
)

// ConsistencyIssue is one divergence found by an audit pass. It is never persisted.
type ConsistencyIssue struct {
	Kind        IssueKind     `json:"kind"`
	Severity    IssueSeverity `json:"severity"`
	RoundID     string        `json:"roundId"`
	AffectedIDs []string      `json:"affectedIds"`
	Description string        `json:"description"`
}

// ConsistencyReport groups the issues of one audit pass
type ConsistencyReport struct {
	GeneratedAt   time.Time             `json:"generatedAt"`
	RoundID       string                `json:"roundId,omitempty"`
	RoundsChecked int                   `json:"roundsChecked"`
	Issues        []ConsistencyIssue    `json:"issues"`
	Summary       map[IssueSeverity]int `json:"summary"`
}

// Add appends an issue and updates the per-severity summary
func (r *ConsistencyReport) Add(issue ConsistencyIssue) {
	if r.Summary == nil {
		r.Summary = make(map[IssueSeverity]int)
	}
	r.Issues = append(r.Issues, issue)
	r.Summary[issue.Severity]++
}

// ByKind returns the issues of a single kind
func (r *ConsistencyReport) ByKind(kind IssueKind) []ConsistencyIssue {
	var out []ConsistencyIssue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

// IsHealthy returns true if the pass found nothing
func (r *ConsistencyReport) IsHealthy() bool {
	return len(r.Issues) == 0
}

// HighestSeverity returns the most urgent severity present, or "" when healthy
func (r *ConsistencyReport) HighestSeverity() IssueSeverity {
	var highest IssueSeverity
	for _, issue := range r.Issues {
		if issue.Severity.Rank() > highest.Rank() {
			highest = issue.Severity
		}
	}
	return highest
}

// RoundLedgerSnapshot is a round joined with the aggregates of its participation ledger
type RoundLedgerSnapshot struct {
	Round                      *Round
	LedgerShares               int
	LedgerParticipations       int
	WinnerParticipationIDs     []string
	OutOfRangeParticipationIDs []string
	DuplicateNumbers           []int64
	HasDrawResult              bool
}
