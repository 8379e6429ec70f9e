package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// OverdueThresholds are the escalating waits after which a full round is reported
type OverdueThresholds struct {
	Low      time.Duration
	Medium   time.Duration
	High     time.Duration
	Critical time.Duration
}

// Severity returns the tier for a round that has waited this long, or "" if none applies
func (t OverdueThresholds) Severity(waited time.Duration) entities.IssueSeverity {
	switch {
	case waited >= t.Critical:
		return entities.SeverityCritical
	case waited >= t.High:
		return entities.SeverityHigh
	case waited >= t.Medium:
		return entities.SeverityMedium
	case waited >= t.Low:
		return entities.SeverityLow
	}
	return ""
}

// consistencyService is the read-only audit pass of the consistency monitor
type consistencyService struct {
	consistencyRepo interfaces.ConsistencyRepository
	thresholds      OverdueThresholds
	now             func() time.Time
}

// NewConsistencyService creates a new consistency monitor
func NewConsistencyService(consistencyRepo interfaces.ConsistencyRepository, thresholds OverdueThresholds) interfaces.ConsistencyService {
	return &consistencyService{
		consistencyRepo: consistencyRepo,
		thresholds:      thresholds,
		now:             time.Now,
	}
}

// Report audits every round, or only roundID when it is set
func (s *consistencyService) Report(ctx context.Context, roundID string) (*entities.ConsistencyReport, error) {
	snapshots, err := s.consistencyRepo.Snapshots(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger snapshots: %w", err)
	}
	if roundID != "" && len(snapshots) == 0 {
		return nil, ErrRoundNotFound
	}

	report := AuditSnapshots(snapshots, s.now(), s.thresholds)
	report.RoundID = roundID

	for _, issue := range report.Issues {
		entry := log.WithFields(log.Fields{
			"kind":        issue.Kind,
			"severity":    issue.Severity,
			"roundID":     issue.RoundID,
			"affectedIDs": issue.AffectedIDs,
		})
		if issue.Severity == entities.SeverityCritical {
			entry.Error(issue.Description)
		} else {
			entry.Warn(issue.Description)
		}
	}

	log.WithFields(log.Fields{
		"roundsChecked": report.RoundsChecked,
		"issues":        len(report.Issues),
		"scope":         roundID,
	}).Info("Consistency audit finished")

	return report, nil
}

// AuditSnapshots recomputes the ledger invariants over snapshots. It never writes;
// issues come back ordered most severe first.
func AuditSnapshots(snapshots []*entities.RoundLedgerSnapshot, now time.Time, thresholds OverdueThresholds) *entities.ConsistencyReport {
	report := &entities.ConsistencyReport{
		GeneratedAt:   now,
		RoundsChecked: len(snapshots),
		Issues:        []entities.ConsistencyIssue{},
		Summary:       map[entities.IssueSeverity]int{},
	}

	for _, snap := range snapshots {
		auditRound(report, snap, now, thresholds)
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		return report.Issues[i].Severity.Rank() > report.Issues[j].Severity.Rank()
	})
	return report
}

func auditRound(report *entities.ConsistencyReport, snap *entities.RoundLedgerSnapshot, now time.Time, thresholds OverdueThresholds) {
	r := snap.Round
	add := func(kind entities.IssueKind, severity entities.IssueSeverity, affected []string, format string, args ...any) {
		report.Add(entities.ConsistencyIssue{
			Kind:        kind,
			Severity:    severity,
			RoundID:     r.ID,
			AffectedIDs: affected,
			Description: fmt.Sprintf(format, args...),
		})
	}
	self := []string{r.ID}

	if r.SoldShares != snap.LedgerShares {
		add(entities.IssueSoldSharesMismatch, entities.SeverityHigh, self,
			"round %s records %d sold shares but its participations sum to %d", r.ID, r.SoldShares, snap.LedgerShares)
	}

	if r.ParticipantCount != snap.LedgerParticipations {
		add(entities.IssueParticipantCountMismatch, entities.SeverityMedium, self,
			"round %s records %d participants but has %d participations", r.ID, r.ParticipantCount, snap.LedgerParticipations)
	}

	if len(snap.WinnerParticipationIDs) > 1 {
		add(entities.IssueDuplicateWinners, entities.SeverityCritical, snap.WinnerParticipationIDs,
			"round %s has %d participations flagged as winner", r.ID, len(snap.WinnerParticipationIDs))
	}

	completed := r.Status == entities.RoundStatusCompleted
	switch {
	case completed && !r.HasWinner():
		add(entities.IssueWinnerStatusMismatch, entities.SeverityHigh, self,
			"round %s is completed but has no winner set", r.ID)
	case !completed && r.HasWinner():
		add(entities.IssueWinnerStatusMismatch, entities.SeverityHigh, self,
			"round %s has a winner set while %s", r.ID, r.Status)
	}
	if !completed && len(snap.WinnerParticipationIDs) > 0 {
		add(entities.IssueWinnerStatusMismatch, entities.SeverityHigh, snap.WinnerParticipationIDs,
			"round %s has participations flagged as winner while %s", r.ID, r.Status)
	}
	if completed && !snap.HasDrawResult {
		add(entities.IssueWinnerStatusMismatch, entities.SeverityHigh, self,
			"round %s is completed but has no persisted draw result", r.ID)
	}
	if completed && r.WinnerParticipationID != nil && !contains(snap.WinnerParticipationIDs, *r.WinnerParticipationID) {
		add(entities.IssueWinnerStatusMismatch, entities.SeverityHigh, []string{r.ID, *r.WinnerParticipationID},
			"winning participation %s of round %s is not flagged as winner", *r.WinnerParticipationID, r.ID)
	}

	if len(snap.OutOfRangeParticipationIDs) > 0 {
		add(entities.IssueOutOfRangeNumbers, entities.SeverityMedium, snap.OutOfRangeParticipationIDs,
			"round %s has participations with numbers outside [%d, %d]", r.ID, r.MinNumber(), r.MaxNumber())
	}

	if len(snap.DuplicateNumbers) > 0 {
		dupes := make([]string, len(snap.DuplicateNumbers))
		for i, n := range snap.DuplicateNumbers {
			dupes[i] = strconv.FormatInt(n, 10)
		}
		add(entities.IssueDuplicateNumbers, entities.SeverityHigh, self,
			"round %s assigns numbers %v to more than one participation", r.ID, dupes)
	}

	if r.Status == entities.RoundStatusFull {
		if snap.LedgerParticipations == 0 {
			add(entities.IssueOrphanedFullRound, entities.SeverityHigh, self,
				"round %s is full but has no participations", r.ID)
		}

		filledAt := r.UpdatedAt
		if r.FilledAt != nil {
			filledAt = *r.FilledAt
		}
		waited := now.Sub(filledAt)
		if severity := thresholds.Severity(waited); severity != "" {
			add(entities.IssueOverdueDraw, severity, self,
				"round %s has waited %s for its draw", r.ID, waited.Truncate(time.Second))
		}
	}
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
