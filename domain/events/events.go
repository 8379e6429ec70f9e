package events

import (
	"time"

	"drawpool/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange          EventType = "balance_change"
	EventTypeParticipationAllocated EventType = "participation_allocated"
	EventTypeFirstParticipation     EventType = "first_participation"
	EventTypeRoundFilled            EventType = "round_filled"
	EventTypeRoundCreated           EventType = "round_created"
	EventTypeRoundVoided            EventType = "round_voided"
	EventTypeDrawCompleted          EventType = "draw_completed"
	EventTypeWinnerSelected         EventType = "winner_selected"
	EventTypeDrawFailed             EventType = "draw_failed"
	EventTypeCorrectionApplied      EventType = "correction_applied"
	EventTypeConsistencyIssues      EventType = "consistency_issues_detected"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          string
	OldBalance      int64
	NewBalance      int64
	TransactionType entities.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ParticipationAllocatedEvent is emitted for every successful allocation
type ParticipationAllocatedEvent struct {
	ParticipationID string
	RoundID         string
	ProductID       string
	UserID          string
	Kind            entities.ParticipationKind
	Numbers         []int64
	SoldShares      int
	TotalShares     int
}

func (e ParticipationAllocatedEvent) Type() EventType {
	return EventTypeParticipationAllocated
}

// FirstParticipationEvent feeds the reward trigger; it fires once per user
type FirstParticipationEvent struct {
	UserID          string
	ParticipationID string
	RoundID         string
}

func (e FirstParticipationEvent) Type() EventType {
	return EventTypeFirstParticipation
}

// RoundFilledEvent is emitted when the last share of a round is allocated
type RoundFilledEvent struct {
	RoundID          string
	ProductID        string
	ParticipantCount int
	FilledAt         time.Time
}

func (e RoundFilledEvent) Type() EventType {
	return EventTypeRoundFilled
}

// RoundCreatedEvent is emitted when a round opens
type RoundCreatedEvent struct {
	RoundID     string
	ProductID   string
	RoundNumber int
	TotalShares int
	SharePrice  int64
}

func (e RoundCreatedEvent) Type() EventType {
	return EventTypeRoundCreated
}

// RoundVoidedEvent is emitted when an operator voids a round
type RoundVoidedEvent struct {
	RoundID        string
	OperatorID     string
	Reason         string
	RefundedCount  int
	RefundedAmount int64
}

func (e RoundVoidedEvent) Type() EventType {
	return EventTypeRoundVoided
}

// DrawCompletedEvent carries the public, verifiable draw output
type DrawCompletedEvent struct {
	RoundID                 string
	ProductID               string
	WinningNumber           int64
	WinnerParticipationID   string
	ParticipationCommitment string
	ProductCommitment       string
	EntropyCommitment       string
	AlgorithmVersion        string
	Forced                  bool
}

func (e DrawCompletedEvent) Type() EventType {
	return EventTypeDrawCompleted
}

// WinnerSelectedEvent feeds the win notification
type WinnerSelectedEvent struct {
	RoundID         string
	ProductID       string
	UserID          string
	ParticipationID string
	WinningNumber   int64
}

func (e WinnerSelectedEvent) Type() EventType {
	return EventTypeWinnerSelected
}

// DrawFailedEvent is an alert: the round stays unresolved until someone acts
type DrawFailedEvent struct {
	RoundID string
	Trigger entities.DrawTrigger
	Actor   string
	Error   string
}

func (e DrawFailedEvent) Type() EventType {
	return EventTypeDrawFailed
}

// CorrectionAppliedEvent is emitted after an audited corrective write
type CorrectionAppliedEvent struct {
	TargetType entities.CorrectionTarget
	TargetID   string
	Field      string
	OldValue   string
	NewValue   string
	OperatorID string
}

func (e CorrectionAppliedEvent) Type() EventType {
	return EventTypeCorrectionApplied
}

// ConsistencyIssuesDetectedEvent summarizes a scheduled audit that found problems
type ConsistencyIssuesDetectedEvent struct {
	GeneratedAt     time.Time
	IssueCount      int
	HighestSeverity entities.IssueSeverity
	Summary         map[entities.IssueSeverity]int
}

func (e ConsistencyIssuesDetectedEvent) Type() EventType {
	return EventTypeConsistencyIssues
}
