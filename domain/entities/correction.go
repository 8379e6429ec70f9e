package entities

import "time"

// CorrectionTarget is the kind of record a correction overwrites
type CorrectionTarget string

const (
	CorrectionTargetRound         CorrectionTarget = "round"
	CorrectionTargetParticipation CorrectionTarget = "participation"
)

// Correctable fields. Anything outside this list is rejected.
const (
	FieldSoldShares            = "sold_shares"
	FieldParticipantCount      = "participant_count"
	FieldStatus                = "status"
	FieldWinnerParticipationID = "winner_participation_id"
	FieldWinningNumber         = "winning_number"
	FieldIsWinner              = "is_winner"
)

var correctableFields = map[CorrectionTarget]map[string]bool{
	CorrectionTargetRound: {
		FieldSoldShares:            true,
		FieldParticipantCount:      true,
		FieldStatus:                true,
		FieldWinnerParticipationID: true,
		FieldWinningNumber:         true,
	},
	CorrectionTargetParticipation: {
		FieldIsWinner: true,
	},
}

// IsCorrectable reports whether field may be overwritten on the given target type
func IsCorrectable(target CorrectionTarget, field string) bool {
	return correctableFields[target][field]
}

// CorrectionRequest asks to overwrite one named field on one record
type CorrectionRequest struct {
	TargetType CorrectionTarget `json:"targetType"`
	TargetID   string           `json:"targetId"`
	Field      string           `json:"field"`
	NewValue   string           `json:"newValue"` // empty string clears nullable fields
	OperatorID string           `json:"operatorId"`
	Reason     string           `json:"reason"`
	DryRun     bool             `json:"dryRun"` // validate and compute the change without writing it
}

// CorrectionRecord is the before/after audit entry written for every applied correction
type CorrectionRecord struct {
	ID         int64            `db:"id" json:"id"`
	TargetType CorrectionTarget `db:"target_type" json:"targetType"`
	TargetID   string           `db:"target_id" json:"targetId"`
	Field      string           `db:"field" json:"field"`
	OldValue   string           `db:"old_value" json:"oldValue"`
	NewValue   string           `db:"new_value" json:"newValue"`
	OperatorID string           `db:"operator_id" json:"operatorId"`
	Reason     string           `db:"reason" json:"reason"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	DryRun     bool             `db:"-" json:"dryRun,omitempty"`
}
