package entities

import "time"

// DrawResult is the immutable record of a completed draw. Commitments and the
// revealed entropy seed are hex encoded.
type DrawResult struct {
	RoundID                 string    `db:"round_id" json:"roundId"`
	WinningNumber           int64     `db:"winning_number" json:"winningNumber"`
	WinnerParticipationID   string    `db:"winner_participation_id" json:"winnerParticipationId"`
	WinnerUserID            string    `db:"winner_user_id" json:"winnerUserId"`
	ParticipationCommitment string    `db:"participation_commitment" json:"participationCommitment"`
	ProductCommitment       string    `db:"product_commitment" json:"productCommitment"`
	EntropyCommitment       string    `db:"entropy_commitment" json:"entropyCommitment"`
	EntropySeed             string    `db:"entropy_seed" json:"entropySeed"`
	AlgorithmVersion        string    `db:"algorithm_version" json:"algorithmVersion"`
	SchemaVersion           int       `db:"schema_version" json:"schemaVersion"`
	MinNumber               int64     `db:"min_number" json:"minNumber"`
	MaxNumber               int64     `db:"max_number" json:"maxNumber"`
	ParticipationCount      int       `db:"participation_count" json:"participationCount"`
	Forced                  bool      `db:"forced" json:"forced"`
	DrawnAt                 time.Time `db:"drawn_at" json:"drawnAt"`
}

// DrawTrigger identifies which call site asked for a draw
type DrawTrigger string

const (
	DrawTriggerFill   DrawTrigger = "fill"
	DrawTriggerSweep  DrawTrigger = "sweep"
	DrawTriggerManual DrawTrigger = "manual"
	DrawTriggerForced DrawTrigger = "forced"
)

// DrawOutcome records what a draw attempt did
type DrawOutcome string

const (
	DrawOutcomeCompleted DrawOutcome = "completed"
	DrawOutcomeNoop      DrawOutcome = "noop"
	DrawOutcomeFailed    DrawOutcome = "failed"
)

// DrawAuditRecord is written for every draw attempt, including failed ones
type DrawAuditRecord struct {
	ID        int64       `db:"id"`
	RoundID   string      `db:"round_id"`
	Trigger   DrawTrigger `db:"trigger_source"`
	Actor     string      `db:"actor"`
	Reason    string      `db:"reason"`
	Outcome   DrawOutcome `db:"outcome"`
	Error     string      `db:"error"`
	CreatedAt time.Time   `db:"created_at"`
}
