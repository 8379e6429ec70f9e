package entities

import "time"

// RoundAction is an administrative lifecycle action
type RoundAction string

const (
	RoundActionCreate RoundAction = "create"
	RoundActionVoid   RoundAction = "void"
)

// RoundAuditRecord records administrative lifecycle actions on a round
type RoundAuditRecord struct {
	ID        int64          `db:"id"`
	RoundID   string         `db:"round_id"`
	Action    RoundAction    `db:"action"`
	Actor     string         `db:"actor"`
	Reason    string         `db:"reason"`
	OldStatus RoundStatus    `db:"old_status"`
	NewStatus RoundStatus    `db:"new_status"`
	Metadata  map[string]any `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}
