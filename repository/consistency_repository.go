package repository

import (
	"context"
	"fmt"

	"drawpool/database"
	"drawpool/domain/entities"
)

// ConsistencyRepository reads ledger aggregates for the consistency monitor. It always
// runs on the pool, never inside a unit of work, and takes no row locks.
type ConsistencyRepository struct {
	q Queryable
}

// NewConsistencyRepository creates a new consistency repository
func NewConsistencyRepository(db *database.DB) *ConsistencyRepository {
	return &ConsistencyRepository{q: db.Pool}
}

// Snapshots joins each round with the aggregates of its participation ledger.
// An empty roundID covers every round.
func (r *ConsistencyRepository) Snapshots(ctx context.Context, roundID string) ([]*entities.RoundLedgerSnapshot, error) {
	query := `
		SELECT
			r.id, r.product_id, r.round_number, r.total_shares, r.sold_shares, r.participant_count,
			r.share_price, r.number_base, r.status, r.winner_participation_id, r.winning_number,
			r.filled_at, r.draw_time, r.created_at, r.updated_at,
			COALESCE(ledger.shares, 0),
			COALESCE(ledger.participations, 0),
			COALESCE(ledger.winners, '{}'::text[]),
			COALESCE(out_of_range.ids, '{}'::text[]),
			COALESCE(duplicates.numbers, '{}'::bigint[]),
			dr.round_id IS NOT NULL
		FROM rounds r
		LEFT JOIN LATERAL (
			SELECT
				SUM(p.shares_count)::int AS shares,
				COUNT(*)::int AS participations,
				ARRAY_AGG(p.id ORDER BY p.id) FILTER (WHERE p.is_winner) AS winners
			FROM participations p
			WHERE p.round_id = r.id
		) ledger ON TRUE
		LEFT JOIN LATERAL (
			SELECT ARRAY_AGG(p.id ORDER BY p.id) AS ids
			FROM participations p
			WHERE p.round_id = r.id
			  AND EXISTS (
				SELECT 1 FROM unnest(p.numbers) AS n
				WHERE n < r.number_base + 1 OR n > r.number_base + r.total_shares
			  )
		) out_of_range ON TRUE
		LEFT JOIN LATERAL (
			SELECT ARRAY_AGG(d.n ORDER BY d.n) AS numbers
			FROM (
				SELECT n
				FROM participations p, unnest(p.numbers) AS n
				WHERE p.round_id = r.id
				GROUP BY n
				HAVING COUNT(*) > 1
			) d
		) duplicates ON TRUE
		LEFT JOIN draw_results dr ON dr.round_id = r.id
		WHERE ($1 = '' OR r.id = $1)
		ORDER BY r.created_at ASC, r.id ASC
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*entities.RoundLedgerSnapshot
	for rows.Next() {
		var round entities.Round
		snapshot := &entities.RoundLedgerSnapshot{Round: &round}
		if err := rows.Scan(
			&round.ID,
			&round.ProductID,
			&round.RoundNumber,
			&round.TotalShares,
			&round.SoldShares,
			&round.ParticipantCount,
			&round.SharePrice,
			&round.NumberBase,
			&round.Status,
			&round.WinnerParticipationID,
			&round.WinningNumber,
			&round.FilledAt,
			&round.DrawTime,
			&round.CreatedAt,
			&round.UpdatedAt,
			&snapshot.LedgerShares,
			&snapshot.LedgerParticipations,
			&snapshot.WinnerParticipationIDs,
			&snapshot.OutOfRangeParticipationIDs,
			&snapshot.DuplicateNumbers,
			&snapshot.HasDrawResult,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
