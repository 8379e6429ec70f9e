package repository

import (
	"context"
	"errors"
	"fmt"

	"drawpool/database"
	"drawpool/domain/entities"

	"github.com/jackc/pgx/v5"
)

// DrawResultRepository stores immutable draw results. round_id is the primary key,
// so a round can never hold two results.
type DrawResultRepository struct {
	q Queryable
}

// NewDrawResultRepository creates a new draw result repository
func NewDrawResultRepository(db *database.DB) *DrawResultRepository {
	return &DrawResultRepository{q: db.Pool}
}

func newDrawResultRepositoryWithTx(tx Queryable) *DrawResultRepository {
	return &DrawResultRepository{q: tx}
}

// Create persists a draw result
func (r *DrawResultRepository) Create(ctx context.Context, result *entities.DrawResult) error {
	query := `
		INSERT INTO draw_results (
			round_id, winning_number, winner_participation_id, winner_user_id,
			participation_commitment, product_commitment, entropy_commitment, entropy_seed,
			algorithm_version, schema_version, min_number, max_number,
			participation_count, forced, drawn_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.Exec(ctx, query,
		result.RoundID,
		result.WinningNumber,
		result.WinnerParticipationID,
		result.WinnerUserID,
		result.ParticipationCommitment,
		result.ProductCommitment,
		result.EntropyCommitment,
		result.EntropySeed,
		result.AlgorithmVersion,
		result.SchemaVersion,
		result.MinNumber,
		result.MaxNumber,
		result.ParticipationCount,
		result.Forced,
		result.DrawnAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create draw result for round %s: %w", result.RoundID, err)
	}
	return nil
}

// GetByRoundID returns the result of a round, or nil if it was never drawn
func (r *DrawResultRepository) GetByRoundID(ctx context.Context, roundID string) (*entities.DrawResult, error) {
	query := `
		SELECT round_id, winning_number, winner_participation_id, winner_user_id,
		       participation_commitment, product_commitment, entropy_commitment, entropy_seed,
		       algorithm_version, schema_version, min_number, max_number,
		       participation_count, forced, drawn_at
		FROM draw_results
		WHERE round_id = $1
	`

	var result entities.DrawResult
	err := r.q.QueryRow(ctx, query, roundID).Scan(
		&result.RoundID,
		&result.WinningNumber,
		&result.WinnerParticipationID,
		&result.WinnerUserID,
		&result.ParticipationCommitment,
		&result.ProductCommitment,
		&result.EntropyCommitment,
		&result.EntropySeed,
		&result.AlgorithmVersion,
		&result.SchemaVersion,
		&result.MinNumber,
		&result.MaxNumber,
		&result.ParticipationCount,
		&result.Forced,
		&result.DrawnAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result for round %s: %w", roundID, err)
	}
	return &result, nil
}
