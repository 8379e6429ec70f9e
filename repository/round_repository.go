package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawpool/database"
	"drawpool/domain/entities"

	"github.com/jackc/pgx/v5"
)

const roundColumns = `id, product_id, round_number, total_shares, sold_shares, participant_count,
	share_price, number_base, status, winner_participation_id, winning_number,
	filled_at, draw_time, created_at, updated_at`

// correctableRoundColumns maps correction fields to the column they overwrite
var correctableRoundColumns = map[string]string{
	entities.FieldSoldShares:            "sold_shares",
	entities.FieldParticipantCount:      "participant_count",
	entities.FieldStatus:                "status",
	entities.FieldWinnerParticipationID: "winner_participation_id",
	entities.FieldWinningNumber:         "winning_number",
}

// RoundRepository implements the RoundRepository interface. Every status and counter
// change is a single conditional UPDATE; a write whose guard no longer holds returns nil.
type RoundRepository struct {
	q Queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

func newRoundRepositoryWithTx(tx Queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*entities.Round, error) {
	var round entities.Round
	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// queryRound runs a single-row round query, mapping no rows to nil
func (r *RoundRepository) queryRound(ctx context.Context, op string, query string, args ...any) (*entities.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return round, nil
}

// Create inserts a new round
func (r *RoundRepository) Create(ctx context.Context, round *entities.Round) error {
	query := `
		INSERT INTO rounds (id, product_id, round_number, total_shares, share_price, number_base, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		round.ID,
		round.ProductID,
		round.RoundNumber,
		round.TotalShares,
		round.SharePrice,
		round.NumberBase,
		round.Status,
	).Scan(&round.CreatedAt, &round.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round %d of product %s: %w", round.RoundNumber, round.ProductID, err)
	}
	return nil
}

// GetByID retrieves a round by id
func (r *RoundRepository) GetByID(ctx context.Context, id string) (*entities.Round, error) {
	return r.queryRound(ctx, "get round "+id,
		`SELECT `+roundColumns+` FROM rounds WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a round and locks its row until the transaction ends
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id string) (*entities.Round, error) {
	return r.queryRound(ctx, "lock round "+id,
		`SELECT `+roundColumns+` FROM rounds WHERE id = $1 FOR UPDATE`, id)
}

// GetLatestForProduct returns the highest numbered round of a product
func (r *RoundRepository) GetLatestForProduct(ctx context.Context, productID string) (*entities.Round, error) {
	return r.queryRound(ctx, "get latest round of product "+productID, `
		SELECT `+roundColumns+`
		FROM rounds
		WHERE product_id = $1
		ORDER BY round_number DESC
		LIMIT 1
	`, productID)
}

// IncrementSold reserves shares on an open round. The guard and the increment run
// in one statement, so two concurrent allocators can never both take the last share.
func (r *RoundRepository) IncrementSold(ctx context.Context, id string, shares int, now time.Time) (*entities.Round, error) {
	query := `
		UPDATE rounds
		SET sold_shares = sold_shares + $2,
		    participant_count = participant_count + 1,
		    status = CASE WHEN sold_shares + $2 = total_shares THEN 'full' ELSE status END,
		    filled_at = CASE WHEN sold_shares + $2 = total_shares THEN $3 ELSE filled_at END,
		    updated_at = $3
		WHERE id = $1
		  AND status = 'open'
		  AND sold_shares + $2 <= total_shares
		RETURNING ` + roundColumns

	return r.queryRound(ctx, "increment sold shares of round "+id, query, id, shares, now)
}

// ClaimForDraw moves a full round to drawing. Exactly one caller can win this write.
func (r *RoundRepository) ClaimForDraw(ctx context.Context, id string, now time.Time) (*entities.Round, error) {
	query := `
		UPDATE rounds
		SET status = 'drawing', updated_at = $2
		WHERE id = $1 AND status = 'full'
		RETURNING ` + roundColumns

	return r.queryRound(ctx, "claim round "+id+" for draw", query, id, now)
}

// CompleteDraw writes the winner and moves a drawing round to completed
func (r *RoundRepository) CompleteDraw(ctx context.Context, id string, winnerParticipationID string, winningNumber int64, drawTime time.Time) (*entities.Round, error) {
	query := `
		UPDATE rounds
		SET status = 'completed',
		    winner_participation_id = $2,
		    winning_number = $3,
		    draw_time = $4,
		    updated_at = $4
		WHERE id = $1 AND status = 'drawing'
		RETURNING ` + roundColumns

	return r.queryRound(ctx, "complete draw of round "+id, query, id, winnerParticipationID, winningNumber, drawTime)
}

// TransitionStatus moves a round to `to` only from one of the listed states
func (r *RoundRepository) TransitionStatus(ctx context.Context, id string, from []entities.RoundStatus, to entities.RoundStatus) (*entities.Round, error) {
	fromValues := make([]string, len(from))
	for i, s := range from {
		fromValues[i] = string(s)
	}

	query := `
		UPDATE rounds
		SET status = $3,
		    filled_at = CASE WHEN $3 = 'full' THEN COALESCE(filled_at, NOW()) ELSE filled_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
		RETURNING ` + roundColumns

	return r.queryRound(ctx, fmt.Sprintf("move round %s to %s", id, to), query, id, fromValues, string(to))
}

// ListFull returns full rounds whose filled_at lies in [filledFrom, filledTo], oldest first
func (r *RoundRepository) ListFull(ctx context.Context, filledFrom, filledTo time.Time, limit int) ([]*entities.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = 'full'
		  AND filled_at BETWEEN $1 AND $2
		ORDER BY filled_at ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, filledFrom, filledTo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list full rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*entities.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// ApplyCorrection overwrites one whitelisted column
func (r *RoundRepository) ApplyCorrection(ctx context.Context, id string, field string, value any) error {
	column, ok := correctableRoundColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not correctable", field)
	}

	query := fmt.Sprintf(`UPDATE rounds SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	result, err := r.q.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("failed to correct %s of round %s: %w", field, id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("round %s not found", id)
	}
	return nil
}
