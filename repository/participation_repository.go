package repository

import (
	"context"
	"errors"
	"fmt"

	"drawpool/database"
	"drawpool/domain/entities"

	"github.com/jackc/pgx/v5"
)

const participationColumns = `id, user_id, round_id, product_id, numbers, shares_count, kind, cost, is_winner, created_at`

// ParticipationRepository implements the append-only participation ledger
type ParticipationRepository struct {
	q Queryable
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *database.DB) *ParticipationRepository {
	return &ParticipationRepository{q: db.Pool}
}

func newParticipationRepositoryWithTx(tx Queryable) *ParticipationRepository {
	return &ParticipationRepository{q: tx}
}

func scanParticipation(row rowScanner) (*entities.Participation, error) {
	var p entities.Participation
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.RoundID,
		&p.ProductID,
		&p.Numbers,
		&p.SharesCount,
		&p.Kind,
		&p.Cost,
		&p.IsWinner,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create appends a participation
func (r *ParticipationRepository) Create(ctx context.Context, p *entities.Participation) error {
	query := `
		INSERT INTO participations (id, user_id, round_id, product_id, numbers, shares_count, kind, cost, is_winner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.RoundID,
		p.ProductID,
		p.Numbers,
		p.SharesCount,
		p.Kind,
		p.Cost,
		p.IsWinner,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create participation %s: %w", p.ID, err)
	}
	return nil
}

func (r *ParticipationRepository) get(ctx context.Context, query string, id string) (*entities.Participation, error) {
	p, err := scanParticipation(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participation %s: %w", id, err)
	}
	return p, nil
}

// GetByID retrieves a participation by id
func (r *ParticipationRepository) GetByID(ctx context.Context, id string) (*entities.Participation, error) {
	return r.get(ctx, `SELECT `+participationColumns+` FROM participations WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a participation with a row lock
func (r *ParticipationRepository) GetByIDForUpdate(ctx context.Context, id string) (*entities.Participation, error) {
	return r.get(ctx, `SELECT `+participationColumns+` FROM participations WHERE id = $1 FOR UPDATE`, id)
}

// ListByRound returns every participation of a round ordered by id
func (r *ParticipationRepository) ListByRound(ctx context.Context, roundID string) ([]*entities.Participation, error) {
	query := `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE round_id = $1
		ORDER BY id COLLATE "C"
	`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations of round %s: %w", roundID, err)
	}
	defer rows.Close()

	var participations []*entities.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, p)
	}
	return participations, rows.Err()
}

// CountByUser returns how many participations a user holds across all rounds
func (r *ParticipationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM participations WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participations of user %s: %w", userID, err)
	}
	return count, nil
}

// SetWinner sets is_winner on a participation
func (r *ParticipationRepository) SetWinner(ctx context.Context, id string, isWinner bool) error {
	result, err := r.q.Exec(ctx, `UPDATE participations SET is_winner = $2 WHERE id = $1`, id, isWinner)
	if err != nil {
		return fmt.Errorf("failed to set winner flag on participation %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participation %s not found", id)
	}
	return nil
}
