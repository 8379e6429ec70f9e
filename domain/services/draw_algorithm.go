package services

import (
	"encoding/binary"
	"fmt"
	"sort"

	"drawpool/domain/commitment"
	"drawpool/domain/entities"
)

// canonicalParticipation is the serialized shape bound by the participation commitment.
// Field order is part of the algorithm.
type canonicalParticipation struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	Numbers        []int64 `json:"numbers"`
	Cost           int64   `json:"cost"`
	CreatedAtEpoch int64   `json:"createdAtEpoch"` // unix milliseconds
}

type canonicalProduct struct {
	ProductID     string `json:"productId"`
	SchemaVersion int    `json:"schemaVersion"`
}

// CanonicalParticipations serializes participations sorted by id (bytewise), each with
// its numbers sorted ascending
func CanonicalParticipations(participations []*entities.Participation) ([]byte, error) {
	sorted := make([]*entities.Participation, len(participations))
	copy(sorted, participations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := make([]canonicalParticipation, len(sorted))
	for i, p := range sorted {
		out[i] = canonicalParticipation{
			ID:             p.ID,
			UserID:         p.UserID,
			Numbers:        p.SortedNumbers(),
			Cost:           p.Cost,
			CreatedAtEpoch: p.CreatedAt.UnixMilli(),
		}
	}
	return commitment.Canonical(out)
}

// DrawInput is everything a single draw consumes
type DrawInput struct {
	Participations []*entities.Participation
	ProductID      string
	EntropySeed    []byte
	MinNumber      int64
	MaxNumber      int64
}

// DrawComputation is the output of a draw before it is persisted
type DrawComputation struct {
	WinningNumber           int64
	Winner                  *entities.Participation
	ParticipationCommitment commitment.Digest
	ProductCommitment       commitment.Digest
	EntropyCommitment       commitment.Digest
	FinalSeed               commitment.Digest
}

// DrawAlgorithm derives a winning number from committed inputs. It is a pure function
// of (participations, productID, entropy seed, algorithm version).
type DrawAlgorithm struct {
	serverKey     []byte
	version       string
	schemaVersion int
}

// NewDrawAlgorithm creates a draw algorithm bound to a server key and version
func NewDrawAlgorithm(serverKey []byte, version string, schemaVersion int) *DrawAlgorithm {
	key := make([]byte, len(serverKey))
	copy(key, serverKey)
	return &DrawAlgorithm{serverKey: key, version: version, schemaVersion: schemaVersion}
}

// Version returns the algorithm version string mixed into every final seed
func (a *DrawAlgorithm) Version() string {
	return a.version
}

// SchemaVersion returns the product schema version bound by the product commitment
func (a *DrawAlgorithm) SchemaVersion() int {
	return a.schemaVersion
}

// ParticipationCommitment is keyedHash(serverKey, hash(canonical participations))
func (a *DrawAlgorithm) ParticipationCommitment(participations []*entities.Participation) (commitment.Digest, error) {
	serialized, err := CanonicalParticipations(participations)
	if err != nil {
		return commitment.Digest{}, err
	}
	inner := commitment.Hash(serialized)
	return commitment.KeyedHash(a.serverKey, inner.Bytes()), nil
}

// ProductCommitment is hash(serialize({productId, schemaVersion}))
func ProductCommitment(productID string, schemaVersion int) (commitment.Digest, error) {
	serialized, err := commitment.Canonical(canonicalProduct{ProductID: productID, SchemaVersion: schemaVersion})
	if err != nil {
		return commitment.Digest{}, err
	}
	return commitment.Hash(serialized), nil
}

// EntropyCommitment is hash(entropySeed)
func EntropyCommitment(seed []byte) commitment.Digest {
	return commitment.Hash(seed)
}

// WinningNumber derives the winning number from already committed values:
// finalSeed = hash(pc ++ productID ++ ec ++ version), X = first 8 bytes of hash(finalSeed)
// read big-endian, winningNumber = min + X mod (max-min+1).
//
// The modulo reduction is biased by at most range/2^64, which is negligible for any
// realistic share count.
func WinningNumber(participationCommitment commitment.Digest, productID string, entropyCommitment commitment.Digest, version string, minNumber, maxNumber int64) (int64, commitment.Digest, error) {
	if maxNumber < minNumber {
		return 0, commitment.Digest{}, fmt.Errorf("%w: empty number range [%d, %d]", ErrDrawComputation, minNumber, maxNumber)
	}

	finalSeed := commitment.Hash(
		participationCommitment.Bytes(),
		[]byte(productID),
		entropyCommitment.Bytes(),
		[]byte(version),
	)
	reduced := commitment.Hash(finalSeed.Bytes())
	x := binary.BigEndian.Uint64(reduced[:8])
	span := uint64(maxNumber-minNumber) + 1

	return minNumber + int64(x%span), finalSeed, nil
}

// Compute runs the full draw over in and resolves the winning participation
func (a *DrawAlgorithm) Compute(in DrawInput) (*DrawComputation, error) {
	if len(in.Participations) == 0 {
		return nil, fmt.Errorf("%w: round has no participations", ErrDrawComputation)
	}
	if len(in.EntropySeed) == 0 {
		return nil, fmt.Errorf("%w: entropy seed is empty", ErrDrawComputation)
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is empty", ErrDrawComputation)
	}

	pc, err := a.ParticipationCommitment(in.Participations)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDrawComputation, err)
	}
	prc, err := ProductCommitment(in.ProductID, a.schemaVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDrawComputation, err)
	}
	ec := EntropyCommitment(in.EntropySeed)

	winningNumber, finalSeed, err := WinningNumber(pc, in.ProductID, ec, a.version, in.MinNumber, in.MaxNumber)
	if err != nil {
		return nil, err
	}

	winner, err := ResolveWinner(in.Participations, winningNumber)
	if err != nil {
		return nil, err
	}

	return &DrawComputation{
		WinningNumber:           winningNumber,
		Winner:                  winner,
		ParticipationCommitment: pc,
		ProductCommitment:       prc,
		EntropyCommitment:       ec,
		FinalSeed:               finalSeed,
	}, nil
}

// ResolveWinner returns the single participation holding number. Zero or multiple
// holders are draw computation errors; the draw is never retried with another number.
func ResolveWinner(participations []*entities.Participation, number int64) (*entities.Participation, error) {
	var winner *entities.Participation
	for _, p := range participations {
		if !p.HasNumber(number) {
			continue
		}
		if winner != nil {
			return nil, fmt.Errorf("%w: number %d is held by participations %s and %s", ErrDrawComputation, number, winner.ID, p.ID)
		}
		winner = p
	}
	if winner == nil {
		return nil, fmt.Errorf("%w: no participation holds winning number %d", ErrDrawComputation, number)
	}
	return winner, nil
}
