package services

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"drawpool/domain/entities"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testServerKey = []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
		0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
	}
	testEntropySeed = []byte("fixed-entropy-seed-for-tests-000")
)

const (
	testAlgorithmVersion = "3.1-hmac-sha256"
	testProductID        = "product-42"
	testNumberBase       = int64(10000000)
)

// splitParticipations builds the two-participant round used across draw tests:
// p-a holds base+1..base+5, p-b holds base+6..base+10. Numbers are stored unsorted
// to prove canonicalization sorts them.
func splitParticipations() []*entities.Participation {
	return []*entities.Participation{
		{
			ID:          "p-b",
			UserID:      "u-2",
			RoundID:     "round-1",
			Numbers:     []int64{10000007, 10000006, 10000008, 10000010, 10000009},
			SharesCount: 5,
			Kind:        entities.ParticipationKindPaid,
			Cost:        500,
			CreatedAt:   time.UnixMilli(1700000001000),
		},
		{
			ID:          "p-a",
			UserID:      "u-1",
			RoundID:     "round-1",
			Numbers:     []int64{10000003, 10000001, 10000002, 10000005, 10000004},
			SharesCount: 5,
			Kind:        entities.ParticipationKindPaid,
			Cost:        500,
			CreatedAt:   time.UnixMilli(1700000000000),
		},
	}
}

func newTestAlgorithm() *DrawAlgorithm {
	return NewDrawAlgorithm(testServerKey, testAlgorithmVersion, 1)
}

func TestCanonicalParticipations_Golden(t *testing.T) {
	t.Parallel()

	serialized, err := CanonicalParticipations(splitParticipations())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "canonical_participations", serialized)
}

func TestCanonicalParticipations_OrderIndependent(t *testing.T) {
	t.Parallel()

	ps := splitParticipations()
	reversed := []*entities.Participation{ps[1], ps[0]}

	a, err := CanonicalParticipations(ps)
	require.NoError(t, err)
	b, err := CanonicalParticipations(reversed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "p-b", ps[0].ID, "input slice must not be reordered")
}

func TestDrawAlgorithm_PinnedVector(t *testing.T) {
	t.Parallel()

	comp, err := newTestAlgorithm().Compute(DrawInput{
		Participations: splitParticipations(),
		ProductID:      testProductID,
		EntropySeed:    testEntropySeed,
		MinNumber:      testNumberBase + 1,
		MaxNumber:      testNumberBase + 10,
	})
	require.NoError(t, err)

	assert.Equal(t, "63130c620b038b989ca512c82731840495621e993e6cbbe856013baae99dc742", comp.ParticipationCommitment.Hex())
	assert.Equal(t, "2f05e3f24e650d0814c9868be5dc35ea292d4afff7932135163174a928eb702b", comp.ProductCommitment.Hex())
	assert.Equal(t, "aec9cb49a37160ec7f2a57178e9af41a4baa2c287d1e26cabd56942c90db10c1", comp.EntropyCommitment.Hex())
	assert.Equal(t, "e2070096e8530d5bc1fd90dbdb3102523381931781d688610026c6ed17d43bdf", comp.FinalSeed.Hex())
	assert.Equal(t, int64(10000007), comp.WinningNumber)

	// 7th number of a 1..10 split belongs to the holder of 6..10
	require.NotNil(t, comp.Winner)
	assert.Equal(t, "p-b", comp.Winner.ID)
}

func TestDrawAlgorithm_Deterministic(t *testing.T) {
	t.Parallel()

	in := DrawInput{
		Participations: splitParticipations(),
		ProductID:      testProductID,
		EntropySeed:    testEntropySeed,
		MinNumber:      testNumberBase + 1,
		MaxNumber:      testNumberBase + 10,
	}

	first, err := newTestAlgorithm().Compute(in)
	require.NoError(t, err)
	second, err := newTestAlgorithm().Compute(in)
	require.NoError(t, err)

	assert.Equal(t, first.WinningNumber, second.WinningNumber)
	assert.Equal(t, first.FinalSeed, second.FinalSeed)
}

func TestDrawAlgorithm_InputsChangeOutcome(t *testing.T) {
	t.Parallel()

	base := DrawInput{
		Participations: splitParticipations(),
		ProductID:      testProductID,
		EntropySeed:    testEntropySeed,
		MinNumber:      testNumberBase + 1,
		MaxNumber:      testNumberBase + 10,
	}
	ref, err := newTestAlgorithm().Compute(base)
	require.NoError(t, err)

	otherKey, err := NewDrawAlgorithm([]byte("another-server-key"), testAlgorithmVersion, 1).Compute(base)
	require.NoError(t, err)
	assert.NotEqual(t, ref.ParticipationCommitment, otherKey.ParticipationCommitment)

	otherSeed := base
	otherSeed.EntropySeed = []byte("different-seed")
	seeded, err := newTestAlgorithm().Compute(otherSeed)
	require.NoError(t, err)
	assert.NotEqual(t, ref.FinalSeed, seeded.FinalSeed)

	tampered := splitParticipations()
	tampered[0].Cost = 499
	tamperedIn := base
	tamperedIn.Participations = tampered
	changed, err := newTestAlgorithm().Compute(tamperedIn)
	require.NoError(t, err)
	assert.NotEqual(t, ref.ParticipationCommitment, changed.ParticipationCommitment)
}

func TestWinningNumber_AlwaysInRangeAndCovered(t *testing.T) {
	t.Parallel()

	const totalShares = 37
	ps := make([]*entities.Participation, 0, totalShares)
	sold := 0
	for i := 0; sold < totalShares; i++ {
		count := i%4 + 1
		if sold+count > totalShares {
			count = totalShares - sold
		}
		ps = append(ps, &entities.Participation{
			ID:          fmt.Sprintf("p-%03d", i),
			UserID:      fmt.Sprintf("u-%d", i%5),
			Numbers:     entities.NumberBlock(testNumberBase, sold, count),
			SharesCount: count,
			Cost:        int64(count * 100),
			CreatedAt:   time.UnixMilli(1700000000000 + int64(i)),
		})
		sold += count
	}

	alg := newTestAlgorithm()
	for i := 0; i < 500; i++ {
		seed := sha256.Sum256([]byte(fmt.Sprintf("seed-%d", i)))
		comp, err := alg.Compute(DrawInput{
			Participations: ps,
			ProductID:      testProductID,
			EntropySeed:    seed[:],
			MinNumber:      testNumberBase + 1,
			MaxNumber:      testNumberBase + totalShares,
		})
		require.NoError(t, err, "full coverage must always resolve a winner")
		assert.GreaterOrEqual(t, comp.WinningNumber, testNumberBase+1)
		assert.LessOrEqual(t, comp.WinningNumber, testNumberBase+totalShares)
		assert.True(t, comp.Winner.HasNumber(comp.WinningNumber))
	}
}

func TestWinningNumber_ReductionMatchesDefinition(t *testing.T) {
	t.Parallel()

	pc := EntropyCommitment([]byte("pc"))
	ec := EntropyCommitment([]byte("ec"))

	n, finalSeed, err := WinningNumber(pc, "prod", ec, "v1", 1, 6)
	require.NoError(t, err)

	expectedFinal := sha256.Sum256(append(append(append(pc.Bytes(), []byte("prod")...), ec.Bytes()...), []byte("v1")...))
	assert.Equal(t, expectedFinal[:], finalSeed.Bytes())

	reduced := sha256.Sum256(expectedFinal[:])
	x := binary.BigEndian.Uint64(reduced[:8])
	assert.Equal(t, int64(1+x%6), n)
}

func TestWinningNumber_EmptyRange(t *testing.T) {
	t.Parallel()

	_, _, err := WinningNumber(EntropyCommitment(nil), "prod", EntropyCommitment(nil), "v1", 10, 9)
	assert.ErrorIs(t, err, ErrDrawComputation)
}

func TestDrawAlgorithm_UncoveredNumberIsError(t *testing.T) {
	t.Parallel()

	// Forced draw on a round where only base+1..base+3 were sold; the single-number
	// range guarantees the drawn number is unsold.
	ps := []*entities.Participation{{
		ID:          "p-1",
		UserID:      "u-1",
		Numbers:     entities.NumberBlock(testNumberBase, 0, 3),
		SharesCount: 3,
		CreatedAt:   time.UnixMilli(1700000000000),
	}}

	_, err := newTestAlgorithm().Compute(DrawInput{
		Participations: ps,
		ProductID:      testProductID,
		EntropySeed:    testEntropySeed,
		MinNumber:      testNumberBase + 5,
		MaxNumber:      testNumberBase + 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDrawComputation)
	assert.Contains(t, err.Error(), "no participation holds winning number 10000005")
}

func TestDrawAlgorithm_RejectsEmptyInputs(t *testing.T) {
	t.Parallel()

	alg := newTestAlgorithm()

	_, err := alg.Compute(DrawInput{ProductID: testProductID, EntropySeed: testEntropySeed, MinNumber: 1, MaxNumber: 10})
	assert.ErrorIs(t, err, ErrDrawComputation)

	_, err = alg.Compute(DrawInput{Participations: splitParticipations(), ProductID: testProductID, MinNumber: 1, MaxNumber: 10})
	assert.ErrorIs(t, err, ErrDrawComputation)
}

func TestResolveWinner(t *testing.T) {
	t.Parallel()

	ps := []*entities.Participation{
		{ID: "first", Numbers: []int64{1, 2, 3, 4, 5}},
		{ID: "second", Numbers: []int64{6, 7, 8, 9, 10}},
	}

	winner, err := ResolveWinner(ps, 7)
	require.NoError(t, err)
	assert.Equal(t, "second", winner.ID)

	winner, err = ResolveWinner(ps, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", winner.ID)

	_, err = ResolveWinner(ps, 11)
	assert.ErrorIs(t, err, ErrDrawComputation)

	overlapping := append(ps, &entities.Participation{ID: "third", Numbers: []int64{7}})
	_, err = ResolveWinner(overlapping, 7)
	assert.ErrorIs(t, err, ErrDrawComputation)
}
