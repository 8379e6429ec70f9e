// Package entropy provides the unpredictable input to the draw algorithm.
package entropy

import (
	"context"
	"crypto/rand"
	"fmt"
)

// SeedSize is the number of bytes every source returns
const SeedSize = 32

// Source supplies an entropy seed for a single draw. Seed is only called after
// the round has closed, so the value cannot be known while shares are on sale.
type Source interface {
	Seed(ctx context.Context, roundID string) ([]byte, error)
	Name() string
}

// CryptoSource draws seeds from the operating system CSPRNG
type CryptoSource struct{}

// NewCryptoSource creates the production entropy source
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

// Seed returns SeedSize fresh random bytes
func (s *CryptoSource) Seed(ctx context.Context, roundID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}
	return seed, nil
}

// Name identifies the source in logs
func (s *CryptoSource) Name() string {
	return "crypto"
}

// FixedSource returns the same injected seed for every round. It exists for tests
// and for offline replay of a revealed seed; production wiring never installs it.
type FixedSource struct {
	seed []byte
}

// NewFixedSource creates a source that always returns seed
func NewFixedSource(seed []byte) *FixedSource {
	cp := make([]byte, len(seed))
	copy(cp, seed)
	return &FixedSource{seed: cp}
}

// Seed returns a copy of the injected seed
func (s *FixedSource) Seed(ctx context.Context, roundID string) ([]byte, error) {
	if len(s.seed) == 0 {
		return nil, fmt.Errorf("fixed entropy source has no seed")
	}
	cp := make([]byte, len(s.seed))
	copy(cp, s.seed)
	return cp, nil
}

// Name identifies the source in logs
func (s *FixedSource) Name() string {
	return "fixed"
}
