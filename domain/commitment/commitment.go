// Package commitment turns canonicalized data into fixed-length binding values.
//
// Hash is SHA-256 over the concatenation of its parts. KeyedHash is HMAC-SHA256.
// Both are deterministic; callers are responsible for canonical ordering of
// the bytes they pass in.
package commitment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Size is the length in bytes of every digest
const Size = sha256.Size

// Digest is a fixed-length commitment value
type Digest [Size]byte

// Hex returns the lowercase hex encoding of the digest
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns the digest as a slice
func (d Digest) Bytes() []byte {
	return d[:]
}

// String implements fmt.Stringer
func (d Digest) String() string {
	return d.Hex()
}

// IsZero returns true for the zero digest
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Equal compares two digests in constant time
func (d Digest) Equal(other Digest) bool {
	return hmac.Equal(d[:], other[:])
}

// ParseHex decodes a hex encoded digest
func ParseHex(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("failed to decode digest: %w", err)
	}
	if len(raw) != Size {
		return d, fmt.Errorf("digest must be %d bytes, got %d", Size, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// Hash returns SHA-256 over the concatenation of parts
func Hash(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// KeyedHash returns HMAC-SHA256 of the concatenation of parts under key
func KeyedHash(key []byte, parts ...[]byte) Digest {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	var d Digest
	copy(d[:], mac.Sum(nil))
	return d
}

// Canonical serializes v as compact JSON. Struct fields keep declaration order and
// map keys are sorted, so equal values always serialize to equal bytes. '<', '>' and
// '&' are written literally, never as \u003c-style escapes.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
