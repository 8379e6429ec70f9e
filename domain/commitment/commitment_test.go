package commitment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_KnownVector(t *testing.T) {
	t.Parallel()

	d := Hash([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.Hex())
}

func TestHash_ConcatenatesParts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("a"), []byte("bc")))
	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("ab"), nil, []byte("c")))
}

func TestKeyedHash_KnownVector(t *testing.T) {
	t.Parallel()

	d := KeyedHash([]byte("Jefe"), []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", d.Hex())
}

func TestKeyedHash_KeyMatters(t *testing.T) {
	t.Parallel()

	data := []byte("participations")
	assert.NotEqual(t, KeyedHash([]byte("key-a"), data), KeyedHash([]byte("key-b"), data))
	assert.NotEqual(t, Hash(data), KeyedHash([]byte("key-a"), data))
}

func TestParseHex_RoundTrip(t *testing.T) {
	t.Parallel()

	d := Hash([]byte("round-1"))
	parsed, err := ParseHex(d.Hex())
	require.NoError(t, err)
	assert.True(t, d.Equal(parsed))

	_, err = ParseHex("abcd")
	assert.Error(t, err)

	_, err = ParseHex("zz")
	assert.Error(t, err)
}

func TestCanonical_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := Canonical(map[string]any{"schemaVersion": 1, "productId": "p-1"})
	require.NoError(t, err)
	b, err := Canonical(map[string]any{"productId": "p-1", "schemaVersion": 1})
	require.NoError(t, err)

	assert.Equal(t, `{"productId":"p-1","schemaVersion":1}`, string(a))
	assert.Equal(t, a, b)
}

func TestCanonical_KeepsMarkupCharacters(t *testing.T) {
	t.Parallel()

	data, err := Canonical(struct {
		ID string `json:"id"`
	}{ID: "a<b>&c"})
	require.NoError(t, err)

	assert.Equal(t, `{"id":"a<b>&c"}`, string(data))
	assert.NotContains(t, string(data), "\n")
}

func TestDigest_IsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, Digest{}.IsZero())
	assert.False(t, Hash(nil).IsZero())
}
