package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSha256HexIsDeterministicAndLowercase(t *testing.T) {
	a := Sha256Hex([]byte("hello"))
	b := Sha256Hex([]byte("hello"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
}

func TestSha256HexDiffersOnDifferentInput(t *testing.T) {
	assert.NotEqual(t, Sha256Hex([]byte("a")), Sha256Hex([]byte("b")))
}

func TestContentDigest128IsDeterministicAnd32Hex(t *testing.T) {
	a := ContentDigest128([]byte("chunk text"))
	b := ContentDigest128([]byte("chunk text"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", a)
}

func TestContentDigest128DiffersOnDifferentInput(t *testing.T) {
	assert.NotEqual(t, ContentDigest128([]byte("one")), ContentDigest128([]byte("two")))
}

func TestCanonicalMapSortsKeysLexicographically(t *testing.T) {
	m1 := map[string]string{"b": "2", "a": "1", "c": "3"}
	m2 := map[string]string{"c": "3", "a": "1", "b": "2"}
	assert.Equal(t, CanonicalMap(m1), CanonicalMap(m2))
	assert.Equal(t, []byte("a=1\nb=2\nc=3\n"), CanonicalMap(m1))
}

func TestCanonicalMapEmpty(t *testing.T) {
	assert.Empty(t, CanonicalMap(map[string]string{}))
}
