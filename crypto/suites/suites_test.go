package suites

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSuites() []Suite {
	return []Suite{KeccakSuite{}, SHA256Suite{}, MiMCSuite{}}
}

func mustParse(t *testing.T, s string) Hash {
	h, err := ParseHash(s)
	require.NoError(t, err)
	return h
}

func TestParseHash(t *testing.T) {
	valid := "ad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5"

	h, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, h.String())

	upper, err := ParseHash(strings.ToUpper(valid))
	require.NoError(t, err)
	assert.Equal(t, h, upper)

	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"empty", "", ErrInvalidLength},
		{"short", valid[:62], ErrInvalidLength},
		{"long", valid + "00", ErrInvalidLength},
		{"odd", valid[:63], ErrInvalidLength},
		{"not hex", "zz" + valid[2:], ErrInvalidHex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHash(tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHashFromBytes(t *testing.T) {
	_, err := HashFromBytes(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidLength)

	raw := make([]byte, HashSize)
	raw[0] = 7
	h, err := HashFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(7), h[0])

	// The returned hash must not alias the input.
	raw[0] = 8
	assert.Equal(t, byte(7), h[0])
	assert.False(t, h.IsZero())
	assert.True(t, Hash{}.IsZero())
}

func TestHashJSON(t *testing.T) {
	h := KeccakSuite{}.HashLeaf([]byte("x"))

	raw, err := json.Marshal(struct{ H Hash }{h})
	require.NoError(t, err)
	assert.Equal(t, `{"H":"`+h.String()+`"}`, string(raw))

	var out struct{ H Hash }
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, h, out.H)

	assert.Error(t, json.Unmarshal([]byte(`{"H":"abcd"}`), &out))
}

func TestKeccakVectors(t *testing.T) {
	s := KeccakSuite{}

	assert.Equal(t,
		mustParse(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		s.HashLeaf(nil))
	assert.Equal(t,
		mustParse(t, "ad3228b676f7d3cd4284a5443f17f1962b36e491b30a40b2405849e597ba5fb5"),
		s.HashTwo(Hash{}, Hash{}))
	assert.Equal(t,
		mustParse(t, "c915e80eae100359639667317a39e43392d56b02d9328e8069bb872011b6e63b"),
		HashUint64(s, 42))

	var one Hash
	one[0] = 1
	assert.Equal(t,
		mustParse(t, "54e80df23a9f8619444caf8bfb3e72e2407268ff26c6a3163ee09e4940729fc9"),
		s.HashTwo(Hash{}, one))
	assert.Equal(t,
		mustParse(t, "82ac279db26a206d9ba5a94c07ff940aea4b3bfde8820ec95f4efa0acfd0d5bc"),
		s.HashTwo(one, Hash{}))
}

func TestSHA256Vectors(t *testing.T) {
	s := SHA256Suite{}

	assert.Equal(t,
		mustParse(t, "f5a5fd42d16a20302798ef6ed309979b43003d2320d9f0e8ea9831a92759fb4b"),
		s.HashTwo(Hash{}, Hash{}))
	assert.Equal(t,
		mustParse(t, "a6bb133cb1e3638ad7b8a3ff0539668e9e56f9b850ef1b2a810f5422eaa6c323"),
		HashUint64(s, 42))
}

func TestOrderSensitive(t *testing.T) {
	for _, s := range allSuites() {
		t.Run(s.Name(), func(t *testing.T) {
			a, b := s.HashLeaf([]byte("left")), s.HashLeaf([]byte("right"))
			assert.NotEqual(t, s.HashTwo(a, b), s.HashTwo(b, a))
			assert.Equal(t, s.HashTwo(a, b), s.HashTwo(a, b))
		})
	}
}

func TestHashLeafDeterministic(t *testing.T) {
	for _, s := range allSuites() {
		t.Run(s.Name(), func(t *testing.T) {
			assert.Equal(t, HashUint64(s, 7), HashUint64(s, 7))
			assert.NotEqual(t, HashUint64(s, 7), HashUint64(s, 8))

			// Arbitrary lengths, including ones that straddle a block.
			long := make([]byte, 100)
			for i := range long {
				long[i] = byte(i)
			}
			assert.Equal(t, s.HashLeaf(long), s.HashLeaf(long))
			assert.NotEqual(t, s.HashLeaf(long), s.HashLeaf(long[:99]))
			assert.NotEqual(t, s.HashLeaf([]byte{1}), s.HashLeaf([]byte{1, 0}))
		})
	}
}

func TestMiMCTotal(t *testing.T) {
	s := MiMCSuite{}

	// All-ones digests exceed the field modulus and must still hash.
	var ones Hash
	for i := range ones {
		ones[i] = 0xff
	}
	assert.NotPanics(t, func() { s.HashTwo(ones, ones) })
	assert.False(t, s.HashTwo(ones, Hash{}).IsZero())
	assert.NotPanics(t, func() { s.HashLeaf(ones[:]) })
}

func TestMiMCModulusShift(t *testing.T) {
	s := MiMCSuite{}
	other := s.HashLeaf([]byte("other"))

	digest := s.HashLeaf([]byte("digest"))
	shifted := new(big.Int).SetBytes(digest[:])
	shifted.Add(shifted, fr.Modulus())
	var alias Hash
	shifted.FillBytes(alias[:])
	require.NotEqual(t, digest, alias)

	assert.NotEqual(t, s.HashTwo(digest, other), s.HashTwo(alias, other))
	assert.NotEqual(t, s.HashTwo(other, digest), s.HashTwo(other, alias))
	assert.NotEqual(t, s.HashLeaf(digest[:]), s.HashLeaf(alias[:]))
}

func TestFromName(t *testing.T) {
	for _, s := range allSuites() {
		got, err := FromName(s.Name())
		require.NoError(t, err)
		assert.Equal(t, s, got)

		got, err = FromID(s.ID())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	def, err := FromName("")
	require.NoError(t, err)
	assert.Equal(t, KeccakSuite{}, def)

	_, err = FromName("md5")
	assert.Error(t, err)
	_, err = FromID(0)
	assert.Error(t, err)
}
