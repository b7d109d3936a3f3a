package commitments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bren2010/mixer/crypto/suites"
)

func dh(t *testing.T, s string) suites.Hash {
	h, err := suites.ParseHash(s)
	require.NoError(t, err)
	return h
}

func TestVectors(t *testing.T) {
	for _, tc := range []struct {
		cs        suites.Suite
		commit    string
		nullifier string
	}{
		{
			suites.KeccakSuite{},
			"002aa92609bec030e0b8afef5ddc8830d691af0f7ba45f14980e65c17886e6e1",
			"849375894aaa595cafe453d11d7a63b38312edf3568349ba73551cbbaad3f673",
		},
		{
			suites.SHA256Suite{},
			"d0649abcd690387520e4cbde38647b7a761ebca40dfe37358bc690959689712e",
			"0ab0ac0105737ffe6c4a2b584119cb30a4eff281949e2a82c9cda187cbcde105",
		},
	} {
		t.Run(tc.cs.Name(), func(t *testing.T) {
			assert.Equal(t, dh(t, tc.commit), Commit(tc.cs, 42))
			assert.Equal(t, dh(t, tc.nullifier), Nullify(tc.cs, 42, 7))
		})
	}
}

func TestDeterministic(t *testing.T) {
	for _, cs := range []suites.Suite{suites.KeccakSuite{}, suites.SHA256Suite{}, suites.MiMCSuite{}} {
		t.Run(cs.Name(), func(t *testing.T) {
			assert.Equal(t, Commit(cs, 9), Commit(cs, 9))
			assert.NotEqual(t, Commit(cs, 9), Commit(cs, 10))

			assert.Equal(t, Nullify(cs, 9, 1), Nullify(cs, 9, 1))
			assert.NotEqual(t, Nullify(cs, 9, 1), Nullify(cs, 9, 2))
			assert.NotEqual(t, Nullify(cs, 9, 1), Nullify(cs, 1, 9))

			// A nullifier whose topic equals the secret is the commitment.
			assert.Equal(t, Commit(cs, 5), Nullify(cs, 5, 5))

			assert.True(t, Verify(cs, 9, Commit(cs, 9)))
			assert.False(t, Verify(cs, 10, Commit(cs, 9)))
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	seen := make(map[uint64]struct{})
	for i := 0; i < 64; i++ {
		s, err := GenerateSecret()
		require.NoError(t, err)
		seen[s] = struct{}{}
	}
	assert.Greater(t, len(seen), 60)
}
