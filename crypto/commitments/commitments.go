// Package commitments derives the commitment and nullifier of a deposit.
package commitments

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/Bren2010/mixer/crypto/suites"
)

// GenerateSecret returns a uniformly random 64-bit value, suitable for use as
// a deposit secret or a withdrawal topic.
func GenerateSecret() (uint64, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Commit returns the commitment to `secret`. The commitment is what gets
// inserted into the accumulator at deposit time.
func Commit(cs suites.Suite, secret uint64) suites.Hash {
	h := suites.HashUint64(cs, secret)
	return cs.HashTwo(h, h)
}

// Nullify returns the nullifier of `secret` under `topic`. The nullifier is
// revealed at withdrawal and can be spent at most once.
func Nullify(cs suites.Suite, secret, topic uint64) suites.Hash {
	return cs.HashTwo(suites.HashUint64(cs, secret), suites.HashUint64(cs, topic))
}

// Verify returns true if `commitment` is the commitment to `secret`.
func Verify(cs suites.Suite, secret uint64, commitment suites.Hash) bool {
	return Commit(cs, secret) == commitment
}
