package suites

import "golang.org/x/crypto/sha3"

// KeccakSuite implements the hash suite using the legacy Keccak-256 function
// (the pre-standard padding used by Ethereum).
type KeccakSuite struct{}

var _ Suite = KeccakSuite{}

func (s KeccakSuite) ID() uint16   { return 0x01 }
func (s KeccakSuite) Name() string { return "keccak256" }

func (s KeccakSuite) HashTwo(left, right Hash) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(left[:])
	h.Write(right[:])

	var out Hash
	h.Sum(out[:0])
	return out
}

func (s KeccakSuite) HashLeaf(preimage []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(preimage)

	var out Hash
	h.Sum(out[:0])
	return out
}
