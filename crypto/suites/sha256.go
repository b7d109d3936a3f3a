package suites

import "crypto/sha256"

// SHA256Suite implements the hash suite using SHA-256.
type SHA256Suite struct{}

var _ Suite = SHA256Suite{}

func (s SHA256Suite) ID() uint16   { return 0x02 }
func (s SHA256Suite) Name() string { return "sha256" }

func (s SHA256Suite) HashTwo(left, right Hash) Hash {
	input := make([]byte, 2*HashSize)
	copy(input[:HashSize], left[:])
	copy(input[HashSize:], right[:])
	return sha256.Sum256(input)
}

func (s SHA256Suite) HashLeaf(preimage []byte) Hash {
	return sha256.Sum256(preimage)
}
