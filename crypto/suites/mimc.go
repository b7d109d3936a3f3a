package suites

import (
	"encoding/binary"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// limbSize is the number of input bytes carried by each field element. Any
// 16 byte value is below the modulus, so the encoding of inputs into field
// elements is injective.
const limbSize = 16

// MiMCSuite implements the hash suite using MiMC over the scalar field of
// BN254. This is the suite to pick when the same tree has to be opened inside
// an arithmetic circuit.
//
// Every 32 byte digest is written as two 16 byte limbs, each its own field
// element.
type MiMCSuite struct{}

var _ Suite = MiMCSuite{}

func (s MiMCSuite) ID() uint16   { return 0x03 }
func (s MiMCSuite) Name() string { return "mimc-bn254" }

func (s MiMCSuite) HashTwo(left, right Hash) Hash {
	h := mimc.NewMiMC()
	writeLimbs(h, left[:])
	writeLimbs(h, right[:])
	return sumElement(h)
}

// HashLeaf hashes the preimage length followed by the preimage split into
// limbs. The length prefix fixes where the limbs start and end, so preimages
// that differ only in trailing zero bytes stay apart.
func (s MiMCSuite) HashLeaf(preimage []byte) Hash {
	h := mimc.NewMiMC()

	length := make([]byte, 8)
	binary.BigEndian.PutUint64(length, uint64(len(preimage)))
	writeElement(h, length)

	writeLimbs(h, preimage)
	return sumElement(h)
}

func writeLimbs(h hash.Hash, b []byte) {
	for i := 0; i < len(b); i += limbSize {
		end := i + limbSize
		if end > len(b) {
			end = len(b)
		}
		writeElement(h, b[i:end])
	}
}

// writeElement interprets b, at most limbSize bytes, as a big-endian integer
// and writes its canonical encoding to h.
func writeElement(h hash.Hash, b []byte) {
	var e fr.Element
	e.SetBytes(b)
	buf := e.Bytes()
	// Canonical elements are always accepted.
	h.Write(buf[:])
}

func sumElement(h hash.Hash) Hash {
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
