// Package suites implements each supported hash suite.
//
// A suite is the only place a concrete hash algorithm is named. The
// accumulator and the pool are written against the Suite interface, so a
// deployment can swap algorithms without touching tree or ledger logic.
package suites

import (
	"encoding/binary"
	"fmt"
)

// Suite is the interface implemented by each supported hash suite.
//
// Both operations must be pure and total: they never fail and always return
// the same output for the same input.
type Suite interface {
	ID() uint16
	Name() string

	// HashTwo combines two digests into one. The combination must be
	// sensitive to argument order; inclusion proofs depend on it.
	HashTwo(left, right Hash) Hash
	// HashLeaf derives a digest from an arbitrary-length preimage.
	HashLeaf(preimage []byte) Hash
}

// HashUint64 returns the leaf hash of the fixed-width big-endian encoding
// of v. Secrets and topics are turned into digests this way.
func HashUint64(s Suite, v uint64) Hash {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return s.HashLeaf(buf)
}

// FromName returns the suite with the given name. The empty string selects
// the default suite, Keccak-256.
func FromName(name string) (Suite, error) {
	switch name {
	case "", KeccakSuite{}.Name():
		return KeccakSuite{}, nil
	case SHA256Suite{}.Name():
		return SHA256Suite{}, nil
	case MiMCSuite{}.Name():
		return MiMCSuite{}, nil
	default:
		return nil, fmt.Errorf("unknown hash suite: %q", name)
	}
}

// FromID returns the suite with the given identifier.
func FromID(id uint16) (Suite, error) {
	for _, s := range []Suite{KeccakSuite{}, SHA256Suite{}, MiMCSuite{}} {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown hash suite id: %v", id)
}
