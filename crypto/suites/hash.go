package suites

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// HashSize is the width of every digest, in bytes.
const HashSize = 32

var (
	ErrInvalidHex    = errors.New("hash is not valid hex")
	ErrInvalidLength = errors.New("hash has unexpected length")
)

// Hash is a fixed-width digest. It is comparable, so it can be used directly
// as a map key.
type Hash [HashSize]byte

// ParseHash decodes a hash from exactly 64 hexadecimal characters.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("%w: %v characters", ErrInvalidLength, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return h, nil
}

// HashFromBytes copies a 32 byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: %v bytes", ErrInvalidLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String returns the canonical lowercase hex encoding.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns a copy of the digest as a slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
