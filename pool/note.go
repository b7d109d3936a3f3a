package pool

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/Bren2010/mixer/crypto/commitments"
	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/tree/accumulator"
)

// Note is everything a depositor needs to keep in order to withdraw later.
type Note struct {
	Secret    uint64            `json:"secret"`
	Topic     uint64            `json:"topic"`
	Recipient uint64            `json:"recipient"`
	Path      *accumulator.Path `json:"path"`
}

// Commitment returns the commitment that was inserted into the tree when the
// note was deposited.
func (n *Note) Commitment(cs suites.Suite) suites.Hash {
	return commitments.Commit(cs, n.Secret)
}

// Nullifier returns the nullifier that is spent when the note is withdrawn.
func (n *Note) Nullifier(cs suites.Suite) suites.Hash {
	return commitments.Nullify(cs, n.Secret, n.Topic)
}

// Validate checks that the note carries a structurally valid path.
func (n *Note) Validate() error {
	if n == nil || n.Path == nil {
		return fmt.Errorf("%w: missing path", ErrMalformedNote)
	} else if err := n.Path.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedNote, err)
	}
	return nil
}

type cborNote struct {
	Secret    uint64   `cbor:"1,keyasint"`
	Topic     uint64   `cbor:"2,keyasint"`
	Recipient uint64   `cbor:"3,keyasint"`
	Index     uint64   `cbor:"4,keyasint"`
	Leaf      []byte   `cbor:"5,keyasint"`
	Siblings  [][]byte `cbor:"6,keyasint"`
}

func (n *Note) MarshalCBOR() ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	out := cborNote{
		Secret:    n.Secret,
		Topic:     n.Topic,
		Recipient: n.Recipient,
		Index:     n.Path.Index,
		Leaf:      n.Path.Leaf.Bytes(),
		Siblings:  make([][]byte, len(n.Path.Siblings)),
	}
	for i, sibling := range n.Path.Siblings {
		out.Siblings[i] = sibling.Bytes()
	}
	return cbor.Marshal(out)
}

func (n *Note) UnmarshalCBOR(data []byte) error {
	var in cborNote
	if err := cbor.Unmarshal(data, &in); err != nil {
		return err
	}

	leaf, err := suites.HashFromBytes(in.Leaf)
	if err != nil {
		return fmt.Errorf("%w: leaf: %w", ErrMalformedNote, err)
	}
	siblings := make([]suites.Hash, len(in.Siblings))
	for i, raw := range in.Siblings {
		if siblings[i], err = suites.HashFromBytes(raw); err != nil {
			return fmt.Errorf("%w: sibling %v: %w", ErrMalformedNote, i, err)
		}
	}

	out := Note{
		Secret:    in.Secret,
		Topic:     in.Topic,
		Recipient: in.Recipient,
		Path:      &accumulator.Path{Index: in.Index, Leaf: leaf, Siblings: siblings},
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*n = out
	return nil
}
