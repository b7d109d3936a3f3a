package accumulator

import (
	"errors"
	"fmt"

	"github.com/Bren2010/mixer/crypto/suites"
)

var ErrMalformedPath = errors.New("malformed path")

// Path is a proof that Leaf is stored at position Index of the tree. Siblings
// are ordered from the leaf level upward.
type Path struct {
	Index    uint64        `json:"index"`
	Leaf     suites.Hash   `json:"leaf"`
	Siblings []suites.Hash `json:"siblings"`
}

// Validate returns an error if the path could not have been produced by a
// tree: it has more siblings than the tree has levels, or its index does not
// fit in the levels it covers.
func (p *Path) Validate() error {
	if len(p.Siblings) > Depth {
		return fmt.Errorf("%w: %v siblings", ErrMalformedPath, len(p.Siblings))
	} else if len(p.Siblings) < Depth && p.Index>>uint(len(p.Siblings)) != 0 {
		return fmt.Errorf("%w: index %v does not fit in %v levels", ErrMalformedPath, p.Index, len(p.Siblings))
	}
	return nil
}

// ConstructRoot returns the root implied by the path.
func (p *Path) ConstructRoot(cs suites.Suite) suites.Hash {
	acc := p.Leaf
	for level, sibling := range p.Siblings {
		if isRight(p.Index, level) {
			acc = cs.HashTwo(sibling, acc)
		} else {
			acc = cs.HashTwo(acc, sibling)
		}
	}
	return acc
}

// Verify returns true if the path is well-formed and leads to `root`.
func (p *Path) Verify(cs suites.Suite, root suites.Hash) bool {
	if p == nil || p.Validate() != nil {
		return false
	}
	return p.ConstructRoot(cs) == root
}
