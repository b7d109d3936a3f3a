// Package accumulator implements an append-only incremental Merkle tree of
// fixed depth, capable of producing proofs of inclusion against any root it
// has produced.
package accumulator

import (
	"errors"
	"math"

	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/db"
)

// Depth is the number of levels between the leaves and the root. The tree
// has room for one leaf per value of a uint64, less one.
const Depth = 64

var (
	ErrTreeFull      = errors.New("accumulator is full")
	ErrRootNotFound  = errors.New("root not found")
	ErrNodesNotFound = errors.New("nodes not found")
)

// isRight returns true if the node on the path from leaf `index` at `level`
// is a right child. Bits of the leaf index are consumed least-significant
// first, one per level.
func isRight(index uint64, level int) bool {
	return (index>>uint(level))&1 == 1
}

// Tree is an incremental Merkle tree. Subtrees that have never had a leaf
// inserted are not stored; they take the default value for their level.
type Tree struct {
	cs       suites.Suite
	store    db.TreeStore
	defaults [Depth + 1]suites.Hash
}

// NewTree returns a tree backed by `store`. If the store is empty, the
// default value of each level is written at position zero.
func NewTree(cs suites.Suite, store db.TreeStore) (*Tree, error) {
	t := &Tree{cs: cs, store: store}
	for level := 0; level < Depth; level++ {
		t.defaults[level+1] = cs.HashTwo(t.defaults[level], t.defaults[level])
	}

	n, err := store.GetSize()
	if err != nil {
		return nil, err
	} else if n > 0 {
		return t, nil
	}
	root := db.NodeKey{Level: Depth, Position: 0}
	res, err := store.BatchGet([]db.NodeKey{root})
	if err != nil {
		return nil, err
	} else if _, ok := res[root]; ok {
		return t, nil
	}

	seed := make(map[db.NodeKey]suites.Hash, Depth+1)
	for level, value := range t.defaults {
		seed[db.NodeKey{Level: uint32(level), Position: 0}] = value
	}
	if err := store.BatchPut(seed); err != nil {
		return nil, err
	}
	return t, nil
}

// Default returns the value of an empty subtree whose root is at `level`.
func (t *Tree) Default(level int) suites.Hash { return t.defaults[level] }

// Size returns the number of leaves inserted so far. It is also the index
// that the next inserted leaf will be assigned.
func (t *Tree) Size() (uint64, error) { return t.store.GetSize() }

// Insert appends `leaf` to the tree and returns the index it was assigned.
func (t *Tree) Insert(leaf suites.Hash) (uint64, error) {
	n, err := t.store.GetSize()
	if err != nil {
		return 0, err
	} else if n == math.MaxUint64 {
		return 0, ErrTreeFull
	}

	keys := make([]db.NodeKey, Depth)
	for level := 0; level < Depth; level++ {
		keys[level] = db.NodeKey{Level: uint32(level), Position: (n >> uint(level)) ^ 1}
	}
	siblings, err := t.store.BatchGet(keys)
	if err != nil {
		return 0, err
	}

	writes := make(map[db.NodeKey]suites.Hash, Depth+1)
	writes[db.NodeKey{Level: 0, Position: n}] = leaf

	acc := leaf
	for level, key := range keys {
		sibling, ok := siblings[key]
		if !ok {
			sibling = t.defaults[level]
		}
		if isRight(n, level) {
			acc = t.cs.HashTwo(sibling, acc)
		} else {
			acc = t.cs.HashTwo(acc, sibling)
		}
		writes[db.NodeKey{Level: uint32(level + 1), Position: n >> uint(level+1)}] = acc
	}

	if err := t.store.BatchPut(writes); err != nil {
		return 0, err
	} else if err := t.store.SetSize(n + 1); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertBatch appends each of `leaves` in order and returns the index assigned
// to the first one.
func (t *Tree) InsertBatch(leaves []suites.Hash) (uint64, error) {
	first, err := t.Size()
	if err != nil {
		return 0, err
	}
	for _, leaf := range leaves {
		if _, err := t.Insert(leaf); err != nil {
			return 0, err
		}
	}
	return first, nil
}

// Root returns the current root of the tree.
func (t *Tree) Root() (suites.Hash, error) {
	key := db.NodeKey{Level: Depth, Position: 0}
	res, err := t.store.BatchGet([]db.NodeKey{key})
	if err != nil {
		return suites.Hash{}, err
	}
	root, ok := res[key]
	if !ok {
		return suites.Hash{}, ErrRootNotFound
	}
	return root, nil
}

// Path returns a proof of inclusion for the leaf at `index` that verifies
// against the current root.
func (t *Tree) Path(index uint64) (*Path, error) {
	n, err := t.store.GetSize()
	if err != nil {
		return nil, err
	} else if index >= n {
		return nil, ErrNodesNotFound
	}

	leafKey := db.NodeKey{Level: 0, Position: index}
	keys := []db.NodeKey{leafKey}
	for level := 0; level < Depth; level++ {
		keys = append(keys, db.NodeKey{Level: uint32(level), Position: (index >> uint(level)) ^ 1})
	}
	res, err := t.store.BatchGet(keys)
	if err != nil {
		return nil, err
	}
	leaf, ok := res[leafKey]
	if !ok {
		return nil, ErrNodesNotFound
	}

	siblings := make([]suites.Hash, Depth)
	for level, key := range keys[1:] {
		if sibling, ok := res[key]; ok {
			siblings[level] = sibling
		} else {
			siblings[level] = t.defaults[level]
		}
	}
	return &Path{Index: index, Leaf: leaf, Siblings: siblings}, nil
}
