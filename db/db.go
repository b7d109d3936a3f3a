// Package db implements database wrappers that match a common interface.
package db

import (
	"github.com/Bren2010/mixer/crypto/suites"
)

// NodeKey identifies a node of the accumulator by its level, counting from
// zero at the leaves, and its position within that level.
type NodeKey struct {
	Level    uint32
	Position uint64
}

// TreeStore is the interface an accumulator uses to communicate with its
// database. Nodes that were never written are simply absent from the output of
// BatchGet.
type TreeStore interface {
	BatchGet(keys []NodeKey) (map[NodeKey]suites.Hash, error)
	BatchPut(data map[NodeKey]suites.Hash) error

	// GetSize returns the number of leaves inserted so far, or zero if the
	// tree is new.
	GetSize() (uint64, error)
	SetSize(n uint64) error
}

// PoolStore is the interface a Pool uses to communicate with its database.
//
// Writes are buffered until Commit is called and are visible to reads made
// through the same store in the meantime. Rollback discards everything written
// since the last Commit, including writes made through TreeStore.
type PoolStore interface {
	TreeStore() TreeStore

	// GetNullifier returns whether the nullifier has been spent, and whether
	// it has been registered at all.
	GetNullifier(nullifier suites.Hash) (spent, ok bool, err error)
	PutNullifier(nullifier suites.Hash, spent bool) error
	ListNullifiers() (map[suites.Hash]bool, error)

	// AppendRoot adds a root to the end of the root history.
	AppendRoot(root suites.Hash) error
	// GetRoots returns the entire root history, oldest first.
	GetRoots() ([]suites.Hash, error)
	RootCount() (uint64, error)
	HasRoot(root suites.Hash) (bool, error)

	// GetBalance returns the balance of an account. Unknown accounts have a
	// balance of zero.
	GetBalance(account uint64) (uint64, error)
	PutBalance(account, amount uint64) error
	ListBalances() (map[uint64]uint64, error)

	Commit() error
	Rollback()
}
