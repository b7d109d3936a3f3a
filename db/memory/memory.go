// Package memory provides in-memory implementations of the database interfaces.
package memory

import (
	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/db"
)

// state is one layer of pool data: either everything committed so far, or
// the writes buffered since the last commit.
type state struct {
	Nodes      map[db.NodeKey]suites.Hash
	Size       *uint64
	Nullifiers map[suites.Hash]bool
	Roots      []suites.Hash
	Balances   map[uint64]uint64
}

func newState() *state {
	return &state{
		Nodes:      make(map[db.NodeKey]suites.Hash),
		Nullifiers: make(map[suites.Hash]bool),
		Balances:   make(map[uint64]uint64),
	}
}

// PoolStore implements db.PoolStore in memory. Writes are buffered until
// Commit, like the LevelDB store.
type PoolStore struct {
	committed *state
	pending   *state
	rootIndex map[suites.Hash]struct{}

	lookups    int
	lastLookup []db.NodeKey
}

// NewPoolStore returns an empty PoolStore.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		committed: newState(),
		pending:   newState(),
		rootIndex: make(map[suites.Hash]struct{}),
	}
}

// TreeStore returns a view of the node data. It shares the pending writes
// of ps and is committed along with them.
func (ps *PoolStore) TreeStore() db.TreeStore { return &TreeStore{ps} }

// GetNullifier returns whether the nullifier is spent, and whether it is
// present at all. Pending writes take precedence.
func (ps *PoolStore) GetNullifier(nullifier suites.Hash) (bool, bool, error) {
	if spent, ok := ps.pending.Nullifiers[nullifier]; ok {
		return spent, true, nil
	}
	spent, ok := ps.committed.Nullifiers[nullifier]
	return spent, ok, nil
}

// PutNullifier buffers the status of a nullifier.
func (ps *PoolStore) PutNullifier(nullifier suites.Hash, spent bool) error {
	ps.pending.Nullifiers[nullifier] = spent
	return nil
}

// ListNullifiers returns every nullifier, pending writes included.
func (ps *PoolStore) ListNullifiers() (map[suites.Hash]bool, error) {
	out := make(map[suites.Hash]bool)
	for key, value := range ps.committed.Nullifiers {
		out[key] = value
	}
	for key, value := range ps.pending.Nullifiers {
		out[key] = value
	}
	return out, nil
}

// AppendRoot buffers a new entry at the end of the root history.
func (ps *PoolStore) AppendRoot(root suites.Hash) error {
	ps.pending.Roots = append(ps.pending.Roots, root)
	return nil
}

// GetRoots returns the root history, oldest first.
func (ps *PoolStore) GetRoots() ([]suites.Hash, error) {
	out := make([]suites.Hash, 0, len(ps.committed.Roots)+len(ps.pending.Roots))
	out = append(out, ps.committed.Roots...)
	out = append(out, ps.pending.Roots...)
	return out, nil
}

// RootCount returns the length of the root history.
func (ps *PoolStore) RootCount() (uint64, error) {
	return uint64(len(ps.committed.Roots) + len(ps.pending.Roots)), nil
}

// HasRoot returns whether root is anywhere in the root history.
func (ps *PoolStore) HasRoot(root suites.Hash) (bool, error) {
	if _, ok := ps.rootIndex[root]; ok {
		return true, nil
	}
	for _, cand := range ps.pending.Roots {
		if cand == root {
			return true, nil
		}
	}
	return false, nil
}

// GetBalance returns the balance of an account, or zero if it has none.
func (ps *PoolStore) GetBalance(account uint64) (uint64, error) {
	if amount, ok := ps.pending.Balances[account]; ok {
		return amount, nil
	}
	return ps.committed.Balances[account], nil
}

// PutBalance buffers the balance of an account.
func (ps *PoolStore) PutBalance(account, amount uint64) error {
	ps.pending.Balances[account] = amount
	return nil
}

// ListBalances returns every account with a balance.
func (ps *PoolStore) ListBalances() (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	for key, value := range ps.committed.Balances {
		out[key] = value
	}
	for key, value := range ps.pending.Balances {
		out[key] = value
	}
	return out, nil
}

// Commit applies all pending writes.
func (ps *PoolStore) Commit() error {
	p, c := ps.pending, ps.committed

	for key, value := range p.Nodes {
		c.Nodes[key] = value
	}
	if p.Size != nil {
		c.Size = p.Size
	}
	for key, value := range p.Nullifiers {
		c.Nullifiers[key] = value
	}
	for _, root := range p.Roots {
		c.Roots = append(c.Roots, root)
		ps.rootIndex[root] = struct{}{}
	}
	for key, value := range p.Balances {
		c.Balances[key] = value
	}

	ps.pending = newState()
	return nil
}

// Rollback discards all pending writes.
func (ps *PoolStore) Rollback() { ps.pending = newState() }

// TreeStore implements db.TreeStore over the node data of a PoolStore.
type TreeStore struct {
	ps *PoolStore
}

// NewTreeStore returns a standalone tree store. Writes to it are never
// committed but are visible to subsequent reads.
func NewTreeStore() *TreeStore {
	return &TreeStore{NewPoolStore()}
}

func (ts *TreeStore) BatchGet(keys []db.NodeKey) (map[db.NodeKey]suites.Hash, error) {
	ts.ps.lookups++
	ts.ps.lastLookup = keys

	out := make(map[db.NodeKey]suites.Hash)
	for _, key := range keys {
		if value, ok := ts.ps.pending.Nodes[key]; ok {
			out[key] = value
		} else if value, ok := ts.ps.committed.Nodes[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (ts *TreeStore) BatchPut(data map[db.NodeKey]suites.Hash) error {
	for key, value := range data {
		ts.ps.pending.Nodes[key] = value
	}
	return nil
}

func (ts *TreeStore) GetSize() (uint64, error) {
	if ts.ps.pending.Size != nil {
		return *ts.ps.pending.Size, nil
	} else if ts.ps.committed.Size != nil {
		return *ts.ps.committed.Size, nil
	}
	return 0, nil
}

func (ts *TreeStore) SetSize(n uint64) error {
	ts.ps.pending.Size = &n
	return nil
}

// Lookups returns the number of BatchGet calls made so far, and the keys
// requested by the most recent one.
func (ts *TreeStore) Lookups() (int, []db.NodeKey) { return ts.ps.lookups, ts.ps.lastLookup }

// NodeCount returns the number of nodes held, committed or not.
func (ts *TreeStore) NodeCount() int {
	count := len(ts.ps.committed.Nodes)
	for key := range ts.ps.pending.Nodes {
		if _, ok := ts.ps.committed.Nodes[key]; !ok {
			count++
		}
	}
	return count
}
