package db

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Bren2010/mixer/crypto/suites"
)

// Key prefixes. Each prefix is a single byte, and no prefix is itself a
// complete key for another prefix.
const (
	ldbNodePrefix      = "n"
	ldbSizeKey         = "s"
	ldbNullifierPrefix = "x"
	ldbRootPrefix      = "r"
	ldbRootIndexPrefix = "h"
	ldbRootCountKey    = "k"
	ldbBalancePrefix   = "b"
)

func dup(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func parseUint64(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("malformed integer: %v bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func nodeKey(key NodeKey) string {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[:4], key.Level)
	binary.BigEndian.PutUint64(buf[4:], key.Position)
	return ldbNodePrefix + string(buf)
}

// ldbConn is a wrapper around a base LevelDB database that handles batching
// writes between commits transparently.
type ldbConn struct {
	conn  *leveldb.DB
	batch map[string][]byte
}

func newLDBConn(conn *leveldb.DB) *ldbConn {
	return &ldbConn{conn, make(map[string][]byte)}
}

func (c *ldbConn) Get(key string) ([]byte, error) {
	if value, ok := c.batch[key]; ok {
		return dup(value), nil
	}
	return c.conn.Get([]byte(key), nil)
}

func (c *ldbConn) Put(key string, value []byte) {
	c.batch[key] = dup(value)
}

// Scan calls fn for every key with the given prefix, with buffered writes
// taking precedence over committed ones. The prefix is stripped from the key
// passed to fn.
func (c *ldbConn) Scan(prefix string, fn func(key string, value []byte) error) error {
	seen := make(map[string]struct{})
	for key, value := range c.batch {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		seen[key] = struct{}{}
		if err := fn(key[len(prefix):], dup(value)); err != nil {
			return err
		}
	}

	it := c.conn.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()
	for it.Next() {
		key := string(it.Key())
		if _, ok := seen[key]; ok {
			continue
		}
		if err := fn(key[len(prefix):], dup(it.Value())); err != nil {
			return err
		}
	}
	return it.Error()
}

func (c *ldbConn) Commit() error {
	if len(c.batch) == 0 {
		return nil
	}
	b := new(leveldb.Batch)
	for key, value := range c.batch {
		b.Put([]byte(key), value)
	}
	if err := c.conn.Write(b, nil); err != nil {
		return err
	}
	c.batch = make(map[string][]byte)
	return nil
}

func (c *ldbConn) Rollback() {
	c.batch = make(map[string][]byte)
}

// ldbPoolStore implements the PoolStore interface over a LevelDB database.
type ldbPoolStore struct {
	conn *ldbConn
}

// NewLDBPoolStore opens, or creates, the LevelDB database at `file`. A
// corrupted database is recovered before use.
func NewLDBPoolStore(file string) (PoolStore, func() error, error) {
	conn, err := leveldb.OpenFile(file, nil)
	if errors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, nil, err
	}
	return &ldbPoolStore{newLDBConn(conn)}, conn.Close, nil
}

func (ldb *ldbPoolStore) TreeStore() TreeStore { return &ldbTreeStore{ldb.conn} }

func (ldb *ldbPoolStore) GetNullifier(nullifier suites.Hash) (bool, bool, error) {
	raw, err := ldb.conn.Get(ldbNullifierPrefix + string(nullifier[:]))
	if err == leveldb.ErrNotFound {
		return false, false, nil
	} else if err != nil {
		return false, false, err
	} else if len(raw) != 1 {
		return false, false, fmt.Errorf("malformed nullifier entry: %v bytes", len(raw))
	}
	return raw[0] == 1, true, nil
}

func (ldb *ldbPoolStore) PutNullifier(nullifier suites.Hash, spent bool) error {
	value := []byte{0}
	if spent {
		value[0] = 1
	}
	ldb.conn.Put(ldbNullifierPrefix+string(nullifier[:]), value)
	return nil
}

func (ldb *ldbPoolStore) ListNullifiers() (map[suites.Hash]bool, error) {
	out := make(map[suites.Hash]bool)
	err := ldb.conn.Scan(ldbNullifierPrefix, func(key string, value []byte) error {
		nullifier, err := suites.HashFromBytes([]byte(key))
		if err != nil {
			return err
		} else if len(value) != 1 {
			return fmt.Errorf("malformed nullifier entry: %v bytes", len(value))
		}
		out[nullifier] = value[0] == 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ldb *ldbPoolStore) AppendRoot(root suites.Hash) error {
	n, err := ldb.RootCount()
	if err != nil {
		return err
	}
	ldb.conn.Put(ldbRootPrefix+string(uint64Bytes(n)), root[:])
	ldb.conn.Put(ldbRootIndexPrefix+string(root[:]), uint64Bytes(n))
	ldb.conn.Put(ldbRootCountKey, uint64Bytes(n+1))
	return nil
}

func (ldb *ldbPoolStore) GetRoots() ([]suites.Hash, error) {
	n, err := ldb.RootCount()
	if err != nil {
		return nil, err
	}
	out := make([]suites.Hash, n)
	for i := uint64(0); i < n; i++ {
		raw, err := ldb.conn.Get(ldbRootPrefix + string(uint64Bytes(i)))
		if err != nil {
			return nil, fmt.Errorf("reading root %v: %w", i, err)
		}
		if out[i], err = suites.HashFromBytes(raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ldb *ldbPoolStore) RootCount() (uint64, error) {
	raw, err := ldb.conn.Get(ldbRootCountKey)
	if err == leveldb.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return parseUint64(raw)
}

func (ldb *ldbPoolStore) HasRoot(root suites.Hash) (bool, error) {
	_, err := ldb.conn.Get(ldbRootIndexPrefix + string(root[:]))
	if err == leveldb.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (ldb *ldbPoolStore) GetBalance(account uint64) (uint64, error) {
	raw, err := ldb.conn.Get(ldbBalancePrefix + string(uint64Bytes(account)))
	if err == leveldb.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return parseUint64(raw)
}

func (ldb *ldbPoolStore) PutBalance(account, amount uint64) error {
	ldb.conn.Put(ldbBalancePrefix+string(uint64Bytes(account)), uint64Bytes(amount))
	return nil
}

func (ldb *ldbPoolStore) ListBalances() (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	err := ldb.conn.Scan(ldbBalancePrefix, func(key string, value []byte) error {
		account, err := parseUint64([]byte(key))
		if err != nil {
			return err
		}
		amount, err := parseUint64(value)
		if err != nil {
			return err
		}
		out[account] = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ldb *ldbPoolStore) Commit() error { return ldb.conn.Commit() }
func (ldb *ldbPoolStore) Rollback()     { ldb.conn.Rollback() }

// ldbTreeStore implements the TreeStore interface over LevelDB.
type ldbTreeStore struct {
	conn *ldbConn
}

func (ts *ldbTreeStore) BatchGet(keys []NodeKey) (map[NodeKey]suites.Hash, error) {
	out := make(map[NodeKey]suites.Hash)

	for _, key := range keys {
		value, err := ts.conn.Get(nodeKey(key))
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		h, err := suites.HashFromBytes(value)
		if err != nil {
			return nil, fmt.Errorf("reading node %v/%v: %w", key.Level, key.Position, err)
		}
		out[key] = h
	}

	return out, nil
}

func (ts *ldbTreeStore) BatchPut(data map[NodeKey]suites.Hash) error {
	for key, value := range data {
		ts.conn.Put(nodeKey(key), value[:])
	}
	return nil
}

func (ts *ldbTreeStore) GetSize() (uint64, error) {
	raw, err := ts.conn.Get(ldbSizeKey)
	if err == leveldb.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return parseUint64(raw)
}

func (ts *ldbTreeStore) SetSize(n uint64) error {
	ts.conn.Put(ldbSizeKey, uint64Bytes(n))
	return nil
}
