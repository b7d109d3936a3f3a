package accumulator

import (
	"crypto/rand"
	"math"
	"math/big"
	mrand "math/rand"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bren2010/mixer/crypto/suites"
	"github.com/Bren2010/mixer/db"
	"github.com/Bren2010/mixer/db/memory"
)

func random() suites.Hash {
	var out suites.Hash
	if _, err := rand.Read(out[:]); err != nil {
		panic(err)
	}
	return out
}

func mustParse(t *testing.T, s string) suites.Hash {
	h, err := suites.ParseHash(s)
	require.NoError(t, err)
	return h
}

func newTree(t *testing.T, cs suites.Suite) (*Tree, *memory.TreeStore) {
	store := memory.NewTreeStore()
	tree, err := NewTree(cs, store)
	require.NoError(t, err)
	return tree, store
}

// simpleRoot is an alternative implementation of the root calculation which
// hashes every level in full. It is only usable for small trees.
func simpleRoot(cs suites.Suite, leaves []suites.Hash) suites.Hash {
	var def suites.Hash
	nodes := append([]suites.Hash{}, leaves...)
	for level := 0; level < Depth; level++ {
		if len(nodes)%2 == 1 {
			nodes = append(nodes, def)
		}
		next := make([]suites.Hash, 0, len(nodes)/2)
		for i := 0; i < len(nodes); i += 2 {
			next = append(next, cs.HashTwo(nodes[i], nodes[i+1]))
		}
		nodes = next
		def = cs.HashTwo(def, def)
	}
	if len(nodes) == 0 {
		return def
	}
	return nodes[0]
}

func TestDefaults(t *testing.T) {
	cs := suites.KeccakSuite{}
	tree, store := newTree(t, cs)

	assert.Equal(t, suites.Hash{}, tree.Default(0))
	for level := 0; level < Depth; level++ {
		assert.Equal(t, cs.HashTwo(tree.Default(level), tree.Default(level)), tree.Default(level+1))
	}

	// Every level is seeded at position zero.
	assert.Equal(t, Depth+1, store.NodeCount())

	root, err := tree.Root()
	require.NoError(t, err)
	assert.Equal(t, tree.Default(Depth), root)
	assert.Equal(t, mustParse(t, "e2c3ed4052eeb1d60514b4c38ece8d73a27f37fa5b36dcbf338e70de95798caa"), root)

	size, err := tree.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), size)
}

func TestGoldenRoots(t *testing.T) {
	for _, tc := range []struct {
		cs                      suites.Suite
		empty, first, twentieth string
	}{
		{
			suites.KeccakSuite{},
			"e2c3ed4052eeb1d60514b4c38ece8d73a27f37fa5b36dcbf338e70de95798caa",
			"88c5b7b219fc02f63f0e79a08651edbca77e63594d7444321c3487d9534e51df",
			"51f31afe78a41868c77cbab34641edcc5993aabe144e87d4a33573e080227bb4",
		},
		{
			suites.SHA256Suite{},
			"c885c236140249c9e1640e5e99fb972d81fbb31ea5e29fbdde063627f0d6bdc8",
			"290ba9f79ac0125a71095fb415a6fa4c00d2c00dbdba41d9f5d6d197da25018f",
			"9427c22f97e8cdedea66e4a619ba74d6efffc01bce4a90d5909b606a6f5046e8",
		},
	} {
		t.Run(tc.cs.Name(), func(t *testing.T) {
			// Default leaves leave the root unchanged.
			zeros, _ := newTree(t, tc.cs)
			for i := 0; i < 20; i++ {
				index, err := zeros.Insert(suites.Hash{})
				require.NoError(t, err)
				assert.Equal(t, uint64(i), index)
			}
			root, err := zeros.Root()
			require.NoError(t, err)
			assert.Equal(t, mustParse(t, tc.empty), root)

			tree, _ := newTree(t, tc.cs)
			for i := uint64(0); i < 20; i++ {
				_, err := tree.Insert(suites.HashUint64(tc.cs, i))
				require.NoError(t, err)
				if i == 0 {
					root, err := tree.Root()
					require.NoError(t, err)
					assert.Equal(t, mustParse(t, tc.first), root)
				}
			}
			root, err = tree.Root()
			require.NoError(t, err)
			assert.Equal(t, mustParse(t, tc.twentieth), root)
		})
	}
}

func TestAgainstSimpleRoot(t *testing.T) {
	for _, cs := range []suites.Suite{suites.SHA256Suite{}, suites.MiMCSuite{}} {
		t.Run(cs.Name(), func(t *testing.T) {
			tree, _ := newTree(t, cs)
			leaves := make([]suites.Hash, 0)

			for i := 0; i < 33; i++ {
				leaf := random()
				leaves = append(leaves, leaf)
				_, err := tree.Insert(leaf)
				require.NoError(t, err)

				root, err := tree.Root()
				require.NoError(t, err)
				assert.Equal(t, simpleRoot(cs, leaves), root, "after %v leaves", i+1)
			}
		})
	}
}

func TestPathRoundTrip(t *testing.T) {
	cs := suites.KeccakSuite{}
	tree, _ := newTree(t, cs)

	var (
		paths []*Path
		roots []suites.Hash
	)
	for i := uint64(0); i < 50; i++ {
		leaf := random()
		index, err := tree.Insert(leaf)
		require.NoError(t, err)
		require.Equal(t, i, index)

		root, err := tree.Root()
		require.NoError(t, err)
		path, err := tree.Path(index)
		require.NoError(t, err)

		assert.Equal(t, leaf, path.Leaf)
		assert.Len(t, path.Siblings, Depth)
		assert.Equal(t, root, path.ConstructRoot(cs))
		assert.True(t, path.Verify(cs, root))

		paths = append(paths, path)
		roots = append(roots, root)
	}

	current, err := tree.Root()
	require.NoError(t, err)
	for i, path := range paths {
		// Old paths still verify against the root they were taken at.
		assert.True(t, path.Verify(cs, roots[i]))
		if i != len(paths)-1 {
			assert.False(t, path.Verify(cs, current))
		}

		// Fresh paths verify against the current root.
		fresh, err := tree.Path(uint64(i))
		require.NoError(t, err)
		assert.True(t, fresh.Verify(cs, current))
	}
}

func TestPathForgery(t *testing.T) {
	cs := suites.SHA256Suite{}
	tree, _ := newTree(t, cs)
	_, err := tree.InsertBatch([]suites.Hash{random(), random(), random(), random(), random()})
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	path, err := tree.Path(3)
	require.NoError(t, err)
	require.True(t, path.Verify(cs, root))

	for level := 0; level < Depth; level++ {
		forged := &Path{Index: path.Index, Leaf: path.Leaf, Siblings: append([]suites.Hash{}, path.Siblings...)}
		forged.Siblings[level][mrand.Intn(suites.HashSize)] ^= 1
		assert.False(t, forged.Verify(cs, root), "level %v", level)
	}

	forged := *path
	forged.Leaf[0] ^= 1
	assert.False(t, forged.Verify(cs, root))

	for _, index := range []uint64{2, 4, 1 << 40} {
		forged := *path
		forged.Index = index
		assert.False(t, forged.Verify(cs, root), "index %v", index)
	}

	// Swapping the two operands of any combination changes the result.
	swapped := &Path{Index: path.Index ^ 1, Leaf: path.Siblings[0], Siblings: append([]suites.Hash{path.Leaf}, path.Siblings[1:]...)}
	assert.True(t, swapped.Verify(cs, root))
	swapped.Index = path.Index
	assert.False(t, swapped.Verify(cs, root))

	var nilPath *Path
	assert.False(t, nilPath.Verify(cs, root))
}

func TestPathForgeryAlias(t *testing.T) {
	cs := suites.MiMCSuite{}
	tree, _ := newTree(t, cs)
	_, err := tree.InsertBatch([]suites.Hash{random(), random(), random()})
	require.NoError(t, err)

	root, err := tree.Root()
	require.NoError(t, err)
	path, err := tree.Path(1)
	require.NoError(t, err)
	require.True(t, path.Verify(cs, root))

	// Replace each sibling with the same value plus the field modulus. Both
	// reduce to the same field element but must not hash the same.
	for level := 0; level < Depth; level++ {
		value := new(big.Int).SetBytes(path.Siblings[level][:])
		value.Add(value, fr.Modulus())
		if value.BitLen() > 8*suites.HashSize {
			continue
		}
		forged := &Path{Index: path.Index, Leaf: path.Leaf, Siblings: append([]suites.Hash{}, path.Siblings...)}
		value.FillBytes(forged.Siblings[level][:])
		assert.False(t, forged.Verify(cs, root), "level %v", level)
	}

	leaf := new(big.Int).SetBytes(path.Leaf[:])
	leaf.Add(leaf, fr.Modulus())
	if leaf.BitLen() <= 8*suites.HashSize {
		forged := &Path{Index: path.Index, Siblings: path.Siblings}
		leaf.FillBytes(forged.Leaf[:])
		assert.False(t, forged.Verify(cs, root))
	}
}

func TestPathValidate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		index    uint64
		siblings int
		valid    bool
	}{
		{"full", math.MaxUint64 - 1, Depth, true},
		{"short", 3, 2, true},
		{"empty", 0, 0, true},
		{"too long", 0, Depth + 1, false},
		{"index too large", 4, 2, false},
		{"empty with index", 1, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &Path{Index: tc.index, Siblings: make([]suites.Hash, tc.siblings)}
			if tc.valid {
				assert.NoError(t, p.Validate())
			} else {
				assert.ErrorIs(t, p.Validate(), ErrMalformedPath)
			}
		})
	}

	// A short path constructs the root of the subtree it covers.
	cs := suites.SHA256Suite{}
	a, b := random(), random()
	p := &Path{Index: 1, Leaf: b, Siblings: []suites.Hash{a}}
	assert.True(t, p.Verify(cs, cs.HashTwo(a, b)))
}

func TestPathNotFound(t *testing.T) {
	tree, _ := newTree(t, suites.KeccakSuite{})

	_, err := tree.Path(0)
	assert.ErrorIs(t, err, ErrNodesNotFound)

	_, err = tree.Insert(random())
	require.NoError(t, err)
	_, err = tree.Path(0)
	assert.NoError(t, err)
	_, err = tree.Path(1)
	assert.ErrorIs(t, err, ErrNodesNotFound)
	_, err = tree.Path(math.MaxUint64)
	assert.ErrorIs(t, err, ErrNodesNotFound)
}

func TestRootNotFound(t *testing.T) {
	tree := &Tree{cs: suites.KeccakSuite{}, store: memory.NewTreeStore()}
	_, err := tree.Root()
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestCapacity(t *testing.T) {
	cs := suites.SHA256Suite{}
	tree, store := newTree(t, cs)
	require.NoError(t, store.SetSize(math.MaxUint64-1))

	index, err := tree.Insert(random())
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), index)

	root, err := tree.Root()
	require.NoError(t, err)
	path, err := tree.Path(index)
	require.NoError(t, err)
	assert.True(t, path.Verify(cs, root))

	_, err = tree.Insert(random())
	assert.ErrorIs(t, err, ErrTreeFull)

	after, err := tree.Root()
	require.NoError(t, err)
	assert.Equal(t, root, after)
}

func TestInsertSingleRead(t *testing.T) {
	tree, store := newTree(t, suites.KeccakSuite{})
	before, _ := store.Lookups()

	_, err := tree.Insert(random())
	require.NoError(t, err)
	after, keys := store.Lookups()
	assert.Equal(t, before+1, after)
	assert.Len(t, keys, Depth)
}

func TestReopen(t *testing.T) {
	cs := suites.KeccakSuite{}
	file := filepath.Join(t.TempDir(), "db")

	store, closer, err := db.NewLDBPoolStore(file)
	require.NoError(t, err)
	tree, err := NewTree(cs, store.TreeStore())
	require.NoError(t, err)
	first, err := tree.InsertBatch([]suites.Hash{random(), random(), random()})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first)
	root, err := tree.Root()
	require.NoError(t, err)
	require.NoError(t, store.Commit())
	require.NoError(t, closer())

	store, closer, err = db.NewLDBPoolStore(file)
	require.NoError(t, err)
	defer closer()
	tree, err = NewTree(cs, store.TreeStore())
	require.NoError(t, err)

	reopened, err := tree.Root()
	require.NoError(t, err)
	assert.Equal(t, root, reopened)

	index, err := tree.Insert(random())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), index)

	path, err := tree.Path(1)
	require.NoError(t, err)
	current, err := tree.Root()
	require.NoError(t, err)
	assert.True(t, path.Verify(cs, current))
}
