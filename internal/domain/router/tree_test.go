package router

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

func randomEntries(t *testing.T, n, modules int, seed int64) []Entry {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[models.Selector]bool)
	entries := make([]Entry, 0, n)
	for len(entries) < n {
		sel := models.Selector(rng.Uint32())
		if seen[sel] {
			continue
		}
		seen[sel] = true
		entries = append(entries, Entry{
			Selector: sel,
			Function: fmt.Sprintf("fn%d()", len(entries)),
			Module:   fmt.Sprintf("src/modules/M%d.sol:M%d", len(entries)%modules, len(entries)%modules),
		})
	}
	return entries
}

func TestBuild_LookupResolvesEverySelector(t *testing.T) {
	for _, tc := range []struct {
		n       int
		maxLeaf int
	}{
		{n: 0, maxLeaf: 4},
		{n: 1, maxLeaf: 4},
		{n: 4, maxLeaf: 4},
		{n: 5, maxLeaf: 4},
		{n: 37, maxLeaf: 3},
		{n: 250, maxLeaf: 9},
		{n: 64, maxLeaf: 1},
	} {
		t.Run(fmt.Sprintf("n=%d/leaf=%d", tc.n, tc.maxLeaf), func(t *testing.T) {
			entries := randomEntries(t, tc.n, 5, int64(tc.n))
			tree := Build(entries, tc.maxLeaf)

			for _, e := range entries {
				got, ok := tree.Lookup(e.Selector)
				require.True(t, ok, "selector %s not found", e.Selector)
				assert.Equal(t, e.Module, got.Module)
			}

			known := make(map[models.Selector]bool)
			for _, e := range entries {
				known[e.Selector] = true
			}
			rng := rand.New(rand.NewSource(99))
			for i := 0; i < 200; i++ {
				sel := models.Selector(rng.Uint32())
				if known[sel] {
					continue
				}
				_, ok := tree.Lookup(sel)
				assert.False(t, ok, "unknown selector %s matched", sel)
			}
		})
	}
}

func TestBuild_LeavesRespectThreshold(t *testing.T) {
	entries := randomEntries(t, 100, 3, 7)
	tree := Build(entries, 6)

	total := 0
	for _, leaf := range tree.Leaves() {
		assert.LessOrEqual(t, leaf.Len(), 6)
		assert.Greater(t, leaf.Len(), 0)
		total += leaf.Len()
	}
	assert.Equal(t, 100, total)

	// ceil(log2(100/6)) levels of comparisons at most
	assert.LessOrEqual(t, tree.Depth(), 5)
}

func TestBuild_BoundaryIsFirstSelectorOfRightChild(t *testing.T) {
	entries := []Entry{
		{Selector: 0x40, Module: "B"},
		{Selector: 0x10, Module: "A"},
		{Selector: 0x30, Module: "A"},
		{Selector: 0x20, Module: "B"},
		{Selector: 0x50, Module: "C"},
	}
	tree := Build(entries, 2)
	root := tree.Root()

	require.False(t, root.IsLeaf())
	assert.Equal(t, 3, root.Left.Len())
	assert.Equal(t, 2, root.Right.Len())
	assert.Equal(t, models.Selector(0x40), root.Boundary)
	assert.Equal(t, tree.Entries(root.Right)[0].Selector, root.Boundary)
	assert.Equal(t, models.Selector(0x30), root.Left.Boundary)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	entries := []Entry{{Selector: 3}, {Selector: 1}, {Selector: 2}}
	Build(entries, 1)
	assert.Equal(t, models.Selector(3), entries[0].Selector)
	assert.Equal(t, models.Selector(1), entries[1].Selector)
}

func TestBuild_OrderIndependent(t *testing.T) {
	entries := randomEntries(t, 40, 4, 3)
	reversed := make([]Entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	a := Build(entries, 4)
	b := Build(reversed, 4)
	assert.Equal(t, a.All(), b.All())
	assert.Equal(t, a.Depth(), b.Depth())
}

func TestNewEntries_SkipsInternalFunctions(t *testing.T) {
	m := models.NewContract("src/CoreModule.sol", "CoreModule",
		models.AsModule(),
		models.WithFunctions(
			models.ExternalFunction("owner()"),
			models.Function{Signature: "_auth()", Visibility: models.VisibilityInternal},
			models.ExternalFunction("c_0xdeadbeef(bytes32)"),
		),
	)

	all := NewEntries([]*models.Contract{m}, nil)
	assert.Len(t, all, 2)

	filtered := NewEntries([]*models.Contract{m}, func(name string) bool { return name != "c_0xdeadbeef" })
	require.Len(t, filtered, 1)
	assert.Equal(t, "owner()", filtered[0].Function)
	assert.Equal(t, "src/CoreModule.sol:CoreModule", filtered[0].Module)
}
