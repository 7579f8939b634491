// Package router builds the binary dispatch tree over the selectors of the
// composed modules.
package router

import (
	"sort"

	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

// Entry pairs a selector with the module that implements it
type Entry struct {
	Selector models.Selector
	Function string // Signature, for rendering comments
	Module   string // Fully-qualified name of the owning module
}

// NewEntries flattens the visible functions of modules into router entries.
// include filters functions by name; nil includes every visible function.
func NewEntries(modules []*models.Contract, include func(name string) bool) []Entry {
	var entries []Entry
	for _, m := range modules {
		for _, fn := range m.VisibleFunctions(include) {
			entries = append(entries, Entry{
				Selector: fn.Selector,
				Function: fn.Signature,
				Module:   m.FullyQualifiedName(),
			})
		}
	}
	return entries
}

// Node is a range [Lo, Hi) of the sorted entries. Internal nodes carry the
// boundary selector, which is the first selector of the right child.
type Node struct {
	Lo, Hi   int
	Boundary models.Selector
	Left     *Node
	Right    *Node
}

// IsLeaf reports whether the node is rendered as a flat switch
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Len returns the number of entries covered by the node
func (n *Node) Len() int {
	return n.Hi - n.Lo
}

// Tree is the binary dispatch tree over an immutable, sorted entry slice
type Tree struct {
	entries     []Entry
	root        *Node
	maxLeafSize int
}

// Build sorts a copy of entries by selector and splits it into leaves of at most
// maxLeafSize selectors. Entries must not contain duplicate selectors.
func Build(entries []Entry, maxLeafSize int) *Tree {
	if maxLeafSize < 1 {
		maxLeafSize = 1
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Selector < sorted[j].Selector
	})

	t := &Tree{entries: sorted, maxLeafSize: maxLeafSize}
	t.root = t.split(0, len(sorted))
	return t
}

func (t *Tree) split(lo, hi int) *Node {
	n := &Node{Lo: lo, Hi: hi}
	if hi-lo <= t.maxLeafSize {
		return n
	}
	// left child takes the larger half
	mid := lo + (hi-lo+1)/2
	n.Boundary = t.entries[mid].Selector
	n.Left = t.split(lo, mid)
	n.Right = t.split(mid, hi)
	return n
}

// Root returns the root node
func (t *Tree) Root() *Node {
	return t.root
}

// Entries returns the sorted entries covered by n
func (t *Tree) Entries(n *Node) []Entry {
	return t.entries[n.Lo:n.Hi]
}

// All returns every entry in selector order
func (t *Tree) All() []Entry {
	return t.entries
}

// MaxLeafSize returns the configured leaf threshold
func (t *Tree) MaxLeafSize() int {
	return t.maxLeafSize
}

// Lookup resolves a selector the same way the rendered router does: one
// less-than comparison per internal node, then a scan of the leaf.
func (t *Tree) Lookup(sel models.Selector) (Entry, bool) {
	n := t.root
	for !n.IsLeaf() {
		if sel < n.Boundary {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	for _, e := range t.Entries(n) {
		if e.Selector == sel {
			return e, true
		}
	}
	return Entry{}, false
}

// Depth returns the number of comparisons on the longest root-to-leaf path
func (t *Tree) Depth() int {
	return depth(t.root)
}

func depth(n *Node) int {
	if n.IsLeaf() {
		return 0
	}
	l, r := depth(n.Left), depth(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// Leaves returns the leaf nodes from left to right
func (t *Tree) Leaves() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, n)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.root)
	return out
}

// Modules returns the fully-qualified names of every module in the tree, sorted
func (t *Tree) Modules() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range t.entries {
		if !seen[e.Module] {
			seen[e.Module] = true
			out = append(out, e.Module)
		}
	}
	sort.Strings(out)
	return out
}
