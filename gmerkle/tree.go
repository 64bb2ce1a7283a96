package gmerkle

import (
	"errors"
	"fmt"
	"hash"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrEmpty is returned when a root or proof is requested
	// from a tree with no leaves, or a tree is built from no values.
	ErrEmpty = errors.New("merkle tree has no leaves")

	// ErrIndexOutOfRange is returned for a leaf index
	// outside the tree's current leaves.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// Tree is an append-only binary Merkle tree.
//
// Every level of the tree is stored,
// so that appends only rehash the nodes to the right of the old leaves
// and proofs are read directly from the stored levels.
//
// Tree methods are safe for concurrent use:
// Append holds an exclusive lock for its whole duration,
// so Root and Prove never observe a partially applied append.
type Tree struct {
	newHash func() hash.Hash

	mu sync.RWMutex

	// levels[0] holds the leaf digests.
	// The last level holds exactly one digest, the root,
	// unless the tree is empty.
	levels [][]Digest
}

// New returns an empty tree.
func New(opts ...Option) *Tree {
	o := buildOptions(opts)
	return &Tree{
		newHash: o.newHash,
		levels:  make([][]Digest, 1),
	}
}

// Build returns a tree containing the given leaf values, in order.
// It returns [ErrEmpty] if leafValues is empty.
func Build(leafValues [][]byte, opts ...Option) (*Tree, error) {
	if len(leafValues) == 0 {
		return nil, ErrEmpty
	}

	t := New(opts...)
	t.Append(leafValues)
	return t, nil
}

// Len returns the number of leaves in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.levels[0])
}

// Leaf returns the digest of the leaf at idx.
// The ok value indicates whether idx was in bounds.
func (t *Tree) Leaf(idx int) (d Digest, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || idx >= len(t.levels[0]) {
		return Digest{}, false
	}
	return t.levels[0][idx], true
}

// Root returns the current root digest.
func (t *Tree) Root() (Digest, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.levels[0]) == 0 {
		return Digest{}, ErrEmpty
	}
	return t.levels[len(t.levels)-1][0], nil
}

// RootHex returns the current root digest as 64 lowercase hex characters.
func (t *Tree) RootHex() (string, error) {
	root, err := t.Root()
	if err != nil {
		return "", err
	}
	return root.String(), nil
}

// Append adds leaves to the end of the tree and updates the root.
// Existing leaves never change.
func (t *Tree) Append(leafValues [][]byte) {
	if len(leafValues) == 0 {
		return
	}

	// Hashing the new leaves does not touch shared state.
	h := newHasher(t.newHash)
	digests := make([]Digest, len(leafValues))
	for i, v := range leafValues {
		digests[i] = h.leaf(v)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	first := len(t.levels[0])
	t.levels[0] = append(t.levels[0], digests...)

	// Rehash each level from the first changed parent onward.
	for l := 0; len(t.levels[l]) > 1; l++ {
		cur := t.levels[l]
		if l+1 == len(t.levels) {
			t.levels = append(t.levels, nil)
		}

		parentFirst := first / 2
		next := t.levels[l+1][:min(parentFirst, len(t.levels[l+1]))]
		for p := parentFirst; p < (len(cur)+1)/2; p++ {
			left := 2 * p
			if left+1 < len(cur) {
				next = append(next, h.node(cur[left], cur[left+1]))
			} else {
				// Unpaired last node moves up unchanged.
				next = append(next, cur[left])
			}
		}
		t.levels[l+1] = next

		first = parentFirst
	}
}

// Prove returns a proof of membership for the leaves at the given indices.
// Duplicate indices are ignored.
//
// The proof contains, level by level from the leaves upward,
// each sibling digest that cannot be computed from the proven leaves alone.
func (t *Tree) Prove(indices []int) (Proof, error) {
	if len(indices) == 0 {
		return Proof{}, fmt.Errorf("no leaf indices to prove")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	nLeaves := len(t.levels[0])
	if nLeaves == 0 {
		return Proof{}, ErrEmpty
	}

	known := bitset.New(uint(nLeaves))
	for _, idx := range indices {
		if idx < 0 || idx >= nLeaves {
			return Proof{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, nLeaves)
		}
		known.Set(uint(idx))
	}

	var items []ProofItem
	for l := 0; l < len(t.levels)-1; l++ {
		level := t.levels[l]
		next := bitset.New(uint(len(t.levels[l+1])))

		for i, ok := known.NextSet(0); ok; i, ok = known.NextSet(i + 1) {
			idx := int(i)
			sib := idx ^ 1
			if sib < len(level) && !known.Test(uint(sib)) {
				side := SideLeft
				if sib > idx {
					side = SideRight
				}
				items = append(items, ProofItem{Side: side, Digest: level[sib]})
			}
			next.Set(uint(idx / 2))
		}

		known = next
	}

	return Proof{
		LeafCount: nLeaves,
		Items:     slices.Clip(items),
	}, nil
}
