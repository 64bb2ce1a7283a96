package gmerkle

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrProofFormat is returned for a serialized proof that cannot be parsed,
// or a proof whose items do not fit the shape of the tree it claims.
var ErrProofFormat = errors.New("malformed merkle proof")

// Side indicates on which side of the running digest a sibling sits.
type Side byte

const (
	SideLeft  Side = 0
	SideRight Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", byte(s))
	}
}

// ProofItem is one sibling digest in a [Proof].
type ProofItem struct {
	Side   Side
	Digest Digest
}

// Proof is a membership proof for one or more leaves.
type Proof struct {
	// Number of leaves in the tree when the proof was generated.
	LeafCount int

	Items []ProofItem
}

const (
	proofHeaderSize = 8 + 4 // Leaf count, item count.
	proofItemSize   = 1 + DigestSize
)

// MarshalBinary encodes p as a big-endian 8-byte leaf count,
// a 4-byte item count, and then each item
// as its side byte followed by its digest.
func (p Proof) MarshalBinary() ([]byte, error) {
	if p.LeafCount < 0 {
		return nil, fmt.Errorf("negative leaf count %d", p.LeafCount)
	}
	if uint64(len(p.Items)) > math.MaxUint32 {
		return nil, fmt.Errorf("too many proof items: %d", len(p.Items))
	}

	out := make([]byte, proofHeaderSize+len(p.Items)*proofItemSize)
	binary.BigEndian.PutUint64(out[:8], uint64(p.LeafCount))
	binary.BigEndian.PutUint32(out[8:12], uint32(len(p.Items)))

	b := out[proofHeaderSize:]
	for _, it := range p.Items {
		b[0] = byte(it.Side)
		copy(b[1:proofItemSize], it.Digest[:])
		b = b[proofItemSize:]
	}

	return out, nil
}

// UnmarshalBinary decodes the format written by [Proof.MarshalBinary].
// Any error wraps [ErrProofFormat].
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) < proofHeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrProofFormat, len(data))
	}

	leafCount := binary.BigEndian.Uint64(data[:8])
	if leafCount > math.MaxInt {
		return fmt.Errorf("%w: leaf count %d overflows", ErrProofFormat, leafCount)
	}
	nItems := binary.BigEndian.Uint32(data[8:12])

	body := data[proofHeaderSize:]
	if uint64(len(body)) != uint64(nItems)*proofItemSize {
		return fmt.Errorf(
			"%w: %d items need %d bytes, have %d",
			ErrProofFormat, nItems, uint64(nItems)*proofItemSize, len(body),
		)
	}

	items := make([]ProofItem, nItems)
	for i := range items {
		side := Side(body[0])
		if side != SideLeft && side != SideRight {
			return fmt.Errorf("%w: item %d has side flag %d", ErrProofFormat, i, body[0])
		}
		items[i].Side = side
		copy(items[i].Digest[:], body[1:proofItemSize])
		body = body[proofItemSize:]
	}

	p.LeafCount = int(leafCount)
	p.Items = items
	return nil
}

// ParseProof decodes a serialized proof.
func ParseProof(data []byte) (Proof, error) {
	var p Proof
	err := p.UnmarshalBinary(data)
	return p, err
}

type provenNode struct {
	idx int
	d   Digest
}

// Verify reports whether p proves that each leafValues[i]
// is the leaf at indices[i] of a tree with the given root,
// and that the tree had totalLeafCount leaves when p was generated.
//
// A false result with a nil error means the proof is well-formed but does not match.
// An error wrapping [ErrProofFormat] means p has too few or too many items
// for the claimed leaf count and indices.
func Verify(
	p Proof,
	root Digest,
	indices []int,
	leafValues [][]byte,
	totalLeafCount int,
	opts ...Option,
) (bool, error) {
	if len(indices) == 0 {
		return false, fmt.Errorf("no leaf indices to verify")
	}
	if len(indices) != len(leafValues) {
		return false, fmt.Errorf("got %d indices but %d leaf values", len(indices), len(leafValues))
	}

	if totalLeafCount != p.LeafCount {
		return false, nil
	}
	if p.LeafCount <= 0 {
		return false, fmt.Errorf("%w: leaf count %d", ErrProofFormat, p.LeafCount)
	}

	o := buildOptions(opts)
	h := newHasher(o.newHash)

	cur := make([]provenNode, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= p.LeafCount {
			return false, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, p.LeafCount)
		}
		cur[i] = provenNode{idx: idx, d: h.leaf(leafValues[i])}
	}
	slices.SortFunc(cur, func(a, b provenNode) int {
		return cmp.Compare(a.idx, b.idx)
	})

	// The same index twice must carry the same value.
	deduped := cur[:1]
	for _, n := range cur[1:] {
		last := deduped[len(deduped)-1]
		if n.idx == last.idx {
			if n.d != last.d {
				return false, nil
			}
			continue
		}
		deduped = append(deduped, n)
	}
	cur = deduped

	items := p.Items
	for width := p.LeafCount; width > 1; width = (width + 1) / 2 {
		next := make([]provenNode, 0, len(cur))
		for j := 0; j < len(cur); j++ {
			n := cur[j]
			sib := n.idx ^ 1

			var parent Digest
			switch {
			case sib >= width:
				parent = n.d

			case sib > n.idx && j+1 < len(cur) && cur[j+1].idx == sib:
				parent = h.node(n.d, cur[j+1].d)
				j++

			default:
				if len(items) == 0 {
					return false, fmt.Errorf("%w: ran out of items at width %d", ErrProofFormat, width)
				}
				it := items[0]
				items = items[1:]

				if sib > n.idx {
					if it.Side != SideRight {
						return false, nil
					}
					parent = h.node(n.d, it.Digest)
				} else {
					if it.Side != SideLeft {
						return false, nil
					}
					parent = h.node(it.Digest, n.d)
				}
			}

			next = append(next, provenNode{idx: n.idx / 2, d: parent})
		}
		cur = next
	}

	if len(items) != 0 {
		return false, fmt.Errorf("%w: %d unused items", ErrProofFormat, len(items))
	}

	return cur[0].d == root, nil
}

// VerifyBytes parses proofBytes and calls [Verify].
func VerifyBytes(
	proofBytes []byte,
	root Digest,
	indices []int,
	leafValues [][]byte,
	totalLeafCount int,
	opts ...Option,
) (bool, error) {
	p, err := ParseProof(proofBytes)
	if err != nil {
		return false, err
	}
	return Verify(p, root, indices, leafValues, totalLeafCount, opts...)
}
