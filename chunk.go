package gavid

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/gordian-engine/gavid/gshard"
)

// Chunk is one shard of a dispersed blob,
// together with everything needed to check it in isolation.
type Chunk struct {
	// GroupID ties together the chunks produced by one call to [Disperse].
	// It is informational; the Root identifies the blob.
	GroupID uuid.UUID

	// Index of this shard within the shard set.
	Index int

	NumNodes  int
	NumFaults int
	Padding   gshard.PaddingScheme

	// Root of the Merkle tree over all NumNodes shards.
	Root gmerkle.Digest

	Data []byte

	// Proof that Data is the leaf at Index under Root.
	// Its LeafCount must equal NumNodes.
	Proof gmerkle.Proof
}

// Config returns the shard configuration the chunk was encoded with.
func (c Chunk) Config() gshard.Config {
	return gshard.Config{
		NumNodes:  c.NumNodes,
		NumFaults: c.NumFaults,
		Padding:   c.Padding,
	}
}

// Verify reports whether c's proof shows that c.Data
// is shard c.Index of a set of c.NumNodes shards under c.Root.
// The options must match those given to [Disperse].
func (c Chunk) Verify(opts ...gmerkle.Option) (bool, error) {
	if c.Index < 0 || c.Index >= c.NumNodes {
		return false, fmt.Errorf("chunk index %d out of range for %d nodes", c.Index, c.NumNodes)
	}
	return gmerkle.Verify(c.Proof, c.Root, []int{c.Index}, [][]byte{c.Data}, c.NumNodes, opts...)
}

// Dispersal is the result of [Disperse].
type Dispersal struct {
	GroupID uuid.UUID
	Root    gmerkle.Digest

	// Chunks has one entry per shard, in shard order.
	Chunks []Chunk
}

// Disperse erasure-codes blob according to cfg,
// builds a Merkle tree whose leaves are the encoded shards,
// and returns one chunk per shard with its membership proof.
func Disperse(blob []byte, cfg gshard.Config, opts ...gmerkle.Option) (*Dispersal, error) {
	s, err := gshard.NewSharder(cfg)
	if err != nil {
		return nil, err
	}

	shards, err := s.Encode(context.Background(), blob)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shards: %w", err)
	}

	tree, err := gmerkle.Build(shards, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}
	root, err := tree.Root()
	if err != nil {
		return nil, fmt.Errorf("failed to get merkle root: %w", err)
	}

	d := &Dispersal{
		GroupID: uuid.New(),
		Root:    root,
		Chunks:  make([]Chunk, len(shards)),
	}
	for i, shard := range shards {
		proof, err := tree.Prove([]int{i})
		if err != nil {
			panic(fmt.Errorf("BUG: failed to prove in-range shard %d: %w", i, err))
		}

		d.Chunks[i] = Chunk{
			GroupID:   d.GroupID,
			Index:     i,
			NumNodes:  cfg.NumNodes,
			NumFaults: cfg.NumFaults,
			Padding:   cfg.Padding,
			Root:      root,
			Data:      shard,
			Proof:     proof,
		}
	}

	return d, nil
}

// shardRoot returns the Merkle root over a complete shard set.
func shardRoot(shards [][]byte, opts []gmerkle.Option) (gmerkle.Digest, error) {
	tree, err := gmerkle.Build(shards, opts...)
	if err != nil {
		return gmerkle.Digest{}, err
	}
	return tree.Root()
}
