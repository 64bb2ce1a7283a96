// Package gmerkle contains an append-only binary Merkle tree
// with compact multi-leaf membership proofs.
//
// Each leaf value is hashed to a 32-byte leaf digest,
// and each internal node is the hash of its left child's digest
// followed by its right child's digest.
// When a level has an odd number of nodes,
// the last node is promoted unchanged to the next level
// rather than being paired with a copy of itself.
//
// A [Proof] records the number of leaves in the tree it was generated from,
// and [Verify] rejects a proof whose leaf count differs from the caller's,
// so a proof made against an earlier, shorter tree
// cannot validate against a later root.
package gmerkle
