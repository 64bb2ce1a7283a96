// Package gavid disperses blobs as erasure-coded chunks
// that each carry a Merkle proof against a common root,
// and collects such chunks back into blobs.
//
// A sender calls [Disperse] and hands one [Chunk] to each storage node.
// Any node can check its chunk with [Chunk.Verify] without seeing the others.
// A [Processor] accepts verified chunks from any number of dispersals,
// and reconstructs each blob as soon as enough chunks for its root arrive.
//
// The erasure coding lives in [github.com/gordian-engine/gavid/gshard]
// and the authentication tree in [github.com/gordian-engine/gavid/gmerkle].
package gavid
