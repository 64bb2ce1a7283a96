package gavid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gordian-engine/gavid/gmerkle"
	"github.com/gordian-engine/gavid/gshard"
)

// ChunkCodec converts chunks to and from their wire form.
type ChunkCodec interface {
	Encode(c *Chunk) ([]byte, error)
	Decode(data []byte) (*Chunk, error)
}

// ErrChunkFormat is returned when decoding bytes that are not a valid encoded chunk.
var ErrChunkFormat = errors.New("malformed chunk encoding")

const (
	uint16Size  = 2
	uint32Size  = 4
	versionSize = uint16Size
	uuidSize    = 16

	groupIDSize   = uuidSize
	indexSize     = uint16Size
	numNodesSize  = uint16Size
	numFaultsSize = uint16Size
	paddingSize   = 1
	rootSize      = gmerkle.DigestSize
	proofLenSize  = uint32Size

	prefixSize    = versionSize + groupIDSize + indexSize + numNodesSize + numFaultsSize + paddingSize + rootSize + proofLenSize
	binaryVersion = 1
)

// BinaryChunkCodec is a [ChunkCodec] with a fixed little-endian header,
// followed by the serialized proof and then the shard data.
type BinaryChunkCodec struct{}

var _ ChunkCodec = BinaryChunkCodec{}

func (BinaryChunkCodec) Encode(c *Chunk) ([]byte, error) {
	for _, v := range []struct {
		name string
		n    int
	}{
		{"index", c.Index},
		{"node count", c.NumNodes},
		{"fault count", c.NumFaults},
	} {
		if v.n < 0 || v.n > math.MaxUint16 {
			return nil, fmt.Errorf("chunk %s %d does not fit in 16 bits", v.name, v.n)
		}
	}

	proof, err := c.Proof.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode proof: %w", err)
	}
	if uint64(len(proof)) > math.MaxUint32 {
		return nil, fmt.Errorf("proof of %d bytes is too large", len(proof))
	}

	out := make([]byte, prefixSize+len(proof)+len(c.Data))

	binary.LittleEndian.PutUint16(out[0:2], binaryVersion)
	copy(out[2:18], c.GroupID[:])
	binary.LittleEndian.PutUint16(out[18:20], uint16(c.Index))
	binary.LittleEndian.PutUint16(out[20:22], uint16(c.NumNodes))
	binary.LittleEndian.PutUint16(out[22:24], uint16(c.NumFaults))
	out[24] = byte(c.Padding)
	copy(out[25:57], c.Root[:])
	binary.LittleEndian.PutUint32(out[57:61], uint32(len(proof)))

	copy(out[prefixSize:], proof)
	copy(out[prefixSize+len(proof):], c.Data)

	return out, nil
}

func (BinaryChunkCodec) Decode(data []byte) (*Chunk, error) {
	if len(data) < prefixSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrChunkFormat, len(data))
	}

	if version := binary.LittleEndian.Uint16(data[0:2]); version != binaryVersion {
		return nil, fmt.Errorf("%w: unsupported version: %d", ErrChunkFormat, version)
	}

	c := new(Chunk)
	copy(c.GroupID[:], data[2:18])
	c.Index = int(binary.LittleEndian.Uint16(data[18:20]))
	c.NumNodes = int(binary.LittleEndian.Uint16(data[20:22]))
	c.NumFaults = int(binary.LittleEndian.Uint16(data[22:24]))
	c.Padding = gshard.PaddingScheme(data[24])
	copy(c.Root[:], data[25:57])

	proofLen := uint64(binary.LittleEndian.Uint32(data[57:61]))
	rest := data[prefixSize:]
	if proofLen > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: proof length %d exceeds remaining %d bytes", ErrChunkFormat, proofLen, len(rest))
	}

	proof, err := gmerkle.ParseProof(rest[:proofLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkFormat, err)
	}
	c.Proof = proof

	c.Data = make([]byte, len(rest)-int(proofLen))
	copy(c.Data, rest[proofLen:])

	return c, nil
}
