package gmerkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size of every leaf, node, and root digest.
const DigestSize = 32

// Digest is a leaf, node, or root hash.
type Digest [DigestSize]byte

// String returns the lowercase hex encoding of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a 64-character hex string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("failed to decode digest: %w", err)
	}
	if len(b) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// BLAKE2b256 returns a new unkeyed BLAKE2b-256 hash,
// for use with [WithHash].
func BLAKE2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with an oversized key.
		panic(fmt.Errorf("BUG: failed to create blake2b hash: %w", err))
	}
	return h
}

// Option configures a [Tree] or a call to [Verify].
type Option func(*options)

type options struct {
	newHash func() hash.Hash
}

// WithHash sets the hash function used for leaves and nodes.
// The default is SHA-256.
// The hash must produce [DigestSize] bytes.
func WithHash(newHash func() hash.Hash) Option {
	if size := newHash().Size(); size != DigestSize {
		panic(fmt.Errorf("BUG: hash size must be %d, got %d", DigestSize, size))
	}
	return func(o *options) {
		o.newHash = newHash
	}
}

func buildOptions(opts []Option) options {
	o := options{newHash: sha256.New}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// hasher reuses one hash.Hash for a sequence of digests.
// It is not safe for concurrent use.
type hasher struct {
	h   hash.Hash
	buf []byte
}

func newHasher(newHash func() hash.Hash) *hasher {
	return &hasher{
		h:   newHash(),
		buf: make([]byte, 0, DigestSize),
	}
}

func (h *hasher) leaf(value []byte) Digest {
	h.h.Reset()
	_, _ = h.h.Write(value) // Hash writes never fail.
	return h.sum()
}

func (h *hasher) node(left, right Digest) Digest {
	h.h.Reset()
	_, _ = h.h.Write(left[:])
	_, _ = h.h.Write(right[:])
	return h.sum()
}

func (h *hasher) sum() Digest {
	var d Digest
	h.buf = h.h.Sum(h.buf[:0])
	copy(d[:], h.buf)
	return d
}

// LeafDigest returns the digest of a single leaf value.
func LeafDigest(value []byte, opts ...Option) Digest {
	o := buildOptions(opts)
	return newHasher(o.newHash).leaf(value)
}
