package gshard

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PaddingScheme selects how a blob is padded to a multiple of K bytes.
type PaddingScheme uint8

const (
	// PaddingSelfDescribing appends padLen bytes, each equal to padLen.
	// At least one byte is always appended,
	// and padLen must stay below 256.
	PaddingSelfDescribing PaddingScheme = iota

	// PaddingLengthSuffix appends zero bytes followed by
	// the blob length as a 4-byte big-endian integer.
	// It has no limit on the padding length.
	PaddingLengthSuffix
)

const lengthSuffixSize = 4

func (p PaddingScheme) String() string {
	switch p {
	case PaddingSelfDescribing:
		return "self-describing"
	case PaddingLengthSuffix:
		return "length-suffix"
	default:
		return fmt.Sprintf("PaddingScheme(%d)", uint8(p))
	}
}

// Pad returns a new slice holding blob and its trailer,
// with a length that is a multiple of k,
// along with the resulting shard size.
func (p PaddingScheme) Pad(blob []byte, k int) (padded []byte, shardSize int, err error) {
	var minLen int
	switch p {
	case PaddingSelfDescribing:
		minLen = len(blob) + 1
	case PaddingLengthSuffix:
		if uint64(len(blob)) > math.MaxUint32 {
			return nil, 0, fmt.Errorf("%w: blob of %d bytes exceeds length suffix", ErrPaddingOverflow, len(blob))
		}
		minLen = len(blob) + lengthSuffixSize
	default:
		return nil, 0, fmt.Errorf("%w: unknown padding scheme %d", ErrConfig, p)
	}

	shardSize = (minLen + k - 1) / k
	padded = make([]byte, k*shardSize)
	copy(padded, blob)

	padLen := len(padded) - len(blob)
	switch p {
	case PaddingSelfDescribing:
		if padLen > math.MaxUint8 {
			return nil, 0, fmt.Errorf(
				"%w: %d padding bytes needed for %d data shards",
				ErrPaddingOverflow, padLen, k,
			)
		}
		trailer := padded[len(blob):]
		for i := range trailer {
			trailer[i] = byte(padLen)
		}
	case PaddingLengthSuffix:
		binary.BigEndian.PutUint32(padded[len(padded)-lengthSuffixSize:], uint32(len(blob)))
	}

	return padded, shardSize, nil
}

// Unpad returns the prefix of data preceding its trailer.
// The returned slice aliases data.
func (p PaddingScheme) Unpad(data []byte) ([]byte, error) {
	switch p {
	case PaddingSelfDescribing:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: no data", ErrInvalidPadding)
		}
		v := int(data[len(data)-1])
		if v == 0 || v > len(data) {
			return nil, fmt.Errorf("%w: trailer value %d with %d bytes of data", ErrInvalidPadding, v, len(data))
		}
		end := len(data) - v
		for i := end; i < len(data); i++ {
			if int(data[i]) != v {
				return nil, fmt.Errorf("%w: byte %d is %d, want %d", ErrInvalidPadding, i, data[i], v)
			}
		}
		return data[:end], nil

	case PaddingLengthSuffix:
		if len(data) < lengthSuffixSize {
			return nil, fmt.Errorf("%w: %d bytes cannot hold length suffix", ErrInvalidPadding, len(data))
		}
		suffixStart := len(data) - lengthSuffixSize
		n := binary.BigEndian.Uint32(data[suffixStart:])
		if uint64(n) > uint64(suffixStart) {
			return nil, fmt.Errorf("%w: length %d exceeds %d available bytes", ErrInvalidPadding, n, suffixStart)
		}
		for i := int(n); i < suffixStart; i++ {
			if data[i] != 0 {
				return nil, fmt.Errorf("%w: non-zero fill byte at %d", ErrInvalidPadding, i)
			}
		}
		return data[:n], nil

	default:
		return nil, fmt.Errorf("%w: unknown padding scheme %d", ErrConfig, p)
	}
}
